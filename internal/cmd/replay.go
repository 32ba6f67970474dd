package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/munkhbileg/openproject/internal/config"
	"github.com/munkhbileg/openproject/internal/logging"
	"github.com/munkhbileg/openproject/internal/remote"
	"github.com/munkhbileg/openproject/internal/replay"
)

var replayCmd = &cobra.Command{
	Use:   "replay <script.yaml>",
	Short: "Replay a script of row gestures",
	Long: `Replay a YAML script of row gestures against a fresh view and print the
resulting order.

Script format:
  rows: ["12", "7", "31"]
  steps:
    - move: {identifier: wp-row-31, rowIndex: 1}
    - remove: {entityId: "7"}
    - add: {entityId: "40", rowIndex: 2}
    - create: {}

With --watch the script is replayed again every time it is saved.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

var replayWatch bool

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVarP(&replayWatch, "watch", "w", false, "replay again whenever the script changes")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	if !replayWatch {
		script, err := replay.Load(args[0])
		if err != nil {
			return err
		}
		return replayOnce(ctx, out, cfg, logger, script)
	}

	return replay.Watch(ctx, args[0], func(script *replay.Script, err error) {
		fmt.Fprintf(out, "--- %s\n", args[0])
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			return
		}
		if err := replayOnce(ctx, out, cfg, logger, script); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	})
}

func replayOnce(ctx context.Context, out io.Writer, cfg *config.Config, logger *logging.Logger, script *replay.Script) error {
	opts := replay.Options{
		Container:   cfg.Table.Container,
		LeadingRows: cfg.Table.HeaderRows,
		Immediate:   cfg.Publish.Immediate,
		Timeout:     cfg.Publish.Timeout(),
		Logger:      logger,
	}
	if cfg.Publish.Endpoint != "" {
		sink, _, err := newSink(cfg, logger)
		if err != nil {
			return err
		}
		opts.Sink = sink
		opts.Formatter = remote.WorkPackageHref(cfg.Publish.APIBase)
	}

	res, err := replay.Run(ctx, script, opts)
	if err != nil {
		return err
	}
	printResult(out, res)
	return nil
}

func printResult(out io.Writer, res *replay.Result) {
	fmt.Fprintln(out, "Rows:")
	for i, d := range res.Rows {
		kind := "#" + d.EntityID
		if !d.Persisted() {
			kind = "(new)"
		}
		fmt.Fprintf(out, "  %2d. %-24s %s\n", i+1, d.Identifier, kind)
	}
	fmt.Fprintf(out, "Order:  [%s]\n", strings.Join(res.Order, " "))
	if res.Remote != nil {
		fmt.Fprintf(out, "Remote: [%s]\n", strings.Join(res.Remote, " "))
	}
	fmt.Fprintf(out, "Publishes: %d sent, %d failed, %d skipped\n", res.Stats.Sent, res.Stats.Failed, res.Stats.Skipped)
	for _, d := range res.Desyncs {
		fmt.Fprintf(out, "Desync: %s\n", d)
	}
	for _, e := range res.Errors {
		fmt.Fprintf(out, "Failed: %s\n", e)
	}
}
