package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/munkhbileg/openproject/internal/config"
	"github.com/munkhbileg/openproject/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Reorder rows interactively in the terminal",
	Long: `Show a view's rows in the terminal. Use K and J to move the selected row,
n to create a row inline, d to remove it and q to quit.`,
	RunE: runTUI,
}

var tuiRows []string

func init() {
	rootCmd.AddCommand(tuiCmd)
	tuiCmd.Flags().StringSliceVar(&tuiRows, "rows", nil, "initial work package ids, top to bottom")
}

func runTUI(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("tui requires an interactive terminal")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// The terminal belongs to the UI, so logs only go to a file
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = filepath.Join(config.ConfigDir(), "logs")
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	s, err := buildStack(ctx, cfg, logger, parseRows(tuiRows))
	if err != nil {
		return err
	}
	defer s.close()

	model := tui.New(tui.Options{
		Title:       cfg.Table.Container,
		Container:   cfg.Table.Container,
		LeadingRows: cfg.Table.HeaderRows,
		View:        s.view,
		Gestures:    s.source,
		Creations:   s.creations,
		Teardown:    cancel,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	stopForward := tui.Forward(s.bus, cfg.Table.Container, p)
	defer stopForward()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
