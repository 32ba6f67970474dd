package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/munkhbileg/openproject/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a view over HTTP",
	Long: `Serve a view's rows over HTTP and accept completed gestures.

Endpoints:
  GET  /health
  GET  /rows
  GET  /order
  POST /rows/moved    {"identifier", "entityId", "rowIndex"}
  POST /rows/added    {"identifier", "entityId", "rowIndex"}
  POST /rows/removed  {"identifier"}
  POST /rows/created  {"entityId"}

Examples:
  wporder serve --rows 12,7,31
  WPORDER_PUBLISH_ENDPOINT=https://op.example.com/api/v3/queries/5/order wporder serve`,
	RunE: runServe,
}

var serveRows []string

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringSliceVar(&serveRows, "rows", nil, "initial work package ids, top to bottom")
	serveCmd.Flags().String("addr", "", "listen address (default from server.addr)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
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

	s, err := buildStack(ctx, cfg, logger, parseRows(serveRows))
	if err != nil {
		return err
	}
	defer s.close()

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: api.NewServer(api.Options{
			Container: cfg.Table.Container,
			View:      s.view,
			Gestures:  s.source,
			Creations: s.creations,
			Logger:    logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s\n", cfg.Table.Container, cfg.Server.Addr)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
