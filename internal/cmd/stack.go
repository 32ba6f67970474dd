package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/munkhbileg/openproject/internal/config"
	"github.com/munkhbileg/openproject/internal/event"
	"github.com/munkhbileg/openproject/internal/gesture"
	"github.com/munkhbileg/openproject/internal/logging"
	"github.com/munkhbileg/openproject/internal/publish"
	"github.com/munkhbileg/openproject/internal/reconcile"
	"github.com/munkhbileg/openproject/internal/remote"
	"github.com/munkhbileg/openproject/internal/reorder"
	"github.com/munkhbileg/openproject/internal/rows"
	"github.com/munkhbileg/openproject/internal/stream"
)

// stack is one attached view with the collaborators around it.
type stack struct {
	cfg       *config.Config
	logger    *logging.Logger
	bus       *event.Bus
	source    *gesture.BusSource
	creations *stream.Broadcaster[reorder.Created]
	memory    *remote.MemorySink // nil when an HTTP endpoint is configured
	view      *reconcile.View
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	return logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
}

// newSink returns the HTTP sink when an endpoint is configured, otherwise an
// in-memory one.
func newSink(cfg *config.Config, logger *logging.Logger) (publish.OrderSink, *remote.MemorySink, error) {
	if cfg.Publish.Endpoint == "" {
		memory := remote.NewMemorySink(cfg.Publish.Immediate)
		return memory, memory, nil
	}
	sink, err := remote.NewHTTPSink(cfg.Publish.Endpoint, remote.HTTPOptions{
		Immediate: cfg.Publish.Immediate,
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return sink, nil, nil
}

// parseRows turns comma separated entity ids into descriptors.
func parseRows(ids []string) []rows.Descriptor {
	var out []rows.Descriptor
	for _, raw := range ids {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				out = append(out, rows.Descriptor{Identifier: reorder.IdentifierFor(id), EntityID: id})
			}
		}
	}
	return out
}

func buildStack(ctx context.Context, cfg *config.Config, logger *logging.Logger, initial []rows.Descriptor) (*stack, error) {
	sink, memory, err := newSink(cfg, logger)
	if err != nil {
		return nil, err
	}

	s := &stack{
		cfg:       cfg,
		logger:    logger,
		bus:       event.NewBus(logger),
		creations: stream.New[reorder.Created](stream.DefaultBuffer),
		memory:    memory,
	}
	s.source = gesture.NewBusSource(s.bus)

	s.view, err = reconcile.Attach(ctx, reconcile.Options{
		Container:   cfg.Table.Container,
		Gesture:     s.source,
		Creations:   s.creations,
		Sink:        sink,
		Bus:         s.bus,
		Formatter:   remote.WorkPackageHref(cfg.Publish.APIBase),
		Initial:     initial,
		LeadingRows: cfg.Table.HeaderRows,
		Timeout:     cfg.Publish.Timeout(),
		QueueSize:   cfg.Publish.QueueSize,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// close tears the view down and waits for queued publishes.
func (s *stack) close() {
	s.view.Teardown()
	s.view.Wait()
	s.creations.Shutdown()
}
