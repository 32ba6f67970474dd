package replay

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

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

// ErrDisabled is returned when the view could not be attached.
var ErrDisabled = errors.New("replay: row ordering disabled")

// createTimeout bounds how long a create step waits for its row to appear.
const createTimeout = 2 * time.Second

// Options configures a run.
type Options struct {
	Container   string
	LeadingRows int
	Immediate   bool
	// Sink defaults to an in-memory sink.
	Sink      publish.OrderSink
	Formatter publish.IDFormatter
	Timeout   time.Duration
	Logger    *logging.Logger
	NewID     func() string
}

// Result summarizes a run.
type Result struct {
	Rows    rows.Sequence
	Order   []string
	Remote  []string // last order applied by the in-memory sink, nil for other sinks
	Stats   publish.Stats
	Desyncs []string
	Errors  []string
}

// Run replays script against a fresh view and waits for every publish.
func Run(ctx context.Context, script *Script, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	container := script.Container
	if container == "" {
		container = opts.Container
	}
	immediate := opts.Immediate
	if script.Immediate != nil {
		immediate = *script.Immediate
	}

	var memory *remote.MemorySink
	sink := opts.Sink
	if sink == nil {
		memory = remote.NewMemorySink(immediate)
		sink = memory
	}

	initial := make([]rows.Descriptor, len(script.Rows))
	for i, id := range script.Rows {
		initial[i] = rows.Descriptor{
			Identifier: reorder.IdentifierFor(id),
			EntityID:   id,
			Hidden:     slices.Contains(script.Hidden, id),
		}
	}

	bus := event.NewBus(logger)
	source := gesture.NewBusSource(bus)
	creations := stream.New[reorder.Created](len(script.Steps) + 1)
	defer creations.Shutdown()

	result := &Result{}
	bus.Subscribe(event.TypeRowDesync, func(e event.Event) {
		if ev, ok := e.(event.RowDesyncEvent); ok {
			result.Desyncs = append(result.Desyncs, ev.Op+" "+ev.Identifier)
		}
	})
	bus.Subscribe(event.TypeOrderPublishFailed, func(e event.Event) {
		if ev, ok := e.(event.OrderPublishFailedEvent); ok {
			result.Errors = append(result.Errors, fmt.Sprintf("v%d: %s", ev.Version, ev.Error))
		}
	})

	viewCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	view, err := reconcile.Attach(viewCtx, reconcile.Options{
		Container:   container,
		Gesture:     source,
		Creations:   creations,
		Sink:        sink,
		Bus:         bus,
		Formatter:   opts.Formatter,
		Initial:     initial,
		LeadingRows: opts.LeadingRows,
		Timeout:     opts.Timeout,
		QueueSize:   len(script.Steps) + 1,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, ErrDisabled
	}

	newID := opts.NewID
	if newID == nil {
		seq := 0
		newID = func() string {
			seq++
			return fmt.Sprintf("%d", seq)
		}
	}

	for i, step := range script.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g := step.gesture()
		identifier := g.Identifier
		if identifier == "" && g.EntityID != "" {
			identifier = reorder.IdentifierFor(g.EntityID)
		}
		el := gesture.Element{Identifier: identifier, EntityID: g.EntityID, RowIndex: g.RowIndex}

		switch step.Kind() {
		case "move":
			source.Move(container, gesture.Moved{Element: el})
		case "add":
			source.Add(container, gesture.Added{Element: el})
		case "remove":
			source.Remove(container, gesture.Removed{Element: el})
		case "create":
			if identifier == "" {
				identifier = reorder.IdentifierPrefix + "new-" + newID()
			}
			creations.Publish(reorder.Created{Identifier: identifier, EntityID: g.EntityID})
			if err := waitForRow(ctx, view, identifier); err != nil {
				return nil, fmt.Errorf("step %d: %w", i+1, err)
			}
		}
		logger.Debug("replayed step", "step", i+1, "kind", step.Kind(), "identifier", identifier)
	}

	view.Teardown()
	view.Wait()

	result.Rows = view.Snapshot()
	result.Order = view.PendingOrder()
	result.Stats = view.Stats()
	if memory != nil {
		result.Remote = memory.Order()
	}
	return result, nil
}

// waitForRow polls until identifier is in the view. Inline creations are
// delivered asynchronously.
func waitForRow(ctx context.Context, view *reconcile.View, identifier string) error {
	ctx, cancel := context.WithTimeout(ctx, createTimeout)
	defer cancel()

	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()
	for view.Snapshot().IndexOf(identifier) < 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("created row %s did not appear: %w", identifier, ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}
