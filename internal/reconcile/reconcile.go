// Package reconcile assembles the row store, handlers and publisher of one
// table view and ties their lifetime to the view's context.
//
// Attach is the only constructor. When no gesture source is available it
// returns a nil *View and builds nothing; every View method is safe to call
// on a nil receiver.
package reconcile

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/munkhbileg/openproject/internal/event"
	"github.com/munkhbileg/openproject/internal/gesture"
	"github.com/munkhbileg/openproject/internal/logging"
	"github.com/munkhbileg/openproject/internal/position"
	"github.com/munkhbileg/openproject/internal/publish"
	"github.com/munkhbileg/openproject/internal/reorder"
	"github.com/munkhbileg/openproject/internal/rows"
	"github.com/munkhbileg/openproject/internal/stream"
)

// Options configures a View.
type Options struct {
	// Container names the table body registered with the gesture source.
	Container string
	// Gesture is required for the view to do anything. Nil disables it.
	Gesture gesture.Source
	// Creations, if set, delivers rows created inline.
	Creations *stream.Broadcaster[reorder.Created]
	// Sink receives the persisted order.
	Sink publish.OrderSink
	// Bus, if set, carries refresh requests and view events.
	Bus *event.Bus
	// Refresh overrides the bus-backed refresh sink.
	Refresh   publish.RefreshSink
	Formatter publish.IDFormatter
	Initial   []rows.Descriptor

	LeadingRows int
	Timeout     time.Duration
	QueueSize   int
	Logger      *logging.Logger
}

// View is one attached table view.
type View struct {
	container string
	store     *rows.Store
	handlers  *reorder.Handlers
	publisher *publish.Publisher
	source    gesture.Source
	bus       *event.Bus
	logger    *logging.Logger

	// publishes outlive teardown, so they run on a context that is never cancelled
	publishCtx context.Context

	mu     sync.Mutex // held while an event is applied
	closed atomic.Bool
	once   sync.Once
	done   chan struct{}
}

// Attach builds a View and registers it with opts.Gesture. The view tears
// itself down when ctx is done.
func Attach(ctx context.Context, opts Options) (*View, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	logger = logger.WithView(opts.Container)

	if opts.Gesture == nil {
		logger.Info("gesture source unavailable, row ordering disabled")
		return nil, nil
	}
	if opts.Container == "" {
		return nil, fmt.Errorf("reconcile: empty container")
	}

	store, err := rows.New(opts.Initial...)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	v := &View{
		container:  opts.Container,
		store:      store,
		source:     opts.Gesture,
		bus:        opts.Bus,
		logger:     logger,
		publishCtx: context.WithoutCancel(ctx),
		done:       make(chan struct{}),
	}

	refresh := opts.Refresh
	if refresh == nil && opts.Bus != nil {
		refresh = BusRefresher{Bus: opts.Bus, Container: opts.Container}
	}
	var listener publish.Listener
	if opts.Bus != nil {
		listener = busListener{bus: opts.Bus, container: opts.Container}
	}

	v.publisher, err = publish.New(store, publish.Options{
		Sink:      opts.Sink,
		Refresh:   refresh,
		Formatter: opts.Formatter,
		Listener:  listener,
		Logger:    logger,
		Timeout:   opts.Timeout,
		QueueSize: opts.QueueSize,
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	v.handlers, err = reorder.New(store, v.publisher, reorder.Options{
		Resolver: position.New(opts.LeadingRows),
		Logger:   logger,
		OnDesync: v.reportDesync,
	})
	if err != nil {
		v.publisher.Close()
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	if err := opts.Gesture.Register(opts.Container, gesture.Callbacks{
		OnMoved:   v.onMoved,
		OnAdded:   v.onAdded,
		OnRemoved: v.onRemoved,
	}); err != nil {
		v.publisher.Close()
		return nil, fmt.Errorf("reconcile: register %s: %w", opts.Container, err)
	}

	if opts.Creations != nil {
		created, err := opts.Creations.Subscribe(ctx)
		if err != nil {
			opts.Gesture.Deregister(opts.Container)
			v.publisher.Close()
			return nil, fmt.Errorf("reconcile: subscribe creations: %w", err)
		}
		go v.consumeCreations(created)
	}

	go func() {
		<-ctx.Done()
		v.Teardown()
	}()

	logger.Info("view attached", "rows", store.Len(), "leading_rows", opts.LeadingRows)
	return v, nil
}

func (v *View) onMoved(m gesture.Moved) {
	v.apply("moved", m.Identifier, func() (<-chan error, error) {
		return v.handlers.Move(v.publishCtx, m)
	})
}

func (v *View) onAdded(a gesture.Added) {
	v.apply("added", a.Identifier, func() (<-chan error, error) {
		return v.handlers.Add(v.publishCtx, a)
	})
}

func (v *View) onRemoved(r gesture.Removed) {
	v.apply("removed", r.Identifier, func() (<-chan error, error) {
		return v.handlers.Remove(v.publishCtx, r)
	})
}

func (v *View) consumeCreations(created <-chan reorder.Created) {
	for c := range created {
		v.apply("created", c.Identifier, func() (<-chan error, error) {
			return v.handlers.Insert(v.publishCtx, c)
		})
	}
}

// apply runs fn unless the view has been torn down. fn only mutates the store
// and enqueues a publish, so v.mu is never held across remote I/O.
func (v *View) apply(kind, identifier string, fn func() (<-chan error, error)) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed.Load() {
		v.logger.Debug("event after teardown dropped", "kind", kind, "identifier", identifier)
		return
	}
	// Desync and duplicate errors are logged by the handlers. Publish outcomes
	// reach the bus through busListener.
	_, _ = fn()
}

func (v *View) reportDesync(e *reorder.DesyncError) {
	if v.bus != nil {
		v.bus.Publish(event.NewRowDesyncEvent(v.container, e.Op, e.Identifier))
	}
}

// Teardown deregisters the view from its gesture source and stops the
// publisher. Queued publishes still complete. Only the first call has any
// effect.
func (v *View) Teardown() {
	if v == nil {
		return
	}
	v.once.Do(func() {
		v.mu.Lock()
		v.closed.Store(true)
		v.mu.Unlock()

		v.source.Deregister(v.container)
		v.publisher.Close()
		if v.bus != nil {
			v.bus.Publish(event.NewViewTornDownEvent(v.container))
		}
		v.logger.Info("view torn down", "rows", v.store.Len())
		close(v.done)
	})
}

// Done is closed once teardown has completed. For a nil View it is
// already closed.
func (v *View) Done() <-chan struct{} {
	if v == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return v.done
}

// Closed reports whether the view has been torn down.
func (v *View) Closed() bool {
	return v == nil || v.closed.Load()
}

// Container returns the registered container name.
func (v *View) Container() string {
	if v == nil {
		return ""
	}
	return v.container
}

// Snapshot returns a copy of the current row sequence.
func (v *View) Snapshot() rows.Sequence {
	if v == nil {
		return nil
	}
	return v.store.Snapshot()
}

// Revision returns the number of committed store changes.
func (v *View) Revision() uint64 {
	if v == nil {
		return 0
	}
	return v.store.Revision()
}

// PendingOrder returns the order the next publish would send.
func (v *View) PendingOrder() []string {
	if v == nil {
		return nil
	}
	return v.publisher.Pending()
}

// Handlers exposes the view's mutation handlers for callers that bypass the
// gesture source. They do not observe teardown.
func (v *View) Handlers() *reorder.Handlers {
	if v == nil {
		return nil
	}
	return v.handlers
}

// Stats returns the publisher counters.
func (v *View) Stats() publish.Stats {
	if v == nil {
		return publish.Stats{}
	}
	return v.publisher.Stats()
}

// Wait blocks until teardown has completed and queued publishes drained.
func (v *View) Wait() {
	if v == nil {
		return
	}
	<-v.done
	v.publisher.Wait()
}
