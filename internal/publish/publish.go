// Package publish sends a view's persisted row order to the remote system of
// record.
//
// The local sequence is always primary. Every publish recomputes the full
// order from a fresh snapshot and sends it as a replacement. Sends are
// serialized: one in flight at a time, in the order Publish was called, and
// each carries a monotonically increasing version so the remote side can
// discard stale updates.
package publish

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/munkhbileg/openproject/internal/logging"
	"github.com/munkhbileg/openproject/internal/rows"
	"github.com/munkhbileg/openproject/internal/serialdispatch"
)

// RefreshReason is the reason attached to refresh requests after a
// successful publish.
const RefreshReason = "Order changed"

// OrderUpdate is the payload sent to the remote order sink.
type OrderUpdate struct {
	Version    uint64
	OrderedIDs []string
}

// OrderSink is the remote system of record for row order.
type OrderSink interface {
	// UpdateImmediately reports whether the current view wants each change
	// pushed right away.
	UpdateImmediately() bool
	// UpdateOrder replaces the remote order.
	UpdateOrder(ctx context.Context, update OrderUpdate) error
}

// RefreshSink asks dependent views to reload. Fire-and-forget.
type RefreshSink interface {
	RequestRefresh(reason string)
}

// Snapshotter provides the current row sequence.
type Snapshotter interface {
	Snapshot() rows.Sequence
}

// IDFormatter maps an entity id to the identifier sent to the remote side.
type IDFormatter func(entityID string) string

// Listener observes publish outcomes. Either method may be called from the
// dispatcher goroutine.
type Listener interface {
	Published(update OrderUpdate)
	Failed(version uint64, err error)
}

// Options configure a Publisher.
type Options struct {
	Sink      OrderSink
	Refresh   RefreshSink // optional
	Formatter IDFormatter // optional, identity when nil
	Listener  Listener    // optional
	Logger    *logging.Logger
	Timeout   time.Duration // per send, zero for none
	QueueSize int           // initial queue capacity
}

// Publisher derives the pending order from a Snapshotter and sends it.
type Publisher struct {
	source   Snapshotter
	sink     OrderSink
	refresh  RefreshSink
	format   IDFormatter
	listener Listener
	logger   *logging.Logger
	timeout  time.Duration
	dispatch *serialdispatch.Dispatcher

	// mu keeps snapshot, version assignment and enqueueing in one step so
	// that queue order, version order and snapshot order agree. Enqueueing
	// never waits on the sink.
	mu      sync.Mutex
	version uint64

	sent    atomic.Uint64
	failed  atomic.Uint64
	skipped atomic.Uint64
}

// New creates a Publisher reading from source.
func New(source Snapshotter, opts Options) (*Publisher, error) {
	if source == nil {
		return nil, fmt.Errorf("publish: nil snapshot source")
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("publish: nil order sink")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Publisher{
		source:   source,
		sink:     opts.Sink,
		refresh:  opts.Refresh,
		format:   opts.Formatter,
		listener: opts.Listener,
		logger:   logger.WithComponent("publisher"),
		timeout:  opts.Timeout,
		dispatch: serialdispatch.New(opts.QueueSize),
	}, nil
}

// Pending returns the order that the next publish would send.
func (p *Publisher) Pending() []string {
	order := p.source.Snapshot().PendingOrder()
	if p.format == nil {
		return order
	}
	for i, id := range order {
		order[i] = p.format(id)
	}
	return order
}

// Publish snapshots the current order and, if the sink wants immediate
// updates, queues it for sending. The returned channel yields the outcome
// once: nil on success or when nothing needed to be sent, the send error
// otherwise. Publish returns without waiting for earlier sends. The local
// sequence is never rolled back on failure.
func (p *Publisher) Publish(ctx context.Context) <-chan error {
	result := make(chan error, 1)

	if !p.sink.UpdateImmediately() {
		p.skipped.Add(1)
		result <- nil
		return result
	}

	p.mu.Lock()
	p.version++
	update := OrderUpdate{
		Version:    p.version,
		OrderedIDs: p.Pending(),
	}
	done := p.dispatch.Submit(func() error {
		return p.send(ctx, update)
	})
	p.mu.Unlock()

	go func() { result <- <-done }()
	return result
}

func (p *Publisher) send(ctx context.Context, update OrderUpdate) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := p.sink.UpdateOrder(ctx, update); err != nil {
		p.failed.Add(1)
		p.logger.Error("order update failed",
			"version", update.Version,
			"rows", len(update.OrderedIDs),
			"error", err.Error())
		if p.listener != nil {
			p.listener.Failed(update.Version, err)
		}
		return fmt.Errorf("update order v%d: %w", update.Version, err)
	}

	p.sent.Add(1)
	p.logger.Debug("order updated", "version", update.Version, "rows", len(update.OrderedIDs))
	if p.listener != nil {
		p.listener.Published(update)
	}
	if p.refresh != nil {
		p.refresh.RequestRefresh(RefreshReason)
	}
	return nil
}

// Close stops accepting publishes. Sends already queued still complete;
// later publishes yield serialdispatch.ErrClosed.
func (p *Publisher) Close() {
	p.dispatch.Close()
}

// Wait blocks until queued sends have finished after Close.
func (p *Publisher) Wait() {
	p.dispatch.Wait()
}

// Stats reports publish counters.
type Stats struct {
	Sent    uint64
	Failed  uint64
	Skipped uint64
	Version uint64
}

// Stats returns a snapshot of the publish counters.
func (p *Publisher) Stats() Stats {
	return Stats{
		Sent:    p.sent.Load(),
		Failed:  p.failed.Load(),
		Skipped: p.skipped.Load(),
		Version: p.currentVersion(),
	}
}

func (p *Publisher) currentVersion() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.version
}
