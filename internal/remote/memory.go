package remote

import (
	"context"
	"slices"
	"sync"

	"github.com/munkhbileg/openproject/internal/publish"
)

// MemorySink keeps the remote order in memory. Updates carrying a version
// older than the last applied one are discarded.
type MemorySink struct {
	mu        sync.Mutex
	immediate bool
	fail      error
	order     []string
	version   uint64
	applied   []publish.OrderUpdate
	stale     int
}

// NewMemorySink creates a MemorySink. immediate is reported by
// UpdateImmediately.
func NewMemorySink(immediate bool) *MemorySink {
	return &MemorySink{immediate: immediate}
}

// UpdateImmediately implements publish.OrderSink.
func (m *MemorySink) UpdateImmediately() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.immediate
}

// SetImmediate changes the value reported by UpdateImmediately.
func (m *MemorySink) SetImmediate(immediate bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.immediate = immediate
}

// FailWith makes subsequent updates fail with err. A nil err clears it.
func (m *MemorySink) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// UpdateOrder implements publish.OrderSink.
func (m *MemorySink) UpdateOrder(ctx context.Context, u publish.OrderUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != nil {
		return m.fail
	}
	if u.Version != 0 && u.Version <= m.version {
		m.stale++
		return nil
	}
	m.order = slices.Clone(u.OrderedIDs)
	m.version = u.Version
	m.applied = append(m.applied, publish.OrderUpdate{Version: u.Version, OrderedIDs: slices.Clone(u.OrderedIDs)})
	return nil
}

// Order returns the last applied order.
func (m *MemorySink) Order() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.order)
}

// Version returns the version of the last applied update.
func (m *MemorySink) Version() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

// Applied returns every update that was applied, oldest first.
func (m *MemorySink) Applied() []publish.OrderUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.applied)
}

// Stale counts discarded out-of-date updates.
func (m *MemorySink) Stale() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stale
}
