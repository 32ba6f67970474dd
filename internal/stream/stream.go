// Package stream provides an in-memory multicast stream.
//
// Each subscriber gets its own buffered channel. Publish never blocks: when a
// subscriber's buffer is full the value is dropped for that subscriber only.
package stream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Subscribe after Shutdown.
var ErrClosed = errors.New("stream: broadcaster closed")

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 64

type subscriber[T any] struct {
	ctx    context.Context
	ch     chan T
	closed atomic.Bool
}

// Broadcaster fans each published value out to every active subscriber.
type Broadcaster[T any] struct {
	buffer int

	mu          sync.RWMutex
	subscribers map[*subscriber[T]]struct{}
	closed      atomic.Bool
	dropped     atomic.Uint64
}

// New creates a Broadcaster with the given per-subscriber buffer. Values
// below 1 use DefaultBuffer.
func New[T any](buffer int) *Broadcaster[T] {
	if buffer < 1 {
		buffer = DefaultBuffer
	}
	return &Broadcaster[T]{
		buffer:      buffer,
		subscribers: make(map[*subscriber[T]]struct{}),
	}
}

// Subscribe returns a channel receiving every value published from now on.
// The channel is closed when ctx is done or the broadcaster shuts down.
func (b *Broadcaster[T]) Subscribe(ctx context.Context) (<-chan T, error) {
	sub := &subscriber[T]{ctx: ctx, ch: make(chan T, b.buffer)}

	b.mu.Lock()
	if b.closed.Load() {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.remove(sub)
	}()

	return sub.ch, nil
}

// Publish delivers v to all subscribers without blocking.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed.Load() {
		return
	}
	for sub := range b.subscribers {
		if sub.closed.Load() {
			continue
		}
		select {
		case sub.ch <- v:
		default:
			b.dropped.Add(1)
		}
	}
}

// Shutdown closes every subscriber channel. Further publishes are ignored.
func (b *Broadcaster[T]) Shutdown() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subscribers {
		if sub.closed.CompareAndSwap(false, true) {
			close(sub.ch)
		}
	}
	b.subscribers = make(map[*subscriber[T]]struct{})
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped returns how many deliveries were skipped on full buffers.
func (b *Broadcaster[T]) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Broadcaster[T]) remove(sub *subscriber[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[sub]; !ok {
		return
	}
	delete(b.subscribers, sub)
	if sub.closed.CompareAndSwap(false, true) {
		close(sub.ch)
	}
}
