// Package serialdispatch runs submitted functions one at a time, in the
// order they were submitted.
package serialdispatch

import (
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned for work submitted after Close.
var ErrClosed = errors.New("serialdispatch: dispatcher closed")

type job struct {
	fn   func() error
	done chan error
}

// Dispatcher owns a single worker goroutine. At most one job runs at any time.
// The queue is unbounded, so Submit never waits for a running job.
type Dispatcher struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []job
	closed  bool
	wg      sync.WaitGroup
}

// New starts a Dispatcher. capacity preallocates room for that many pending
// jobs; the queue grows past it as needed.
func New(capacity int) *Dispatcher {
	d := &Dispatcher{pending: make([]job, 0, max(capacity, 0))}
	d.cond = sync.NewCond(&d.mu)
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		j, ok := d.next()
		if !ok {
			return
		}
		j.done <- call(j.fn)
	}
}

// next blocks until a job is pending. It reports false once the dispatcher is
// closed and the queue is empty.
func (d *Dispatcher) next() (job, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for len(d.pending) == 0 && !d.closed {
		d.cond.Wait()
	}
	if len(d.pending) == 0 {
		return job{}, false
	}
	j := d.pending[0]
	d.pending[0] = job{}
	d.pending = d.pending[1:]
	return j, true
}

func call(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("serialdispatch: job panicked: %v", r)
		}
	}()
	return fn()
}

// Submit enqueues fn and returns a channel that receives its result. Jobs run
// in Submit order. After Close the channel yields ErrClosed immediately.
func (d *Dispatcher) Submit(fn func() error) <-chan error {
	done := make(chan error, 1)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		done <- ErrClosed
		return done
	}
	d.pending = append(d.pending, job{fn: fn, done: done})
	d.cond.Signal()
	return done
}

// Dispatch submits fn and waits for it to finish.
func (d *Dispatcher) Dispatch(fn func() error) error {
	return <-d.Submit(fn)
}

// Pending returns the number of jobs waiting behind the running one.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Close stops accepting work. Jobs already queued still run.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	d.cond.Broadcast()
}

// Wait blocks until the worker has drained the queue after Close.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
