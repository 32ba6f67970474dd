package rows

import (
	"fmt"
	"sync"
)

// Store owns the Sequence of one table view.
//
// Modify bodies never interleave: concurrent callers are serialized by the
// store's mutex. A Modify body must not call back into the same Store.
type Store struct {
	mu       sync.Mutex
	seq      Sequence
	revision uint64
}

// New creates a Store seeded with the given rows.
func New(initial ...Descriptor) (*Store, error) {
	seq := Sequence(initial).Clone()
	if err := seq.validate(); err != nil {
		return nil, fmt.Errorf("invalid initial rows: %w", err)
	}
	return &Store{seq: seq}, nil
}

// Modify reads the current sequence, applies fn and commits the result as one
// step. fn receives a private copy it may mutate freely. If fn returns an
// error, or its result contains duplicate identifiers, nothing is committed.
func (s *Store) Modify(fn func(Sequence) (Sequence, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.seq.Clone())
	if err != nil {
		return err
	}
	if err := next.validate(); err != nil {
		return err
	}

	s.seq = next.Clone()
	s.revision++
	return nil
}

// Snapshot returns a copy of the current sequence.
func (s *Store) Snapshot() Sequence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq.Clone()
}

// Len returns the number of rows, hidden ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seq)
}

// Revision counts committed modifications.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}
