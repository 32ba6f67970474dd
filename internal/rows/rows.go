// Package rows holds the canonical ordered sequence of table rows for a view.
//
// The sequence is the single source of truth for the user-visible order. All
// writes go through [Store.Modify]; readers take independent copies with
// [Store.Snapshot].
package rows

import "fmt"

// Descriptor is the in-memory record of one row's identity and position.
type Descriptor struct {
	// Identifier locates the row in the rendered table. Unique within a Sequence.
	Identifier string
	// EntityID is the persisted work package id. Empty for transient rows.
	EntityID string
	// Hidden rows stay in the sequence but are not rendered.
	Hidden bool
}

// Persisted reports whether the row corresponds to a persisted entity.
func (d Descriptor) Persisted() bool {
	return d.EntityID != ""
}

// Sequence is an ordered list of descriptors. Order is the user-visible order.
type Sequence []Descriptor

// IndexOf returns the position of identifier, or -1 if absent.
func (s Sequence) IndexOf(identifier string) int {
	for i, d := range s {
		if d.Identifier == identifier {
			return i
		}
	}
	return -1
}

// Clone returns an independent copy of s. A nil sequence clones to an empty one.
func (s Sequence) Clone() Sequence {
	out := make(Sequence, len(s))
	copy(out, s)
	return out
}

// Identifiers returns the identifiers in order.
func (s Sequence) Identifiers() []string {
	ids := make([]string, len(s))
	for i, d := range s {
		ids[i] = d.Identifier
	}
	return ids
}

// PendingOrder returns the entity ids of persisted rows in sequence order.
// Transient rows never participate in the persisted order.
func (s Sequence) PendingOrder() []string {
	order := make([]string, 0, len(s))
	for _, d := range s {
		if d.Persisted() {
			order = append(order, d.EntityID)
		}
	}
	return order
}

// validate returns a DuplicateError for the first repeated identifier.
func (s Sequence) validate() error {
	seen := make(map[string]struct{}, len(s))
	for _, d := range s {
		if d.Identifier == "" {
			return fmt.Errorf("row identifier must not be empty")
		}
		if _, ok := seen[d.Identifier]; ok {
			return &DuplicateError{Identifier: d.Identifier}
		}
		seen[d.Identifier] = struct{}{}
	}
	return nil
}

// DuplicateError is returned when a row identifier would appear twice.
type DuplicateError struct {
	Identifier string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate row identifier: %s", e.Identifier)
}
