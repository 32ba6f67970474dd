package reorder

import (
	"fmt"

	"github.com/munkhbileg/openproject/internal/position"
)

// Operation names carried by DesyncError.
const (
	OpMove   = "move"
	OpRemove = "remove"
)

// DesyncError reports a gesture that referenced a row the store no longer
// tracks. It is recovered locally: the sequence is left unchanged and the
// order is still published.
type DesyncError struct {
	Op         string
	Identifier string
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("%s: row %s not in sequence", e.Op, e.Identifier)
}

// Unwrap lets callers match position.ErrNotFound.
func (e *DesyncError) Unwrap() error {
	return position.ErrNotFound
}
