// Package position translates observed table positions into sequence indices.
package position

import (
	"errors"
	"fmt"

	"github.com/munkhbileg/openproject/internal/rows"
)

// ErrNotFound is returned when an identifier is not in the sequence.
var ErrNotFound = errors.New("row not found")

// DefaultLeadingRows is the number of non-data rows (the header) a table
// renders above its data rows.
const DefaultLeadingRows = 1

// Resolver maps observed row positions to sequence indices. Observed
// positions are 0-based visual indices that count the leading rows.
type Resolver struct {
	leading int
}

// New returns a Resolver for a table with the given number of leading
// non-data rows. Negative values are treated as zero.
func New(leadingRows int) Resolver {
	return Resolver{leading: max(leadingRows, 0)}
}

// LeadingRows returns the fixed offset applied to observed positions.
func (r Resolver) LeadingRows() int {
	return r.leading
}

// Target returns the insertion index for an observed position in a sequence
// of the given length. The result is clamped to [0, length].
func (r Resolver) Target(observed, length int) int {
	return min(max(observed-r.leading, 0), max(length, 0))
}

// Observed is the inverse of Target: the visual position of index.
func (r Resolver) Observed(index int) int {
	return index + r.leading
}

// Index returns the current index of identifier in seq.
func (r Resolver) Index(seq rows.Sequence, identifier string) (int, error) {
	if i := seq.IndexOf(identifier); i >= 0 {
		return i, nil
	}
	return -1, fmt.Errorf("%w: %s", ErrNotFound, identifier)
}
