// Package reorder applies drag-and-drop mutations to a row store and
// publishes the resulting order.
//
// Every handler runs exactly one rows.Store.Modify. Structural errors are
// returned to the caller; the publish outcome arrives on the returned
// channel, which is nil when no publish was triggered.
package reorder

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/munkhbileg/openproject/internal/gesture"
	"github.com/munkhbileg/openproject/internal/logging"
	"github.com/munkhbileg/openproject/internal/position"
	"github.com/munkhbileg/openproject/internal/rows"
)

// IdentifierPrefix is prepended to a work package id to form its row identifier.
const IdentifierPrefix = "wp-row-"

// IdentifierFor returns the row identifier of a persisted work package.
func IdentifierFor(entityID string) string {
	return IdentifierPrefix + entityID
}

// Created announces a row created inline. EntityID is empty while the row
// has not been saved yet.
type Created struct {
	Identifier string
	EntityID   string
}

// Publisher is the subset of publish.Publisher the handlers drive.
type Publisher interface {
	Publish(ctx context.Context) <-chan error
}

// Options configures Handlers.
type Options struct {
	Resolver position.Resolver
	Logger   *logging.Logger
	// OnDesync, if set, is called after a desync has been logged.
	OnDesync func(*DesyncError)
}

// Handlers turns row events into store mutations.
type Handlers struct {
	store     *rows.Store
	resolver  position.Resolver
	publisher Publisher
	logger    *logging.Logger
	onDesync  func(*DesyncError)
}

// New creates Handlers mutating store and publishing through publisher.
func New(store *rows.Store, publisher Publisher, opts Options) (*Handlers, error) {
	if store == nil {
		return nil, fmt.Errorf("reorder: nil store")
	}
	if publisher == nil {
		return nil, fmt.Errorf("reorder: nil publisher")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Handlers{
		store:     store,
		resolver:  opts.Resolver,
		publisher: publisher,
		logger:    logger.WithComponent("reorder"),
		onDesync:  opts.OnDesync,
	}, nil
}

// Insert appends a newly created row at the end of the sequence.
// A duplicate identifier is rejected and nothing is published.
func (h *Handlers) Insert(ctx context.Context, c Created) (<-chan error, error) {
	identifier := c.Identifier
	if identifier == "" && c.EntityID != "" {
		identifier = IdentifierFor(c.EntityID)
	}
	desc := rows.Descriptor{Identifier: identifier, EntityID: c.EntityID}

	err := h.store.Modify(func(seq rows.Sequence) (rows.Sequence, error) {
		if seq.IndexOf(identifier) >= 0 {
			return nil, &rows.DuplicateError{Identifier: identifier}
		}
		return append(seq, desc), nil
	})
	if err != nil {
		h.logger.Warn("insert rejected", "identifier", identifier, "error", err.Error())
		return nil, err
	}

	h.logger.Debug("row inserted", "identifier", identifier, "entity_id", c.EntityID)
	return h.publisher.Publish(ctx), nil
}

// Move relocates a row to the observed position reported by the gesture.
// The row is removed first and reinserted, so every other row keeps its
// relative order. A row the store does not know is reported as a
// DesyncError; the order is published either way.
func (h *Handlers) Move(ctx context.Context, m gesture.Moved) (<-chan error, error) {
	var from, to int
	err := h.store.Modify(func(seq rows.Sequence) (rows.Sequence, error) {
		i, err := h.resolver.Index(seq, m.Identifier)
		if err != nil {
			return nil, &DesyncError{Op: OpMove, Identifier: m.Identifier}
		}
		desc := seq[i]
		seq = slices.Delete(seq, i, i+1)
		j := h.resolver.Target(m.RowIndex, len(seq))
		from, to = i, j
		return slices.Insert(seq, j, desc), nil
	})

	if err = h.noteDesync(err); err != nil {
		return h.publisher.Publish(ctx), err
	}
	h.logger.Debug("row moved", "identifier", m.Identifier, "from", from, "to", to)
	return h.publisher.Publish(ctx), nil
}

// Remove deletes a row. Removing an unknown row is a DesyncError but the
// order is still published.
func (h *Handlers) Remove(ctx context.Context, r gesture.Removed) (<-chan error, error) {
	err := h.store.Modify(func(seq rows.Sequence) (rows.Sequence, error) {
		i, err := h.resolver.Index(seq, r.Identifier)
		if err != nil {
			return nil, &DesyncError{Op: OpRemove, Identifier: r.Identifier}
		}
		return slices.Delete(seq, i, i+1), nil
	})

	if err = h.noteDesync(err); err == nil {
		h.logger.Debug("row removed", "identifier", r.Identifier)
	}
	return h.publisher.Publish(ctx), err
}

// Add inserts a row that arrived from another container at the observed
// position reported by the gesture.
func (h *Handlers) Add(ctx context.Context, a gesture.Added) (<-chan error, error) {
	identifier := a.Identifier
	if identifier == "" && a.EntityID != "" {
		identifier = IdentifierFor(a.EntityID)
	}
	desc := rows.Descriptor{Identifier: identifier, EntityID: a.EntityID}

	var at int
	err := h.store.Modify(func(seq rows.Sequence) (rows.Sequence, error) {
		if seq.IndexOf(identifier) >= 0 {
			return nil, &rows.DuplicateError{Identifier: identifier}
		}
		at = h.resolver.Target(a.RowIndex, len(seq))
		return slices.Insert(seq, at, desc), nil
	})
	if err != nil {
		h.logger.Warn("add rejected", "identifier", identifier, "error", err.Error())
		return nil, err
	}

	h.logger.Debug("row added", "identifier", identifier, "entity_id", a.EntityID, "index", at)
	return h.publisher.Publish(ctx), nil
}

// noteDesync logs a desync and hands it to the hook. Other errors pass through.
func (h *Handlers) noteDesync(err error) error {
	var desync *DesyncError
	if !errors.As(err, &desync) {
		return err
	}
	h.logger.Warn("row desync", "op", desync.Op, "identifier", desync.Identifier)
	if h.onDesync != nil {
		h.onDesync(desync)
	}
	return desync
}
