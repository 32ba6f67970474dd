// Package gesture defines the contract of a drag-and-drop gesture source and
// provides an implementation backed by the event bus.
//
// A source reports completed gestures only. There is no "drag in progress"
// state visible to consumers.
package gesture

// Element identifies the row a gesture acted on.
type Element struct {
	Identifier string
	EntityID   string // empty for transient rows
	RowIndex   int    // observed position, leading rows included
}

// Moved reports a row relocated within its container.
type Moved struct {
	Element
	Previous string // former neighbour identifier, informational
	Next     string // new following neighbour identifier, informational
}

// Added reports a row that arrived from another container.
type Added struct {
	Element
	Next string
}

// Removed reports a row that left the container.
type Removed struct {
	Element
}

// Callbacks receive completed gestures for one container. Nil callbacks are
// skipped.
type Callbacks struct {
	OnMoved   func(Moved)
	OnAdded   func(Added)
	OnRemoved func(Removed)
}

// Source registers containers for drag-and-drop.
type Source interface {
	// Register starts delivering gestures on container to cb.
	Register(container string, cb Callbacks) error
	// Deregister stops delivery for container. Unknown containers are ignored.
	Deregister(container string)
}
