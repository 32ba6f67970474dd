package event

import "time"

// Event is the interface that all events implement.
type Event interface {
	// EventType returns the "category.action" identifier of the event.
	EventType() string
	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeRowMoved           = "row.moved"
	TypeRowAdded           = "row.added"
	TypeRowRemoved         = "row.removed"
	TypeRowDesync          = "row.desync"
	TypeOrderPublished     = "order.published"
	TypeOrderPublishFailed = "order.publish_failed"
	TypeRefreshRequested   = "view.refresh_requested"
	TypeViewTornDown       = "view.torn_down"
)

type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{eventType: eventType, timestamp: time.Now()}
}

// -----------------------------------------------------------------------------
// Gesture Events
// -----------------------------------------------------------------------------

// RowMovedEvent is emitted when a drag relocates a row within a container.
type RowMovedEvent struct {
	baseEvent
	Container  string
	Identifier string
	EntityID   string
	RowIndex   int    // Observed position after the drop, header rows included
	Previous   string // Identifier of the former neighbour, if any
	Next       string // Identifier of the new following neighbour, if any
}

// NewRowMovedEvent creates a RowMovedEvent.
func NewRowMovedEvent(container, identifier, entityID string, rowIndex int, previous, next string) RowMovedEvent {
	return RowMovedEvent{
		baseEvent:  newBaseEvent(TypeRowMoved),
		Container:  container,
		Identifier: identifier,
		EntityID:   entityID,
		RowIndex:   rowIndex,
		Previous:   previous,
		Next:       next,
	}
}

// RowAddedEvent is emitted when a row arrives in a container from elsewhere.
type RowAddedEvent struct {
	baseEvent
	Container  string
	Identifier string
	EntityID   string
	RowIndex   int
	Next       string
}

// NewRowAddedEvent creates a RowAddedEvent.
func NewRowAddedEvent(container, identifier, entityID string, rowIndex int, next string) RowAddedEvent {
	return RowAddedEvent{
		baseEvent:  newBaseEvent(TypeRowAdded),
		Container:  container,
		Identifier: identifier,
		EntityID:   entityID,
		RowIndex:   rowIndex,
		Next:       next,
	}
}

// RowRemovedEvent is emitted when a row leaves a container.
type RowRemovedEvent struct {
	baseEvent
	Container  string
	Identifier string
	EntityID   string
}

// NewRowRemovedEvent creates a RowRemovedEvent.
func NewRowRemovedEvent(container, identifier, entityID string) RowRemovedEvent {
	return RowRemovedEvent{
		baseEvent:  newBaseEvent(TypeRowRemoved),
		Container:  container,
		Identifier: identifier,
		EntityID:   entityID,
	}
}

// -----------------------------------------------------------------------------
// View Events
// -----------------------------------------------------------------------------

// RowDesyncEvent is emitted when a gesture references a row the view no
// longer tracks.
type RowDesyncEvent struct {
	baseEvent
	Container  string
	Op         string // "move" or "remove"
	Identifier string
}

// NewRowDesyncEvent creates a RowDesyncEvent.
func NewRowDesyncEvent(container, op, identifier string) RowDesyncEvent {
	return RowDesyncEvent{
		baseEvent:  newBaseEvent(TypeRowDesync),
		Container:  container,
		Op:         op,
		Identifier: identifier,
	}
}

// OrderPublishedEvent is emitted after the remote order update succeeded.
type OrderPublishedEvent struct {
	baseEvent
	Container  string
	Version    uint64
	OrderedIDs []string
}

// NewOrderPublishedEvent creates an OrderPublishedEvent.
func NewOrderPublishedEvent(container string, version uint64, orderedIDs []string) OrderPublishedEvent {
	return OrderPublishedEvent{
		baseEvent:  newBaseEvent(TypeOrderPublished),
		Container:  container,
		Version:    version,
		OrderedIDs: orderedIDs,
	}
}

// OrderPublishFailedEvent is emitted when the remote order update failed.
type OrderPublishFailedEvent struct {
	baseEvent
	Container string
	Version   uint64
	Error     string
}

// NewOrderPublishFailedEvent creates an OrderPublishFailedEvent.
func NewOrderPublishFailedEvent(container string, version uint64, errMsg string) OrderPublishFailedEvent {
	return OrderPublishFailedEvent{
		baseEvent: newBaseEvent(TypeOrderPublishFailed),
		Container: container,
		Version:   version,
		Error:     errMsg,
	}
}

// RefreshRequestedEvent asks dependent views to reload.
type RefreshRequestedEvent struct {
	baseEvent
	Container string
	Reason    string
}

// NewRefreshRequestedEvent creates a RefreshRequestedEvent.
func NewRefreshRequestedEvent(container, reason string) RefreshRequestedEvent {
	return RefreshRequestedEvent{
		baseEvent: newBaseEvent(TypeRefreshRequested),
		Container: container,
		Reason:    reason,
	}
}

// ViewTornDownEvent is emitted once a view has deregistered from its
// gesture source.
type ViewTornDownEvent struct {
	baseEvent
	Container string
}

// NewViewTornDownEvent creates a ViewTornDownEvent.
func NewViewTornDownEvent(container string) ViewTornDownEvent {
	return ViewTornDownEvent{
		baseEvent: newBaseEvent(TypeViewTornDown),
		Container: container,
	}
}
