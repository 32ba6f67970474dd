// Package event provides the pub-sub bus that connects gesture producers,
// table views and dependent views without direct dependencies.
//
// # Main Types
//
//   - [Event]: interface implemented by every event (EventType, Timestamp)
//   - [Bus]: synchronous, thread-safe dispatcher with panic recovery
//   - [Handler]: func(Event)
//
// # Event Categories
//
// Gesture completion (published by gesture producers, consumed by views):
//   - [RowMovedEvent], [RowAddedEvent], [RowRemovedEvent]
//
// View outcomes (published by views):
//   - [OrderPublishedEvent], [OrderPublishFailedEvent]
//   - [RefreshRequestedEvent]
//   - [RowDesyncEvent]
//   - [ViewTornDownEvent]
//
// # Thread Safety
//
// [Bus] is safe for concurrent use. Handlers run synchronously on the
// publishing goroutine, specific subscribers first, then wildcard ones, each
// group in registration order. A panicking handler is logged and skipped.
//
// # Basic Usage
//
//	bus := event.NewBus(nil)
//	id := bus.Subscribe(event.TypeRowMoved, func(e event.Event) {
//	    moved := e.(event.RowMovedEvent)
//	    fmt.Println(moved.Identifier, moved.RowIndex)
//	})
//	defer bus.Unsubscribe(id)
//
//	bus.Publish(event.NewRowMovedEvent("work-packages", "wp-row-3", "3", 2, "wp-row-1", "wp-row-2"))
//
// Event types follow the "category.action" convention.
package event
