package gesture

import (
	"fmt"
	"sync"

	"github.com/munkhbileg/openproject/internal/event"
)

// BusSource is a Source whose gestures travel over an event bus. Producers
// (terminal UI, HTTP surface, replay scripts) call Move, Add and Remove;
// registered containers receive the matching callbacks synchronously.
type BusSource struct {
	bus *event.Bus

	mu         sync.Mutex
	containers map[string][]string // container -> bus subscription IDs
}

// NewBusSource creates a BusSource publishing on bus.
func NewBusSource(bus *event.Bus) *BusSource {
	return &BusSource{
		bus:        bus,
		containers: make(map[string][]string),
	}
}

// Register implements Source. A container can be registered once at a time.
func (s *BusSource) Register(container string, cb Callbacks) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.containers[container]; ok {
		return fmt.Errorf("container %q already registered", container)
	}

	var ids []string
	if cb.OnMoved != nil {
		ids = append(ids, s.bus.Subscribe(event.TypeRowMoved, func(e event.Event) {
			ev, ok := e.(event.RowMovedEvent)
			if !ok || ev.Container != container {
				return
			}
			cb.OnMoved(Moved{
				Element:  Element{Identifier: ev.Identifier, EntityID: ev.EntityID, RowIndex: ev.RowIndex},
				Previous: ev.Previous,
				Next:     ev.Next,
			})
		}))
	}
	if cb.OnAdded != nil {
		ids = append(ids, s.bus.Subscribe(event.TypeRowAdded, func(e event.Event) {
			ev, ok := e.(event.RowAddedEvent)
			if !ok || ev.Container != container {
				return
			}
			cb.OnAdded(Added{
				Element: Element{Identifier: ev.Identifier, EntityID: ev.EntityID, RowIndex: ev.RowIndex},
				Next:    ev.Next,
			})
		}))
	}
	if cb.OnRemoved != nil {
		ids = append(ids, s.bus.Subscribe(event.TypeRowRemoved, func(e event.Event) {
			ev, ok := e.(event.RowRemovedEvent)
			if !ok || ev.Container != container {
				return
			}
			cb.OnRemoved(Removed{
				Element: Element{Identifier: ev.Identifier, EntityID: ev.EntityID},
			})
		}))
	}

	s.containers[container] = ids
	return nil
}

// Deregister implements Source.
func (s *BusSource) Deregister(container string) {
	s.mu.Lock()
	ids, ok := s.containers[container]
	delete(s.containers, container)
	s.mu.Unlock()

	if !ok {
		return
	}
	for _, id := range ids {
		s.bus.Unsubscribe(id)
	}
}

// Registered reports whether container currently receives gestures.
func (s *BusSource) Registered(container string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.containers[container]
	return ok
}

// Move publishes a completed move gesture.
func (s *BusSource) Move(container string, m Moved) {
	s.bus.Publish(event.NewRowMovedEvent(container, m.Identifier, m.EntityID, m.RowIndex, m.Previous, m.Next))
}

// Add publishes a completed add gesture.
func (s *BusSource) Add(container string, a Added) {
	s.bus.Publish(event.NewRowAddedEvent(container, a.Identifier, a.EntityID, a.RowIndex, a.Next))
}

// Remove publishes a completed remove gesture.
func (s *BusSource) Remove(container string, r Removed) {
	s.bus.Publish(event.NewRowRemovedEvent(container, r.Identifier, r.EntityID))
}
