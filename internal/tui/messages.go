package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/munkhbileg/openproject/internal/event"
)

// PublishedMsg reports a successful order update.
type PublishedMsg struct {
	Version    uint64
	OrderedIDs []string
}

// PublishFailedMsg reports a failed order update.
type PublishFailedMsg struct {
	Version uint64
	Err     string
}

// DesyncMsg reports a gesture on a row the view no longer has.
type DesyncMsg struct {
	Op         string
	Identifier string
}

// RefreshMsg asks the model to reload its rows.
type RefreshMsg struct{}

// Sender is satisfied by *tea.Program.
type Sender interface {
	Send(msg tea.Msg)
}

// Forward relays view events for container from bus to p. The returned
// function removes the subscriptions.
func Forward(bus *event.Bus, container string, p Sender) func() {
	ids := []string{
		bus.Subscribe(event.TypeOrderPublished, func(e event.Event) {
			if ev, ok := e.(event.OrderPublishedEvent); ok && ev.Container == container {
				p.Send(PublishedMsg{Version: ev.Version, OrderedIDs: ev.OrderedIDs})
			}
		}),
		bus.Subscribe(event.TypeOrderPublishFailed, func(e event.Event) {
			if ev, ok := e.(event.OrderPublishFailedEvent); ok && ev.Container == container {
				p.Send(PublishFailedMsg{Version: ev.Version, Err: ev.Error})
			}
		}),
		bus.Subscribe(event.TypeRowDesync, func(e event.Event) {
			if ev, ok := e.(event.RowDesyncEvent); ok && ev.Container == container {
				p.Send(DesyncMsg{Op: ev.Op, Identifier: ev.Identifier})
			}
		}),
		bus.Subscribe(event.TypeRefreshRequested, func(e event.Event) {
			if ev, ok := e.(event.RefreshRequestedEvent); ok && ev.Container == container {
				p.Send(RefreshMsg{})
			}
		}),
	}
	return func() {
		for _, id := range ids {
			bus.Unsubscribe(id)
		}
	}
}
