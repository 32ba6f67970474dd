package reconcile

import (
	"github.com/munkhbileg/openproject/internal/event"
	"github.com/munkhbileg/openproject/internal/publish"
)

// BusRefresher is a publish.RefreshSink that announces refresh requests on
// an event bus.
type BusRefresher struct {
	Bus       *event.Bus
	Container string
}

// RequestRefresh implements publish.RefreshSink.
func (r BusRefresher) RequestRefresh(reason string) {
	r.Bus.Publish(event.NewRefreshRequestedEvent(r.Container, reason))
}

// busListener reports publish outcomes on the bus.
type busListener struct {
	bus       *event.Bus
	container string
}

func (l busListener) Published(u publish.OrderUpdate) {
	l.bus.Publish(event.NewOrderPublishedEvent(l.container, u.Version, u.OrderedIDs))
}

func (l busListener) Failed(version uint64, err error) {
	l.bus.Publish(event.NewOrderPublishFailedEvent(l.container, version, err.Error()))
}
