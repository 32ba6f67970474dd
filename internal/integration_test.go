// Package internal contains integration tests that verify the packages work
// together: gestures arriving over HTTP are applied to the view and the
// resulting order reaches a remote endpoint.
package internal

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/munkhbileg/openproject/internal/api"
	"github.com/munkhbileg/openproject/internal/event"
	"github.com/munkhbileg/openproject/internal/gesture"
	"github.com/munkhbileg/openproject/internal/logging"
	"github.com/munkhbileg/openproject/internal/publish"
	"github.com/munkhbileg/openproject/internal/reconcile"
	"github.com/munkhbileg/openproject/internal/remote"
	"github.com/munkhbileg/openproject/internal/reorder"
	"github.com/munkhbileg/openproject/internal/rows"
	"github.com/munkhbileg/openproject/internal/stream"
)

const container = "work-packages"

// orderServer records the order updates it receives.
type orderServer struct {
	mu       sync.Mutex
	payloads []remote.Payload
	status   int
}

func (s *orderServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var p remote.Payload
	_ = json.Unmarshal(body, &p)

	s.mu.Lock()
	s.payloads = append(s.payloads, p)
	status := s.status
	s.mu.Unlock()

	if status == 0 {
		status = http.StatusNoContent
	}
	w.WriteHeader(status)
}

func (s *orderServer) received() []remote.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.payloads)
}

func post(t *testing.T, url, body string) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		t.Fatalf("POST %s: status %d", url, resp.StatusCode)
	}
}

// TestGesturesReachRemoteOrder drives a view through its HTTP surface and
// checks the PATCH requests the remote end receives.
func TestGesturesReachRemoteOrder(t *testing.T) {
	upstream := &orderServer{}
	remoteSrv := httptest.NewServer(upstream)
	defer remoteSrv.Close()

	sink, err := remote.NewHTTPSink(remoteSrv.URL+"/api/v3/queries/1/order", remote.HTTPOptions{Immediate: true})
	if err != nil {
		t.Fatal(err)
	}

	bus := event.NewBus(logging.NopLogger())
	source := gesture.NewBusSource(bus)
	creations := stream.New[reorder.Created](0)

	var refreshes sync.WaitGroup
	refreshes.Add(4)
	bus.Subscribe(event.TypeRefreshRequested, func(e event.Event) {
		if e.(event.RefreshRequestedEvent).Reason == publish.RefreshReason {
			refreshes.Done()
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initial := []rows.Descriptor{
		{Identifier: reorder.IdentifierFor("10"), EntityID: "10"},
		{Identifier: reorder.IdentifierFor("20"), EntityID: "20"},
		{Identifier: reorder.IdentifierFor("30"), EntityID: "30"},
	}
	view, err := reconcile.Attach(ctx, reconcile.Options{
		Container:   container,
		Gesture:     source,
		Creations:   creations,
		Sink:        sink,
		Bus:         bus,
		Formatter:   remote.WorkPackageHref("/api/v3"),
		Initial:     initial,
		LeadingRows: 1,
		QueueSize:   8,
	})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	apiSrv := httptest.NewServer(api.NewServer(api.Options{
		Container: container,
		View:      view,
		Gestures:  source,
		Creations: creations,
	}))
	defer apiSrv.Close()

	post(t, apiSrv.URL+"/rows/moved", `{"identifier":"wp-row-30","entityId":"30","rowIndex":1}`)
	post(t, apiSrv.URL+"/rows/removed", `{"identifier":"wp-row-20"}`)
	post(t, apiSrv.URL+"/rows/added", `{"entityId":"40","rowIndex":2}`)
	post(t, apiSrv.URL+"/rows/created", `{}`)

	waitDone := make(chan struct{})
	go func() {
		refreshes.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(5 * time.Second):
		t.Fatalf("refreshes not requested, received %d updates", len(upstream.received()))
	}

	got := upstream.received()
	if len(got) != 4 {
		t.Fatalf("updates = %d, want 4", len(got))
	}
	for i, p := range got {
		if p.Version != uint64(i+1) {
			t.Errorf("update %d has version %d", i, p.Version)
		}
	}

	href := remote.WorkPackageHref("/api/v3")
	want := []string{href("30"), href("40"), href("10")}
	if last := got[len(got)-1].OrderedWorkPackages; !slices.Equal(last, want) {
		t.Errorf("final remote order = %v, want %v", last, want)
	}
	if seq := view.Snapshot(); len(seq) != 4 || seq[3].Persisted() {
		t.Errorf("local rows = %v, want three persisted rows and a new one", seq)
	}

	cancel()
	view.Wait()
	if source.Registered(container) {
		t.Error("view still registered after teardown")
	}
}

// TestPublishFailureIsNotRolledBack checks that a rejected update leaves the
// local order as the user left it.
func TestPublishFailureIsNotRolledBack(t *testing.T) {
	upstream := &orderServer{status: http.StatusUnprocessableEntity}
	remoteSrv := httptest.NewServer(upstream)
	defer remoteSrv.Close()

	sink, _ := remote.NewHTTPSink(remoteSrv.URL, remote.HTTPOptions{Immediate: true})
	bus := event.NewBus(nil)
	source := gesture.NewBusSource(bus)

	failed := make(chan event.OrderPublishFailedEvent, 1)
	bus.Subscribe(event.TypeOrderPublishFailed, func(e event.Event) {
		failed <- e.(event.OrderPublishFailedEvent)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	view, err := reconcile.Attach(ctx, reconcile.Options{
		Container:   container,
		Gesture:     source,
		Sink:        sink,
		Bus:         bus,
		LeadingRows: 1,
		Initial: []rows.Descriptor{
			{Identifier: reorder.IdentifierFor("1"), EntityID: "1"},
			{Identifier: reorder.IdentifierFor("2"), EntityID: "2"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	source.Move(container, gesture.Moved{Element: gesture.Element{Identifier: reorder.IdentifierFor("2"), RowIndex: 1}})

	select {
	case ev := <-failed:
		if !strings.Contains(ev.Error, "422") {
			t.Errorf("failure = %q", ev.Error)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("publish failure not reported")
	}
	if got := view.Snapshot().PendingOrder(); !slices.Equal(got, []string{"2", "1"}) {
		t.Errorf("local order = %v, want [2 1]", got)
	}
}
