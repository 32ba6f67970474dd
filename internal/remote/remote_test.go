package remote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/goccy/go-json"

	"github.com/munkhbileg/openproject/internal/publish"
)

func TestWorkPackageHref(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{base: "/api/v3", want: "/api/v3/work_packages/42"},
		{base: "/api/v3/", want: "/api/v3/work_packages/42"},
		{base: "", want: "/api/v3/work_packages/42"},
		{base: "https://example.com/api/v3", want: "https://example.com/api/v3/work_packages/42"},
	}
	for _, tt := range tests {
		if got := WorkPackageHref(tt.base)("42"); got != tt.want {
			t.Errorf("WorkPackageHref(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func TestHTTPSinkSendsPatch(t *testing.T) {
	var (
		method  string
		ctype   string
		payload Payload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		ctype = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink, err := NewHTTPSink(srv.URL+"/queries/7/order", HTTPOptions{Client: srv.Client(), Immediate: true})
	if err != nil {
		t.Fatalf("NewHTTPSink: %v", err)
	}
	if !sink.UpdateImmediately() {
		t.Error("UpdateImmediately = false")
	}

	update := publish.OrderUpdate{Version: 3, OrderedIDs: []string{"/api/v3/work_packages/1", "/api/v3/work_packages/2"}}
	if err := sink.UpdateOrder(context.Background(), update); err != nil {
		t.Fatalf("UpdateOrder: %v", err)
	}

	if method != http.MethodPatch {
		t.Errorf("method = %s, want PATCH", method)
	}
	if ctype != "application/json" {
		t.Errorf("Content-Type = %q", ctype)
	}
	if payload.Version != 3 || !slices.Equal(payload.OrderedWorkPackages, update.OrderedIDs) {
		t.Errorf("payload = %+v", payload)
	}
}

func TestHTTPSinkEmptyOrderEncodesArray(t *testing.T) {
	var raw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		raw = string(body)
	}))
	defer srv.Close()

	sink, _ := NewHTTPSink(srv.URL, HTTPOptions{Client: srv.Client()})
	if err := sink.UpdateOrder(context.Background(), publish.OrderUpdate{Version: 1}); err != nil {
		t.Fatal(err)
	}
	if raw != `{"version":1,"orderedWorkPackages":[]}` {
		t.Errorf("body = %s", raw)
	}
}

func TestHTTPSinkStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "order contains unknown work package", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	sink, _ := NewHTTPSink(srv.URL, HTTPOptions{Client: srv.Client(), Immediate: true})
	err := sink.UpdateOrder(context.Background(), publish.OrderUpdate{Version: 1, OrderedIDs: []string{"x"}})

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d", statusErr.StatusCode)
	}
	if statusErr.Body != "order contains unknown work package" {
		t.Errorf("Body = %q", statusErr.Body)
	}
}

func TestHTTPSinkHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	sink, _ := NewHTTPSink(srv.URL, HTTPOptions{Client: srv.Client()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sink.UpdateOrder(ctx, publish.OrderUpdate{Version: 1}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNewHTTPSinkRequiresEndpoint(t *testing.T) {
	if _, err := NewHTTPSink("", HTTPOptions{}); err == nil {
		t.Error("expected error for empty endpoint")
	}
}

func TestMemorySinkDiscardsStaleVersions(t *testing.T) {
	sink := NewMemorySink(true)
	ctx := context.Background()

	_ = sink.UpdateOrder(ctx, publish.OrderUpdate{Version: 2, OrderedIDs: []string{"b", "a"}})
	_ = sink.UpdateOrder(ctx, publish.OrderUpdate{Version: 1, OrderedIDs: []string{"a", "b"}})

	if got := sink.Order(); !slices.Equal(got, []string{"b", "a"}) {
		t.Errorf("Order = %v, stale update applied", got)
	}
	if sink.Version() != 2 || sink.Stale() != 1 || len(sink.Applied()) != 1 {
		t.Errorf("version=%d stale=%d applied=%d", sink.Version(), sink.Stale(), len(sink.Applied()))
	}
}

func TestMemorySinkFailure(t *testing.T) {
	sink := NewMemorySink(true)
	boom := errors.New("offline")
	sink.FailWith(boom)

	if err := sink.UpdateOrder(context.Background(), publish.OrderUpdate{Version: 1, OrderedIDs: []string{"a"}}); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if len(sink.Order()) != 0 {
		t.Error("failed update applied")
	}

	sink.FailWith(nil)
	if err := sink.UpdateOrder(context.Background(), publish.OrderUpdate{Version: 2, OrderedIDs: []string{"a"}}); err != nil {
		t.Fatalf("err = %v", err)
	}
	if !slices.Equal(sink.Order(), []string{"a"}) {
		t.Errorf("Order = %v", sink.Order())
	}
}

func TestMemorySinkImmediateFlag(t *testing.T) {
	sink := NewMemorySink(false)
	if sink.UpdateImmediately() {
		t.Error("expected false")
	}
	sink.SetImmediate(true)
	if !sink.UpdateImmediately() {
		t.Error("expected true")
	}
}
