package publish

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/munkhbileg/openproject/internal/rows"
	"github.com/munkhbileg/openproject/internal/serialdispatch"
)

type fakeSink struct {
	mu        sync.Mutex
	immediate bool
	err       error
	gate      chan struct{} // when set, each update waits for a receive
	updates   []OrderUpdate
}

func (f *fakeSink) UpdateImmediately() bool { return f.immediate }

func (f *fakeSink) UpdateOrder(ctx context.Context, u OrderUpdate) error {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, u)
	return f.err
}

func (f *fakeSink) received() []OrderUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.updates)
}

type fakeRefresh struct {
	mu      sync.Mutex
	reasons []string
}

func (f *fakeRefresh) RequestRefresh(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reasons = append(f.reasons, reason)
}

func (f *fakeRefresh) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reasons)
}

func newStore(t *testing.T, descs ...rows.Descriptor) *rows.Store {
	t.Helper()
	store, err := rows.New(descs...)
	if err != nil {
		t.Fatalf("rows.New: %v", err)
	}
	return store
}

func row(entityID string) rows.Descriptor {
	return rows.Descriptor{Identifier: "wp-row-" + entityID, EntityID: entityID}
}

func await(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("publish result not delivered")
		return nil
	}
}

func TestPublishSendsPendingOrder(t *testing.T) {
	store := newStore(t, row("1"), rows.Descriptor{Identifier: "wp-row-new"}, row("2"))
	sink := &fakeSink{immediate: true}
	refresh := &fakeRefresh{}

	p, err := New(store, Options{Sink: sink, Refresh: refresh})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	if err := await(t, p.Publish(context.Background())); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	got := sink.received()
	if len(got) != 1 {
		t.Fatalf("expected 1 update, got %d", len(got))
	}
	if !slices.Equal(got[0].OrderedIDs, []string{"1", "2"}) {
		t.Errorf("OrderedIDs = %v, want [1 2]", got[0].OrderedIDs)
	}
	if got[0].Version != 1 {
		t.Errorf("Version = %d, want 1", got[0].Version)
	}
	if refresh.count() != 1 || refresh.reasons[0] != RefreshReason {
		t.Errorf("refresh reasons = %v", refresh.reasons)
	}
}

func TestPublishSkipsWhenNotImmediate(t *testing.T) {
	store := newStore(t, row("1"))
	sink := &fakeSink{immediate: false}
	refresh := &fakeRefresh{}

	p, _ := New(store, Options{Sink: sink, Refresh: refresh})
	defer p.Close()

	if err := await(t, p.Publish(context.Background())); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(sink.received()) != 0 {
		t.Error("update sent although sink does not want immediate updates")
	}
	if refresh.count() != 0 {
		t.Error("refresh requested for a skipped publish")
	}
	if p.Stats().Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", p.Stats().Skipped)
	}
}

func TestPublishTwiceSendsSamePayload(t *testing.T) {
	store := newStore(t, row("1"), row("2"), row("3"))
	sink := &fakeSink{immediate: true}

	p, _ := New(store, Options{Sink: sink})
	defer p.Close()

	first := p.Publish(context.Background())
	second := p.Publish(context.Background())
	if err := await(t, first); err != nil {
		t.Fatal(err)
	}
	if err := await(t, second); err != nil {
		t.Fatal(err)
	}

	got := sink.received()
	if len(got) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(got))
	}
	if !slices.Equal(got[0].OrderedIDs, got[1].OrderedIDs) {
		t.Errorf("payloads differ: %v vs %v", got[0].OrderedIDs, got[1].OrderedIDs)
	}
	if got[0].Version >= got[1].Version {
		t.Errorf("versions not increasing: %d, %d", got[0].Version, got[1].Version)
	}
}

func TestPublishFailureKeepsLocalOrder(t *testing.T) {
	store := newStore(t, row("1"), row("2"))
	boom := errors.New("validation failed")
	sink := &fakeSink{immediate: true, err: boom}
	refresh := &fakeRefresh{}

	p, _ := New(store, Options{Sink: sink, Refresh: refresh})
	defer p.Close()

	err := await(t, p.Publish(context.Background()))
	if !errors.Is(err, boom) {
		t.Fatalf("Publish error = %v, want wrapped boom", err)
	}
	if refresh.count() != 0 {
		t.Error("refresh requested after failed publish")
	}
	if got := store.Snapshot().PendingOrder(); !slices.Equal(got, []string{"1", "2"}) {
		t.Errorf("local order changed after failure: %v", got)
	}
	if s := p.Stats(); s.Failed != 1 || s.Sent != 0 {
		t.Errorf("Stats = %+v", s)
	}
}

func TestPublishSerializesAndSnapshotsAtCallTime(t *testing.T) {
	store := newStore(t, row("1"), row("2"))
	sink := &fakeSink{immediate: true, gate: make(chan struct{})}

	p, _ := New(store, Options{Sink: sink, QueueSize: 4})
	defer p.Close()

	first := p.Publish(context.Background())

	_ = store.Modify(func(s rows.Sequence) (rows.Sequence, error) {
		return append(s, row("3")), nil
	})
	second := p.Publish(context.Background())

	sink.gate <- struct{}{}
	if err := await(t, first); err != nil {
		t.Fatal(err)
	}
	if n := len(sink.received()); n != 1 {
		t.Fatalf("second update sent before the first completed: %d updates", n)
	}
	sink.gate <- struct{}{}
	if err := await(t, second); err != nil {
		t.Fatal(err)
	}

	got := sink.received()
	if !slices.Equal(got[0].OrderedIDs, []string{"1", "2"}) {
		t.Errorf("first payload = %v", got[0].OrderedIDs)
	}
	if !slices.Equal(got[1].OrderedIDs, []string{"1", "2", "3"}) {
		t.Errorf("second payload = %v", got[1].OrderedIDs)
	}
	if got[0].Version != 1 || got[1].Version != 2 {
		t.Errorf("versions = %d, %d", got[0].Version, got[1].Version)
	}
}

func TestPublishAppliesFormatter(t *testing.T) {
	store := newStore(t, row("7"), row("9"))
	sink := &fakeSink{immediate: true}

	p, _ := New(store, Options{
		Sink:      sink,
		Formatter: func(id string) string { return "/api/v3/work_packages/" + id },
	})
	defer p.Close()

	if err := await(t, p.Publish(context.Background())); err != nil {
		t.Fatal(err)
	}

	want := []string{"/api/v3/work_packages/7", "/api/v3/work_packages/9"}
	if got := sink.received()[0].OrderedIDs; !slices.Equal(got, want) {
		t.Errorf("OrderedIDs = %v, want %v", got, want)
	}
	if got := p.Pending(); !slices.Equal(got, want) {
		t.Errorf("Pending() = %v, want %v", got, want)
	}
}

func TestPublishTimeout(t *testing.T) {
	store := newStore(t, row("1"))
	sink := &fakeSink{immediate: true, gate: make(chan struct{})}

	p, _ := New(store, Options{Sink: sink, Timeout: 20 * time.Millisecond})
	defer p.Close()

	err := await(t, p.Publish(context.Background()))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

type recordingListener struct {
	mu        sync.Mutex
	published []uint64
	failed    []uint64
}

func (l *recordingListener) Published(u OrderUpdate) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.published = append(l.published, u.Version)
}

func (l *recordingListener) Failed(version uint64, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failed = append(l.failed, version)
}

func TestPublishNotifiesListener(t *testing.T) {
	store := newStore(t, row("1"))
	sink := &fakeSink{immediate: true}
	listener := &recordingListener{}

	p, _ := New(store, Options{Sink: sink, Listener: listener})
	defer p.Close()

	_ = await(t, p.Publish(context.Background()))
	sink.mu.Lock()
	sink.err = errors.New("down")
	sink.mu.Unlock()
	_ = await(t, p.Publish(context.Background()))

	listener.mu.Lock()
	defer listener.mu.Unlock()
	if !slices.Equal(listener.published, []uint64{1}) {
		t.Errorf("published = %v", listener.published)
	}
	if !slices.Equal(listener.failed, []uint64{2}) {
		t.Errorf("failed = %v", listener.failed)
	}
}

func TestPublishAfterClose(t *testing.T) {
	store := newStore(t, row("1"))
	p, _ := New(store, Options{Sink: &fakeSink{immediate: true}})

	p.Close()
	p.Wait()

	if err := await(t, p.Publish(context.Background())); !errors.Is(err, serialdispatch.ErrClosed) {
		t.Errorf("Publish after Close = %v, want ErrClosed", err)
	}
}

func TestNewValidatesArguments(t *testing.T) {
	if _, err := New(nil, Options{Sink: &fakeSink{}}); err == nil {
		t.Error("expected error for nil source")
	}
	if _, err := New(newStore(t), Options{}); err == nil {
		t.Error("expected error for nil sink")
	}
}

func TestPublishDoesNotWaitForStalledSend(t *testing.T) {
	store := newStore(t, row("1"), row("2"))
	sink := &fakeSink{immediate: true, gate: make(chan struct{})}
	p, _ := New(store, Options{Sink: sink, QueueSize: 1})
	defer p.Close()

	const n = 10
	results := make(chan []<-chan error, 1)
	go func() {
		var rs []<-chan error
		for range n {
			rs = append(rs, p.Publish(context.Background()))
		}
		results <- rs
	}()

	var rs []<-chan error
	select {
	case rs = <-results:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked behind a stalled send")
	}

	for range n {
		sink.gate <- struct{}{}
	}
	for i, r := range rs {
		if err := await(t, r); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
	for i, u := range sink.received() {
		if u.Version != uint64(i+1) {
			t.Errorf("update %d has version %d", i, u.Version)
		}
	}
}
