package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dineinclub/slipd/internal/printing"
)

type mockWatcher struct {
	mu    sync.Mutex
	calls []time.Time

	WatchFunc        func(ctx context.Context) (<-chan printing.ChangeRecord, error)
	ChangedSinceFunc func(ctx context.Context, since time.Time) ([]printing.ChangeRecord, error)
}

func (m *mockWatcher) Watch(ctx context.Context) (<-chan printing.ChangeRecord, error) {
	if m.WatchFunc != nil {
		return m.WatchFunc(ctx)
	}
	return nil, errors.New("change streams unavailable")
}

func (m *mockWatcher) ChangedSince(ctx context.Context, since time.Time) ([]printing.ChangeRecord, error) {
	m.mu.Lock()
	m.calls = append(m.calls, since)
	m.mu.Unlock()
	if m.ChangedSinceFunc != nil {
		return m.ChangedSinceFunc(ctx, since)
	}
	return nil, nil
}

func (m *mockWatcher) sinceValues() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Time, len(m.calls))
	copy(out, m.calls)
	return out
}

type mockHandler struct {
	mu   sync.Mutex
	recs []printing.ChangeRecord

	HandleFunc func(ctx context.Context, rec printing.ChangeRecord) error
}

func (m *mockHandler) Handle(ctx context.Context, rec printing.ChangeRecord) error {
	m.mu.Lock()
	m.recs = append(m.recs, rec)
	m.mu.Unlock()
	if m.HandleFunc != nil {
		return m.HandleFunc(ctx, rec)
	}
	return nil
}

func (m *mockHandler) handled() []printing.ChangeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]printing.ChangeRecord, len(m.recs))
	copy(out, m.recs)
	return out
}

func newTestSource(w Watcher, h Handler) *Source {
	s := NewSource(w, h, nil)
	s.readyTimeout = 50 * time.Millisecond
	s.pollEvery = 10 * time.Millisecond
	return s
}

func waitForMode(t *testing.T, s *Source, mode string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Mode() == mode {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("source never reached mode %q, stuck in %q", mode, s.Mode())
}

func TestSourcePushDeliversRecords(t *testing.T) {
	ch := make(chan printing.ChangeRecord, 4)
	watcher := &mockWatcher{
		WatchFunc: func(ctx context.Context) (<-chan printing.ChangeRecord, error) {
			return ch, nil
		},
	}
	handler := &mockHandler{}
	s := newTestSource(watcher, handler)

	if got := s.Mode(); got != ModeStarting {
		t.Fatalf("Mode() before start = %q, want %q", got, ModeStarting)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForMode(t, s, ModePush)

	ch <- printing.ChangeRecord{Kind: printing.ChangeInserted, OrderID: "ord-1", Status: "paid"}
	ch <- printing.ChangeRecord{Kind: printing.ChangeUpdated, OrderID: "ord-2", Status: "paid", PrevStatus: "pending"}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(handler.handled()) < 2 {
		time.Sleep(5 * time.Millisecond)
	}

	recs := handler.handled()
	if len(recs) != 2 {
		t.Fatalf("handled %d records, want 2", len(recs))
	}
	if recs[0].OrderID != "ord-1" || recs[1].OrderID != "ord-2" {
		t.Errorf("records out of order: %v", recs)
	}

	close(ch)
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestSourceFallsBackWhenSubscriptionFails(t *testing.T) {
	watcher := &mockWatcher{
		ChangedSinceFunc: func(ctx context.Context, since time.Time) ([]printing.ChangeRecord, error) {
			return []printing.ChangeRecord{
				{Kind: printing.ChangePolled, OrderID: "ord-7", Status: "paid"},
			}, nil
		},
	}
	handler := &mockHandler{}
	s := newTestSource(watcher, handler)

	start := time.Now()
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForMode(t, s, ModePoll)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(handler.handled()) == 0 {
		time.Sleep(5 * time.Millisecond)
	}

	recs := handler.handled()
	if len(recs) == 0 {
		t.Fatal("polling never delivered a record")
	}
	if recs[0].Kind != printing.ChangePolled || recs[0].OrderID != "ord-7" {
		t.Errorf("unexpected record: %+v", recs[0])
	}

	for _, since := range watcher.sinceValues() {
		if since.Before(start) {
			t.Errorf("poll watermark %v predates source start %v", since, start)
		}
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if got := s.Mode(); got != ModeStopped {
		t.Errorf("Mode() after stop = %q, want %q", got, ModeStopped)
	}
}

func TestSourceFallsBackWhenSubscriptionNotReady(t *testing.T) {
	watcher := &mockWatcher{
		WatchFunc: func(ctx context.Context) (<-chan printing.ChangeRecord, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	handler := &mockHandler{}
	s := newTestSource(watcher, handler)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForMode(t, s, ModePoll)

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestSourceDegradesToPollingOnStreamLoss(t *testing.T) {
	ch := make(chan printing.ChangeRecord)
	watcher := &mockWatcher{
		WatchFunc: func(ctx context.Context) (<-chan printing.ChangeRecord, error) {
			return ch, nil
		},
	}
	handler := &mockHandler{}
	s := newTestSource(watcher, handler)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForMode(t, s, ModePush)

	close(ch)
	waitForMode(t, s, ModePoll)

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestSourcePollSkipsFailedQueries(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	watcher := &mockWatcher{
		ChangedSinceFunc: func(ctx context.Context, since time.Time) ([]printing.ChangeRecord, error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if calls == 1 {
				return nil, errors.New("connection reset")
			}
			return nil, nil
		},
	}
	handler := &mockHandler{}
	s := newTestSource(watcher, handler)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForMode(t, s, ModePoll)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := calls
		mu.Unlock()
		if n >= 3 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	sinces := watcher.sinceValues()
	if len(sinces) < 3 {
		t.Fatalf("only %d polls observed, want at least 3", len(sinces))
	}
	// The failed first poll must not advance the watermark.
	if !sinces[1].Equal(sinces[0]) {
		t.Errorf("watermark advanced after failed poll: %v -> %v", sinces[0], sinces[1])
	}
	if !sinces[2].After(sinces[1]) {
		t.Errorf("watermark did not advance after successful poll: %v -> %v", sinces[1], sinces[2])
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}
