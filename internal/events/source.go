// Package events feeds order change records into the trigger engine, from a
// change-stream subscription when the store supports one and from a polling
// loop otherwise.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/aquamarinepk/aqm"

	"github.com/dineinclub/slipd/internal/printing"
)

const (
	// defaultReadyTimeout bounds how long the change stream may take to
	// become ready before the source falls back to polling.
	defaultReadyTimeout = 10 * time.Second
	// defaultPollEvery is the polling interval of the fallback mode.
	defaultPollEvery = 3 * time.Second
)

// Watcher is the change-feed side of the order store.
type Watcher interface {
	// Watch opens a change subscription. The returned channel closes when
	// the stream ends; its records arrive in store order.
	Watch(ctx context.Context) (<-chan printing.ChangeRecord, error)
	// ChangedSince lists orders whose trigger field already matches the
	// configured value and that changed after since.
	ChangedSince(ctx context.Context, since time.Time) ([]printing.ChangeRecord, error)
}

// Handler consumes qualifying change records, one at a time.
type Handler interface {
	Handle(ctx context.Context, rec printing.ChangeRecord) error
}

// Mode labels reported by Source.Mode.
const (
	ModeStarting = "starting"
	ModePush     = "push"
	ModePoll     = "poll"
	ModeStopped  = "stopped"
)

// Source drives the single logical stream of trigger handling. It prefers
// the push subscription and falls back to polling when the subscription
// does not become ready in time or dies mid-session. Exactly one mode is
// active at steady state, and records are handled sequentially on one
// goroutine so no two dispatches ever overlap.
type Source struct {
	watcher      Watcher
	handler      Handler
	readyTimeout time.Duration
	pollEvery    time.Duration
	logger       aqm.Logger

	mu     sync.Mutex
	mode   string
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSource(watcher Watcher, handler Handler, logger aqm.Logger) *Source {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Source{
		watcher:      watcher,
		handler:      handler,
		readyTimeout: defaultReadyTimeout,
		pollEvery:    defaultPollEvery,
		logger:       logger,
		mode:         ModeStarting,
		done:         make(chan struct{}),
	}
}

// Start launches the source. It returns immediately; mode selection and
// record handling happen on the source's own goroutine.
func (s *Source) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	go s.run(runCtx)
	return nil
}

// Stop tears the source down: the push subscription is cancelled or the
// poll timer stopped, and Stop waits for the run loop to exit.
func (s *Source) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Mode reports which delivery strategy is currently active.
func (s *Source) Mode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Source) setMode(mode string) {
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
}

func (s *Source) run(ctx context.Context) {
	defer close(s.done)
	defer s.setMode(ModeStopped)

	if s.runPush(ctx) {
		return
	}
	if ctx.Err() != nil {
		return
	}
	s.runPoll(ctx)
}

// runPush attempts the subscription mode. It returns true when the source
// is done for good (shutdown) and false when the caller should fall back
// to polling.
func (s *Source) runPush(ctx context.Context) bool {
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		ch  <-chan printing.ChangeRecord
		err error
	}
	ready := make(chan result, 1)
	go func() {
		ch, err := s.watcher.Watch(watchCtx)
		ready <- result{ch: ch, err: err}
	}()

	var ch <-chan printing.ChangeRecord
	select {
	case r := <-ready:
		if r.err != nil {
			s.logger.Errorf("change subscription failed, falling back to polling: %v", r.err)
			return false
		}
		ch = r.ch
	case <-time.After(s.readyTimeout):
		s.logger.Error("change subscription not ready in time, falling back to polling")
		return false
	case <-ctx.Done():
		return true
	}

	s.setMode(ModePush)
	s.logger.Info("event source active", "mode", ModePush)

	for rec := range ch {
		if err := s.handler.Handle(ctx, rec); err != nil {
			s.logger.Errorf("cannot handle change for order %s: %v", rec.OrderID, err)
		}
	}
	if ctx.Err() != nil {
		return true
	}
	s.logger.Error("change subscription lost mid-session, degrading to polling")
	return false
}

// runPoll queries for already-triggered orders on a fixed interval. The
// watermark starts at poll start so historical records are never replayed,
// and advances to the moment each poll was issued.
func (s *Source) runPoll(ctx context.Context) {
	s.setMode(ModePoll)
	s.logger.Info("event source active", "mode", ModePoll, "interval", s.pollEvery.String())

	since := time.Now()
	ticker := time.NewTicker(s.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		polledAt := time.Now()
		recs, err := s.watcher.ChangedSince(ctx, since)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Errorf("cannot poll order changes: %v", err)
			}
			continue
		}
		since = polledAt

		for _, rec := range recs {
			if err := s.handler.Handle(ctx, rec); err != nil {
				s.logger.Errorf("cannot handle change for order %s: %v", rec.OrderID, err)
			}
		}
	}
}
