package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/actionsum/focusstat/internal/classifier"
	"github.com/actionsum/focusstat/internal/config"
	"github.com/actionsum/focusstat/internal/models"
	"github.com/actionsum/focusstat/internal/sink"
	"github.com/actionsum/focusstat/pkg/window"
)

// fakeDisplay serves window metadata from testWindows and events from a channel
type fakeDisplay struct {
	active window.Handle
	events chan window.Event

	mu     sync.Mutex
	closed int
}

func newFakeDisplay(active window.Handle) *fakeDisplay {
	return &fakeDisplay{active: active, events: make(chan window.Event)}
}

func (d *fakeDisplay) ActiveWindow() (window.Handle, error) { return d.active, nil }
func (d *fakeDisplay) GetDisplayServer() string             { return "fake" }

func (d *fakeDisplay) NextEvent(ctx context.Context) (window.Event, error) {
	select {
	case <-ctx.Done():
		return window.Event{}, ctx.Err()
	case ev, ok := <-d.events:
		if !ok {
			return window.Event{}, window.ErrConnectionClosed
		}
		return ev, nil
	}
}

func (d *fakeDisplay) WindowTitle(h window.Handle) (string, error) {
	return testWindows[h].Name, nil
}

func (d *fakeDisplay) WindowClass(h window.Handle) (string, string, error) {
	return testWindows[h].Instance, testWindows[h].Class, nil
}

func (d *fakeDisplay) WindowPID(window.Handle) (uint32, error) {
	return 0, errors.New("no pid")
}

func (d *fakeDisplay) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return nil
}

func (d *fakeDisplay) closeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// fakeStore keeps totals per category
type fakeStore struct {
	mu      sync.Mutex
	fail    bool
	writes  int
	flushes int
	totals  map[string]time.Duration
	errLogs []*models.ErrorLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{totals: map[string]time.Duration{}}
}

func (s *fakeStore) AddDurations(_ context.Context, rows []models.CategoryStat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.fail {
		return errors.New("database is locked")
	}
	for _, r := range rows {
		s.totals[r.Category] += time.Duration(r.Duration)
	}
	return nil
}

func (s *fakeStore) RecordFlush(context.Context, string, time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

func (s *fakeStore) CreateErrorLog(errorLog *models.ErrorLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errLogs = append(s.errLogs, errorLog)
	return nil
}

func (s *fakeStore) errorKinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kinds []string
	for _, e := range s.errLogs {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

// fakeClock is advanced by hand
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(seconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t0.Add(time.Duration(seconds) * time.Second)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Stats.TimeZone = "UTC"
	// long enough that only the final flush writes
	cfg.Stats.FlushInterval = 30 * time.Minute
	return cfg
}

func newTestService(t *testing.T, display *fakeDisplay, store *fakeStore) (*Service, *fakeClock) {
	t.Helper()
	matcher, err := classifier.Parse([]byte(testRules))
	if err != nil {
		t.Fatal(err)
	}
	svc, err := NewService(testConfig(), display, matcher, store, "run-1")
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}
	clock := &fakeClock{now: t0}
	svc.now = clock.Now
	return svc, clock
}

func startService(svc *Service) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- svc.Start(context.Background())
	}()
	return done
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return")
		return nil
	}
}

func focusedOn(svc *Service, h window.Handle) func() bool {
	return func() bool {
		session, ok := svc.Tracker().Current()
		return ok && session.Window == h
	}
}

func TestServiceScenario(t *testing.T) {
	display := newFakeDisplay(winTerm)
	store := newFakeStore()
	svc, clock := newTestService(t, display, store)

	done := startService(svc)
	waitFor(t, "initial window", focusedOn(svc, winTerm))

	clock.Set(300)
	display.events <- window.Event{Window: winWeb, Kind: window.FocusChanged}
	waitFor(t, "browser focus", focusedOn(svc, winWeb))

	// the terminal session is attributed in memory before any flush
	if got := svc.Totals().Total(); got != 300*time.Second {
		t.Errorf("Totals() before shutdown = %v, want 5m", got)
	}

	clock.Set(360)
	svc.Stop()
	if err := waitDone(t, done); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	if store.totals["terminal"] != 300*time.Second {
		t.Errorf("terminal = %v, want 5m", store.totals["terminal"])
	}
	if store.totals["browser"] != 60*time.Second {
		t.Errorf("browser = %v, want 1m", store.totals["browser"])
	}
	if store.writes != 1 || store.flushes != 1 {
		t.Errorf("writes = %d, flushes = %d, want exactly one final flush", store.writes, store.flushes)
	}
	if display.closeCount() != 1 {
		t.Errorf("display closed %d times, want 1", display.closeCount())
	}
	if svc.IsRunning() {
		t.Error("IsRunning() should be false after shutdown")
	}
	if svc.Tracker().State() != Stopped {
		t.Errorf("tracker state = %s, want stopped", svc.Tracker().State())
	}
}

func TestServiceContextCancel(t *testing.T) {
	display := newFakeDisplay(winTerm)
	store := newFakeStore()
	svc, clock := newTestService(t, display, store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Start(ctx)
	}()
	waitFor(t, "initial window", focusedOn(svc, winTerm))

	clock.Set(90)
	cancel()
	if err := waitDone(t, done); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if store.totals["terminal"] != 90*time.Second {
		t.Errorf("terminal = %v, want 90s", store.totals["terminal"])
	}
}

func TestServiceConnectionLoss(t *testing.T) {
	display := newFakeDisplay(winWeb)
	store := newFakeStore()
	svc, clock := newTestService(t, display, store)

	done := startService(svc)
	waitFor(t, "initial window", focusedOn(svc, winWeb))

	clock.Set(45)
	close(display.events)
	err := waitDone(t, done)
	if !errors.Is(err, window.ErrConnectionClosed) {
		t.Fatalf("Start() = %v, want ErrConnectionClosed", err)
	}

	// the pipeline still shuts down in order
	if store.totals["browser"] != 45*time.Second {
		t.Errorf("browser = %v, want 45s", store.totals["browser"])
	}
	if store.writes != 1 {
		t.Errorf("writes = %d, want 1", store.writes)
	}
	if display.closeCount() != 1 {
		t.Errorf("display closed %d times, want 1", display.closeCount())
	}
	if len(store.errLogs) != 1 || store.errLogs[0].Kind != "connection" || store.errLogs[0].RunID != "run-1" {
		t.Errorf("error logs = %+v, want one connection error for run-1", store.errLogs)
	}
}

func TestServiceFinalFlushFailure(t *testing.T) {
	display := newFakeDisplay(winTerm)
	store := newFakeStore()
	store.fail = true
	svc, clock := newTestService(t, display, store)

	done := startService(svc)
	waitFor(t, "initial window", focusedOn(svc, winTerm))

	clock.Set(10)
	svc.Stop()
	err := waitDone(t, done)
	if !errors.Is(err, sink.ErrFlush) {
		t.Fatalf("Start() = %v, want ErrFlush", err)
	}
	if display.closeCount() != 1 {
		t.Error("display must be closed even when the final flush fails")
	}
}

func TestServiceStartTwice(t *testing.T) {
	display := newFakeDisplay(window.NoWindow)
	svc, _ := newTestService(t, display, newFakeStore())

	done := startService(svc)
	waitFor(t, "running", svc.IsRunning)

	if err := svc.Start(context.Background()); err == nil {
		t.Error("second Start() should fail")
	}

	svc.Stop()
	if err := waitDone(t, done); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
}

func TestServicePeriodicFlushFailureIsLogged(t *testing.T) {
	display := newFakeDisplay(winTerm)
	store := newFakeStore()
	store.mu.Lock()
	store.fail = true
	store.mu.Unlock()
	svc, clock := newTestService(t, display, store)
	svc.config.Stats.FlushInterval = 10 * time.Millisecond

	done := startService(svc)
	waitFor(t, "initial window", focusedOn(svc, winTerm))

	clock.Set(20)
	display.events <- window.Event{Window: winWeb, Kind: window.FocusChanged}
	waitFor(t, "browser focus", focusedOn(svc, winWeb))

	waitFor(t, "flush error log", func() bool {
		for _, kind := range store.errorKinds() {
			if kind == "flush" {
				return true
			}
		}
		return false
	})

	// the daemon keeps running through persistence failures
	if !svc.IsRunning() {
		t.Error("service stopped after a failed periodic flush")
	}

	svc.Stop()
	if err := waitDone(t, done); !errors.Is(err, sink.ErrFlush) {
		t.Errorf("Start() = %v, want final ErrFlush", err)
	}
}
