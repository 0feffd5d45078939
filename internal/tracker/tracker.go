// Package tracker turns focus transitions into attributed sessions and
// runs the tracking pipeline.
package tracker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/actionsum/focusstat/internal/classifier"
	"github.com/actionsum/focusstat/internal/focus"
	"github.com/actionsum/focusstat/pkg/window"
)

var (
	// ErrStopped is returned by Handle after Close
	ErrStopped = errors.New("tracker stopped")

	// ErrClockAnomaly marks a session that ended before it started
	ErrClockAnomaly = errors.New("clock anomaly")
)

// State of the tracker
type State int

const (
	Idle State = iota
	Tracking
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Tracking:
		return "tracking"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Resolver looks up window metadata. It must not fail.
type Resolver interface {
	Resolve(ctx context.Context, h window.Handle) window.WindowInfo
}

// Classifier maps window metadata to a category
type Classifier interface {
	Classify(info window.WindowInfo) string
}

// Attributor receives closed sessions
type Attributor interface {
	Attribute(category string, start, end time.Time) time.Duration
}

// Session is the interval during which one window held focus
type Session struct {
	Category string
	Window   window.Handle
	Info     window.WindowInfo
	Start    time.Time
}

// Tracker keeps at most one open session. Handle is meant to be called
// from a single loop, the mutex only guards readers like Current.
type Tracker struct {
	resolver   Resolver
	classifier Classifier
	attributor Attributor

	// OnAnomaly, if set, is called for every clamped session
	OnAnomaly func(err error)

	mu      sync.Mutex
	state   State
	current Session
	total   time.Duration
}

// New creates an idle tracker
func New(resolver Resolver, classifier Classifier, attributor Attributor) *Tracker {
	return &Tracker{
		resolver:   resolver,
		classifier: classifier,
		attributor: attributor,
		state:      Idle,
	}
}

// Handle closes the open session at ev.Time and opens one for ev.Window
func (t *Tracker) Handle(ctx context.Context, ev focus.Event) error {
	t.mu.Lock()
	if t.state == Stopped {
		t.mu.Unlock()
		return ErrStopped
	}
	if t.state == Tracking {
		t.closeLocked(ev.Time)
	}
	t.mu.Unlock()

	// resolve outside the lock, it talks to the display server
	session := Session{Window: ev.Window, Start: ev.Time}
	if ev.Idle() {
		session.Category = classifier.Uncategorized
	} else {
		session.Info = t.resolver.Resolve(ctx, ev.Window)
		session.Category = t.classifier.Classify(session.Info)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Stopped {
		return ErrStopped
	}
	t.current = session
	t.state = Tracking
	return nil
}

// Close ends the open session at the given time and stops the tracker.
// It returns the attributed duration and is safe to call repeatedly.
func (t *Tracker) Close(at time.Time) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	var d time.Duration
	if t.state == Tracking {
		d = t.closeLocked(at)
	}
	t.state = Stopped
	return d
}

// Current returns the open session, if any
func (t *Tracker) Current() (Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.state == Tracking
}

// State returns the tracker state
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Total returns the time attributed so far
func (t *Tracker) Total() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

func (t *Tracker) closeLocked(end time.Time) time.Duration {
	s := t.current
	t.current = Session{}
	t.state = Idle

	if end.Before(s.Start) {
		err := errors.Wrapf(ErrClockAnomaly, "%s session ends %v before it starts", s.Category, s.Start.Sub(end))
		log.Printf("Warning: %v, attributing zero", err)
		if t.OnAnomaly != nil {
			t.OnAnomaly(err)
		}
		return 0
	}

	d := t.attributor.Attribute(s.Category, s.Start, end)
	t.total += d
	return d
}
