// Package focus turns raw display notifications into a lazy,
// timestamped sequence of focus transitions.
package focus

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/actionsum/focusstat/pkg/window"
)

// ErrStopped is returned by Next once Stop has been called
var ErrStopped = errors.New("focus stream stopped")

// Source is the part of a display connection the stream consumes
type Source interface {
	ActiveWindow() (window.Handle, error)
	NextEvent(ctx context.Context) (window.Event, error)
}

// Event is one focus transition
type Event struct {
	Window window.Handle
	Time   time.Time
	Kind   window.EventKind
}

// Idle reports whether nothing holds focus
func (e Event) Idle() bool {
	return e.Window == window.NoWindow
}

// Stream yields focus transitions. It is consumed by a single reader,
// cannot be restarted and delivers every event at most once.
type Stream struct {
	src         Source
	now         func() time.Time
	trackTitles bool

	started bool
	last    window.Handle

	stopOnce sync.Once
	stop     chan struct{}
}

// Option configures a Stream
type Option func(*Stream)

// WithClock replaces time.Now for event timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Stream) {
		s.now = now
	}
}

// WithTitleChanges makes title changes of the focused window count as transitions
func WithTitleChanges(enabled bool) Option {
	return func(s *Stream) {
		s.trackTitles = enabled
	}
}

// NewStream wraps src. Nothing is read until the first Next.
func NewStream(src Source, opts ...Option) *Stream {
	s := &Stream{
		src:  src,
		now:  time.Now,
		stop: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next blocks until the next transition. The first call returns the
// window focused at subscription time. It returns ErrStopped after
// Stop, ctx.Err() on cancellation and window.ErrConnectionClosed when
// the display goes away.
func (s *Stream) Next(ctx context.Context) (Event, error) {
	if s.stopped() {
		return Event{}, ErrStopped
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	if !s.started {
		s.started = true
		w, err := s.src.ActiveWindow()
		if err != nil {
			// no _NET_ACTIVE_WINDOW yet, treat as nothing focused
			w = window.NoWindow
		}
		s.last = w
		return Event{Window: w, Time: s.now(), Kind: window.FocusChanged}, nil
	}

	for {
		raw, err := s.src.NextEvent(ctx)
		if err != nil {
			if s.stopped() {
				return Event{}, ErrStopped
			}
			if errors.Is(err, window.ErrConnectionClosed) || ctx.Err() != nil {
				return Event{}, err
			}
			return Event{}, errors.Wrap(err, "failed to read focus event")
		}

		switch {
		case raw.Kind == window.TitleChanged && raw.Window == s.last:
			if !s.trackTitles {
				continue
			}
		case raw.Window == s.last:
			continue
		}

		s.last = raw.Window
		return Event{Window: raw.Window, Time: s.now(), Kind: raw.Kind}, nil
	}
}

// Stop ends the stream and interrupts a blocked Next
func (s *Stream) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

func (s *Stream) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}
