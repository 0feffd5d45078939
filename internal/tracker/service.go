package tracker

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/actionsum/focusstat/internal/config"
	"github.com/actionsum/focusstat/internal/focus"
	"github.com/actionsum/focusstat/internal/models"
	"github.com/actionsum/focusstat/internal/resolver"
	"github.com/actionsum/focusstat/internal/sink"
	"github.com/actionsum/focusstat/internal/stats"
	"github.com/actionsum/focusstat/pkg/integrations/process"
	"github.com/actionsum/focusstat/pkg/window"
)

// Store is everything the pipeline persists
type Store interface {
	sink.Store
	sink.FlushRecorder
	CreateErrorLog(errorLog *models.ErrorLog) error
}

// Service wires the display, the tracker and the sink into one pipeline.
// It runs once: a stopped service cannot be started again.
type Service struct {
	config  *config.Config
	display window.Display
	store   Store
	runID   string
	now     func() time.Time

	stream  *focus.Stream
	tracker *Tracker
	agg     *stats.Aggregator
	sink    *sink.Sink

	mu      sync.Mutex
	started bool
	running bool
}

// NewService builds the pipeline for one run
func NewService(cfg *config.Config, display window.Display, matcher Classifier, store Store, runID string) (*Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	bucketer, err := stats.NewBucketer(cfg.Stats.BucketWidth, loc)
	if err != nil {
		return nil, err
	}

	s := &Service{
		config:  cfg,
		display: display,
		store:   store,
		runID:   runID,
		now:     time.Now,
	}

	clock := func() time.Time { return s.now() }
	s.agg = stats.NewAggregator(bucketer)
	s.sink = sink.New(store, s.agg, cfg.Stats.WriteTimeout).WithRun(store, runID)
	s.stream = focus.NewStream(display,
		focus.WithClock(clock),
		focus.WithTitleChanges(cfg.Tracker.TrackTitleChanges))
	s.tracker = New(
		resolver.New(display, process.NewLookup(), cfg.Tracker.ResolveTimeout),
		matcher,
		s.agg)
	s.tracker.OnAnomaly = func(err error) {
		s.storeError("clock_anomaly", err)
	}
	s.sink.OnError = func(err error) {
		s.storeError("flush", err)
	}

	return s, nil
}

// Start consumes focus events until ctx is done, Stop is called or the
// display connection drops, then shuts the pipeline down. Connection
// loss and shutdown failures are returned.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("tracker is already running")
	}
	s.started = true
	s.running = true
	s.mu.Unlock()

	log.Printf("Starting tracker on %s with %v buckets, flushing every %v",
		s.display.GetDisplayServer(), s.config.Stats.BucketWidth, s.config.Stats.FlushInterval)

	flushCtx, stopFlushing := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.sink.Run(flushCtx, s.config.Stats.FlushInterval)
	}()

	runErr := s.loop(ctx)
	return s.shutdown(runErr, stopFlushing, &wg)
}

// Stop interrupts a running Start
func (s *Service) Stop() {
	s.stream.Stop()
}

// IsRunning reports whether Start is consuming events
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Tracker exposes the session tracker
func (s *Service) Tracker() *Tracker {
	return s.tracker
}

// Totals returns a snapshot of the in-memory stat table
func (s *Service) Totals() stats.Table {
	return s.agg.Snapshot()
}

func (s *Service) loop(ctx context.Context) error {
	for {
		ev, err := s.stream.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, focus.ErrStopped):
			log.Println("Tracker stopped")
			return nil
		case ctx.Err() != nil:
			log.Println("Tracker stopped by context")
			return nil
		default:
			s.storeError("connection", err)
			return err
		}

		if err := s.tracker.Handle(ctx, ev); err != nil {
			return err
		}
		if session, ok := s.tracker.Current(); ok {
			log.Printf("Focus: 0x%x %q (%s) -> %s",
				uint32(session.Window), session.Info.Name, session.Info.Class, session.Category)
		}
	}
}

// shutdown runs every step even when an earlier one fails
func (s *Service) shutdown(runErr error, stopFlushing context.CancelFunc, wg *sync.WaitGroup) error {
	errs := []error{runErr}

	s.stream.Stop()

	s.tracker.Close(s.now())

	stopFlushing()
	wg.Wait()
	if err := s.sink.Checkpoint(context.Background()); err != nil {
		s.storeError("flush", err)
		errs = append(errs, err)
	}

	if err := s.display.Close(); err != nil {
		errs = append(errs, errors.Wrap(err, "failed to close display"))
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	log.Printf("Tracker shut down after %d flushes, %v tracked", s.sink.Flushes(), s.tracker.Total())
	return stderrors.Join(errs...)
}

func (s *Service) storeError(kind string, err error) {
	errorLog := &models.ErrorLog{
		RunID:     s.runID,
		Kind:      kind,
		Timestamp: time.Now(),
		ErrorMsg:  err.Error(),
		CreatedAt: time.Now(),
	}

	if dbErr := s.store.CreateErrorLog(errorLog); dbErr != nil {
		log.Printf("Failed to store error in database: %v (original error: %v)", dbErr, err)
	} else {
		log.Printf("Error logged to database: %v", err)
	}
}
