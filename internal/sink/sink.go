// Package sink checkpoints the in-memory stat table to durable storage.
package sink

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/actionsum/focusstat/internal/models"
	"github.com/actionsum/focusstat/internal/stats"
)

// ErrFlush marks a failed write to the store
var ErrFlush = errors.New("flush failed")

// Store is the durable side of the sink. AddDurations must add each
// duration to the stored total of its (category, bucket).
type Store interface {
	AddDurations(ctx context.Context, stats []models.CategoryStat) error
}

// FlushRecorder is notified after every successful flush
type FlushRecorder interface {
	RecordFlush(ctx context.Context, runID string, tracked time.Duration) error
}

// Sink writes the growth of the stat table since its last successful
// flush. Repeated flushes of the same snapshot write nothing, and
// totals from earlier runs are only ever added to.
type Sink struct {
	store    Store
	agg      *stats.Aggregator
	timeout  time.Duration
	now      func() time.Time
	recorder FlushRecorder
	runID    string

	// OnError, if set, receives every failed periodic flush
	OnError func(err error)

	mu      sync.Mutex
	flushed stats.Table
	flushes int
}

// New creates a sink for agg. timeout bounds every store write.
func New(store Store, agg *stats.Aggregator, timeout time.Duration) *Sink {
	return &Sink{
		store:   store,
		agg:     agg,
		timeout: timeout,
		now:     time.Now,
		flushed: make(stats.Table),
	}
}

// WithRun attaches the flush bookkeeping of a daemon run
func (s *Sink) WithRun(recorder FlushRecorder, runID string) *Sink {
	s.recorder = recorder
	s.runID = runID
	return s
}

// Flush persists the growth of snapshot over what this sink already
// wrote. On failure nothing is marked as written, so the next flush
// retries the whole delta.
func (s *Sink) Flush(ctx context.Context, snapshot stats.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delta := snapshot.Delta(s.flushed)
	if len(delta) == 0 {
		return nil
	}

	width := int64(s.agg.Bucketer().Width / time.Second)
	rows := make([]models.CategoryStat, 0, len(delta))
	for _, k := range delta.Keys() {
		rows = append(rows, models.CategoryStat{
			Category:    k.Category,
			BucketStart: k.Bucket,
			BucketWidth: width,
			Duration:    int64(delta[k]),
		})
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.AddDurations(ctx, rows); err != nil {
		return errors.Wrapf(ErrFlush, "%d cells: %v", len(rows), err)
	}

	for k, d := range snapshot {
		if d > s.flushed[k] {
			s.flushed[k] = d
		}
	}
	s.flushes++

	if s.recorder != nil {
		if err := s.recorder.RecordFlush(ctx, s.runID, delta.Total()); err != nil {
			log.Printf("Failed to record flush: %v", err)
		}
	}

	// buckets before the current one are complete once written
	cutoff := s.agg.Bucketer().Start(s.now())
	for _, k := range s.agg.Evict(s.flushed, cutoff) {
		delete(s.flushed, k)
	}

	return nil
}

// Checkpoint flushes a fresh snapshot of the aggregator
func (s *Sink) Checkpoint(ctx context.Context) error {
	return s.Flush(ctx, s.agg.Snapshot())
}

// Flushes returns the number of successful non-empty flushes
func (s *Sink) Flushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushes
}

// Run checkpoints every interval until ctx is done. Failures are
// logged and retried on the next tick.
func (s *Sink) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Checkpoint(ctx); err != nil {
				log.Printf("Persisting statistics failed, retrying in %v: %v", interval, err)
				if s.OnError != nil {
					s.OnError(err)
				}
			}
		}
	}
}
