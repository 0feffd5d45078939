// Package stats accumulates per-category active time by time bucket.
package stats

import (
	"sort"
	"sync"
	"time"
)

// Key identifies one (category, bucket) cell
type Key struct {
	Category string
	Bucket   time.Time
}

// Table maps cells to accumulated duration
type Table map[Key]time.Duration

// Total sums every cell
func (t Table) Total() time.Duration {
	var total time.Duration
	for _, d := range t {
		total += d
	}
	return total
}

// Keys returns the cells ordered by bucket, then category
func (t Table) Keys() []Key {
	keys := make([]Key, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].Bucket.Equal(keys[j].Bucket) {
			return keys[i].Bucket.Before(keys[j].Bucket)
		}
		return keys[i].Category < keys[j].Category
	})
	return keys
}

// Delta returns the growth of t over base. Cells that did not grow are omitted.
func (t Table) Delta(base Table) Table {
	out := make(Table)
	for k, d := range t {
		if diff := d - base[k]; diff > 0 {
			out[k] = diff
		}
	}
	return out
}

// Aggregator is the owned, lock protected stat table shared between
// the event loop (writer) and the persistence timer (reader).
type Aggregator struct {
	mu       sync.Mutex
	bucketer Bucketer
	table    Table
}

// NewAggregator creates an empty aggregator
func NewAggregator(b Bucketer) *Aggregator {
	return &Aggregator{
		bucketer: b,
		table:    make(Table),
	}
}

// Bucketer returns the bucketing used by the aggregator
func (a *Aggregator) Bucketer() Bucketer {
	return a.bucketer
}

// Attribute adds [start, end) to category, splitting it across every
// bucket it overlaps. Empty or inverted intervals add nothing.
// It returns the duration added.
func (a *Aggregator) Attribute(category string, start, end time.Time) time.Duration {
	if !end.After(start) {
		return 0
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	var added time.Duration
	for cur := start; cur.Before(end); {
		next := a.bucketer.End(cur)
		if next.After(end) {
			next = end
		}
		span := next.Sub(cur)
		a.table[Key{Category: category, Bucket: a.bucketer.Start(cur)}] += span
		added += span
		cur = next
	}
	return added
}

// Snapshot returns a copy of the current table
func (a *Aggregator) Snapshot() Table {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(Table, len(a.table))
	for k, d := range a.table {
		out[k] = d
	}
	return out
}

// Total returns the sum of every cell
func (a *Aggregator) Total() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.table.Total()
}

// Evict drops cells whose bucket starts before cutoff and whose value
// still equals the one in flushed, i.e. cells that are fully persisted.
// It returns the dropped keys.
func (a *Aggregator) Evict(flushed Table, cutoff time.Time) []Key {
	a.mu.Lock()
	defer a.mu.Unlock()

	var evicted []Key
	for k, d := range a.table {
		if !k.Bucket.Before(cutoff) {
			continue
		}
		if f, ok := flushed[k]; ok && f == d {
			delete(a.table, k)
			evicted = append(evicted, k)
		}
	}
	return evicted
}
