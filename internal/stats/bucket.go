package stats

import (
	"fmt"
	"time"
)

const day = 24 * time.Hour

// Bucketer maps instants to fixed width buckets aligned on local midnight
type Bucketer struct {
	Width    time.Duration
	Location *time.Location
}

// NewBucketer validates the width, which must divide a day
func NewBucketer(width time.Duration, loc *time.Location) (Bucketer, error) {
	if width <= 0 {
		return Bucketer{}, fmt.Errorf("bucket width must be positive, got %v", width)
	}
	if day%width != 0 {
		return Bucketer{}, fmt.Errorf("bucket width %v must divide 24h", width)
	}
	if loc == nil {
		loc = time.Local
	}
	return Bucketer{Width: width, Location: loc}, nil
}

// Start returns the start of the bucket containing t
func (b Bucketer) Start(t time.Time) time.Time {
	midnight := b.midnight(t)
	offset := t.Sub(midnight)
	return midnight.Add(offset - offset%b.Width)
}

// End returns the exclusive end of the bucket containing t. The last
// bucket of a day is cut at the next midnight, which matters on DST days.
func (b Bucketer) End(t time.Time) time.Time {
	end := b.Start(t).Add(b.Width)
	next := b.nextMidnight(t)
	if end.After(next) {
		return next
	}
	return end
}

func (b Bucketer) midnight(t time.Time) time.Time {
	local := t.In(b.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, b.Location)
}

func (b Bucketer) nextMidnight(t time.Time) time.Time {
	local := t.In(b.Location)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, b.Location)
}
