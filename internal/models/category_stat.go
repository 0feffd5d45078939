package models

import (
	"time"
)

// CategoryStat holds the persisted active time of one category in one bucket
type CategoryStat struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Category    string    `gorm:"not null;uniqueIndex:idx_category_bucket" json:"category"`
	BucketStart time.Time `gorm:"not null;uniqueIndex:idx_category_bucket;index" json:"bucket_start"` // UTC
	BucketWidth int64     `gorm:"not null" json:"bucket_width"`                                       // seconds
	Duration    int64     `gorm:"not null;default:0" json:"duration"`                                 // nanoseconds
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Seconds returns the duration in seconds
func (s CategoryStat) Seconds() float64 {
	return time.Duration(s.Duration).Seconds()
}

// Run records one daemon process lifetime
type Run struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	StartedAt     time.Time  `gorm:"not null;index" json:"started_at"`
	StoppedAt     *time.Time `json:"stopped_at,omitempty"`
	DisplayServer string     `gorm:"not null" json:"display_server"`
	Flushes       int        `gorm:"not null;default:0" json:"flushes"`
	Tracked       int64      `gorm:"not null;default:0" json:"tracked"` // nanoseconds persisted by this run
}

type CategorySummary struct {
	Category     string  `json:"category"`
	TotalSeconds float64 `json:"total_seconds"`
	TotalMinutes float64 `json:"total_minutes"`
	TotalHours   float64 `json:"total_hours"`
	Buckets      int     `json:"buckets"`
	Percentage   float64 `json:"percentage,omitempty"`
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month"
}

type Report struct {
	Period       ReportPeriod      `json:"period"`
	Categories   []CategorySummary `json:"categories"`
	Buckets      []CategoryStat    `json:"buckets,omitempty"`
	TotalSeconds float64           `json:"total_seconds"`
	TotalMinutes float64           `json:"total_minutes"`
	TotalHours   float64           `json:"total_hours"`
	GeneratedAt  time.Time         `json:"generated_at"`
}
