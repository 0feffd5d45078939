package models

import (
	"time"

	"gorm.io/gorm"
)

// ErrorLog keeps recoverable pipeline errors (clock anomalies, failed
// flushes) so they can be inspected after the fact
type ErrorLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	RunID     string         `gorm:"size:36;index" json:"run_id"`
	Kind      string         `gorm:"not null;index" json:"kind"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
	ErrorMsg  string         `gorm:"not null" json:"error_msg"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
