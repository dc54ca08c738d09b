package models

import (
	"time"

	"gorm.io/gorm"
)

// Error kinds recorded by the tracker.
const (
	ErrorKindWindow    = "window"
	ErrorKindFlush     = "flush"
	ErrorKindRetention = "retention"
)

// ErrorLog is a tracker failure. Consecutive repeats of one message are
// stored once.
type ErrorLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
	Kind      string         `gorm:"not null;index" json:"kind"`
	ErrorMsg  string         `gorm:"not null" json:"error_msg"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
