package models

import (
	"time"

	"gorm.io/gorm"
)

// ActivitySample is foreground time attributed to one process instance.
// ProcessKey is the "<pid>-<startTimeNanos>" identity, so a reused pid never
// merges with an earlier process.
type ActivitySample struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Timestamp     time.Time      `gorm:"not null;index" json:"timestamp"` // Start of the attributed span
	ProcessKey    string         `gorm:"not null;index" json:"process_key"`
	PID           uint32         `gorm:"not null" json:"pid"`
	ProcessName   string         `gorm:"not null;index" json:"process_name"`
	ExePath       string         `gorm:"not null" json:"exe_path"`
	WindowTitle   string         `gorm:"not null" json:"window_title"`
	DurationMs    int64          `gorm:"not null;default:0" json:"duration_ms"`
	DisplayServer string         `gorm:"not null" json:"display_server"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

type AppSummary struct {
	ProcessName  string  `json:"process_name"`
	ExePath      string  `json:"exe_path"`
	TotalSeconds int64   `json:"total_seconds"`
	TotalMinutes float64 `json:"total_minutes"`
	TotalHours   float64 `json:"total_hours"`
	SampleCount  int     `json:"sample_count"`
	Percentage   float64 `json:"percentage,omitempty"`
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month"
}

type Report struct {
	Period       ReportPeriod `json:"period"`
	Apps         []AppSummary `json:"apps"`
	TotalSeconds int64        `json:"total_seconds"`
	TotalMinutes float64      `json:"total_minutes"`
	TotalHours   float64      `json:"total_hours"`
	GeneratedAt  time.Time    `json:"generated_at"`
}
