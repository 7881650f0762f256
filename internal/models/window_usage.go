package models

import (
	"time"
)

// WindowUsage is one contiguous foreground interval of a single window.
type WindowUsage struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	SessionKey      string    `gorm:"not null;uniqueIndex" json:"session_key"`
	AppIdentifier   string    `gorm:"not null;index" json:"app_identifier"`
	WindowTitle     string    `gorm:"not null" json:"window_title"`
	Workspace       string    `gorm:"not null;default:''" json:"workspace"`
	StartTime       time.Time `gorm:"not null;index" json:"start_time"`
	DurationSeconds int64     `gorm:"not null;default:0" json:"duration_seconds"`
	IsAfk           bool      `gorm:"not null;default:false" json:"is_afk"`
	Finalized       bool      `gorm:"not null;default:false" json:"finalized"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (WindowUsage) TableName() string {
	return "window_usage"
}

// EndTime is StartTime plus the recorded active duration.
func (w *WindowUsage) EndTime() time.Time {
	return w.StartTime.Add(time.Duration(w.DurationSeconds) * time.Second)
}

type AppSummary struct {
	AppName      string  `json:"app_name"`
	DisplayName  string  `json:"display_name,omitempty"`
	TotalSeconds int64   `json:"total_seconds"`
	TotalMinutes float64 `json:"total_minutes"`
	TotalHours   float64 `json:"total_hours"`
	EventCount   int     `json:"event_count"`
	Percentage   float64 `json:"percentage,omitempty"`
}

// HourlyUsage is the active time that started within one hour of a day.
type HourlyUsage struct {
	Hour         int   `json:"hour"`
	TotalSeconds int64 `json:"total_seconds"`
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month", "custom"
}

type Report struct {
	Period        ReportPeriod `json:"period"`
	Apps          []AppSummary `json:"apps"`
	TotalSeconds  int64        `json:"total_seconds"`
	TotalMinutes  float64      `json:"total_minutes"`
	TotalHours    float64      `json:"total_hours"`
	AfkSeconds    int64        `json:"afk_seconds"`
	AfkIntervals  int          `json:"afk_intervals"`
	GoalsExceeded []string     `json:"goals_exceeded,omitempty"`
	GeneratedAt   time.Time    `json:"generated_at"`
}
