package models

import "time"

// AfkInterval is a period during which the user was classified as away.
// EndTime stays nil while the interval is open.
type AfkInterval struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	StartTime       time.Time  `gorm:"not null;index" json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	DurationSeconds int64      `gorm:"not null;default:0" json:"duration_seconds"`
}

func (AfkInterval) TableName() string {
	return "afk_intervals"
}

func (a *AfkInterval) IsOpen() bool {
	return a.EndTime == nil
}
