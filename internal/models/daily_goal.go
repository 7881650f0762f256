package models

import "time"

// DailyGoal is a per-app daily time budget. It is stored and served as-is.
type DailyGoal struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	AppIdentifier string    `gorm:"not null;uniqueIndex" json:"app_identifier"`
	MaxMinutes    int       `gorm:"not null" json:"max_minutes"`
	NotifyEnabled bool      `gorm:"not null;default:true" json:"notify_enabled"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type GoalProgress struct {
	Goal        DailyGoal `json:"goal"`
	UsedSeconds int64     `json:"used_seconds"`
	UsedPercent float64   `json:"used_percent"`
	Exceeded    bool      `json:"exceeded"`
}

// AppAlias maps an app identifier to a display name.
type AppAlias struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	AppIdentifier string    `gorm:"not null;uniqueIndex" json:"app_identifier"`
	Alias         string    `gorm:"not null" json:"alias"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}
