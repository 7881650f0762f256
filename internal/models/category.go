package models

import "time"

// Category groups apps for reporting. An app may belong to several
// categories, so category totals can add up to more than the report total.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;uniqueIndex" json:"name"`
	Icon      string    `gorm:"not null;default:''" json:"icon"`
	Color     string    `gorm:"not null;default:''" json:"color"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// AppCategory assigns an app identifier to a category.
type AppCategory struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	AppIdentifier string    `gorm:"not null;uniqueIndex:idx_app_category" json:"app_identifier"`
	CategoryID    uint      `gorm:"not null;uniqueIndex:idx_app_category;index" json:"category_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// CategoryUsage is the active time of one category over a report period.
// Every assigned app is listed, including apps with no recorded time.
type CategoryUsage struct {
	Category     Category     `json:"category"`
	TotalSeconds int64        `json:"total_seconds"`
	Apps         []AppSummary `json:"apps"`
}

type CategoryReport struct {
	Period               ReportPeriod    `json:"period"`
	Categories           []CategoryUsage `json:"categories"`
	UncategorizedSeconds int64           `json:"uncategorized_seconds"`
	TotalSeconds         int64           `json:"total_seconds"`
	GeneratedAt          time.Time       `json:"generated_at"`
}
