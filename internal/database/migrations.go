package database

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/focusd/focusd/internal/models"
)

func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "001_usage_tables",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&models.WindowUsage{}); err != nil {
					return err
				}
				if err := tx.AutoMigrate(&models.AfkInterval{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&models.ErrorLog{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("window_usage", "afk_intervals", "error_logs")
			},
		},
		{
			ID: "002_goals_aliases",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&models.DailyGoal{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&models.AppAlias{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("daily_goals", "app_aliases")
			},
		},
		{
			// Reports filter by time range and group by app.
			ID: "003_usage_range_index",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_window_usage_start_app
					ON window_usage(start_time, app_identifier)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec(`DROP INDEX IF EXISTS idx_window_usage_start_app`).Error
			},
		},
		{
			ID: "004_categories",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&models.Category{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&models.AppCategory{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("app_categories", "categories")
			},
		},
	})

	return m.Migrate()
}
