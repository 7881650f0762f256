package database

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/focusd/focusd/internal/models"
)

// UpsertGoal creates or replaces the daily goal of an app.
func (r *Repository) UpsertGoal(ctx context.Context, goal *models.DailyGoal) error {
	if goal.AppIdentifier == "" {
		return invalid("goal without app identifier")
	}
	if goal.MaxMinutes <= 0 {
		return invalid("goal max minutes must be positive, got %d", goal.MaxMinutes)
	}

	return r.write(ctx, "upsert_goal", func(tx *gorm.DB) error {
		row := map[string]interface{}{
			"app_identifier": goal.AppIdentifier,
			"max_minutes":    goal.MaxMinutes,
			"notify_enabled": goal.NotifyEnabled,
			"created_at":     r.now().UTC(),
			"updated_at":     r.now().UTC(),
		}
		result := tx.Model(&models.DailyGoal{}).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "app_identifier"}},
			DoUpdates: clause.AssignmentColumns([]string{"max_minutes", "notify_enabled", "updated_at"}),
		}).Create(row)
		if result.Error != nil {
			return errors.Wrap(result.Error, "failed to upsert goal")
		}
		return nil
	})
}

func (r *Repository) GetGoal(ctx context.Context, app string) (*models.DailyGoal, error) {
	var goal models.DailyGoal
	result := r.db.WithContext(ctx).Where("app_identifier = ?", app).Take(&goal)
	if result.Error != nil {
		if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(result.Error, "failed to get goal")
	}
	return &goal, nil
}

func (r *Repository) ListGoals(ctx context.Context) ([]models.DailyGoal, error) {
	var goals []models.DailyGoal
	if err := r.db.WithContext(ctx).Order("app_identifier ASC").Find(&goals).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list goals")
	}
	return goals, nil
}

func (r *Repository) DeleteGoal(ctx context.Context, app string) error {
	var affected int64
	err := r.write(ctx, "delete_goal", func(tx *gorm.DB) error {
		result := tx.Where("app_identifier = ?", app).Delete(&models.DailyGoal{})
		if result.Error != nil {
			return errors.Wrap(result.Error, "failed to delete goal")
		}
		affected = result.RowsAffected
		return nil
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GoalProgress compares today's usage with every configured goal.
func (r *Repository) GoalProgress(ctx context.Context, now time.Time) ([]models.GoalProgress, error) {
	goals, err := r.ListGoals(ctx)
	if err != nil {
		return nil, err
	}
	if len(goals) == 0 {
		return nil, nil
	}

	totals, err := r.TodayAppTotals(ctx, now)
	if err != nil {
		return nil, err
	}
	used := make(map[string]int64, len(totals))
	for _, t := range totals {
		used[t.AppName] = t.TotalSeconds
	}

	progress := make([]models.GoalProgress, 0, len(goals))
	for _, g := range goals {
		seconds := used[g.AppIdentifier]
		limit := int64(g.MaxMinutes) * 60
		progress = append(progress, models.GoalProgress{
			Goal:        g,
			UsedSeconds: seconds,
			UsedPercent: float64(seconds) / float64(limit) * 100,
			Exceeded:    seconds > limit,
		})
	}
	return progress, nil
}

// SetAlias sets the display name of an app.
func (r *Repository) SetAlias(ctx context.Context, app, alias string) error {
	if app == "" || alias == "" {
		return invalid("alias requires app identifier and name")
	}
	return r.write(ctx, "set_alias", func(tx *gorm.DB) error {
		row := models.AppAlias{AppIdentifier: app, Alias: alias}
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "app_identifier"}},
			DoUpdates: clause.AssignmentColumns([]string{"alias"}),
		}).Create(&row)
		if result.Error != nil {
			return errors.Wrap(result.Error, "failed to set alias")
		}
		return nil
	})
}

func (r *Repository) ListAliases(ctx context.Context) ([]models.AppAlias, error) {
	var aliases []models.AppAlias
	if err := r.db.WithContext(ctx).Order("app_identifier ASC").Find(&aliases).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list aliases")
	}
	return aliases, nil
}

// AliasMap returns app identifier to display name.
func (r *Repository) AliasMap(ctx context.Context) (map[string]string, error) {
	aliases, err := r.ListAliases(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(aliases))
	for _, a := range aliases {
		m[a.AppIdentifier] = a.Alias
	}
	return m, nil
}

func (r *Repository) DeleteAlias(ctx context.Context, app string) error {
	var affected int64
	err := r.write(ctx, "delete_alias", func(tx *gorm.DB) error {
		result := tx.Where("app_identifier = ?", app).Delete(&models.AppAlias{})
		if result.Error != nil {
			return errors.Wrap(result.Error, "failed to delete alias")
		}
		affected = result.RowsAffected
		return nil
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
