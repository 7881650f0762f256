package database

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/focusd/focusd/internal/models"
)

func (r *Repository) usageScope(ctx context.Context, start, end time.Time) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.WindowUsage{}).
		Where("start_time >= ? AND start_time < ?", start.UTC(), end.UTC()).
		Where("duration_seconds > 0")
	if r.excludeAfk {
		q = q.Where("is_afk = ?", false)
	}
	return q
}

// ListWindowUsage returns records that started within [start, end), oldest first.
func (r *Repository) ListWindowUsage(ctx context.Context, start, end time.Time) ([]models.WindowUsage, error) {
	var records []models.WindowUsage
	result := r.db.WithContext(ctx).
		Where("start_time >= ? AND start_time < ?", start.UTC(), end.UTC()).
		Where("duration_seconds > 0").
		Order("start_time ASC").
		Find(&records)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query usage records")
	}
	return records, nil
}

// AppTotals returns aggregated app usage for [start, end), largest first.
func (r *Repository) AppTotals(ctx context.Context, start, end time.Time) ([]models.AppSummary, error) {
	var summaries []models.AppSummary

	result := r.usageScope(ctx, start, end).
		Select("app_identifier as app_name, SUM(duration_seconds) as total_seconds, COUNT(*) as event_count").
		Group("app_identifier").
		Order("total_seconds DESC").
		Scan(&summaries)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query app summary")
	}

	return summaries, nil
}

// StartOfDay is local midnight of t in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// TodayAppTotals returns app totals since midnight of now's day.
func (r *Repository) TodayAppTotals(ctx context.Context, now time.Time) ([]models.AppSummary, error) {
	return r.AppTotals(ctx, StartOfDay(now), now.Add(time.Second))
}

// HourlyTotals buckets the given day's usage by the local hour it started in.
func (r *Repository) HourlyTotals(ctx context.Context, day time.Time) ([]models.HourlyUsage, error) {
	start := StartOfDay(day)
	end := start.AddDate(0, 0, 1)

	var records []models.WindowUsage
	result := r.usageScope(ctx, start, end).
		Select("start_time, duration_seconds").
		Find(&records)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query hourly usage")
	}

	hours := make([]models.HourlyUsage, 24)
	for h := range hours {
		hours[h].Hour = h
	}
	for _, rec := range records {
		h := rec.StartTime.In(day.Location()).Hour()
		hours[h].TotalSeconds += rec.DurationSeconds
	}
	return hours, nil
}

// Latest retrieves the most recent usage record
func (r *Repository) Latest(ctx context.Context) (*models.WindowUsage, error) {
	var rec models.WindowUsage
	result := r.db.WithContext(ctx).
		Where("duration_seconds > 0").
		Order("start_time DESC").Order("id DESC").
		Take(&rec)
	if result.Error != nil {
		if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest usage record")
	}
	return &rec, nil
}
