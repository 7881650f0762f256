package database

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/focusd/focusd/internal/models"
)

// InsertAfkInterval opens an AFK interval starting at start.
func (r *Repository) InsertAfkInterval(ctx context.Context, start time.Time) (uint, error) {
	if start.IsZero() {
		return 0, invalid("afk interval without start time")
	}

	interval := models.AfkInterval{StartTime: start.UTC()}
	err := r.write(ctx, "insert_afk", func(tx *gorm.DB) error {
		interval.ID = 0
		if err := tx.Create(&interval).Error; err != nil {
			return errors.Wrap(err, "failed to insert afk interval")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return interval.ID, nil
}

// CloseAfkInterval sets the end of an open interval. Closing an already
// closed interval is a no-op.
func (r *Repository) CloseAfkInterval(ctx context.Context, id uint, end time.Time) error {
	return r.write(ctx, "close_afk", func(tx *gorm.DB) error {
		var interval models.AfkInterval
		if err := tx.Take(&interval, id).Error; err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return errors.Wrap(err, "failed to load afk interval")
		}
		if !interval.IsOpen() {
			return nil
		}
		if end.Before(interval.StartTime) {
			return invalid("afk interval %d ends before it starts", id)
		}

		result := tx.Model(&models.AfkInterval{}).
			Where("id = ? AND end_time IS NULL", id).
			Updates(map[string]interface{}{
				"end_time":         end.UTC(),
				"duration_seconds": int64(end.Sub(interval.StartTime) / time.Second),
			})
		if result.Error != nil {
			return errors.Wrap(result.Error, "failed to close afk interval")
		}
		return nil
	})
}

// OpenAfkInterval returns the most recent interval without an end, if any.
func (r *Repository) OpenAfkInterval(ctx context.Context) (*models.AfkInterval, error) {
	var interval models.AfkInterval
	result := r.db.WithContext(ctx).Where("end_time IS NULL").Order("start_time DESC").Take(&interval)
	if result.Error != nil {
		if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get open afk interval")
	}
	return &interval, nil
}

// ListAfkIntervals returns intervals overlapping [start, end), oldest first.
func (r *Repository) ListAfkIntervals(ctx context.Context, start, end time.Time) ([]models.AfkInterval, error) {
	var intervals []models.AfkInterval
	result := r.db.WithContext(ctx).
		Where("start_time < ? AND (end_time IS NULL OR end_time > ?)", end.UTC(), start.UTC()).
		Order("start_time ASC").
		Find(&intervals)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to list afk intervals")
	}
	return intervals, nil
}

// AfkTotal sums closed AFK time that started within [start, end).
func (r *Repository) AfkTotal(ctx context.Context, start, end time.Time) (int64, error) {
	var total int64
	result := r.db.WithContext(ctx).Model(&models.AfkInterval{}).
		Select("COALESCE(SUM(duration_seconds), 0)").
		Where("start_time >= ? AND start_time < ? AND end_time IS NOT NULL", start.UTC(), end.UTC()).
		Scan(&total)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to sum afk time")
	}
	return total, nil
}
