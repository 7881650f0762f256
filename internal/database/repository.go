package database

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/focusd/focusd/internal/models"
)

// Repository is the storage gateway. All writes go through write and are
// retried on transient failures.
type Repository struct {
	db            *DB
	logger        zerolog.Logger
	attempts      int
	retryInterval time.Duration
	excludeAfk    bool
	now           func() time.Time
}

type Option func(*Repository)

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Repository) {
		r.logger = logger.With().Str("component", "storage").Logger()
	}
}

// WithWriteAttempts sets the number of attempts per write, including the first.
func WithWriteAttempts(n int) Option {
	return func(r *Repository) {
		if n > 0 {
			r.attempts = n
		}
	}
}

func WithRetryInterval(d time.Duration) Option {
	return func(r *Repository) {
		if d > 0 {
			r.retryInterval = d
		}
	}
}

// WithExcludeAfk drops AFK-flagged rows from aggregate reads.
func WithExcludeAfk(exclude bool) Option {
	return func(r *Repository) {
		r.excludeAfk = exclude
	}
}

// NewRepository creates a new repository instance
func NewRepository(db *DB, opts ...Option) *Repository {
	r := &Repository{
		db:            db,
		logger:        zerolog.Nop(),
		attempts:      defaultWriteAttempts,
		retryInterval: retryInitialInterval,
		excludeAfk:    true,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func validateUsage(rec *models.WindowUsage) error {
	if rec == nil {
		return invalid("nil usage record")
	}
	if rec.AppIdentifier == "" {
		return invalid("empty app identifier")
	}
	if rec.DurationSeconds < 0 {
		return invalid("negative duration %d", rec.DurationSeconds)
	}
	if rec.StartTime.IsZero() {
		return invalid("missing start time")
	}
	return nil
}

// InsertWindowUsage writes a new usage record and returns its id.
func (r *Repository) InsertWindowUsage(ctx context.Context, rec *models.WindowUsage) (uint, error) {
	if err := validateUsage(rec); err != nil {
		return 0, err
	}
	if rec.SessionKey == "" {
		rec.SessionKey = uuid.NewString()
	}
	rec.StartTime = rec.StartTime.UTC()

	err := r.write(ctx, "insert_usage", func(tx *gorm.DB) error {
		rec.ID = 0
		if err := tx.Create(rec).Error; err != nil {
			return errors.Wrap(err, "failed to insert usage record")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return rec.ID, nil
}

// UpsertWindowUsage records the duration-so-far of an open session. The row
// is addressed by rowID when known and by session key otherwise. A finalized
// row is never modified; its id is returned unchanged.
func (r *Repository) UpsertWindowUsage(ctx context.Context, rowID *uint, rec *models.WindowUsage) (uint, error) {
	if err := validateUsage(rec); err != nil {
		return 0, err
	}
	if rec.SessionKey == "" {
		return 0, invalid("upsert without session key")
	}
	rec.StartTime = rec.StartTime.UTC()
	rec.Finalized = false

	var id uint
	err := r.write(ctx, "upsert_usage", func(tx *gorm.DB) error {
		if rowID != nil {
			result := tx.Model(&models.WindowUsage{}).
				Where("id = ? AND finalized = ?", *rowID, false).
				Updates(map[string]interface{}{
					"duration_seconds": rec.DurationSeconds,
					"is_afk":           rec.IsAfk,
					"updated_at":       r.now().UTC(),
				})
			if result.Error != nil {
				return errors.Wrap(result.Error, "failed to update usage record")
			}
			if result.RowsAffected > 0 {
				id = *rowID
				return nil
			}
		}

		var err error
		id, err = upsertByKey(tx, rec, []string{"duration_seconds", "is_afk", "updated_at"})
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// FinalizeWindowUsage is the terminal write for a session: it stores the
// final duration and marks the row immutable.
func (r *Repository) FinalizeWindowUsage(ctx context.Context, rec *models.WindowUsage) (uint, error) {
	if err := validateUsage(rec); err != nil {
		return 0, err
	}
	if rec.SessionKey == "" {
		rec.SessionKey = uuid.NewString()
	}
	rec.StartTime = rec.StartTime.UTC()
	rec.Finalized = true

	var id uint
	err := r.write(ctx, "finalize_usage", func(tx *gorm.DB) error {
		var err error
		id, err = upsertByKey(tx, rec, []string{"duration_seconds", "is_afk", "finalized", "updated_at"})
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// DiscardWindowUsage ends a session that had no active time. It leaves a
// finalized zero-length row under the session key, so a checkpoint still in
// flight for that session cannot recreate it as an open row. Reads skip
// zero-length rows.
func (r *Repository) DiscardWindowUsage(ctx context.Context, rec *models.WindowUsage) error {
	if err := validateUsage(rec); err != nil {
		return err
	}
	if rec.SessionKey == "" {
		return invalid("discard without session key")
	}
	row := *rec
	row.StartTime = row.StartTime.UTC()
	row.DurationSeconds = 0
	row.Finalized = true

	return r.write(ctx, "discard_usage", func(tx *gorm.DB) error {
		_, err := upsertByKey(tx, &row, []string{"duration_seconds", "finalized", "updated_at"})
		return err
	})
}

// upsertByKey inserts rec or, when its session key exists and the row is not
// finalized, updates the given columns. It returns the row id either way.
func upsertByKey(tx *gorm.DB, rec *models.WindowUsage, columns []string) (uint, error) {
	row := *rec
	row.ID = 0
	now := time.Now().UTC()
	row.CreatedAt = now
	row.UpdatedAt = now

	result := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_key"}},
		DoUpdates: clause.AssignmentColumns(columns),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: clause.Column{Table: "window_usage", Name: "finalized"}, Value: false},
		}},
	}).Create(&row)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to upsert usage record")
	}

	var existing models.WindowUsage
	if err := tx.Select("id").Where("session_key = ?", rec.SessionKey).Take(&existing).Error; err != nil {
		return 0, errors.Wrap(err, "failed to resolve usage record id")
	}
	return existing.ID, nil
}

// GetWindowUsage retrieves a usage record by session key
func (r *Repository) GetWindowUsage(ctx context.Context, sessionKey string) (*models.WindowUsage, error) {
	var rec models.WindowUsage
	result := r.db.WithContext(ctx).Where("session_key = ?", sessionKey).Take(&rec)
	if result.Error != nil {
		if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(result.Error, "failed to get usage record")
	}
	return &rec, nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(ctx context.Context, errorLog *models.ErrorLog) error {
	if errorLog.Timestamp.IsZero() {
		errorLog.Timestamp = r.now()
	}
	errorLog.Timestamp = errorLog.Timestamp.UTC()
	return r.write(ctx, "insert_error_log", func(tx *gorm.DB) error {
		if err := tx.Create(errorLog).Error; err != nil {
			return errors.Wrap(err, "failed to insert error log")
		}
		return nil
	})
}

// ListErrorLogs returns the most recent error logs, newest first.
func (r *Repository) ListErrorLogs(ctx context.Context, limit int) ([]models.ErrorLog, error) {
	var logs []models.ErrorLog
	result := r.db.WithContext(ctx).Order("timestamp DESC").Limit(limit).Find(&logs)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to list error logs")
	}
	return logs, nil
}

// Clear removes all recorded usage, AFK intervals and error logs. Goals and
// aliases are kept.
func (r *Repository) Clear(ctx context.Context) error {
	return r.write(ctx, "clear", func(tx *gorm.DB) error {
		return tx.Transaction(func(tx *gorm.DB) error {
			for _, table := range []string{"window_usage", "afk_intervals", "error_logs"} {
				if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
					return errors.Wrapf(err, "failed to clear %s", table)
				}
			}
			return nil
		})
	})
}

// DeleteBefore removes finalized usage and closed AFK intervals that started
// before the cutoff.
func (r *Repository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	var deleted int64
	err := r.write(ctx, "delete_before", func(tx *gorm.DB) error {
		deleted = 0
		return tx.Transaction(func(tx *gorm.DB) error {
			result := tx.Where("start_time < ? AND finalized = ?", before.UTC(), true).Delete(&models.WindowUsage{})
			if result.Error != nil {
				return errors.Wrap(result.Error, "failed to delete old usage")
			}
			deleted += result.RowsAffected

			result = tx.Where("start_time < ? AND end_time IS NOT NULL", before.UTC()).Delete(&models.AfkInterval{})
			if result.Error != nil {
				return errors.Wrap(result.Error, "failed to delete old afk intervals")
			}
			deleted += result.RowsAffected
			return nil
		})
	})
	return deleted, err
}

// RecoverOpen seals state left behind by an unclean exit. Checkpointed usage
// rows keep their last recorded duration and become final; AFK intervals
// that were never closed are closed at their start.
func (r *Repository) RecoverOpen(ctx context.Context) (sealed int64, closed int64, err error) {
	err = r.write(ctx, "recover_open", func(tx *gorm.DB) error {
		return tx.Transaction(func(tx *gorm.DB) error {
			result := tx.Model(&models.WindowUsage{}).
				Where("finalized = ?", false).
				Updates(map[string]interface{}{"finalized": true, "updated_at": r.now().UTC()})
			if result.Error != nil {
				return errors.Wrap(result.Error, "failed to seal open usage records")
			}
			sealed = result.RowsAffected

			result = tx.Exec("UPDATE afk_intervals SET end_time = start_time, duration_seconds = 0 WHERE end_time IS NULL")
			if result.Error != nil {
				return errors.Wrap(result.Error, "failed to close stale afk intervals")
			}
			closed = result.RowsAffected
			return nil
		})
	})
	return sealed, closed, err
}
