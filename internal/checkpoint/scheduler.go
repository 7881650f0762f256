// Package checkpoint periodically persists the duration-so-far of the open
// session so a crash loses at most one interval of usage.
package checkpoint

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/focusd/focusd/internal/metrics"
	"github.com/focusd/focusd/internal/models"
	"github.com/focusd/focusd/internal/tracker"
)

const DefaultInterval = 10 * time.Second

type Store interface {
	UpsertWindowUsage(ctx context.Context, rowID *uint, rec *models.WindowUsage) (uint, error)
}

// Source publishes session snapshots and accepts the row id they were
// written to.
type Source interface {
	Snapshot() *tracker.Snapshot
	BindRow(key string, id uint)
}

// Scheduler writes a checkpoint of the published snapshot on every tick.
type Scheduler struct {
	store    Store
	source   Source
	interval time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	lastKey string
	lastID  uint
}

type Option func(*Scheduler)

// WithClock replaces time.Now for duration computation.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

func New(store Store, source Source, interval time.Duration, logger zerolog.Logger, opts ...Option) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Scheduler{
		store:    store,
		source:   source,
		interval: interval,
		logger:   logger.With().Str("component", "checkpoint").Logger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ticks until ctx is cancelled. No tick is issued after cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Msg("Checkpoint scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Checkpoint scheduler stopped")
			return nil
		case <-ticker.C:
			if ctx.Err() != nil {
				return nil
			}
			_ = s.Tick(ctx)
		}
	}
}

// Tick upserts the current session once. Sessions with no whole second of
// active time are skipped.
func (s *Scheduler) Tick(ctx context.Context) error {
	snap := s.source.Snapshot()
	if snap == nil {
		metrics.Checkpoints.WithLabelValues("idle").Inc()
		return nil
	}

	seconds := int64(snap.DurationAt(s.now()) / time.Second)
	if seconds <= 0 {
		metrics.Checkpoints.WithLabelValues("skipped").Inc()
		return nil
	}

	rowID := snap.RowID
	if rowID == nil && s.lastKey == snap.Key {
		id := s.lastID
		rowID = &id
	}

	rec := &models.WindowUsage{
		SessionKey:      snap.Key,
		AppIdentifier:   snap.Window.App,
		WindowTitle:     snap.Window.Title,
		Workspace:       snap.Window.Workspace,
		StartTime:       snap.StartTime,
		DurationSeconds: seconds,
	}
	id, err := s.store.UpsertWindowUsage(ctx, rowID, rec)
	if err != nil {
		metrics.Checkpoints.WithLabelValues("error").Inc()
		s.logger.Warn().Err(err).Str("session", snap.Key).Msg("Checkpoint failed")
		return err
	}

	metrics.Checkpoints.WithLabelValues("ok").Inc()
	s.lastKey, s.lastID = snap.Key, id
	if snap.RowID == nil || *snap.RowID != id {
		s.source.BindRow(snap.Key, id)
	}

	s.logger.Debug().
		Str("session", snap.Key).
		Str("app", snap.Window.App).
		Int64("duration_seconds", seconds).
		Msg("Checkpoint written")
	return nil
}
