package database

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/gorm"

	"github.com/focusd/focusd/internal/metrics"
)

const (
	defaultWriteAttempts   = 3
	retryInitialInterval   = 50 * time.Millisecond
	retryMaxInterval       = time.Second
	retryRandomizationRate = 0.2
)

func (r *Repository) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.retryInterval
	b.MaxInterval = retryMaxInterval
	b.RandomizationFactor = retryRandomizationRate
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.attempts-1)), ctx)
}

// write runs fn against the database, retrying transient failures. Once the
// attempts are exhausted the last error is returned as a
// PersistenceFatalError; other errors are returned on first occurrence.
func (r *Repository) write(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := fn(r.db.WithContext(ctx))
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		if attempt < r.attempts {
			metrics.PersistenceRetries.WithLabelValues(op).Inc()
			r.logger.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("Transient write failure, retrying")
		}
		return err
	}, r.newBackOff(ctx))

	if err != nil && IsTransient(err) {
		metrics.PersistenceFailures.WithLabelValues(op).Inc()
		return &PersistenceFatalError{Op: op, Attempts: attempt, Err: err}
	}
	return err
}
