package source

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/focusd/focusd/internal/event"
	"github.com/focusd/focusd/pkg/window"
)

// IdleReader reports time since the last user input.
type IdleReader interface {
	GetIdleInfo() (*window.IdleInfo, error)
}

// AfkSampler turns idle-time samples into AFK transitions. It only emits an
// event when the classification changes, so downstream never sees two
// starts or two ends in a row.
type AfkSampler struct {
	idle      IdleReader
	threshold time.Duration
	interval  time.Duration
	logger    zerolog.Logger
	now       clock

	afk bool
}

func NewAfkSampler(idle IdleReader, threshold, interval time.Duration, logger zerolog.Logger) *AfkSampler {
	return &AfkSampler{
		idle:      idle,
		threshold: threshold,
		interval:  interval,
		logger:    logger.With().Str("component", "afk-sampler").Logger(),
		now:       time.Now,
	}
}

func (s *AfkSampler) Name() string {
	return "afk-sampler"
}

func (s *AfkSampler) Run(ctx context.Context, sink Sink) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("threshold", s.threshold).Msg("AFK sampler started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		ok, err := s.sample(ctx, sink)
		if !ok {
			return err
		}
	}
}

func (s *AfkSampler) sample(ctx context.Context, sink Sink) (bool, error) {
	info, err := s.idle.GetIdleInfo()
	if errors.Is(err, window.ErrUnsupported) {
		s.logger.Warn().Err(err).Msg("Idle time unavailable, AFK detection disabled")
		return false, nil
	}
	if err != nil {
		s.logger.Debug().Err(err).Msg("Failed to read idle time")
		return true, nil
	}

	idle := info.IdleFor(int64(s.threshold / time.Second))
	if idle == s.afk {
		return true, nil
	}

	var ev event.Event = event.AfkStarted{At: s.now()}
	if !idle {
		ev = event.AfkEnded{At: s.now()}
	}

	ok, err := submit(ctx, sink, ev)
	if ok {
		s.afk = idle
		s.logger.Debug().Bool("afk", idle).Int64("idle_seconds", info.IdleTime).Msg("AFK state changed")
	}
	return ok, err
}
