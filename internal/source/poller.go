package source

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/focusd/focusd/internal/event"
	"github.com/focusd/focusd/pkg/window"
)

// FocusPoller samples a detector at a fixed interval. Every sample is
// submitted; repeated samples of the same window are coalesced downstream.
type FocusPoller struct {
	detector window.Detector
	interval time.Duration
	logger   zerolog.Logger
	now      clock

	lastErr string
}

func NewFocusPoller(detector window.Detector, interval time.Duration, logger zerolog.Logger) *FocusPoller {
	return &FocusPoller{
		detector: detector,
		interval: interval,
		logger:   logger.With().Str("component", "focus-poller").Str("backend", detector.GetDisplayServer()).Logger(),
		now:      time.Now,
	}
}

func (p *FocusPoller) Name() string {
	return "focus-poller"
}

func (p *FocusPoller) Run(ctx context.Context, sink Sink) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info().Dur("interval", p.interval).Msg("Focus poller started")
	for {
		ok, err := p.poll(ctx, sink)
		if !ok {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *FocusPoller) poll(ctx context.Context, sink Sink) (bool, error) {
	info, err := p.detector.GetFocusedWindow()
	if err != nil {
		// Log each distinct failure once.
		if msg := err.Error(); msg != p.lastErr {
			p.lastErr = msg
			p.logger.Warn().Err(err).Msg("Failed to read focused window")
		}
		return true, nil
	}
	p.lastErr = ""

	if info == nil || info.AppName == "" {
		return true, nil
	}
	return submit(ctx, sink, event.NewFocusChanged(info.AppName, info.WindowTitle, info.Workspace, p.now()))
}
