package source

import (
	"github.com/rs/zerolog"

	"github.com/focusd/focusd/internal/config"
	"github.com/focusd/focusd/pkg/detector"
	"github.com/focusd/focusd/pkg/integrations/hyprland"
	"github.com/focusd/focusd/pkg/window"
)

// Build returns the producers for the configured focus backend, plus an AFK
// sampler when idle time can be read. The returned func releases detector
// resources.
func Build(cfg *config.Config, logger zerolog.Logger) ([]Source, func(), error) {
	log := logger.With().Str("component", "sources").Logger()

	kind, err := detector.Resolve(cfg.Source.Focus)
	if err != nil {
		return nil, nil, err
	}

	var (
		sources   []Source
		detectors []window.Detector
	)
	closeAll := func() {
		for _, d := range detectors {
			_ = d.Close()
		}
	}

	switch kind {
	case detector.KindHyprland:
		client, err := hyprland.NewClient()
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, NewHyprlandSource(client, logger))
	default:
		d, err := detector.New(kind)
		if err != nil {
			return nil, nil, err
		}
		detectors = append(detectors, d)
		sources = append(sources, NewFocusPoller(d, cfg.Tracker.PollInterval, logger))
	}

	idle, err := detector.NewIdle()
	if err != nil {
		log.Warn().Err(err).Msg("AFK detection unavailable")
	} else {
		detectors = append(detectors, idle)
		sources = append(sources, NewAfkSampler(idle, cfg.Tracker.IdleThreshold, cfg.Tracker.PollInterval, logger))
	}

	log.Info().Str("backend", kind).Int("sources", len(sources)).Msg("Event sources ready")
	return sources, closeAll, nil
}
