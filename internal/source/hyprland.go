package source

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/focusd/focusd/internal/event"
	"github.com/focusd/focusd/internal/metrics"
	"github.com/focusd/focusd/pkg/integrations/hyprland"
)

// HyprlandSource converts the compositor's event stream into focus events.
// The stream is re-established with backoff if the compositor restarts.
type HyprlandSource struct {
	client *hyprland.Client
	logger zerolog.Logger
	now    clock

	workspace  string
	activeAddr string
	active     *event.Window
}

func NewHyprlandSource(client *hyprland.Client, logger zerolog.Logger) *HyprlandSource {
	return &HyprlandSource{
		client: client,
		logger: logger.With().Str("component", "hyprland").Logger(),
		now:    time.Now,
	}
}

func (s *HyprlandSource) Name() string {
	return "hyprland"
}

func (s *HyprlandSource) Run(ctx context.Context, sink Sink) error {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0

	var sinkErr error
	op := func() error {
		if err := s.seed(ctx, sink); err != nil {
			if errors.Is(err, errStop) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		err := s.client.Subscribe(ctx, func(m hyprland.Message, err error) {
			if sinkErr != nil {
				return
			}
			if serr := s.handle(ctx, sink, m, err); serr != nil {
				sinkErr = serr
			}
		})
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if sinkErr != nil {
			return backoff.Permanent(sinkErr)
		}
		b.Reset()
		return err
	}

	notify := func(err error, wait time.Duration) {
		s.logger.Warn().Err(err).Dur("retry_in", wait).Msg("Hyprland event stream lost")
	}

	err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
	if ctx.Err() != nil || errors.Is(err, errStop) {
		return nil
	}
	return err
}

var errStop = errors.New("sink stopped")

// seed submits the window that already has focus when the stream connects.
func (s *HyprlandSource) seed(ctx context.Context, sink Sink) error {
	qctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if ws, err := s.client.ActiveWorkspace(qctx); err == nil {
		s.workspace = ws.Name
	}

	info, err := s.client.ActiveWindow(qctx)
	if err != nil {
		return err
	}
	if info == nil {
		return nil
	}
	s.activeAddr = strings.TrimPrefix(info.Address, "0x")
	return s.focus(ctx, sink, info.Class, info.Title)
}

// handle applies one stream message. It returns an error only when the sink
// can no longer accept events.
func (s *HyprlandSource) handle(ctx context.Context, sink Sink, m hyprland.Message, err error) error {
	if err != nil {
		metrics.EventsDropped.WithLabelValues("malformed").Inc()
		s.logger.Warn().Err(err).Msg("Dropping malformed hyprland line")
		return nil
	}

	decoded, err := hyprland.Decode(m)
	if errors.Is(err, hyprland.ErrUnhandledEvent) {
		return nil
	}
	if err != nil {
		metrics.EventsDropped.WithLabelValues("malformed").Inc()
		s.logger.Warn().Err(err).Msg("Dropping malformed hyprland event")
		return nil
	}

	switch e := decoded.(type) {
	case hyprland.WorkspaceChanged:
		s.workspace = e.Name
	case hyprland.ActiveWindowV2:
		s.activeAddr = e.Address
	case hyprland.ActiveWindow:
		if e.Class == "" {
			s.active = nil
			s.logger.Debug().Str("workspace", s.workspace).Msg("Focus moved to empty workspace")
			return nil
		}
		return s.focus(ctx, sink, e.Class, e.Title)
	case hyprland.WindowTitle:
		if s.active != nil && e.Address == s.activeAddr {
			return s.focus(ctx, sink, s.active.App, e.Title)
		}
	case hyprland.OpenWindow:
		s.logger.Debug().Str("class", e.Class).Str("workspace", e.Workspace).Msg("Window opened")
	case hyprland.CloseWindow:
		s.logger.Debug().Str("address", e.Address).Msg("Window closed")
	}
	return nil
}

func (s *HyprlandSource) focus(ctx context.Context, sink Sink, class, title string) error {
	w := event.Window{App: strings.ToLower(class), Title: title, Workspace: s.workspace}
	s.active = &w

	ok, err := submit(ctx, sink, event.FocusChanged{Window: w, At: s.now()})
	if err != nil {
		return err
	}
	if !ok {
		return errStop
	}
	return nil
}
