// Package source holds the producers that turn desktop state into events.
package source

import (
	"context"
	"errors"
	"time"

	"github.com/focusd/focusd/internal/dispatcher"
	"github.com/focusd/focusd/internal/event"
)

// Sink receives events. Submit blocks while the sink is full.
type Sink interface {
	Submit(ctx context.Context, ev event.Event) error
}

// Source produces events until ctx is cancelled.
type Source interface {
	Name() string
	Run(ctx context.Context, sink Sink) error
}

// submit forwards ev and reports whether the producer should keep running.
func submit(ctx context.Context, sink Sink, ev event.Event) (bool, error) {
	err := sink.Submit(ctx, ev)
	switch {
	case err == nil:
		return true, nil
	case ctx.Err() != nil, errors.Is(err, dispatcher.ErrStopped):
		return false, nil
	default:
		return false, err
	}
}

type clock func() time.Time
