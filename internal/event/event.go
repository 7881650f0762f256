// Package event defines the closed set of events the dispatcher consumes.
// Producers (focus and AFK sources) build these values at the boundary; the
// core never sees raw window-manager protocol text.
package event

import (
	"fmt"
	"time"
)

// Kind identifies the variant of an Event.
type Kind int

const (
	KindFocusChanged Kind = iota + 1
	KindAfkStarted
	KindAfkEnded
	KindShutdown
)

func (k Kind) String() string {
	switch k {
	case KindFocusChanged:
		return "focus_changed"
	case KindAfkStarted:
		return "afk_started"
	case KindAfkEnded:
		return "afk_ended"
	case KindShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Event is implemented only by the types in this package.
type Event interface {
	Kind() Kind
	Timestamp() time.Time
	sealed()
}

// Window identifies a focus target. Two focus events naming the same Window
// are coalesced.
type Window struct {
	App       string
	Title     string
	Workspace string
}

func (w Window) String() string {
	if w.Workspace == "" {
		return fmt.Sprintf("%s - %s", w.App, w.Title)
	}
	return fmt.Sprintf("%s - %s [%s]", w.App, w.Title, w.Workspace)
}

type FocusChanged struct {
	Window Window
	At     time.Time
}

type AfkStarted struct {
	At time.Time
}

type AfkEnded struct {
	At time.Time
}

// Shutdown is the sentinel that flushes the current session and stops the
// dispatcher. It is queued behind everything already submitted.
type Shutdown struct {
	At time.Time
}

func (FocusChanged) Kind() Kind { return KindFocusChanged }
func (AfkStarted) Kind() Kind   { return KindAfkStarted }
func (AfkEnded) Kind() Kind     { return KindAfkEnded }
func (Shutdown) Kind() Kind     { return KindShutdown }

func (e FocusChanged) Timestamp() time.Time { return e.At }
func (e AfkStarted) Timestamp() time.Time   { return e.At }
func (e AfkEnded) Timestamp() time.Time     { return e.At }
func (e Shutdown) Timestamp() time.Time     { return e.At }

func (FocusChanged) sealed() {}
func (AfkStarted) sealed()   {}
func (AfkEnded) sealed()     {}
func (Shutdown) sealed()     {}

// NewFocusChanged builds a focus event for the given window attributes.
func NewFocusChanged(app, title, workspace string, at time.Time) FocusChanged {
	return FocusChanged{
		Window: Window{App: app, Title: title, Workspace: workspace},
		At:     at,
	}
}

// Validate performs the structural checks that do not depend on tracker
// state. State-dependent contradictions are detected by the tracker.
func Validate(ev Event) error {
	if ev == nil {
		return fmt.Errorf("%w: nil event", ErrMalformedEvent)
	}
	if ev.Timestamp().IsZero() {
		return fmt.Errorf("%w: %s without timestamp", ErrMalformedEvent, ev.Kind())
	}
	if fc, ok := ev.(FocusChanged); ok && fc.Window.App == "" {
		return fmt.Errorf("%w: focus change without app identifier", ErrMalformedEvent)
	}
	return nil
}

// WithTimestamp returns a copy of ev carrying the given timestamp.
func WithTimestamp(ev Event, at time.Time) Event {
	switch e := ev.(type) {
	case FocusChanged:
		e.At = at
		return e
	case AfkStarted:
		e.At = at
		return e
	case AfkEnded:
		e.At = at
		return e
	case Shutdown:
		e.At = at
		return e
	default:
		return ev
	}
}
