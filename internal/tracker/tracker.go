// Package tracker holds the session state machine that turns focus and AFK
// transitions into per-window active durations.
package tracker

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/focusd/focusd/internal/event"
)

// State of the tracker.
type State int

const (
	NoSession State = iota
	ActiveSession
	ActiveSessionAfk
	Terminated
)

func (s State) String() string {
	switch s {
	case NoSession:
		return "no_session"
	case ActiveSession:
		return "active"
	case ActiveSessionAfk:
		return "active_afk"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// ErrTerminated is returned for events applied after Shutdown.
var ErrTerminated = errors.New("tracker terminated")

// Outcome lists the persistence work implied by one applied event.
type Outcome struct {
	// Coalesced is set when a focus event named the current window.
	Coalesced bool

	// Ended is the segment finalized by the event, if any. Its duration may
	// be zero; zero-length segments are not written.
	Ended *Segment

	// AfkOpened is set when an AFK interval starts.
	AfkOpened *AfkSpan

	// AfkClosed is set when the open AFK interval ends.
	AfkClosed *AfkSpan

	// Started is the key of the session that began with this event.
	Started string
}

// Tracker is the session state machine. It is not safe for concurrent use;
// the dispatcher is its only caller.
type Tracker struct {
	current *Session

	// idleSince records an AFK interval that began while no window had
	// focus.
	idleSince *time.Time

	// carry is the sub-second remainder of earlier segments. It is added to
	// the next segment so persisted seconds sum to the tracked time.
	carry time.Duration

	terminated bool
	newKey     func() string
}

type Option func(*Tracker)

// WithKeyFunc replaces the session key generator.
func WithKeyFunc(fn func() string) Option {
	return func(t *Tracker) {
		t.newKey = fn
	}
}

func New(opts ...Option) *Tracker {
	t := &Tracker{
		newKey: uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) State() State {
	switch {
	case t.terminated:
		return Terminated
	case t.current == nil:
		return NoSession
	case t.current.AfkSince != nil:
		return ActiveSessionAfk
	default:
		return ActiveSession
	}
}

// IsAfk reports whether an AFK interval is open, with or without a session.
func (t *Tracker) IsAfk() bool {
	if t.current != nil {
		return t.current.AfkSince != nil
	}
	return t.idleSince != nil
}

// Snapshot returns a copy of the current session, or nil.
func (t *Tracker) Snapshot() *Snapshot {
	if t.current == nil || t.terminated {
		return nil
	}
	return t.current.snapshot()
}

// BindRow records the storage row of the session identified by key. It is a
// no-op if that session is no longer current.
func (t *Tracker) BindRow(key string, id uint) {
	if t.current == nil || t.current.Key != key {
		return
	}
	t.current.RowID = &id
}

// Apply advances the state machine. Timestamp ordering is enforced by the
// caller; contradictory AFK transitions return event.ErrMalformedEvent and
// leave the state untouched.
func (t *Tracker) Apply(ev event.Event) (Outcome, error) {
	if t.terminated {
		return Outcome{}, ErrTerminated
	}

	switch e := ev.(type) {
	case event.FocusChanged:
		return t.focus(e.Window, e.At), nil
	case event.AfkStarted:
		return t.afkStart(e.At)
	case event.AfkEnded:
		return t.afkEnd(e.At)
	case event.Shutdown:
		return t.shutdown(e.At), nil
	default:
		return Outcome{}, fmt.Errorf("%w: unsupported event %T", event.ErrMalformedEvent, ev)
	}
}

func (t *Tracker) focus(w event.Window, at time.Time) Outcome {
	var out Outcome

	if t.current != nil && t.current.AfkSince == nil && t.current.Window == w {
		t.current.Accumulated += elapsed(t.current.LastSeen, at)
		t.current.LastSeen = at
		out.Coalesced = true
		return out
	}

	if t.current != nil {
		if t.current.AfkSince != nil {
			out.AfkClosed = &AfkSpan{Start: *t.current.AfkSince, End: at}
		}
		out.Ended = t.finalize(at)
	} else if t.idleSince != nil {
		out.AfkClosed = &AfkSpan{Start: *t.idleSince, End: at}
		t.idleSince = nil
	}

	t.start(w, at)
	out.Started = t.current.Key
	return out
}

func (t *Tracker) afkStart(at time.Time) (Outcome, error) {
	if t.IsAfk() {
		return Outcome{}, fmt.Errorf("%w: afk started while already afk", event.ErrMalformedEvent)
	}

	since := at
	if t.current == nil {
		t.idleSince = &since
		return Outcome{AfkOpened: &AfkSpan{Start: at}}, nil
	}

	t.current.Accumulated += elapsed(t.current.LastSeen, at)
	t.current.LastSeen = at
	t.current.AfkSince = &since
	return Outcome{AfkOpened: &AfkSpan{Start: at}}, nil
}

// afkEnd closes the AFK interval. A usage record is one contiguous interval,
// so the pre-AFK segment is finalized and a continuation of the same window
// starts at the AFK end.
func (t *Tracker) afkEnd(at time.Time) (Outcome, error) {
	if !t.IsAfk() {
		return Outcome{}, fmt.Errorf("%w: afk ended while not afk", event.ErrMalformedEvent)
	}

	if t.current == nil {
		span := &AfkSpan{Start: *t.idleSince, End: at}
		t.idleSince = nil
		return Outcome{AfkClosed: span}, nil
	}

	out := Outcome{AfkClosed: &AfkSpan{Start: *t.current.AfkSince, End: at}}
	w := t.current.Window
	out.Ended = t.finalize(at)
	t.start(w, at)
	out.Started = t.current.Key
	return out, nil
}

func (t *Tracker) shutdown(at time.Time) Outcome {
	var out Outcome

	switch {
	case t.current != nil:
		if t.current.AfkSince != nil {
			out.AfkClosed = &AfkSpan{Start: *t.current.AfkSince, End: at}
		}
		out.Ended = t.finalize(at)
	case t.idleSince != nil:
		out.AfkClosed = &AfkSpan{Start: *t.idleSince, End: at}
		t.idleSince = nil
	}

	t.terminated = true
	return out
}

// finalize ends the current session at the given instant and clears it.
// Time inside an open AFK interval is not counted. The segment duration is
// whole seconds; the remainder moves on to the next segment.
func (t *Tracker) finalize(at time.Time) *Segment {
	s := t.current
	if s.AfkSince == nil {
		s.Accumulated += elapsed(s.LastSeen, at)
		s.LastSeen = at
	}

	total := s.Accumulated + t.carry
	whole := total.Truncate(time.Second)
	t.carry = total - whole

	seg := &Segment{
		Key:       s.Key,
		Window:    s.Window,
		StartTime: s.StartTime,
		Duration:  whole,
		RowID:     s.RowID,
	}
	t.current = nil
	return seg
}

func (t *Tracker) start(w event.Window, at time.Time) {
	t.current = &Session{
		Key:       t.newKey(),
		Window:    w,
		StartTime: at,
		LastSeen:  at,
	}
}
