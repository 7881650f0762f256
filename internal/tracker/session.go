package tracker

import (
	"time"

	"github.com/focusd/focusd/internal/event"
)

// Session is the in-memory record of the window currently holding focus.
// It is owned by a single Tracker and never shared; readers get a Snapshot.
type Session struct {
	Key         string
	Window      event.Window
	StartTime   time.Time
	LastSeen    time.Time
	Accumulated time.Duration
	AfkSince    *time.Time
	RowID       *uint
}

// Snapshot is an immutable copy of a Session taken after an event was applied.
type Snapshot struct {
	Key         string
	Window      event.Window
	StartTime   time.Time
	LastSeen    time.Time
	Accumulated time.Duration
	AfkSince    *time.Time
	RowID       *uint
}

func (s *Session) snapshot() *Snapshot {
	snap := &Snapshot{
		Key:         s.Key,
		Window:      s.Window,
		StartTime:   s.StartTime,
		LastSeen:    s.LastSeen,
		Accumulated: s.Accumulated,
	}
	if s.AfkSince != nil {
		since := *s.AfkSince
		snap.AfkSince = &since
	}
	if s.RowID != nil {
		id := *s.RowID
		snap.RowID = &id
	}
	return snap
}

func (s *Snapshot) IsAfk() bool {
	return s.AfkSince != nil
}

// DurationAt is the active time of the session as of now. Inside an AFK
// interval the value is frozen at the AFK boundary.
func (s *Snapshot) DurationAt(now time.Time) time.Duration {
	if s.AfkSince != nil {
		return s.Accumulated
	}
	return s.Accumulated + elapsed(s.LastSeen, now)
}

// Segment is a finalized contiguous foreground interval of one window.
// Duration is always a whole number of seconds.
type Segment struct {
	Key       string
	Window    event.Window
	StartTime time.Time
	Duration  time.Duration
	RowID     *uint
}

// Seconds is the whole-second duration that gets persisted.
func (s *Segment) Seconds() int64 {
	return int64(s.Duration / time.Second)
}

// AfkSpan describes an AFK interval opened or closed by an event. End is
// zero while the interval is still open.
type AfkSpan struct {
	Start time.Time
	End   time.Time
}

func (a *AfkSpan) Duration() time.Duration {
	if a.End.IsZero() {
		return 0
	}
	return elapsed(a.Start, a.End)
}

func elapsed(from, to time.Time) time.Duration {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return d
}
