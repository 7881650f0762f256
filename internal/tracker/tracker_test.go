package tracker

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusd/focusd/internal/event"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func at(sec int) time.Time {
	return t0.Add(time.Duration(sec) * time.Second)
}

func newTracker() *Tracker {
	n := 0
	return New(WithKeyFunc(func() string {
		n++
		return fmt.Sprintf("s%d", n)
	}))
}

func focus(app string, sec int) event.Event {
	return event.NewFocusChanged(app, app+" title", "1", at(sec))
}

func apply(t *testing.T, tr *Tracker, ev event.Event) Outcome {
	t.Helper()
	out, err := tr.Apply(ev)
	require.NoError(t, err)
	return out
}

func TestFocusStartsSession(t *testing.T) {
	tr := newTracker()
	assert.Equal(t, NoSession, tr.State())

	out := apply(t, tr, focus("code", 0))
	assert.Nil(t, out.Ended)
	assert.Equal(t, "s1", out.Started)
	assert.Equal(t, ActiveSession, tr.State())

	snap := tr.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, "code", snap.Window.App)
	assert.Equal(t, at(0), snap.StartTime)
	assert.Zero(t, snap.Accumulated)
}

func TestFocusSwitchFinalizes(t *testing.T) {
	tr := newTracker()
	apply(t, tr, focus("code", 0))

	out := apply(t, tr, focus("browser", 90))
	require.NotNil(t, out.Ended)
	assert.Equal(t, "s1", out.Ended.Key)
	assert.Equal(t, "code", out.Ended.Window.App)
	assert.EqualValues(t, 90, out.Ended.Seconds())
	assert.Equal(t, "s2", out.Started)
}

func TestCoalescing(t *testing.T) {
	tr := newTracker()
	apply(t, tr, focus("code", 0))

	for sec := 10; sec <= 50; sec += 10 {
		out := apply(t, tr, focus("code", sec))
		assert.True(t, out.Coalesced)
		assert.Nil(t, out.Ended)
	}

	snap := tr.Snapshot()
	assert.Equal(t, "s1", snap.Key)
	assert.Equal(t, at(50), snap.LastSeen)
	assert.Equal(t, 50*time.Second, snap.Accumulated)

	out := apply(t, tr, focus("browser", 60))
	assert.EqualValues(t, 60, out.Ended.Seconds())
}

func TestTitleChangeIsNewSession(t *testing.T) {
	tr := newTracker()
	apply(t, tr, event.NewFocusChanged("code", "a.go", "1", at(0)))
	out := apply(t, tr, event.NewFocusChanged("code", "b.go", "1", at(5)))
	require.NotNil(t, out.Ended)
	assert.EqualValues(t, 5, out.Ended.Seconds())
}

func TestAfkClipping(t *testing.T) {
	// A gets 100s active, 300s away, then B takes focus 50s after return.
	tr := newTracker()
	apply(t, tr, focus("A", 0))

	out := apply(t, tr, event.AfkStarted{At: at(100)})
	require.NotNil(t, out.AfkOpened)
	assert.Equal(t, at(100), out.AfkOpened.Start)
	assert.Equal(t, ActiveSessionAfk, tr.State())

	snap := tr.Snapshot()
	assert.Equal(t, 100*time.Second, snap.DurationAt(at(350)))

	out = apply(t, tr, event.AfkEnded{At: at(400)})
	require.NotNil(t, out.AfkClosed)
	assert.Equal(t, 300*time.Second, out.AfkClosed.Duration())
	require.NotNil(t, out.Ended)
	assert.EqualValues(t, 100, out.Ended.Seconds())
	assert.Equal(t, "A", out.Ended.Window.App)
	assert.Equal(t, ActiveSession, tr.State())

	out = apply(t, tr, focus("B", 450))
	require.NotNil(t, out.Ended)
	assert.Equal(t, "A", out.Ended.Window.App)
	assert.EqualValues(t, 50, out.Ended.Seconds())
}

func TestFocusDuringAfkClosesInterval(t *testing.T) {
	tr := newTracker()
	apply(t, tr, focus("A", 0))
	apply(t, tr, event.AfkStarted{At: at(60)})

	out := apply(t, tr, focus("B", 500))
	require.NotNil(t, out.AfkClosed)
	assert.Equal(t, at(60), out.AfkClosed.Start)
	assert.Equal(t, at(500), out.AfkClosed.End)
	require.NotNil(t, out.Ended)
	assert.EqualValues(t, 60, out.Ended.Seconds())
	assert.Equal(t, ActiveSession, tr.State())
	assert.False(t, tr.IsAfk())
}

func TestSameWindowDuringAfkIsNotCoalesced(t *testing.T) {
	tr := newTracker()
	apply(t, tr, focus("A", 0))
	apply(t, tr, event.AfkStarted{At: at(10)})

	out := apply(t, tr, focus("A", 30))
	assert.False(t, out.Coalesced)
	require.NotNil(t, out.AfkClosed)
	assert.EqualValues(t, 10, out.Ended.Seconds())
	assert.Equal(t, ActiveSession, tr.State())
}

func TestContradictoryAfkEvents(t *testing.T) {
	tr := newTracker()

	_, err := tr.Apply(event.AfkEnded{At: at(0)})
	assert.ErrorIs(t, err, event.ErrMalformedEvent)

	apply(t, tr, focus("A", 0))
	apply(t, tr, event.AfkStarted{At: at(10)})

	_, err = tr.Apply(event.AfkStarted{At: at(20)})
	assert.ErrorIs(t, err, event.ErrMalformedEvent)
	assert.Equal(t, ActiveSessionAfk, tr.State())
	assert.Equal(t, at(10), *tr.Snapshot().AfkSince)
}

func TestAfkWithoutSession(t *testing.T) {
	tr := newTracker()

	out := apply(t, tr, event.AfkStarted{At: at(0)})
	require.NotNil(t, out.AfkOpened)
	assert.True(t, tr.IsAfk())
	assert.Equal(t, NoSession, tr.State())

	out = apply(t, tr, event.AfkEnded{At: at(30)})
	require.NotNil(t, out.AfkClosed)
	assert.Equal(t, 30*time.Second, out.AfkClosed.Duration())
	assert.Nil(t, out.Ended)
	assert.False(t, tr.IsAfk())

	apply(t, tr, event.AfkStarted{At: at(40)})
	out = apply(t, tr, focus("A", 70))
	require.NotNil(t, out.AfkClosed)
	assert.Equal(t, at(70), out.AfkClosed.End)
	assert.Nil(t, out.Ended)
	assert.Equal(t, ActiveSession, tr.State())
}

func TestZeroDurationSegment(t *testing.T) {
	tr := newTracker()
	apply(t, tr, focus("A", 0))
	out := apply(t, tr, focus("B", 0))
	require.NotNil(t, out.Ended)
	assert.Zero(t, out.Ended.Seconds())
}

func TestShutdownFinalizes(t *testing.T) {
	tr := newTracker()
	apply(t, tr, focus("A", 0))

	out := apply(t, tr, event.Shutdown{At: at(45)})
	require.NotNil(t, out.Ended)
	assert.EqualValues(t, 45, out.Ended.Seconds())
	assert.Equal(t, Terminated, tr.State())
	assert.Nil(t, tr.Snapshot())

	_, err := tr.Apply(focus("B", 50))
	assert.ErrorIs(t, err, ErrTerminated)
}

func TestShutdownDuringAfk(t *testing.T) {
	tr := newTracker()
	apply(t, tr, focus("A", 0))
	apply(t, tr, event.AfkStarted{At: at(20)})

	out := apply(t, tr, event.Shutdown{At: at(500)})
	require.NotNil(t, out.AfkClosed)
	assert.Equal(t, at(500), out.AfkClosed.End)
	assert.EqualValues(t, 20, out.Ended.Seconds())
}

func TestShutdownWithoutSession(t *testing.T) {
	tr := newTracker()
	out := apply(t, tr, event.Shutdown{At: at(1)})
	assert.Nil(t, out.Ended)
	assert.Nil(t, out.AfkClosed)
}

func TestBindRow(t *testing.T) {
	tr := newTracker()
	apply(t, tr, focus("A", 0))

	tr.BindRow("other", 9)
	assert.Nil(t, tr.Snapshot().RowID)

	tr.BindRow("s1", 7)
	require.NotNil(t, tr.Snapshot().RowID)
	assert.EqualValues(t, 7, *tr.Snapshot().RowID)

	out := apply(t, tr, focus("B", 10))
	require.NotNil(t, out.Ended.RowID)
	assert.EqualValues(t, 7, *out.Ended.RowID)
	assert.Nil(t, tr.Snapshot().RowID)
}

func TestSnapshotIsACopy(t *testing.T) {
	tr := newTracker()
	apply(t, tr, focus("A", 0))
	apply(t, tr, event.AfkStarted{At: at(5)})

	snap := tr.Snapshot()
	*snap.AfkSince = at(999)
	assert.Equal(t, at(5), *tr.Snapshot().AfkSince)
}

func TestDurationAtNeverNegative(t *testing.T) {
	tr := newTracker()
	apply(t, tr, focus("A", 100))
	assert.Zero(t, tr.Snapshot().DurationAt(at(50)))
	assert.Equal(t, 10*time.Second, tr.Snapshot().DurationAt(at(110)))
}

func TestDurationsSumToElapsedWithoutAfk(t *testing.T) {
	tr := newTracker()
	apps := []string{"a", "b", "a", "c", "c", "b"}
	times := []int{0, 7, 19, 20, 44, 61}

	var total int64
	for i, app := range apps {
		out := apply(t, tr, focus(app, times[i]))
		if out.Ended != nil {
			total += out.Ended.Seconds()
		}
	}
	out := apply(t, tr, event.Shutdown{At: at(100)})
	total += out.Ended.Seconds()

	assert.EqualValues(t, 100, total)
}

func TestSubSecondRemainderCarriesForward(t *testing.T) {
	tr := newTracker()
	ms := func(n int) time.Time { return t0.Add(time.Duration(n) * time.Millisecond) }

	var total int64
	switches := []int{0, 1400, 2800, 3300, 5900, 7250}
	for i, m := range switches {
		out := apply(t, tr, event.NewFocusChanged(fmt.Sprintf("app%d", i), "", "", ms(m)))
		if out.Ended != nil {
			assert.Zero(t, out.Ended.Duration%time.Second)
			total += out.Ended.Seconds()
		}
	}
	out := apply(t, tr, event.Shutdown{At: ms(10600)})
	total += out.Ended.Seconds()

	// 10.6s of focus persists as 10 whole seconds, not the 8 a per-segment
	// truncation would give.
	assert.EqualValues(t, 10, total)
}

func TestEndToEnd(t *testing.T) {
	tr := newTracker()
	events := []event.Event{
		focus("code", 0),
		event.AfkStarted{At: at(3600)},
		event.AfkEnded{At: at(4200)},
		focus("browser", 4200),
		event.Shutdown{At: at(4260)},
	}

	totals := map[string]int64{}
	var afk []AfkSpan
	for _, ev := range events {
		out := apply(t, tr, ev)
		if out.Ended != nil && out.Ended.Seconds() > 0 {
			totals[out.Ended.Window.App] += out.Ended.Seconds()
		}
		if out.AfkClosed != nil {
			afk = append(afk, *out.AfkClosed)
		}
	}

	assert.Equal(t, map[string]int64{"code": 3600, "browser": 60}, totals)
	require.Len(t, afk, 1)
	assert.Equal(t, at(3600), afk[0].Start)
	assert.Equal(t, at(4200), afk[0].End)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "no_session", NoSession.String())
	assert.Equal(t, "active_afk", ActiveSessionAfk.String())
	assert.Equal(t, "unknown", State(42).String())
}
