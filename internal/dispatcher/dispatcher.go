// Package dispatcher runs the single event loop that drives the session
// tracker and issues the storage writes its transitions imply.
package dispatcher

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/focusd/focusd/internal/event"
	"github.com/focusd/focusd/internal/metrics"
	"github.com/focusd/focusd/internal/models"
	"github.com/focusd/focusd/internal/tracker"
)

const DefaultQueueSize = 100

// Store is the subset of the storage gateway the dispatcher writes through.
type Store interface {
	FinalizeWindowUsage(ctx context.Context, rec *models.WindowUsage) (uint, error)
	DiscardWindowUsage(ctx context.Context, rec *models.WindowUsage) error
	InsertAfkInterval(ctx context.Context, start time.Time) (uint, error)
	CloseAfkInterval(ctx context.Context, id uint, end time.Time) error
	CreateErrorLog(ctx context.Context, errorLog *models.ErrorLog) error
}

// Status is published after every event. Values are never mutated once
// published.
type Status struct {
	Session   *tracker.Snapshot
	State     tracker.State
	Afk       bool
	LastEvent time.Time
	Accepted  uint64
	Dropped   uint64
}

type rowBinding struct {
	key string
	id  uint
}

type Dispatcher struct {
	events  chan event.Event
	rows    chan rowBinding
	done    chan struct{}
	store   Store
	tracker *tracker.Tracker
	logger  zerolog.Logger

	status atomic.Pointer[Status]

	// Owned by the Run goroutine.
	lastTS   time.Time
	afkRowID *uint
	accepted uint64
	dropped  uint64
}

type Option func(*Dispatcher)

func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.events = make(chan event.Event, n)
		}
	}
}

func WithTracker(t *tracker.Tracker) Option {
	return func(d *Dispatcher) {
		d.tracker = t
	}
}

func New(store Store, logger zerolog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		events:  make(chan event.Event, DefaultQueueSize),
		rows:    make(chan rowBinding, 4),
		done:    make(chan struct{}),
		store:   store,
		tracker: tracker.New(),
		logger:  logger.With().Str("component", "dispatcher").Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.publish()
	return d
}

// Submit queues an event, blocking while the queue is full.
func (d *Dispatcher) Submit(ctx context.Context, ev event.Event) error {
	select {
	case <-d.done:
		return ErrStopped
	default:
	}

	select {
	case d.events <- ev:
		metrics.QueueDepth.Set(float64(len(d.events)))
		return nil
	case <-d.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown queues the shutdown sentinel behind everything already submitted.
func (d *Dispatcher) Shutdown(ctx context.Context, at time.Time) error {
	return d.Submit(ctx, event.Shutdown{At: at})
}

// BindRow tells the dispatcher which storage row holds the checkpoints of a
// session. It never blocks; a dropped binding is re-sent on the next
// checkpoint.
func (d *Dispatcher) BindRow(key string, id uint) {
	select {
	case d.rows <- rowBinding{key: key, id: id}:
	default:
	}
}

// Status returns the most recently published state.
func (d *Dispatcher) Status() *Status {
	return d.status.Load()
}

// Snapshot returns the current session snapshot, or nil.
func (d *Dispatcher) Snapshot() *tracker.Snapshot {
	return d.status.Load().Session
}

// Done is closed when Run returns.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Run consumes events until a Shutdown event has been flushed or ctx is
// cancelled. Cancellation skips the final flush; rows already checkpointed
// stay in storage.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer close(d.done)
	d.logger.Info().Int("queue_size", cap(d.events)).Msg("Dispatcher started")

	for {
		select {
		case <-ctx.Done():
			d.logger.Warn().Msg("Dispatcher cancelled before shutdown flush")
			return ctx.Err()
		case b := <-d.rows:
			d.tracker.BindRow(b.key, b.id)
			d.publish()
		case ev := <-d.events:
			metrics.QueueDepth.Set(float64(len(d.events)))
			stop, err := d.handle(ctx, ev)
			if stop {
				d.logger.Info().Uint64("accepted", d.accepted).Uint64("dropped", d.dropped).Msg("Dispatcher stopped")
				return err
			}
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, ev event.Event) (bool, error) {
	if err := event.Validate(ev); err != nil {
		d.drop("malformed", ev, err)
		return false, nil
	}
	if ev.Timestamp().Before(d.lastTS) {
		d.drop("out_of_order", ev, event.ErrOutOfOrderEvent)
		return false, nil
	}

	out, err := d.tracker.Apply(ev)
	if err != nil {
		d.drop("malformed", ev, err)
		return false, nil
	}
	d.lastTS = ev.Timestamp()
	d.accepted++
	metrics.EventsAccepted.WithLabelValues(ev.Kind().String()).Inc()

	if out.Started != "" {
		d.logger.Debug().Str("session", out.Started).Time("at", ev.Timestamp()).Msg("Session started")
	}

	flushErr := d.persist(ctx, out)
	d.publish()

	if _, ok := ev.(event.Shutdown); ok {
		if flushErr != nil {
			return true, &ShutdownFlushError{Err: flushErr}
		}
		return true, nil
	}
	return false, nil
}

func (d *Dispatcher) drop(reason string, ev event.Event, err error) {
	d.dropped++
	metrics.EventsDropped.WithLabelValues(reason).Inc()

	l := d.logger.Warn().Err(err).Str("reason", reason)
	if ev != nil {
		l = l.Str("kind", ev.Kind().String()).Time("ts", ev.Timestamp())
	}
	l.Msg("Event dropped")
}

// persist issues the writes implied by one transition and returns the first
// failure. Failures are logged and recorded but do not stop later writes.
func (d *Dispatcher) persist(ctx context.Context, out tracker.Outcome) error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	if out.Ended != nil {
		keep(d.writeSegment(ctx, out.Ended))
	}
	if out.AfkClosed != nil {
		keep(d.closeAfk(ctx, out.AfkClosed))
	}
	if out.AfkOpened != nil {
		keep(d.openAfk(ctx, out.AfkOpened))
	}
	return first
}

func (d *Dispatcher) writeSegment(ctx context.Context, seg *tracker.Segment) error {
	rec := &models.WindowUsage{
		SessionKey:      seg.Key,
		AppIdentifier:   seg.Window.App,
		WindowTitle:     seg.Window.Title,
		Workspace:       seg.Window.Workspace,
		StartTime:       seg.StartTime,
		DurationSeconds: seg.Seconds(),
	}

	if seg.Seconds() == 0 {
		metrics.SessionsDiscarded.Inc()
		if err := d.store.DiscardWindowUsage(ctx, rec); err != nil {
			d.storeError(ctx, "discard", err)
			return err
		}
		return nil
	}

	if _, err := d.store.FinalizeWindowUsage(ctx, rec); err != nil {
		d.storeError(ctx, "finalize", err)
		return err
	}

	metrics.SessionsFinalized.Inc()
	metrics.ActiveSecondsRecorded.WithLabelValues(seg.Window.App).Add(float64(seg.Seconds()))
	d.logger.Debug().
		Str("session", seg.Key).
		Str("app", seg.Window.App).
		Int64("duration_seconds", seg.Seconds()).
		Msg("Session finalized")
	return nil
}

func (d *Dispatcher) openAfk(ctx context.Context, span *tracker.AfkSpan) error {
	metrics.AfkActive.Set(1)

	id, err := d.store.InsertAfkInterval(ctx, span.Start)
	if err != nil {
		d.afkRowID = nil
		d.storeError(ctx, "afk_open", err)
		return err
	}
	d.afkRowID = &id
	d.logger.Debug().Time("since", span.Start).Msg("AFK started")
	return nil
}

func (d *Dispatcher) closeAfk(ctx context.Context, span *tracker.AfkSpan) error {
	metrics.AfkActive.Set(0)

	if d.afkRowID == nil {
		// The opening insert failed; record the whole interval now.
		id, err := d.store.InsertAfkInterval(ctx, span.Start)
		if err != nil {
			d.storeError(ctx, "afk_close", err)
			return err
		}
		d.afkRowID = &id
	}

	id := *d.afkRowID
	d.afkRowID = nil
	if err := d.store.CloseAfkInterval(ctx, id, span.End); err != nil {
		d.storeError(ctx, "afk_close", err)
		return err
	}
	d.logger.Debug().Dur("duration", span.Duration()).Msg("AFK ended")
	return nil
}

// storeError logs a failed write and keeps a record of it in the database
func (d *Dispatcher) storeError(ctx context.Context, op string, err error) {
	d.logger.Error().Err(err).Str("op", op).Msg("Failed to persist session state")

	errorLog := &models.ErrorLog{
		Timestamp: time.Now(),
		Kind:      op,
		ErrorMsg:  err.Error(),
	}
	if logErr := d.store.CreateErrorLog(ctx, errorLog); logErr != nil && !errors.Is(logErr, context.Canceled) {
		d.logger.Warn().Err(logErr).Msg("Failed to store error log")
	}
}

func (d *Dispatcher) publish() {
	d.status.Store(&Status{
		Session:   d.tracker.Snapshot(),
		State:     d.tracker.State(),
		Afk:       d.tracker.IsAfk(),
		LastEvent: d.lastTS,
		Accepted:  d.accepted,
		Dropped:   d.dropped,
	})
}
