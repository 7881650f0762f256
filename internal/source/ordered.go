package source

import (
	"context"
	"sync"
	"time"

	"github.com/focusd/focusd/internal/event"
)

// Ordered serializes submissions from several producers. Each producer
// stamps its own events, so two producers ticking together can reach the
// sink in the reverse order of their timestamps. Ordered holds one lock
// across the clamp and the enqueue, so the sink sees non-decreasing
// timestamps: an event stamped before the last forwarded one is moved up
// to it.
type Ordered struct {
	sink Sink

	mu   sync.Mutex
	last time.Time
}

func NewOrdered(sink Sink) *Ordered {
	return &Ordered{sink: sink}
}

func (o *Ordered) Submit(ctx context.Context, ev event.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	// Malformed events go through untouched so the dispatcher can drop them.
	if ev == nil || ev.Timestamp().IsZero() {
		return o.sink.Submit(ctx, ev)
	}
	if ev.Timestamp().Before(o.last) {
		ev = event.WithTimestamp(ev, o.last)
	}
	if err := o.sink.Submit(ctx, ev); err != nil {
		return err
	}
	o.last = ev.Timestamp()
	return nil
}
