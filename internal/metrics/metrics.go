package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Event metrics
	EventsAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusd_events_accepted_total",
			Help: "Events applied to the session tracker",
		},
		[]string{"kind"},
	)

	EventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusd_events_dropped_total",
			Help: "Events rejected before reaching the session tracker",
		},
		[]string{"reason"},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "focusd_event_queue_depth",
			Help: "Events waiting in the dispatcher queue",
		},
	)

	// Session metrics
	SessionsFinalized = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "focusd_sessions_finalized_total",
			Help: "Usage records written as finalized",
		},
	)

	SessionsDiscarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "focusd_sessions_discarded_total",
			Help: "Zero-duration sessions that were not recorded",
		},
	)

	ActiveSecondsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusd_active_seconds_recorded_total",
			Help: "Finalized foreground seconds per application",
		},
		[]string{"app"},
	)

	AfkActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "focusd_afk_active",
			Help: "1 while an AFK interval is open",
		},
	)

	// Checkpoint metrics
	Checkpoints = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusd_checkpoints_total",
			Help: "Checkpoint ticks by result",
		},
		[]string{"result"},
	)

	// Persistence metrics
	PersistenceRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusd_persistence_retries_total",
			Help: "Transient storage failures that were retried",
		},
		[]string{"op"},
	)

	PersistenceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusd_persistence_failures_total",
			Help: "Writes abandoned after exhausting retries",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(
		EventsAccepted,
		EventsDropped,
		QueueDepth,
		SessionsFinalized,
		SessionsDiscarded,
		ActiveSecondsRecorded,
		AfkActive,
		Checkpoints,
		PersistenceRetries,
		PersistenceFailures,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
