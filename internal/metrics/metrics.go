package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the event functions
type Metrics struct {
	EventsHandled      *prometheus.CounterVec
	Notifications      *prometheus.CounterVec
	PropagationUpdates *prometheus.CounterVec
	CounterBumps       *prometheus.CounterVec
	Broadcasts         *prometheus.CounterVec
	Thumbnails         *prometheus.CounterVec
	EventDuration      *prometheus.HistogramVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the process-wide metrics, registering them on first use
func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			EventsHandled: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "events_handled_total",
					Help: "Change events handled, by stream and result",
				},
				[]string{"stream", "result"},
			),
			Notifications: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "notifications_total",
					Help: "Per-recipient notification outcomes",
				},
				[]string{"type", "status"},
			),
			PropagationUpdates: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "propagation_updates_total",
					Help: "Denormalized record updates issued by profile propagation",
				},
				[]string{"target", "result"},
			),
			CounterBumps: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "counter_bumps_total",
					Help: "Aggregate counter increments",
				},
				[]string{"counter", "result"},
			),
			Broadcasts: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "broadcasts_total",
					Help: "Topic broadcasts requested",
				},
				[]string{"topic", "result"},
			),
			Thumbnails: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "thumbnails_total",
					Help: "Thumbnail pipeline runs by result",
				},
				[]string{"result"},
			),
			EventDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "event_duration_seconds",
					Help:    "Time spent handling one change event",
					Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
				},
				[]string{"stream"},
			),
		}
	})
	return instance
}

// Result maps an error to a metric label
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
