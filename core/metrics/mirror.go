package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "overlay_sync"

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Mirror holds the collectors of the bucket mirror.
type Mirror struct {
	// Changes counts executor calls by operation (add, replace, remove) and result.
	Changes *prometheus.CounterVec
	// ChangeDuration observes the storage round trip of one executor call.
	ChangeDuration *prometheus.HistogramVec
	// Batches observes how many entries each processor pass handled.
	Batches prometheus.Histogram
	// Applied is the number of objects currently rendered.
	Applied prometheus.Gauge
	// Purged counts objects removed at teardown.
	Purged prometheus.Counter
	// Refreshes counts source refreshes by result.
	Refreshes *prometheus.CounterVec
}

// NewMirror creates the mirror collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMirror(reg prometheus.Registerer) *Mirror {
	f := promauto.With(reg)
	return &Mirror{
		Changes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "changes_total",
			Help:      "Executor calls by operation and result",
		}, []string{"op", "result"}),
		ChangeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "change_duration_seconds",
			Help:      "Duration of one storage call",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"op"}),
		Batches: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "batch_entries",
			Help:      "Entries processed per map change pass",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
		}),
		Applied: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "applied_objects",
			Help:      "Objects currently rendered in the bucket",
		}),
		Purged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "purged_objects_total",
			Help:      "Objects removed when a mirror was torn down",
		}),
		Refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "refreshes_total",
			Help:      "Source refreshes by result",
		}, []string{"result"}),
	}
}

// ObserveChange records one executor call that started at start.
func (m *Mirror) ObserveChange(op string, start time.Time, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.Changes.WithLabelValues(op, result).Inc()
	m.ChangeDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
