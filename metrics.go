package ddnsd

import (
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Travis-Britz/ddnsd/internal/metrics"
)

const (
	metricSubsystem = "reconcile"
	// every series carries the name of the Reconciler that produced it
	metricLabel = "reconciler"
)

var (
	metricResults = metrics.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: metricSubsystem,
			Name:      "results_total",
			Help:      "Reconcile results by outcome.",
		},
		[]string{metricLabel, "outcome"},
	)
	metricCountdown = metrics.NewGaugeVec(
		prometheus.GaugeOpts{
			Subsystem: metricSubsystem,
			Name:      "countdown_seconds",
			Help:      "Seconds until the next cycle.",
		},
		[]string{metricLabel},
	)
	metricState = metrics.NewGaugeVec(
		prometheus.GaugeOpts{
			Subsystem: metricSubsystem,
			Name:      "state",
			Help:      "Loop state: 0 idle, 1 waiting, 2 checking, 3 updating, 4 stopped.",
		},
		[]string{metricLabel},
	)
	metricLastCycle = metrics.NewGaugeVec(
		prometheus.GaugeOpts{
			Subsystem: metricSubsystem,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time at which the most recent cycle finished.",
		},
		[]string{metricLabel},
	)
	metricCycleDuration = metrics.NewHistogramVec(
		prometheus.HistogramOpts{
			Subsystem: metricSubsystem,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one pass over all records.",
		},
		[]string{metricLabel},
	)
)

var reconcilerSeq atomic.Int64

func nextReconcilerName() string {
	return strconv.FormatInt(reconcilerSeq.Add(1), 10)
}

// instanceMetrics holds the series of one Reconciler.
type instanceMetrics struct {
	results       *prometheus.CounterVec
	countdown     prometheus.Gauge
	state         prometheus.Gauge
	lastCycle     prometheus.Gauge
	cycleDuration prometheus.Observer
}

func newInstanceMetrics(name string) instanceMetrics {
	labels := prometheus.Labels{metricLabel: name}
	return instanceMetrics{
		results:       metricResults.MustCurryWith(labels),
		countdown:     metricCountdown.With(labels),
		state:         metricState.With(labels),
		lastCycle:     metricLastCycle.With(labels),
		cycleDuration: metricCycleDuration.With(labels),
	}
}
