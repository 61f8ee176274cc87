package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	eventsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agenttrail",
			Subsystem: "recorder",
			Name:      "events_recorded_total",
			Help:      "Number of events accepted into the write pipeline.",
		}, []string{"event_type"},
	)
	eventsFiltered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agenttrail",
			Subsystem: "recorder",
			Name:      "events_filtered_total",
			Help:      "Number of events dropped by the event type filter.",
		}, []string{"event_type"},
	)
	formatterFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "agenttrail",
			Subsystem: "recorder",
			Name:      "formatter_failures_total",
			Help:      "Number of content formatter overrides that returned an error.",
		},
	)
	sinkWrites = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "agenttrail",
			Subsystem: "sink",
			Name:      "writes_total",
			Help:      "Number of rows written to the sink.",
		},
	)
	sinkWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "agenttrail",
			Subsystem: "sink",
			Name:      "write_failures_total",
			Help:      "Number of row writes the sink rejected.",
		},
	)
	sinkInitAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "agenttrail",
			Subsystem: "sink",
			Name:      "init_attempts_total",
			Help:      "Number of sink initialization attempts (at most one per recorder).",
		},
	)
	sinkState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "agenttrail",
			Subsystem: "sink",
			Name:      "state",
			Help:      "Sink lifecycle state (0 = uninitialized, 1 = ready, 2 = failed).",
		},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		eventsRecorded, eventsFiltered, formatterFailures,
		sinkWrites, sinkWriteFailures, sinkInitAttempts, sinkState,
	}
}

// Register registers every collector with r. After the first successful
// registration further calls are no-ops, whatever registry they target.
// An AlreadyRegisteredError from r counts as success.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	for _, c := range collectors() {
		err := r.Register(c)
		var are prometheus.AlreadyRegisteredError
		if err != nil && !errors.As(err, &are) {
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler serves the DefaultGatherer. Wiring it into a server is the
// caller's job.
func Handler() http.Handler { return promhttp.Handler() }

// The helpers below are what the recorder and sink call. Before
// Register has run they do nothing.

func IncRecorded(eventType string) {
	if regOK.Load() {
		eventsRecorded.WithLabelValues(eventType).Inc()
	}
}

func IncFiltered(eventType string) {
	if regOK.Load() {
		eventsFiltered.WithLabelValues(eventType).Inc()
	}
}

func IncFormatterFailure() {
	if regOK.Load() {
		formatterFailures.Inc()
	}
}

func IncSinkWrite() {
	if regOK.Load() {
		sinkWrites.Inc()
	}
}

func IncSinkWriteFailure() {
	if regOK.Load() {
		sinkWriteFailures.Inc()
	}
}

func IncSinkInitAttempt() {
	if regOK.Load() {
		sinkInitAttempts.Inc()
	}
}

func SetSinkState(state int) {
	if regOK.Load() {
		sinkState.Set(float64(state))
	}
}
