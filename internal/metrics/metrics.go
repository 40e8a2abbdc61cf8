// Package metrics exposes Prometheus instrumentation for the session client.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TurnsTotal counts finished turns by outcome (completed, error, aborted, failed)
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hitlclient_turns_total",
			Help: "Total number of turns by outcome",
		},
		[]string{"mode", "outcome"},
	)

	// InterruptsTotal counts interrupts surfaced to the operator
	InterruptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hitlclient_interrupts_total",
			Help: "Total number of interrupts by action",
		},
		[]string{"action"},
	)

	// DirectivesTotal counts resume directives sent to the backend
	DirectivesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hitlclient_directives_total",
			Help: "Total number of resume directives by kind",
		},
		[]string{"kind"},
	)

	// DirectiveRejections counts operator inputs that failed local validation
	DirectiveRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hitlclient_directive_rejections_total",
			Help: "Total number of directives rejected before reaching the backend",
		},
		[]string{"kind"},
	)

	// RecoveryOutcomes counts reconciliation results
	RecoveryOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hitlclient_recovery_outcomes_total",
			Help: "Total number of session reconciliations by outcome",
		},
		[]string{"outcome"},
	)

	// PollAttempts counts status polls made while a session was running elsewhere
	PollAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hitlclient_poll_attempts_total",
			Help: "Total number of status polls for running sessions",
		},
	)

	// MalformedRecords counts stream records skipped by the decoder
	MalformedRecords = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hitlclient_stream_malformed_records_total",
			Help: "Total number of malformed stream records skipped",
		},
	)

	// CacheMismatches counts cached statuses that disagreed with the backend
	CacheMismatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hitlclient_status_cache_mismatches_total",
			Help: "Total number of cached statuses contradicted by the backend",
		},
	)

	// BackendRequestDuration tracks backend call latency
	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hitlclient_backend_request_duration_seconds",
			Help:    "Backend request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op", "status"},
	)

	// DriverState reports the current driver state per session (1 for the active state)
	DriverState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hitlclient_driver_state",
			Help: "Current session driver state",
		},
		[]string{"state"},
	)
)

// RecordTurn records a finished turn
func RecordTurn(mode, outcome string) {
	TurnsTotal.WithLabelValues(mode, outcome).Inc()
}

// RecordBackendRequest records a backend call's latency. A zero code means the
// request never produced a response.
func RecordBackendRequest(op string, code int, duration time.Duration) {
	status := "transport_error"
	if code != 0 {
		status = strconv.Itoa(code)
	}

	BackendRequestDuration.WithLabelValues(op, status).Observe(duration.Seconds())
}

// SetDriverState marks state as the active one among states
func SetDriverState(state string, states []string) {
	for _, s := range states {
		value := 0.0
		if s == state {
			value = 1
		}

		DriverState.WithLabelValues(s).Set(value)
	}
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
