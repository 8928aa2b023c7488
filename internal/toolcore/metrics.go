package toolcore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Package-level metrics, registered once at process startup rather than
// per-Registry/Pool construction — the test suite builds dozens of
// Registries and a promauto.NewCounterVec inside a constructor would
// panic on the second one with the same metric name.
var (
	// toolInvocationsTotal counts every executor that reaches done, by
	// tool name and terminal status (ok|error).
	toolInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentcore_tool_invocations_total",
			Help: "Total tool executor invocations by tool name and terminal status.",
		},
		[]string{"tool", "status"},
	)

	// toolExecutionDuration measures wall-clock time from Start to done
	// for one executor.
	toolExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentcore_tool_execution_duration_seconds",
			Help:    "Wall-clock duration of a tool executor from construction to done.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"tool"},
	)

	// internalInvariantTotal is SPEC_FULL §7's core_internal_invariant_total:
	// every ErrInternalInvariant branch anywhere in the core increments
	// this one counter, regardless of which component raised it.
	internalInvariantTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "core_internal_invariant_total",
			Help: "Occurrences of ErrInternalInvariant across the core.",
		},
	)
)

// RecordInvariantViolation increments the shared invariant counter. Call
// it alongside every slog.Error logged for an ErrInternalInvariant
// branch; never call it for any other error taxonomy sentinel.
func RecordInvariantViolation() {
	internalInvariantTotal.Inc()
}

// ObserveToolExecution records one executor's terminal outcome: status
// is "ok" or "error", duration is the time from the executor's
// construction to its done transition.
func ObserveToolExecution(toolName string, isError bool, duration float64) {
	status := "ok"
	if isError {
		status = "error"
	}
	toolInvocationsTotal.WithLabelValues(toolName, status).Inc()
	toolExecutionDuration.WithLabelValues(toolName).Observe(duration)
}
