package vdom

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// renderDuration measures one Scheduler render pass end to end,
// including any follow-up render the coalescing loop performs in the
// same RequestRender call. Package-level: Scheduler is constructed once
// per view (and once per test), so this must not live inside
// NewScheduler.
var renderDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "agentcore_render_duration_seconds",
		Help:    "Duration of a single VDOM render pass.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	},
)
