package thread

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registered once at package init — Thread values are constructed
// throughout the test suite and on every spawn_subagent call, so these
// stay package-level vars rather than per-Thread promauto calls.
var (
	// threadTurnsTotal counts every beginTurn, by thread kind
	// (root|subagent_default|subagent_fast|subagent_explore).
	threadTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentcore_thread_turns_total",
			Help: "Total provider turns begun, by thread kind.",
		},
		[]string{"kind"},
	)

	// threadTerminalTotal counts each thread's single terminal
	// transition, by kind and terminal status.
	threadTerminalTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentcore_thread_terminal_total",
			Help: "Terminal thread transitions by kind and status.",
		},
		[]string{"kind", "status"},
	)
)
