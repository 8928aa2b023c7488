package thread

import (
	"sync"

	"github.com/nexus-editor/agentcore/internal/toolcore"
	"github.com/nexus-editor/agentcore/pkg/ids"
)

// ToolManager owns every live ToolExecutor for one thread, keyed by
// ToolRequestId. The Thread never constructs an Executor directly; it
// always goes through Start so every executor's dispatch closure routes
// back through the same (ids.ToolRequestId, toolcore.ToolMsg) envelope
// regardless of which tool it belongs to.
type ToolManager struct {
	mu        sync.Mutex
	registry  *toolcore.Registry
	tc        toolcore.ToolContext
	executors map[ids.ToolRequestId]toolcore.Executor
}

// NewToolManager constructs a manager bound to registry and tc for the
// lifetime of one thread.
func NewToolManager(registry *toolcore.Registry, tc toolcore.ToolContext) *ToolManager {
	return &ToolManager{
		registry:  registry,
		tc:        tc,
		executors: make(map[ids.ToolRequestId]toolcore.Executor),
	}
}

// Start validates req against the registry and constructs its executor,
// wiring its dispatch closure to call onMsg with req.ID so a later
// EffectCompleted always finds its way back to the right executor even
// with many tool calls in flight at once.
func (m *ToolManager) Start(req toolcore.ToolRequest, onMsg func(ids.ToolRequestId, toolcore.ToolMsg)) (toolcore.Executor, error) {
	dispatch := func(msg toolcore.ToolMsg) { onMsg(req.ID, msg) }
	exec, err := m.registry.New(req, m.tc, dispatch)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.executors[req.ID] = exec
	m.mu.Unlock()
	return exec, nil
}

// Get looks up the executor for a request id.
func (m *ToolManager) Get(id ids.ToolRequestId) (toolcore.Executor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.executors[id]
	return e, ok
}

// Remove drops a finished executor's bookkeeping entry. Executors are
// never deleted while running the thread's turn loop consults
// IsDone/GetToolResult instead; Remove exists for the chat-level
// "forget old tool state once its result is folded into history" pass.
func (m *ToolManager) Remove(id ids.ToolRequestId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.executors, id)
}

// AbortAll aborts every non-terminal executor. Used when the thread
// itself aborts, or when a subagent thread yields (any further tool
// calls it had in flight are aborted per the spawn/yield contract).
func (m *ToolManager) AbortAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.executors {
		if !e.IsDone() {
			e.Abort()
		}
	}
}

// Pending returns the request ids of every executor not yet done.
func (m *ToolManager) Pending() []ids.ToolRequestId {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ids.ToolRequestId
	for id, e := range m.executors {
		if !e.IsDone() {
			out = append(out, id)
		}
	}
	return out
}
