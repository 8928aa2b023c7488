package toolcore

import "github.com/nexus-editor/agentcore/pkg/vdom"

// SyncFunc computes a tool's entire outcome synchronously. Most of the
// catalogue (get_file, list_directory, diagnostics, thread_title, …)
// never waits on anything beyond local disk or in-memory state and fits
// this shape; tools with real async effects (bash_command, spawn_*)
// build their own Executor against Pool instead.
type SyncFunc func(req ToolRequest, tc ToolContext) ToolResult

// syncExecutor adapts a SyncFunc to Executor: the work runs once, in
// New, and the executor is already done by the time Update could ever be
// called.
type syncExecutor struct {
	*Base
	summary func(ToolResult) vdom.Node
}

// NewSyncExecutor runs fn immediately and returns a completed Executor.
// summary renders the tool's done-state Summary/Preview/Detail views; the
// same rendering is used for all three since synchronous tools rarely
// need a distinct detail view.
func NewSyncExecutor(req ToolRequest, tc ToolContext, fn SyncFunc, summary func(ToolResult) vdom.Node) Executor {
	base := NewBase(req)
	result := fn(req, tc)
	base.Finish(result)
	return &syncExecutor{Base: base, summary: summary}
}

func (e *syncExecutor) Update(ToolMsg) {}

func (e *syncExecutor) RenderSummary() vdom.Node { return e.summary(e.GetToolResult()) }
func (e *syncExecutor) RenderPreview() vdom.Node { return e.summary(e.GetToolResult()) }
func (e *syncExecutor) RenderDetail() vdom.Node  { return e.summary(e.GetToolResult()) }

// DefaultResultView renders a ToolResult's text as a single Text node,
// the fallback every tool can use when it has nothing more specific to
// show.
func DefaultResultView(r ToolResult) vdom.Node {
	if r.IsError() {
		return vdom.Text("Error: " + r.Text)
	}
	return vdom.Text(r.Text)
}
