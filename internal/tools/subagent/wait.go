package subagent

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/nexus-editor/agentcore/internal/toolcore"
	"github.com/nexus-editor/agentcore/pkg/ids"
	"github.com/nexus-editor/agentcore/pkg/vdom"
)

// WaitForSubagentsTool implements wait_for_subagents: blocks until every
// listed thread id reaches a terminal state, independent of whether
// those children were spawned blocking or non-blocking. Per the abort
// contract, aborting this tool never cancels the children it is
// waiting on — it only marks itself done(error) with whatever partial
// aggregation it had collected so far.
type WaitForSubagentsTool struct {
	spawner ThreadSpawner
}

func NewWaitForSubagentsTool(spawner ThreadSpawner) *WaitForSubagentsTool {
	return &WaitForSubagentsTool{spawner: spawner}
}

func (t *WaitForSubagentsTool) Name() string { return "wait_for_subagents" }

func (t *WaitForSubagentsTool) Description() string {
	return "Wait until every listed sub-agent thread has finished."
}

func (t *WaitForSubagentsTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"threadIds": {"type": "array", "items": {"type": "string"}, "minItems": 1}
		},
		"required": ["threadIds"]
	}`)
}

type waitInput struct {
	ThreadIDs []string `json:"threadIds"`
}

func (t *WaitForSubagentsTool) New(req toolcore.ToolRequest, tc toolcore.ToolContext, dispatch toolcore.DispatchFunc) toolcore.Executor {
	e := &waitExecutor{Base: toolcore.NewBase(req), tool: t}
	e.start(req, dispatch)
	return e
}

type waitExecutor struct {
	*toolcore.Base
	tool      *WaitForSubagentsTool
	mu        sync.Mutex
	threadIDs []ids.ThreadId
	results   map[ids.ThreadId]ChildStatus
}

func (e *waitExecutor) start(req toolcore.ToolRequest, dispatch toolcore.DispatchFunc) {
	var in waitInput
	if err := json.Unmarshal(req.Input, &in); err != nil {
		e.Finish(toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: invalid input: %v", toolcore.ErrUserInput, err)))
		return
	}
	if len(in.ThreadIDs) == 0 {
		e.Finish(toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: threadIds must be non-empty", toolcore.ErrUserInput)))
		return
	}

	e.threadIDs = make([]ids.ThreadId, len(in.ThreadIDs))
	e.results = make(map[ids.ThreadId]ChildStatus, len(in.ThreadIDs))
	for i, id := range in.ThreadIDs {
		e.threadIDs[i] = ids.ThreadId(id)
	}

	e.Transition(toolcore.StateProcessing)
	e.SetProgress(fmt.Sprintf("waiting on %d threads", len(e.threadIDs)))

	for _, threadID := range e.threadIDs {
		id := threadID
		e.tool.spawner.Notify(id, func(status ChildStatus) {
			if dispatch != nil {
				dispatch(toolcore.EffectCompleted{Payload: status})
			}
		})
	}
}

func (e *waitExecutor) Update(msg toolcore.ToolMsg) {
	switch m := msg.(type) {
	case toolcore.Abort:
		// Per the parent/child cancellation rule, wait_for_subagents
		// never cancels the threads it's waiting on.
		e.finishPartial(true)
	case toolcore.EffectCompleted:
		status, ok := m.Payload.(ChildStatus)
		if !ok {
			return
		}
		e.mu.Lock()
		e.results[status.ThreadID] = status
		complete := len(e.results) == len(e.threadIDs)
		e.mu.Unlock()
		if complete {
			e.finishPartial(false)
		}
	}
}

func (e *waitExecutor) finishPartial(aborted bool) {
	var b strings.Builder
	failures := 0
	pending := 0
	for _, threadID := range e.threadIDs {
		status, ok := e.results[threadID]
		if !ok {
			pending++
			fmt.Fprintf(&b, "thread (%s): still running\n", threadID)
			continue
		}
		if status.Err != nil {
			failures++
			fmt.Fprintf(&b, "thread (%s) failed: %v\n", threadID, status.Err)
			continue
		}
		fmt.Fprintf(&b, "thread (%s) completed:\n%s\n", threadID, status.Result)
	}
	text := b.String()
	if aborted || failures > 0 || pending > 0 {
		e.Finish(toolcore.ErrorResult(e.Request.ID, text))
		return
	}
	e.Finish(toolcore.OKResult(e.Request.ID, text))
}

func (e *waitExecutor) RenderSummary() vdom.Node { return toolcore.DefaultResultView(e.GetToolResult()) }
func (e *waitExecutor) RenderPreview() vdom.Node { return toolcore.DefaultResultView(e.GetToolResult()) }
func (e *waitExecutor) RenderDetail() vdom.Node  { return toolcore.DefaultResultView(e.GetToolResult()) }
