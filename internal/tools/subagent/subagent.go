// Package subagent implements the tool-facing half of the parent/child
// agent graph: spawn_subagent, spawn_foreach, wait_for_subagents, and
// yield_to_parent. The tools never own a Thread directly — they talk to
// the owning Chat through the ThreadSpawner interface, so this package
// has no dependency on internal/thread or internal/chat.
package subagent

import (
	"encoding/json"
	"fmt"

	"github.com/nexus-editor/agentcore/internal/toolcore"
	"github.com/nexus-editor/agentcore/pkg/ids"
	"github.com/nexus-editor/agentcore/pkg/vdom"
)

// ThreadType selects the child thread's profile and system prompt, per
// the thread.type enumeration (root, subagent_default, subagent_fast,
// subagent_explore).
type ThreadType string

const (
	ThreadDefault ThreadType = "subagent_default"
	ThreadFast    ThreadType = "subagent_fast"
	ThreadExplore ThreadType = "subagent_explore"
)

// ChildStatus is the terminal or in-flight state of a spawned child, as
// observed from the parent's side.
type ChildStatus struct {
	ThreadID ids.ThreadId
	Done     bool
	Result   string
	Err      error
}

// ThreadSpawner is implemented by the Chat: it owns the thread map and
// is the only thing allowed to create or look up a Thread.
type ThreadSpawner interface {
	// SpawnChild creates a child thread of threadType under parentID,
	// enqueues prompt as its first user message, attaches contextFiles,
	// and records spawnRequestID as the parent tool call it must report
	// back to on yield. It returns the new thread's id immediately; the
	// child runs independently of this call.
	SpawnChild(parentID ids.ThreadId, spawnRequestID ids.ToolRequestId, threadType ThreadType, prompt string, contextFiles []string) ids.ThreadId

	// Status reports the current status of a previously spawned thread.
	Status(threadID ids.ThreadId) ChildStatus

	// Notify registers a callback invoked exactly once, the next time
	// threadID reaches a terminal state. If the thread is already
	// terminal, the callback fires before Notify returns.
	Notify(threadID ids.ThreadId, onTerminal func(ChildStatus))
}

type spawnInput struct {
	Prompt       string   `json:"prompt"`
	ContextFiles []string `json:"contextFiles"`
	AgentType    string   `json:"agentType"`
	Blocking     bool     `json:"blocking"`
}

func (in spawnInput) threadType() ThreadType {
	switch ThreadType(in.AgentType) {
	case ThreadFast, ThreadExplore:
		return ThreadType(in.AgentType)
	default:
		return ThreadDefault
	}
}

// SpawnSubagentTool implements spawn_subagent: creates one child thread
// and, if blocking, waits for it to yield before completing.
type SpawnSubagentTool struct {
	spawner ThreadSpawner
}

func NewSpawnSubagentTool(spawner ThreadSpawner) *SpawnSubagentTool {
	return &SpawnSubagentTool{spawner: spawner}
}

func (t *SpawnSubagentTool) Name() string { return "spawn_subagent" }

func (t *SpawnSubagentTool) Description() string {
	return "Spawn a child agent thread to work on a sub-task, optionally waiting for it to finish."
}

func (t *SpawnSubagentTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"prompt": {"type": "string"},
			"contextFiles": {"type": "array", "items": {"type": "string"}},
			"agentType": {"type": "string", "enum": ["subagent_default", "subagent_fast", "subagent_explore"]},
			"blocking": {"type": "boolean"}
		},
		"required": ["prompt"]
	}`)
}

func (t *SpawnSubagentTool) New(req toolcore.ToolRequest, tc toolcore.ToolContext, dispatch toolcore.DispatchFunc) toolcore.Executor {
	e := &spawnExecutor{Base: toolcore.NewBase(req), tool: t}
	e.start(req, dispatch)
	return e
}

type spawnExecutor struct {
	*toolcore.Base
	tool     *SpawnSubagentTool
	childID  ids.ThreadId
	blocking bool
}

func (e *spawnExecutor) start(req toolcore.ToolRequest, dispatch toolcore.DispatchFunc) {
	var in spawnInput
	if err := json.Unmarshal(req.Input, &in); err != nil {
		e.Finish(toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: invalid input: %v", toolcore.ErrUserInput, err)))
		return
	}
	if in.Prompt == "" {
		e.Finish(toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: prompt is required", toolcore.ErrUserInput)))
		return
	}

	e.childID = e.tool.spawner.SpawnChild(req.ThreadID, req.ID, in.threadType(), in.Prompt, in.ContextFiles)
	e.blocking = in.Blocking

	if !in.Blocking {
		e.Finish(toolcore.OKResult(req.ID, "spawned sub-agent "+string(e.childID)))
		return
	}

	e.Transition(toolcore.StateProcessing)
	e.SetProgress("waiting for sub-agent " + string(e.childID))
	e.tool.spawner.Notify(e.childID, func(status ChildStatus) {
		if dispatch != nil {
			dispatch(toolcore.EffectCompleted{Payload: status})
		}
	})
}

func (e *spawnExecutor) Update(msg toolcore.ToolMsg) {
	switch m := msg.(type) {
	case toolcore.Abort:
		e.Abort()
	case toolcore.EffectCompleted:
		status, _ := m.Payload.(ChildStatus)
		if status.Err != nil {
			e.Finish(toolcore.ErrorResult(e.Request.ID, "sub-agent ("+string(status.ThreadID)+") failed: "+status.Err.Error()))
			return
		}
		e.Finish(toolcore.OKResult(e.Request.ID, "Sub-agent ("+string(status.ThreadID)+") completed:\n"+status.Result))
	}
}

func (e *spawnExecutor) RenderSummary() vdom.Node { return toolcore.DefaultResultView(e.GetToolResult()) }
func (e *spawnExecutor) RenderPreview() vdom.Node { return toolcore.DefaultResultView(e.GetToolResult()) }
func (e *spawnExecutor) RenderDetail() vdom.Node  { return toolcore.DefaultResultView(e.GetToolResult()) }
