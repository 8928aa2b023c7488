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

// SpawnForeachTool implements spawn_foreach: fans spawn_subagent out over
// a list of prompts, one child thread per item, and always blocks until
// every child has yielded.
type SpawnForeachTool struct {
	spawner ThreadSpawner
}

func NewSpawnForeachTool(spawner ThreadSpawner) *SpawnForeachTool {
	return &SpawnForeachTool{spawner: spawner}
}

func (t *SpawnForeachTool) Name() string { return "spawn_foreach" }

func (t *SpawnForeachTool) Description() string {
	return "Spawn one child agent thread per item in a list and wait for all of them to finish."
}

func (t *SpawnForeachTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"prompts": {"type": "array", "items": {"type": "string"}, "minItems": 1},
			"agentType": {"type": "string", "enum": ["subagent_default", "subagent_fast", "subagent_explore"]},
			"contextFiles": {"type": "array", "items": {"type": "string"}}
		},
		"required": ["prompts"]
	}`)
}

type spawnForeachInput struct {
	Prompts      []string `json:"prompts"`
	AgentType    string   `json:"agentType"`
	ContextFiles []string `json:"contextFiles"`
}

func (in spawnForeachInput) threadType() ThreadType {
	switch ThreadType(in.AgentType) {
	case ThreadFast, ThreadExplore:
		return ThreadType(in.AgentType)
	default:
		return ThreadDefault
	}
}

func (t *SpawnForeachTool) New(req toolcore.ToolRequest, tc toolcore.ToolContext, dispatch toolcore.DispatchFunc) toolcore.Executor {
	e := &foreachExecutor{Base: toolcore.NewBase(req), tool: t}
	e.start(req, dispatch)
	return e
}

type foreachExecutor struct {
	*toolcore.Base
	tool     *SpawnForeachTool
	mu       sync.Mutex
	children []ids.ThreadId
	results  map[ids.ThreadId]ChildStatus
}

func (e *foreachExecutor) start(req toolcore.ToolRequest, dispatch toolcore.DispatchFunc) {
	var in spawnForeachInput
	if err := json.Unmarshal(req.Input, &in); err != nil {
		e.Finish(toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: invalid input: %v", toolcore.ErrUserInput, err)))
		return
	}
	if len(in.Prompts) == 0 {
		e.Finish(toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: prompts must be non-empty", toolcore.ErrUserInput)))
		return
	}

	e.results = make(map[ids.ThreadId]ChildStatus, len(in.Prompts))
	e.children = make([]ids.ThreadId, 0, len(in.Prompts))
	for _, prompt := range in.Prompts {
		childID := e.tool.spawner.SpawnChild(req.ThreadID, req.ID, in.threadType(), prompt, in.ContextFiles)
		e.children = append(e.children, childID)
	}

	e.Transition(toolcore.StateProcessing)
	e.SetProgress(fmt.Sprintf("waiting for %d sub-agents", len(e.children)))

	for _, childID := range e.children {
		id := childID
		e.tool.spawner.Notify(id, func(status ChildStatus) {
			if dispatch != nil {
				dispatch(toolcore.EffectCompleted{Payload: status})
			}
		})
	}
}

func (e *foreachExecutor) Update(msg toolcore.ToolMsg) {
	switch m := msg.(type) {
	case toolcore.Abort:
		e.Abort()
	case toolcore.EffectCompleted:
		status, ok := m.Payload.(ChildStatus)
		if !ok {
			return
		}
		e.mu.Lock()
		e.results[status.ThreadID] = status
		complete := len(e.results) == len(e.children)
		e.mu.Unlock()
		if complete {
			e.finish()
		}
	}
}

func (e *foreachExecutor) finish() {
	var b strings.Builder
	failures := 0
	for _, childID := range e.children {
		status := e.results[childID]
		if status.Err != nil {
			failures++
			fmt.Fprintf(&b, "sub-agent (%s) failed: %v\n", childID, status.Err)
			continue
		}
		fmt.Fprintf(&b, "sub-agent (%s) completed:\n%s\n", childID, status.Result)
	}
	text := b.String()
	if failures > 0 {
		e.Finish(toolcore.ErrorResult(e.Request.ID, fmt.Sprintf("%d/%d sub-agents failed\n%s", failures, len(e.children), text)))
		return
	}
	e.Finish(toolcore.OKResult(e.Request.ID, text))
}

func (e *foreachExecutor) RenderSummary() vdom.Node { return toolcore.DefaultResultView(e.GetToolResult()) }
func (e *foreachExecutor) RenderPreview() vdom.Node { return toolcore.DefaultResultView(e.GetToolResult()) }
func (e *foreachExecutor) RenderDetail() vdom.Node  { return toolcore.DefaultResultView(e.GetToolResult()) }
