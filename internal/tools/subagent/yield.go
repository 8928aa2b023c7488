package subagent

import (
	"encoding/json"
	"fmt"

	"github.com/nexus-editor/agentcore/internal/toolcore"
)

// YieldToParentTool implements yield_to_parent: terminates the subagent
// thread it runs in and delivers result as the ToolResult for the
// parent's spawn_subagent call. It is only meaningful inside a subagent
// thread; the Chat is responsible for rejecting it on the root thread
// before the executor is ever constructed.
type YieldToParentTool struct {
	onYield func(req toolcore.ToolRequest, result string)
}

// NewYieldToParentTool takes a callback rather than a ThreadYielder
// interface so the Chat can close over the calling thread's id without
// this package needing to know the Thread type.
func NewYieldToParentTool(onYield func(req toolcore.ToolRequest, result string)) *YieldToParentTool {
	return &YieldToParentTool{onYield: onYield}
}

func (t *YieldToParentTool) Name() string { return "yield_to_parent" }

func (t *YieldToParentTool) Description() string {
	return "Terminate this sub-agent thread, delivering result to the parent that spawned it."
}

func (t *YieldToParentTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"result": {"type": "string"}
		},
		"required": ["result"]
	}`)
}

type yieldInput struct {
	Result string `json:"result"`
}

func (t *YieldToParentTool) New(req toolcore.ToolRequest, tc toolcore.ToolContext, dispatch toolcore.DispatchFunc) toolcore.Executor {
	return toolcore.NewSyncExecutor(req, tc, t.run, toolcore.DefaultResultView)
}

func (t *YieldToParentTool) run(req toolcore.ToolRequest, tc toolcore.ToolContext) toolcore.ToolResult {
	var in yieldInput
	if err := json.Unmarshal(req.Input, &in); err != nil {
		return toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: invalid input: %v", toolcore.ErrUserInput, err))
	}
	if t.onYield != nil {
		t.onYield(req, in.Result)
	}
	return toolcore.OKResult(req.ID, "yielded to parent")
}
