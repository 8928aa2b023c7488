package thread

import (
	"encoding/json"
	"fmt"

	"github.com/nexus-editor/agentcore/internal/toolcore"
)

// ThreadTitleTool implements thread_title: lets the model set a short,
// human-readable label for the thread it is running in, displayed by
// the chat UI wherever the thread is listed (tab bar, subagent tree).
// It never touches message history or thread status — purely a side
// channel from model to UI, the same shape as yield_to_parent's
// callback binding.
type ThreadTitleTool struct {
	onTitle func(title string)
}

// NewThreadTitleTool binds t to the thread whose title this call
// should set. The Chat constructs one of these per thread, closing
// over that thread's id, the same pattern subagent.NewYieldToParentTool
// uses to bind to a specific thread without this package depending on
// the Chat's types.
func NewThreadTitleTool(onTitle func(title string)) *ThreadTitleTool {
	return &ThreadTitleTool{onTitle: onTitle}
}

func (t *ThreadTitleTool) Name() string { return "thread_title" }

func (t *ThreadTitleTool) Description() string {
	return "Set a short title for this thread, shown in the thread list."
}

func (t *ThreadTitleTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"title": {"type": "string", "maxLength": 80}
		},
		"required": ["title"]
	}`)
}

type threadTitleInput struct {
	Title string `json:"title"`
}

func (t *ThreadTitleTool) New(req toolcore.ToolRequest, tc toolcore.ToolContext, dispatch toolcore.DispatchFunc) toolcore.Executor {
	return toolcore.NewSyncExecutor(req, tc, t.run, toolcore.DefaultResultView)
}

func (t *ThreadTitleTool) run(req toolcore.ToolRequest, tc toolcore.ToolContext) toolcore.ToolResult {
	var in threadTitleInput
	if err := json.Unmarshal(req.Input, &in); err != nil {
		return toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: invalid input: %v", toolcore.ErrUserInput, err))
	}
	if in.Title == "" {
		return toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: title must be non-empty", toolcore.ErrUserInput))
	}
	if t.onTitle != nil {
		t.onTitle(in.Title)
	}
	return toolcore.OKResult(req.ID, fmt.Sprintf("title set to %q", in.Title))
}
