package thread

import (
	"encoding/json"
	"fmt"

	"github.com/nexus-editor/agentcore/internal/toolcore"
	"github.com/nexus-editor/agentcore/pkg/ids"
	"github.com/nexus-editor/agentcore/pkg/message"
)

// compactKeepLastMessages is how many of the most recent messages survive
// a compact call untouched, so the turn that just produced the summary
// (and the turn immediately before it, usually still relevant) aren't
// themselves folded into the summary they describe.
const compactKeepLastMessages = 2

// CompactTool implements compact: the model writes a summary of the
// older portion of the conversation, and the tool rewrites that range
// down to a single synthetic assistant message carrying the summary,
// optionally followed by a continuation message, per the compaction
// wire format (SPEC_FULL §6). It is the only caller of
// Thread.ApplyCompaction.
type CompactTool struct {
	getThread func() *Thread
}

// NewCompactTool binds the tool to the thread whose history it
// compacts, via a getter rather than a *Thread directly: the Chat
// builds a thread's registry before New returns a *Thread for that
// same thread, so the tool must resolve its target lazily, the first
// time it actually runs. The same binding shape as thread_title and
// yield_to_parent otherwise.
func NewCompactTool(getThread func() *Thread) *CompactTool {
	return &CompactTool{getThread: getThread}
}

func (t *CompactTool) Name() string { return "compact" }

func (t *CompactTool) Description() string {
	return "Replace older conversation turns with a summary to free up context budget."
}

func (t *CompactTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"summary": {"type": "string"},
			"continuation": {"type": "string"}
		},
		"required": ["summary"]
	}`)
}

type compactInput struct {
	Summary      string `json:"summary"`
	Continuation string `json:"continuation"`
}

func (t *CompactTool) New(req toolcore.ToolRequest, tc toolcore.ToolContext, dispatch toolcore.DispatchFunc) toolcore.Executor {
	return toolcore.NewSyncExecutor(req, tc, t.run, toolcore.DefaultResultView)
}

func (t *CompactTool) run(req toolcore.ToolRequest, tc toolcore.ToolContext) toolcore.ToolResult {
	var in compactInput
	if err := json.Unmarshal(req.Input, &in); err != nil {
		return toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: invalid input: %v", toolcore.ErrUserInput, err))
	}
	if in.Summary == "" {
		return toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: summary must be non-empty", toolcore.ErrUserInput))
	}

	target := t.getThread()
	if target == nil {
		return toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: thread unavailable", toolcore.ErrInternalInvariant))
	}
	existing := target.Messages()
	newMessages := BuildCompactedMessages(existing, in.Summary, in.Continuation)
	target.ApplyCompaction(newMessages)

	return toolcore.OKResult(req.ID, fmt.Sprintf("compacted %d messages down to %d", len(existing), len(newMessages)))
}

// BuildCompactedMessages rewrites existing per the compaction wire
// format (SPEC_FULL §6): the oldest messages beyond
// compactKeepLastMessages are replaced by a single synthetic assistant
// message carrying summary, optionally followed by a user message
// carrying continuation, with the kept tail stripped of system
// reminders and thinking parts. Exported so a user/UI-initiated
// compact (the Chat's compact-thread routing, SPEC_FULL §4.G) can
// reuse the exact same rewrite the model-invoked compact tool performs.
func BuildCompactedMessages(existing []message.Message, summary, continuation string) []message.Message {
	kept := compactKeepLastMessages
	if kept > len(existing) {
		kept = len(existing)
	}
	tail := stripCompactedArtifacts(existing[len(existing)-kept:])

	newMessages := make([]message.Message, 0, 2+len(tail))
	newMessages = append(newMessages, message.Message{
		ID:    ids.NewMessageId(),
		Role:  message.RoleAssistant,
		Parts: []message.Part{message.Text{Content: summary}},
	})
	if continuation != "" {
		newMessages = append(newMessages, message.Message{
			ID:    ids.NewMessageId(),
			Role:  message.RoleUser,
			Parts: []message.Part{message.Text{Content: continuation}},
		})
	}
	newMessages = append(newMessages, tail...)
	return newMessages
}

// stripCompactedArtifacts removes the parts the wire format excludes
// from a rewritten range: system-reminder nudges from user messages
// (they referred to a context snapshot that no longer exists) and
// chain-of-thought from assistant messages (replay-only, not needed
// once the turn that produced it is summarized away).
func stripCompactedArtifacts(messages []message.Message) []message.Message {
	out := make([]message.Message, len(messages))
	for i, m := range messages {
		parts := make([]message.Part, 0, len(m.Parts))
		for _, p := range m.Parts {
			switch p.(type) {
			case message.SystemReminder:
				continue
			case message.Thinking:
				continue
			default:
				parts = append(parts, p)
			}
		}
		out[i] = message.Message{ID: m.ID, Role: m.Role, Parts: parts, CreatedAt: m.CreatedAt}
	}
	return out
}
