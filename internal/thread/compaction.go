package thread

import (
	"strconv"

	tokenwindow "github.com/nexus-editor/agentcore/internal/context"
	"github.com/nexus-editor/agentcore/pkg/message"
)

// DefaultCompactThresholdPercent mirrors the teacher's
// CompactionConfig.ThresholdPercent default: nudge once usage crosses
// 80% of the active profile's context window.
const DefaultCompactThresholdPercent = 80

// estimateUsedTokens sums a conservative per-character token estimate
// across every part of every persisted message, the same heuristic
// internal/context.EstimateTokens uses for the rest of the module.
func estimateUsedTokens(messages []message.Message) int {
	total := 0
	for _, m := range messages {
		for _, p := range m.Parts {
			total += tokenwindow.EstimateTokens(partText(p))
		}
	}
	return total
}

func partText(p message.Part) string {
	switch v := p.(type) {
	case message.Text:
		return v.Content
	case message.Thinking:
		return v.Content
	case message.SystemReminder:
		return v.Content
	case message.ToolUse:
		return string(v.Input)
	case message.ToolResult:
		return v.Payload
	default:
		return ""
	}
}

// checkCompactionNudge evaluates usage against the thread's context
// window and, once the threshold is crossed, queues a SystemReminder
// nudging the model to call compact. It fires at most once per
// threshold crossing — ApplyCompaction resets the flag once the
// explicit compact tool actually runs, mirroring the teacher's
// CompactionManager state machine collapsed down to a single
// prompt-only nudge (compaction itself never happens automatically;
// see SPEC_FULL §4.F).
func (t *Thread) checkCompactionNudge() {
	if t.compactionNudged || t.ctxWindow == nil {
		return
	}
	total := t.ctxWindow.Info().TotalTokens
	if total <= 0 {
		return
	}
	used := estimateUsedTokens(t.messages)
	pct := used * 100 / total
	if pct < t.compactThresholdPercent {
		return
	}
	t.queuedReminder = "Context usage is at " + strconv.Itoa(pct) + "% of the available window. " +
		"Consider calling the compact tool to summarize older turns before continuing."
	t.compactionNudged = true
}

// pendingReminders drains any queued SystemReminder parts so they are
// attached to the next user-authored send-message call.
func (t *Thread) pendingReminders() []message.Part {
	if t.queuedReminder == "" {
		return nil
	}
	parts := []message.Part{message.SystemReminder{Content: t.queuedReminder}}
	t.queuedReminder = ""
	return parts
}

// ApplyCompaction replaces the thread's message log with a compacted
// version (built by the compact tool) and resets the nudge so the
// threshold can fire again once the freed-up budget fills back in.
func (t *Thread) ApplyCompaction(newMessages []message.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = newMessages
	t.compactionNudged = false
	t.queuedReminder = ""
}
