package chat

import (
	"strings"

	"github.com/nexus-editor/agentcore/internal/thread"
	"github.com/nexus-editor/agentcore/internal/tools/subagent"
	"github.com/nexus-editor/agentcore/pkg/ids"
	"github.com/nexus-editor/agentcore/pkg/message"
)

// Chat implements subagent.ThreadSpawner: it is the only thing allowed
// to create or look up a Thread, which is why the subagent package's
// tools depend only on this interface rather than on *thread.Thread or
// *Chat directly.
var _ subagent.ThreadSpawner = (*Chat)(nil)

// SpawnChild creates a child thread of threadType under parentID and
// enqueues prompt as its first user message. contextFiles are recorded
// as a system reminder rather than pre-read into context directly —
// the child's own get_file calls are what actually populates its
// context manager, keeping that side effect on the thread that will
// account for it in its own token-budget tracking.
func (c *Chat) SpawnChild(parentID ids.ThreadId, spawnRequestID ids.ToolRequestId, threadType subagent.ThreadType, prompt string, contextFiles []string) ids.ThreadId {
	parent := &thread.ParentLink{ThreadID: parentID, SpawnRequestID: spawnRequestID}
	parts := []message.Part{message.Text{Content: prompt}}
	if len(contextFiles) > 0 {
		parts = append(parts, message.SystemReminder{
			Content: "Relevant files for this task: " + strings.Join(contextFiles, ", "),
		})
	}
	return c.CreateThreadWithContext(thread.Kind(threadType), parent, parts)
}

// Status reports threadID's current status as observed from its
// parent's side. A thread the Chat has never heard of reports Done
// with an error rather than panicking — a defensive boundary against a
// stale or forged thread id reaching a tool.
func (c *Chat) Status(threadID ids.ThreadId) subagent.ChildStatus {
	w, ok := c.wrapper(threadID)
	if !ok {
		return subagent.ChildStatus{ThreadID: threadID, Done: true, Err: errUnknownThread(threadID)}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.terminal {
		return w.status
	}
	return subagent.ChildStatus{ThreadID: threadID, Done: false}
}

// Notify registers onTerminal to fire the next time threadID reaches a
// terminal state, firing immediately (before Notify returns) if it
// already has.
func (c *Chat) Notify(threadID ids.ThreadId, onTerminal func(subagent.ChildStatus)) {
	w, ok := c.wrapper(threadID)
	if !ok {
		onTerminal(subagent.ChildStatus{ThreadID: threadID, Done: true, Err: errUnknownThread(threadID)})
		return
	}
	w.mu.Lock()
	if w.terminal {
		status := w.status
		w.mu.Unlock()
		onTerminal(status)
		return
	}
	w.notifyQueue = append(w.notifyQueue, onTerminal)
	w.mu.Unlock()
}

func errUnknownThread(id ids.ThreadId) error {
	return &unknownThreadError{id: id}
}

type unknownThreadError struct{ id ids.ThreadId }

func (e *unknownThreadError) Error() string { return "chat: unknown thread " + string(e.id) }
