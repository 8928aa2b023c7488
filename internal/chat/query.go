package chat

import (
	"fmt"

	"github.com/nexus-editor/agentcore/internal/thread"
	"github.com/nexus-editor/agentcore/pkg/ids"
	"github.com/nexus-editor/agentcore/pkg/message"
)

func threadMessageParts(prompt string) []message.Part {
	if prompt == "" {
		return nil
	}
	return []message.Part{message.Text{Content: prompt}}
}

// ResultStatus is the status half of getThreadResult's {status, result?}
// shape (SPEC_FULL §4.G).
type ResultStatus string

const (
	ResultPending ResultStatus = "pending"
	ResultDone    ResultStatus = "done"
)

// ThreadResult is what a parent tool (wait_for_subagents, a blocking
// spawn_subagent) polls for.
type ThreadResult struct {
	Status ResultStatus
	Result string
	Err    error
}

// GetThreadResult reports whether id has reached a terminal state and,
// if so, its result.
func (c *Chat) GetThreadResult(id ids.ThreadId) ThreadResult {
	w, ok := c.wrapper(id)
	if !ok {
		return ThreadResult{Status: ResultDone, Err: errUnknownThread(id)}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.terminal {
		return ThreadResult{Status: ResultPending}
	}
	return ThreadResult{Status: ResultDone, Result: w.status.Result, Err: w.status.Err}
}

// SummaryStatus enumerates getThreadSummary's status values
// (SPEC_FULL §4.G): a thread id the Chat has never seen is "missing";
// one still under construction is "pending"; everything else reflects
// the underlying Thread.Status.
type SummaryStatus string

const (
	SummaryMissing SummaryStatus = "missing"
	SummaryPending SummaryStatus = "pending"
	SummaryRunning SummaryStatus = "running"
	SummaryStopped SummaryStatus = "stopped"
	SummaryYielded SummaryStatus = "yielded"
	SummaryError   SummaryStatus = "error"
)

// ThreadSummary is the Chat's answer to getThreadSummary: a title (if
// one was ever set via thread_title) and a status carrying whatever
// detail that status implies — current activity while running, the
// stop reason once stopped, the response once yielded, the message
// once errored.
type ThreadSummary struct {
	Title  string
	Status SummaryStatus
	Detail string
}

// GetThreadSummary reports id's current display summary.
func (c *Chat) GetThreadSummary(id ids.ThreadId) ThreadSummary {
	w, ok := c.wrapper(id)
	if !ok {
		return ThreadSummary{Status: SummaryMissing}
	}
	w.mu.Lock()
	title := w.title
	state := w.state
	t := w.thread
	buildErr := w.err
	w.mu.Unlock()

	if state == StateError {
		msg := ""
		if buildErr != nil {
			msg = buildErr.Error()
		}
		return ThreadSummary{Title: title, Status: SummaryError, Detail: msg}
	}
	if state == StatePending || t == nil {
		return ThreadSummary{Title: title, Status: SummaryPending}
	}

	switch t.Status() {
	case thread.StatusIdle, thread.StatusAwaitingStream, thread.StatusStreaming, thread.StatusToolWait:
		return ThreadSummary{Title: title, Status: SummaryRunning, Detail: t.Status().String()}
	case thread.StatusStopped:
		result, err := t.Result()
		if err != nil {
			return ThreadSummary{Title: title, Status: SummaryStopped, Detail: err.Error()}
		}
		return ThreadSummary{Title: title, Status: SummaryStopped, Detail: result}
	case thread.StatusYielded:
		result, _ := t.Result()
		return ThreadSummary{Title: title, Status: SummaryYielded, Detail: result}
	case thread.StatusErrored:
		_, err := t.Result()
		msg := ""
		if err != nil {
			msg = err.Error()
		}
		return ThreadSummary{Title: title, Status: SummaryError, Detail: msg}
	default:
		return ThreadSummary{Title: title, Status: SummaryRunning}
	}
}

// ThreadOverviewEntry pairs a thread id with its current summary, in
// the Chat's creation order.
type ThreadOverviewEntry struct {
	ID      ids.ThreadId
	Summary ThreadSummary
}

// ThreadsOverview implements threads-overview: every thread the Chat
// has ever created, in creation order, with its current summary.
func (c *Chat) ThreadsOverview() []ThreadOverviewEntry {
	c.mu.Lock()
	order := append([]ids.ThreadId(nil), c.order...)
	c.mu.Unlock()

	out := make([]ThreadOverviewEntry, 0, len(order))
	for _, id := range order {
		out = append(out, ThreadOverviewEntry{ID: id, Summary: c.GetThreadSummary(id)})
	}
	return out
}

// RouteThreadMsg implements thread-msg{id,…} routing: delivers msg to
// the thread owning id, or reports an error if that thread doesn't
// exist or hasn't finished constructing yet.
func (c *Chat) RouteThreadMsg(id ids.ThreadId, msg thread.ThreadMsg) error {
	w, ok := c.wrapper(id)
	if !ok {
		return errUnknownThread(id)
	}
	w.mu.Lock()
	t := w.thread
	state := w.state
	w.mu.Unlock()
	if state != StateInitialized || t == nil {
		return fmt.Errorf("chat: thread %s is not yet initialized", id)
	}
	t.Update(msg)
	return nil
}

// CompactThread implements compact-thread: a UI/user-initiated
// compaction (as opposed to the model calling the compact tool
// mid-turn), applying the exact same rewrite thread.BuildCompactedMessages
// performs for the tool.
func (c *Chat) CompactThread(id ids.ThreadId, summary, continuation string) error {
	w, ok := c.wrapper(id)
	if !ok {
		return errUnknownThread(id)
	}
	w.mu.Lock()
	t := w.thread
	state := w.state
	w.mu.Unlock()
	if state != StateInitialized || t == nil {
		return fmt.Errorf("chat: thread %s is not yet initialized", id)
	}
	t.ApplyCompaction(thread.BuildCompactedMessages(t.Messages(), summary, continuation))
	return nil
}

// SelectThread implements select-thread: it only validates that id
// exists (what the caller actually switches display to is root-
// dispatcher model state, outside the Chat's concern per SPEC_FULL
// §4.H/§4.G's division of labor).
func (c *Chat) SelectThread(id ids.ThreadId) error {
	if _, ok := c.wrapper(id); !ok {
		return errUnknownThread(id)
	}
	return nil
}

// YieldToParent implements yield-to-parent as a Chat-initiated action
// (distinct from the yield_to_parent tool call the model itself makes,
// which is wired through handleYield) — e.g. the UI force-yielding a
// runaway subagent.
func (c *Chat) YieldToParent(id ids.ThreadId, result string) error {
	w, ok := c.wrapper(id)
	if !ok {
		return errUnknownThread(id)
	}
	w.mu.Lock()
	t := w.thread
	w.mu.Unlock()
	if t == nil {
		return fmt.Errorf("chat: thread %s is not yet initialized", id)
	}
	t.Yield(result)
	return nil
}

// SpawnSubagentThread implements spawn-subagent-thread: a UI/user-
// initiated spawn with no parent tool call to report back to (parent
// and spawnRequestID are both zero value), as opposed to the
// spawn_subagent/spawn_foreach tools which always have one.
func (c *Chat) SpawnSubagentThread(kind thread.Kind, prompt string) ids.ThreadId {
	return c.CreateThreadWithContext(kind, nil, threadMessageParts(prompt))
}
