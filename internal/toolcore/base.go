package toolcore

import "sync"

// State is a tool executor's position in the shared lifecycle:
//
//	pending ──(auto-approved)──▶ processing ──▶ done
//	       └──(approval needed)▶ pending-user-action ──▶ processing ─▶ done
//	                                                 └──(denied)─▶ done(error)
type State int

const (
	StatePending State = iota
	StatePendingUserAction
	StateProcessing
	StateDone
)

// Base is embedded by every concrete Executor to get the shared
// lifecycle bookkeeping for free: state transitions, idempotent abort,
// and a GetToolResult that is safe to call in any state.
type Base struct {
	mu      sync.Mutex
	Request ToolRequest
	state   State
	result  ToolResult
	aborted bool
}

// NewBase constructs a Base in the pending state with a placeholder
// in-progress result.
func NewBase(req ToolRequest) *Base {
	return &Base{
		Request: req,
		state:   StatePending,
		result:  OKResult(req.ID, "Running…"),
	}
}

// State returns the executor's current lifecycle state.
func (b *Base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Transition moves the executor to state s, unless it is already done —
// done is terminal and further transitions are ignored (this is what
// makes Abort idempotent).
func (b *Base) Transition(s State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateDone {
		return
	}
	b.state = s
}

// Finish transitions to done and records the final result. Calling it
// again after done is a no-op, preserving the first result.
func (b *Base) Finish(result ToolResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateDone {
		return
	}
	b.state = StateDone
	b.result = result
}

// SetProgress updates the in-flight progress notice returned by
// GetToolResult while the executor is non-terminal. It has no effect once
// done.
func (b *Base) SetProgress(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateDone {
		return
	}
	b.result = OKResult(b.Request.ID, text)
}

func (b *Base) IsDone() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == StateDone
}

func (b *Base) IsPendingUserAction() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == StatePendingUserAction
}

// GetToolResult is safe to call in any state: non-terminal states return
// the last recorded progress notice with status OK.
func (b *Base) GetToolResult() ToolResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.result
}

// Abort marks the executor aborted and, if not already done, finalizes it
// with a canonical error result. Idempotent: calling it twice leaves the
// recorded error unchanged.
func (b *Base) Abort() ToolResult {
	b.mu.Lock()
	wasAborted := b.aborted
	b.aborted = true
	alreadyDone := b.state == StateDone
	b.mu.Unlock()

	if alreadyDone {
		return b.GetToolResult()
	}
	if !wasAborted {
		b.Finish(ErrorResult(b.Request.ID, "aborted"))
	}
	return b.GetToolResult()
}

// Aborted reports whether Abort has ever been called, for executors whose
// scheduled effects need to check before mutating further state.
func (b *Base) Aborted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.aborted
}
