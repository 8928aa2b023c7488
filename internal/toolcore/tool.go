// Package toolcore implements the tool executor framework: the lifecycle
// every tool shares (pending → (user-approval)? → processing → done),
// permission gating, abort/timeout semantics, and result serialization
// back to the provider. Concrete tools (internal/tools/...) implement the
// Tool interface; toolcore never knows the name of a specific tool.
package toolcore

import (
	"encoding/json"
	"log/slog"

	"github.com/nexus-editor/agentcore/pkg/ids"
	"github.com/nexus-editor/agentcore/pkg/vdom"
)

// DispatchFunc delivers a message back into the owning thread's message
// queue. Tools never call it synchronously from inside their own Update —
// the framework schedules effects on the next tick so a tool never
// dispatches a message inside the dispatch that created it.
type DispatchFunc func(ToolMsg)

// ToolRequest is the structured call emitted by the model for one
// ToolUse part.
type ToolRequest struct {
	ID       ids.ToolRequestId
	ThreadID ids.ThreadId
	Name     string
	Input    json.RawMessage
}

// ToolContext carries the ambient values an executor needs to act:
// the working directory, the approval policy in force, a per-request
// scratch directory for artifacts (logs, diff snapshots), and the
// logger it should use so its diagnostics carry the same sink as the
// rest of the thread that started it.
type ToolContext struct {
	WorkspaceRoot string
	TmpDir        string
	Approval      *ApprovalPolicy
	Logger        *slog.Logger
}

// Log returns tc.Logger, falling back to slog.Default() so a
// ToolContext built without one (a test fixture, an ad hoc call) never
// needs a nil check at the use site.
func (tc ToolContext) Log() *slog.Logger {
	if tc.Logger != nil {
		return tc.Logger
	}
	return slog.Default()
}

// ResultStatus is the terminal status carried by a ToolResult.
type ResultStatus int

const (
	StatusOK ResultStatus = iota
	StatusError
)

// ToolResult is the payload appended as a Part in the thread's next user
// message once an executor reaches done, or returned early by
// GetToolResult while still in flight.
type ToolResult struct {
	RequestID ids.ToolRequestId
	Status    ResultStatus
	Text      string
	Documents []Document
}

// Document is a binary attachment carried by a ToolResult (e.g. a PDF
// page extracted by get_file).
type Document struct {
	MediaType string
	Bytes     []byte
	Title     string
}

// IsError reports whether the result represents a failure.
func (r ToolResult) IsError() bool { return r.Status == StatusError }

// ErrorResult builds a done(error) ToolResult carrying a user-readable
// message, per the "tools never throw up the stack" propagation policy.
func ErrorResult(requestID ids.ToolRequestId, message string) ToolResult {
	return ToolResult{RequestID: requestID, Status: StatusError, Text: message}
}

// OKResult builds a successful ToolResult.
func OKResult(requestID ids.ToolRequestId, text string) ToolResult {
	return ToolResult{RequestID: requestID, Status: StatusOK, Text: text}
}

// ToolMsg is the tagged union of messages an executor's Update accepts:
// an approval decision from the user, an async effect completing, or a
// periodic tick (the bash tool's 1Hz timer).
type ToolMsg interface{ toolMsg() }

// ApprovalDecision carries the user's response to a pending-user-action
// prompt.
type ApprovalDecision struct {
	Approved bool
	Remember bool
}

func (ApprovalDecision) toolMsg() {}

// EffectCompleted carries the result of a scheduled async effect (a
// finished subprocess, a completed file write, …) back into Update.
type EffectCompleted struct {
	Payload any
	Err     error
}

func (EffectCompleted) toolMsg() {}

// Tick is delivered to tools that registered for periodic re-render
// (the bash tool's output-streaming timer).
type Tick struct{}

func (Tick) toolMsg() {}

// Abort requests the executor transition to done(error) immediately.
type Abort struct{}

func (Abort) toolMsg() {}

// Tool is the factory every concrete tool registers under its name.
type Tool interface {
	Name() string
	Description() string
	// Schema is the tool's JSON Schema for input validation, consulted by
	// the registry before New is ever called.
	Schema() json.RawMessage
	New(request ToolRequest, tc ToolContext, dispatch DispatchFunc) Executor
}

// ApprovalAware is implemented by tools whose approval requirement
// depends on the call's input rather than only its name — get_file's
// auto-allow globs and bash_command's remembered-command list both need
// to see the input before the dispatcher decides whether to prompt.
// Tools that don't implement it are gated purely by ApprovalPolicy name
// matching.
type ApprovalAware interface {
	RequiresApproval(tc ToolContext, input json.RawMessage) bool
}

// Executor is one running instance of a tool, scoped to a single
// ToolRequestId.
type Executor interface {
	IsDone() bool
	IsPendingUserAction() bool
	Update(msg ToolMsg)
	Abort() ToolResult
	GetToolResult() ToolResult
	RenderSummary() vdom.Node
	RenderPreview() vdom.Node
	RenderDetail() vdom.Node
}
