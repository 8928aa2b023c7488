package thread

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tokenwindow "github.com/nexus-editor/agentcore/internal/context"
	"github.com/nexus-editor/agentcore/internal/toolcore"
	"github.com/nexus-editor/agentcore/internal/tools/subagent"
	"github.com/nexus-editor/agentcore/pkg/ids"
	"github.com/nexus-editor/agentcore/pkg/message"
)

// Status is the thread's position in the state machine described in
// SPEC_FULL §4.F.
type Status int

const (
	StatusIdle Status = iota
	StatusAwaitingStream
	StatusStreaming
	StatusToolWait
	StatusStopped
	StatusYielded
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusAwaitingStream:
		return "awaiting-stream"
	case StatusStreaming:
		return "streaming"
	case StatusToolWait:
		return "tool-wait"
	case StatusStopped:
		return "stopped"
	case StatusYielded:
		return "yielded"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Kind spans every value Thread.type may take, including "root" — a
// value subagent.ThreadType never carries since that package only knows
// about child-thread variants.
type Kind string

const (
	KindRoot            Kind = "root"
	KindSubagentDefault Kind = Kind(subagent.ThreadDefault)
	KindSubagentFast    Kind = Kind(subagent.ThreadFast)
	KindSubagentExplore Kind = Kind(subagent.ThreadExplore)
)

// IsSubagent reports whether k is any of the subagent variants.
func (k Kind) IsSubagent() bool { return k != KindRoot }

// ParentLink identifies the thread (and the spawn_subagent call within
// it) that created a subagent thread.
type ParentLink struct {
	ThreadID       ids.ThreadId
	SpawnRequestID ids.ToolRequestId
}

// Profile is the provider/model selection a thread was created with.
type Profile struct {
	Provider            string
	Model               string
	MaxTokens           int
	ContextWindowTokens int // overrides the model's known window when set
}

// Terminal is delivered to OnTerminal exactly once, when a thread
// reaches a status it cannot leave.
type Terminal struct {
	Status Status
	Result string
	Err    error
}

// Config constructs a Thread. Registry and ToolContext are per-thread:
// the Chat builds a fresh registry for every thread so tools like
// yield_to_parent can be bound to that specific thread's callback.
type Config struct {
	ID                       ids.ThreadId
	Kind                     Kind
	Profile                  Profile
	Provider                 StreamingProvider
	Registry                 *toolcore.Registry
	ToolContext              toolcore.ToolContext
	SystemPrompt             string
	ToolSpecs                []ToolSpec
	Parent                   *ParentLink
	OnRender                 func()
	OnTerminal               func(Terminal)
	CompactThresholdPercent  int // default DefaultCompactThresholdPercent
	MaxTurns                 int // default defaultMaxTurns; guards against a runaway tool_use loop
	Logger                   *slog.Logger
}

const defaultMaxTurns = 50

// Thread is the per-conversation state machine: one goroutine-safe
// value per Thread, driven by Update from however many goroutines
// report progress (the provider's stream-feeding goroutine, and every
// tool executor's async effect).
type Thread struct {
	mu sync.Mutex

	id      ids.ThreadId
	kind    Kind
	profile Profile
	parent  *ParentLink

	provider     StreamingProvider
	toolManager  *ToolManager
	ctxWindow    *tokenwindow.Window
	systemPrompt string
	toolSpecs    []ToolSpec

	status Status
	result string
	terminalErr error
	terminalFired bool

	title string

	messages []message.Message

	streamingParts   []message.Part
	pendingToolResults map[ids.ToolRequestId]message.ToolResult
	toolResultOrder    []ids.ToolRequestId
	liveTools          map[ids.ToolRequestId]struct{}
	assembling         map[int]*partBuilder
	lastStopReason     StopReason
	abortCancel        context.CancelFunc

	compactThresholdPercent int
	compactionNudged        bool
	queuedReminder          string

	turnCount int
	maxTurns  int

	onRender   func()
	onTerminal func(Terminal)

	logger *slog.Logger

	toolMeta map[ids.ToolRequestId]toolCallMeta
}

// toolCallMeta is the bookkeeping kept per live tool call purely for
// observability: the name metrics and log lines key on, and the start
// time the duration histogram is computed from.
type toolCallMeta struct {
	name  string
	start time.Time
}

type partBuilder struct {
	kind        BlockKind
	text        string
	thinking    string
	partialJSON string
	toolUseID   ids.ToolRequestId
	toolName    string
}

// New constructs a Thread in the idle state.
func New(cfg Config) *Thread {
	threshold := cfg.CompactThresholdPercent
	if threshold <= 0 {
		threshold = DefaultCompactThresholdPercent
	}
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	var win *tokenwindow.Window
	if cfg.Profile.ContextWindowTokens > 0 {
		win = tokenwindow.NewWindow(cfg.Profile.ContextWindowTokens, "profile")
	} else {
		win = tokenwindow.NewWindowForModel(cfg.Profile.Model)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tc := cfg.ToolContext
	if tc.Logger == nil {
		tc.Logger = logger
	}
	return &Thread{
		id:                      cfg.ID,
		kind:                    cfg.Kind,
		profile:                 cfg.Profile,
		parent:                  cfg.Parent,
		provider:                cfg.Provider,
		toolManager:             NewToolManager(cfg.Registry, tc),
		ctxWindow:               win,
		systemPrompt:            cfg.SystemPrompt,
		toolSpecs:               cfg.ToolSpecs,
		status:                  StatusIdle,
		pendingToolResults:      make(map[ids.ToolRequestId]message.ToolResult),
		liveTools:               make(map[ids.ToolRequestId]struct{}),
		assembling:              make(map[int]*partBuilder),
		compactThresholdPercent: threshold,
		maxTurns:                maxTurns,
		onRender:                cfg.OnRender,
		onTerminal:              cfg.OnTerminal,
		logger:                  logger,
		toolMeta:                make(map[ids.ToolRequestId]toolCallMeta),
	}
}

// ID returns the thread's identifier.
func (t *Thread) ID() ids.ThreadId { return t.id }

// Kind returns the thread's type.
func (t *Thread) Kind() Kind { return t.kind }

// Parent returns the spawning thread/request, or nil for a root thread.
func (t *Thread) Parent() *ParentLink { return t.parent }

// Status returns the thread's current state.
func (t *Thread) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Result returns the thread's terminal result text (set on yielded or
// stopped) and any terminal error.
func (t *Thread) Result() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result, t.terminalErr
}

// Messages returns a copy of the thread's persisted message log.
func (t *Thread) Messages() []message.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]message.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Title returns the thread's display title, empty until thread_title
// sets one.
func (t *Thread) Title() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.title
}

// SetTitle records a new display title. Bound as the callback the Chat
// passes to NewThreadTitleTool when building this thread's registry.
func (t *Thread) SetTitle(title string) {
	t.mu.Lock()
	t.title = title
	t.mu.Unlock()
	if t.onRender != nil {
		t.onRender()
	}
}

// ThreadMsg is the tagged union Thread.Update accepts.
type ThreadMsg interface{ threadMsg() }

// SendUserMessage appends a user message and, if the thread is idle,
// opens a new provider turn.
type SendUserMessage struct{ Parts []message.Part }

func (SendUserMessage) threadMsg() {}

type streamEventMsg struct{ Event StreamEvent }

func (streamEventMsg) threadMsg() {}

type streamClosedMsg struct{}

func (streamClosedMsg) threadMsg() {}

type toolMsgEnvelope struct {
	RequestID ids.ToolRequestId
	Msg       toolcore.ToolMsg
}

func (toolMsgEnvelope) threadMsg() {}

// AbortMsg cancels the in-flight stream (if any), aborts every
// non-terminal tool, and transitions the thread to stopped.
type AbortMsg struct{}

func (AbortMsg) threadMsg() {}

// SendMessage appends parts as a user message and, if idle, begins a
// new turn.
func (t *Thread) SendMessage(parts []message.Part) {
	t.Update(SendUserMessage{Parts: parts})
}

// Abort requests the thread stop whatever it is doing.
func (t *Thread) Abort() {
	t.Update(AbortMsg{})
}

// Yield finalizes a subagent thread: every live tool is aborted and the
// thread transitions to yielded carrying result. It is meaningless (and
// a no-op) on a root thread or an already-terminal thread. Chat wires
// this as the yield_to_parent tool's callback, dispatched via `go` so a
// sync tool's immediate callback never re-enters Update from inside its
// own call stack.
func (t *Thread) Yield(result string) {
	t.mu.Lock()
	if t.isTerminalLocked() {
		t.mu.Unlock()
		return
	}
	t.toolManager.AbortAll()
	t.status = StatusYielded
	t.result = result
	render := t.onRender
	cb, term, fire := t.takeTerminalLocked()
	t.mu.Unlock()
	if render != nil {
		render()
	}
	if fire {
		cb(term)
	}
}

// Update processes one message under the thread's lock. It is safe to
// call from any goroutine: the provider's stream-feeding goroutine and
// every tool executor's dispatch closure all funnel through here.
func (t *Thread) Update(msg ThreadMsg) {
	t.mu.Lock()
	switch m := msg.(type) {
	case SendUserMessage:
		t.handleSendUserMessage(m.Parts)
	case streamEventMsg:
		t.handleStreamEvent(m.Event)
	case streamClosedMsg:
		t.handleStreamClosed()
	case toolMsgEnvelope:
		t.handleToolMsg(m.RequestID, m.Msg)
	case AbortMsg:
		t.handleAbort()
	}
	render := t.onRender
	cb, term, fire := t.takeTerminalLocked()
	t.mu.Unlock()

	if render != nil {
		render()
	}
	if fire {
		cb(term)
	}
}

func (t *Thread) isTerminalLocked() bool {
	switch t.status {
	case StatusStopped, StatusYielded, StatusErrored:
		return true
	}
	return false
}

func (t *Thread) takeTerminalLocked() (func(Terminal), Terminal, bool) {
	if t.terminalFired || !t.isTerminalLocked() {
		return nil, Terminal{}, false
	}
	t.terminalFired = true
	threadTerminalTotal.WithLabelValues(string(t.kind), t.status.String()).Inc()
	return t.onTerminal, Terminal{Status: t.status, Result: t.result, Err: t.terminalErr}, t.onTerminal != nil
}

func (t *Thread) handleSendUserMessage(parts []message.Part) {
	if t.status != StatusIdle {
		return
	}
	full := append(append([]message.Part{}, parts...), t.pendingReminders()...)
	t.messages = append(t.messages, message.Message{
		ID:        ids.NewMessageId(),
		Role:      message.RoleUser,
		Parts:     full,
		CreatedAt: time.Now(),
	})
	t.beginTurn()
}

func (t *Thread) beginTurn() {
	t.turnCount++
	threadTurnsTotal.WithLabelValues(string(t.kind)).Inc()
	if t.turnCount > t.maxTurns {
		t.status = StatusErrored
		t.terminalErr = fmt.Errorf("%w: exceeded %d turns in a single send", toolcore.ErrInternalInvariant, t.maxTurns)
		toolcore.RecordInvariantViolation()
		t.logger.Error("thread exceeded max turns", "thread_id", string(t.id), "kind", string(t.kind), "max_turns", t.maxTurns)
		return
	}

	t.status = StatusAwaitingStream
	t.streamingParts = nil
	t.assembling = make(map[int]*partBuilder)

	req := Request{
		Model:     t.profile.Model,
		System:    t.systemPrompt,
		Messages:  toRequestMessages(t.messages),
		Tools:     t.toolSpecs,
		MaxTokens: t.profile.MaxTokens,
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.abortCancel = cancel

	events, err := t.provider.OpenStream(ctx, req)
	if err != nil {
		cancel()
		t.status = StatusErrored
		t.terminalErr = fmt.Errorf("%w: %v", toolcore.ErrProvider, err)
		t.logger.Warn("provider stream failed to open", "thread_id", string(t.id), "error", err)
		return
	}

	t.status = StatusStreaming
	go func() {
		for ev := range events {
			t.Update(streamEventMsg{Event: ev})
		}
		t.Update(streamClosedMsg{})
	}()
}

func toRequestMessages(messages []message.Message) []RequestMessage {
	out := make([]RequestMessage, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Role == message.RoleAssistant {
			role = "assistant"
		}
		parts := make([]RequestPart, 0, len(m.Parts))
		for _, p := range m.Parts {
			switch v := p.(type) {
			case message.Text:
				parts = append(parts, RequestPart{Text: v.Content})
			case message.Thinking:
				parts = append(parts, RequestPart{Thinking: v.Content})
			case message.ToolUse:
				parts = append(parts, RequestPart{ToolUseID: string(v.RequestID), ToolName: v.ToolName, ToolInput: v.Input})
			case message.ToolResult:
				rp := RequestPart{ToolUseID: string(v.RequestID)}
				if v.Err != nil {
					rp.ToolResultErr = v.Err.Error()
				} else {
					rp.ToolResultText = v.Payload
				}
				parts = append(parts, rp)
			case message.SystemReminder:
				parts = append(parts, RequestPart{SystemReminder: v.Content})
			}
		}
		out = append(out, RequestMessage{Role: role, Parts: parts})
	}
	return out
}

func (t *Thread) handleStreamEvent(ev StreamEvent) {
	if t.status != StatusStreaming {
		return
	}
	switch {
	case ev.BlockStart != nil:
		b := ev.BlockStart
		t.assembling[b.Index] = &partBuilder{kind: b.Kind, toolUseID: ids.ToolRequestId(b.ToolUseID), toolName: b.ToolName}
	case ev.Delta != nil:
		d := ev.Delta
		pb := t.assembling[d.Index]
		if pb == nil {
			return
		}
		pb.text += d.Text
		pb.thinking += d.Thinking
		pb.partialJSON += d.PartialJSON
	case ev.BlockStop != nil:
		pb := t.assembling[*ev.BlockStop]
		if pb == nil {
			return
		}
		t.finalizeBlock(pb)
		delete(t.assembling, *ev.BlockStop)
	case ev.MessageDelta != nil:
		t.lastStopReason = ev.MessageDelta.StopReason
	case ev.MessageStop:
		t.handleMessageStop()
	}
}

func (t *Thread) finalizeBlock(pb *partBuilder) {
	switch pb.kind {
	case BlockText:
		if pb.text != "" {
			t.streamingParts = append(t.streamingParts, message.Text{Content: pb.text})
		}
	case BlockThinking:
		if pb.thinking != "" {
			t.streamingParts = append(t.streamingParts, message.Thinking{Content: pb.thinking})
		}
	case BlockToolUse:
		input := []byte(pb.partialJSON)
		if len(input) == 0 {
			input = []byte("{}")
		}
		t.streamingParts = append(t.streamingParts, message.ToolUse{RequestID: pb.toolUseID, ToolName: pb.toolName, Input: input})

		var probe any
		if err := json.Unmarshal(input, &probe); err != nil {
			t.recordToolResult(pb.toolUseID, message.ToolResult{
				RequestID: pb.toolUseID,
				Err:       fmt.Errorf("%w: tool input did not finish as valid JSON: %v", toolcore.ErrUserInput, err),
			})
			return
		}
		t.startTool(pb.toolUseID, pb.toolName, input)
	}
}

func (t *Thread) startTool(requestID ids.ToolRequestId, name string, input json.RawMessage) {
	req := toolcore.ToolRequest{ID: requestID, ThreadID: t.id, Name: name, Input: input}
	t.toolMeta[requestID] = toolCallMeta{name: name, start: time.Now()}
	exec, err := t.toolManager.Start(req, t.onToolMsg)
	if err != nil {
		t.recordToolResult(requestID, message.ToolResult{RequestID: requestID, Err: err})
		return
	}
	t.liveTools[requestID] = struct{}{}
	if exec.IsDone() {
		t.collectToolResult(requestID, exec)
	}
}

// onToolMsg is the dispatch closure handed to every tool executor this
// thread starts. It always re-enters through Update so tool progress is
// serialized with every other source of thread mutation.
func (t *Thread) onToolMsg(id ids.ToolRequestId, msg toolcore.ToolMsg) {
	t.Update(toolMsgEnvelope{RequestID: id, Msg: msg})
}

func (t *Thread) handleToolMsg(id ids.ToolRequestId, msg toolcore.ToolMsg) {
	exec, ok := t.toolManager.Get(id)
	if !ok {
		return
	}
	exec.Update(msg)
	if exec.IsDone() {
		t.collectToolResult(id, exec)
	}
}

func (t *Thread) collectToolResult(id ids.ToolRequestId, exec toolcore.Executor) {
	if _, already := t.pendingToolResults[id]; already {
		return
	}
	res := exec.GetToolResult()
	tr := message.ToolResult{RequestID: id}
	if res.IsError() {
		tr.Err = errors.New(res.Text)
	} else {
		tr.Payload = res.Text
		for _, d := range res.Documents {
			tr.Documents = append(tr.Documents, message.ResultDocument{MediaType: d.MediaType, Bytes: d.Bytes, Title: d.Title})
		}
	}
	t.recordToolResult(id, tr)
}

func (t *Thread) recordToolResult(id ids.ToolRequestId, tr message.ToolResult) {
	t.observeToolDone(id, tr)
	t.pendingToolResults[id] = tr
	t.toolResultOrder = append(t.toolResultOrder, id)
	delete(t.liveTools, id)
	if t.status == StatusToolWait {
		t.maybeAdvanceAfterTools()
	}
}

// observeToolDone is the single funnel every path that finalizes a tool
// result passes through (a live executor reaching done, a registry
// rejection before one was ever constructed, malformed tool_use JSON
// that never reached the registry): it emits the duration/count metric
// and, on error, a Warn log line carrying the tool name.
func (t *Thread) observeToolDone(id ids.ToolRequestId, tr message.ToolResult) {
	meta, ok := t.toolMeta[id]
	name := "unknown"
	var duration float64
	if ok {
		name = meta.name
		duration = time.Since(meta.start).Seconds()
	}
	toolcore.ObserveToolExecution(name, tr.Err != nil, duration)
	if tr.Err != nil {
		t.logger.Warn("tool call finished with error", "thread_id", string(t.id), "tool", name, "request_id", string(id), "error", tr.Err)
	}
	delete(t.toolMeta, id)
}

func (t *Thread) handleMessageStop() {
	if len(t.streamingParts) > 0 {
		t.messages = append(t.messages, message.Message{
			ID:        ids.NewMessageId(),
			Role:      message.RoleAssistant,
			Parts:     t.streamingParts,
			CreatedAt: time.Now(),
		})
		t.streamingParts = nil
	}

	if len(t.liveTools) > 0 {
		t.status = StatusToolWait
		return
	}
	t.advanceAfterTools()
}

func (t *Thread) maybeAdvanceAfterTools() {
	if t.status != StatusToolWait || len(t.liveTools) > 0 {
		return
	}
	t.advanceAfterTools()
}

func (t *Thread) advanceAfterTools() {
	if len(t.pendingToolResults) > 0 {
		parts := make([]message.Part, 0, len(t.toolResultOrder))
		for _, id := range t.toolResultOrder {
			if tr, ok := t.pendingToolResults[id]; ok {
				parts = append(parts, tr)
			}
		}
		t.messages = append(t.messages, message.Message{
			ID:        ids.NewMessageId(),
			Role:      message.RoleUser,
			Parts:     parts,
			CreatedAt: time.Now(),
		})
		t.pendingToolResults = make(map[ids.ToolRequestId]message.ToolResult)
		t.toolResultOrder = nil
	}

	t.checkCompactionNudge()

	switch t.lastStopReason {
	case StopEndTurn, StopMaxTokens:
		t.status = StatusIdle
	default:
		t.beginTurn()
	}
}

func (t *Thread) handleStreamClosed() {
	if t.status == StatusStreaming {
		t.status = StatusErrored
		t.terminalErr = fmt.Errorf("%w: stream closed before message_stop", toolcore.ErrProvider)
		t.logger.Warn("provider stream closed mid-turn", "thread_id", string(t.id))
	}
}

func (t *Thread) handleAbort() {
	if t.isTerminalLocked() {
		return
	}
	if t.abortCancel != nil {
		t.abortCancel()
	}
	t.toolManager.AbortAll()

	for id := range t.liveTools {
		if _, ok := t.pendingToolResults[id]; !ok {
			t.pendingToolResults[id] = message.ToolResult{RequestID: id, Err: errors.New("aborted")}
			t.toolResultOrder = append(t.toolResultOrder, id)
		}
	}
	t.liveTools = make(map[ids.ToolRequestId]struct{})

	if len(t.streamingParts) > 0 {
		t.messages = append(t.messages, message.Message{
			ID:        ids.NewMessageId(),
			Role:      message.RoleAssistant,
			Parts:     t.streamingParts,
			CreatedAt: time.Now(),
		})
		t.streamingParts = nil
	}
	if len(t.pendingToolResults) > 0 {
		parts := make([]message.Part, 0, len(t.toolResultOrder))
		for _, id := range t.toolResultOrder {
			parts = append(parts, t.pendingToolResults[id])
		}
		t.messages = append(t.messages, message.Message{
			ID:        ids.NewMessageId(),
			Role:      message.RoleUser,
			Parts:     parts,
			CreatedAt: time.Now(),
		})
		t.pendingToolResults = make(map[ids.ToolRequestId]message.ToolResult)
		t.toolResultOrder = nil
	}

	t.status = StatusStopped
	t.terminalErr = errors.New("aborted")
}
