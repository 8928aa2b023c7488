// Package rootdispatch implements the root dispatcher: the single
// goroutine that drains one buffered channel of RootMsg and ties the
// Chat (and through it every Thread and its ToolManager) to the view
// engine's render scheduler (SPEC_FULL §4.H). Nothing outside this
// package ever mutates model state directly — every source of change
// (a key press, a provider stream event already folded into a Thread,
// a tool completing) reaches the model by sending a RootMsg here.
package rootdispatch

import (
	"fmt"
	"log/slog"

	"github.com/nexus-editor/agentcore/internal/chat"
	"github.com/nexus-editor/agentcore/internal/thread"
	"github.com/nexus-editor/agentcore/pkg/ids"
	"github.com/nexus-editor/agentcore/pkg/message"
	"github.com/nexus-editor/agentcore/pkg/vdom"
)

// RootMsg is the tagged union the dispatcher's single goroutine
// accepts, per the inbound shape in SPEC_FULL §6.
type RootMsg interface{ rootMsg() }

// NewThread implements ChatMsg.NewThread: create a root (parent-less)
// thread of kind, with prompt as its first user message.
type NewThread struct {
	Kind   thread.Kind
	Prompt string
}

func (NewThread) rootMsg() {}

// SelectThread implements ChatMsg.SelectThread.
type SelectThread struct{ ID ids.ThreadId }

func (SelectThread) rootMsg() {}

// ThreadsOverview implements ChatMsg.ThreadsOverview: a pure
// render-trigger, since the view reads chat.ThreadsOverview() directly
// at render time rather than the dispatcher caching a copy in model
// state.
type ThreadsOverview struct{}

func (ThreadsOverview) rootMsg() {}

// CompactThread implements ChatMsg.CompactThread.
type CompactThread struct {
	ID           ids.ThreadId
	Summary      string
	Continuation string
}

func (CompactThread) rootMsg() {}

// SpawnSubagentThread implements ChatMsg.SpawnSubagentThread: a
// UI-initiated spawn (no parent tool call waiting on the result),
// distinct from the spawn_subagent/spawn_foreach tools.
type SpawnSubagentThread struct {
	Kind   thread.Kind
	Prompt string
}

func (SpawnSubagentThread) rootMsg() {}

// YieldToParent implements ChatMsg.YieldToParent: a UI-forced yield,
// distinct from the model calling the yield_to_parent tool.
type YieldToParent struct {
	ID     ids.ThreadId
	Result string
}

func (YieldToParent) rootMsg() {}

// ThreadInitialized implements ChatMsg.ThreadInitialized: fed back by
// the dispatcher itself once CreateThreadWithContext returns an id, so
// anything observing the RootMsg stream (logging, a test harness) sees
// thread creation as a message like any other state change.
type ThreadInitialized struct{ ID ids.ThreadId }

func (ThreadInitialized) rootMsg() {}

// ThreadError implements ChatMsg.ThreadError: a handler failure
// downgraded to a message instead of a panic, per §4.H's "errors in
// handlers are logged and downgraded to an error VDOM".
type ThreadError struct {
	ID  ids.ThreadId
	Err error
}

func (ThreadError) rootMsg() {}

// ThreadMsg implements the ThreadMsg{id, msg} envelope: routes msg to
// the thread owning ID via Chat.RouteThreadMsg. Only the externally
// constructible thread.ThreadMsg variants (SendUserMessage, AbortMsg)
// ever arrive this way — tool progress and stream events re-enter a
// Thread's own Update from closures the Thread captures internally at
// tool-start/stream-open time, never through the root dispatcher.
type ThreadMsg struct {
	ID  ids.ThreadId
	Msg thread.ThreadMsg
}

func (ThreadMsg) rootMsg() {}

// KeyMsg implements KeyMsg{key}: a raw keypress from the editor,
// forwarded to whatever OnKey handler the App shell registered (the
// view engine's binding lookup, SPEC_FULL §4.B).
type KeyMsg struct{ Key string }

func (KeyMsg) rootMsg() {}

// Tick implements Tick{}: a pure re-render trigger (the bash tool's
// 1Hz output-streaming timer) that mutates nothing itself.
type Tick struct{}

func (Tick) rootMsg() {}

// Config wires a Dispatcher to the Chat it drives and the render pass
// it triggers after every handled message.
type Config struct {
	Chat *chat.Chat
	// Render performs one full view-engine render pass. Required;
	// handle is a no-op render trigger if nil (useful in tests that
	// only care about Chat-side effects).
	Render func() error
	// IsBufferValid and OnRenderError are forwarded to the underlying
	// vdom.Scheduler verbatim (SPEC_FULL §4.B's render-scheduler
	// contract).
	IsBufferValid func() bool
	OnRenderError func(error)
	// OnKey handles a KeyMsg; normally the App shell's view-engine
	// binding lookup.
	OnKey func(key string)
	// OnThreadInitialized fires whenever NewThread/SpawnSubagentThread
	// mints a new thread id, after the ThreadInitialized message has
	// already been enqueued. The App shell uses this to learn its root
	// thread's id without reaching into the RootMsg stream itself.
	OnThreadInitialized func(ids.ThreadId)
	// QueueSize bounds the RootMsg channel. Defaults to 256.
	QueueSize int
	Logger    *slog.Logger
}

// Dispatcher owns the single goroutine described by SPEC_FULL §4.H/§5:
// every RootMsg is applied in the order it was sent, each handler
// mutates the model in place, and exactly one coalesced render is
// requested afterward via the shared vdom.Scheduler.
type Dispatcher struct {
	chat                *chat.Chat
	scheduler           *vdom.Scheduler
	render              func() error
	onKey               func(key string)
	onThreadInitialized func(ids.ThreadId)
	queue               chan RootMsg
	stop                chan struct{}
	logger              *slog.Logger
}

// New constructs a Dispatcher. Call Run to start draining its queue.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Dispatcher{
		chat:                cfg.Chat,
		scheduler:           vdom.NewScheduler(cfg.IsBufferValid, cfg.OnRenderError),
		render:              cfg.Render,
		onKey:               cfg.OnKey,
		onThreadInitialized: cfg.OnThreadInitialized,
		queue:               make(chan RootMsg, queueSize),
		stop:                make(chan struct{}),
		logger:              logger,
	}
}

// Run starts the dispatcher's single goroutine. Safe to call once per
// Dispatcher.
func (d *Dispatcher) Run() {
	go d.loop()
}

// Stop ends the dispatcher's goroutine. Further Dispatch calls are
// silently dropped once the queue fills, per Dispatch's own
// backpressure handling.
func (d *Dispatcher) Stop() {
	close(d.stop)
}

func (d *Dispatcher) loop() {
	for {
		select {
		case msg := <-d.queue:
			d.handle(msg)
		case <-d.stop:
			return
		}
	}
}

// Dispatch enqueues msg for the dispatcher's goroutine. Safe to call
// from any goroutine — a provider stream reader, a tool's async
// effect, the editor's key-press callback. A full queue drops the
// message with a Warn log rather than blocking the caller, since
// blocking a tool's effect goroutine on dispatcher backpressure would
// itself become a deadlock risk under the "no dispatch-in-dispatch"
// rule.
func (d *Dispatcher) Dispatch(msg RootMsg) {
	select {
	case d.queue <- msg:
	default:
		d.logger.Warn("root dispatcher queue full, dropping message", "msg_type", fmt.Sprintf("%T", msg))
	}
}

func (d *Dispatcher) handle(msg RootMsg) {
	switch m := msg.(type) {
	case NewThread:
		id := d.chat.CreateThreadWithContext(m.Kind, nil, promptParts(m.Prompt))
		d.Dispatch(ThreadInitialized{ID: id})
		if d.onThreadInitialized != nil {
			d.onThreadInitialized(id)
		}
	case SelectThread:
		if err := d.chat.SelectThread(m.ID); err != nil {
			d.Dispatch(ThreadError{ID: m.ID, Err: err})
		}
	case ThreadsOverview:
		// No model mutation; the view reads chat.ThreadsOverview() at
		// render time below.
	case CompactThread:
		if err := d.chat.CompactThread(m.ID, m.Summary, m.Continuation); err != nil {
			d.Dispatch(ThreadError{ID: m.ID, Err: err})
		}
	case SpawnSubagentThread:
		id := d.chat.SpawnSubagentThread(m.Kind, m.Prompt)
		d.Dispatch(ThreadInitialized{ID: id})
		if d.onThreadInitialized != nil {
			d.onThreadInitialized(id)
		}
	case YieldToParent:
		if err := d.chat.YieldToParent(m.ID, m.Result); err != nil {
			d.Dispatch(ThreadError{ID: m.ID, Err: err})
		}
	case ThreadInitialized:
		d.logger.Info("thread initialized", "thread_id", string(m.ID))
	case ThreadError:
		d.logger.Warn("root dispatcher handler error", "thread_id", string(m.ID), "error", m.Err)
	case ThreadMsg:
		if err := d.chat.RouteThreadMsg(m.ID, m.Msg); err != nil {
			d.Dispatch(ThreadError{ID: m.ID, Err: err})
		}
	case KeyMsg:
		if d.onKey != nil {
			d.onKey(m.Key)
		}
	case Tick:
		// Pure re-render trigger.
	default:
		d.logger.Error("root dispatcher received unhandled message type", "type", fmt.Sprintf("%T", msg))
	}
	d.requestRender()
}

func (d *Dispatcher) requestRender() {
	if d.render == nil {
		return
	}
	d.scheduler.RequestRender(d.render)
}

func promptParts(prompt string) []message.Part {
	if prompt == "" {
		return nil
	}
	return []message.Part{message.Text{Content: prompt}}
}
