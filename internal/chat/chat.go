// Package chat implements the Chat: the owner of every thread in a
// session — the root thread and every subagent it (transitively)
// spawns. It is the concrete ThreadSpawner every spawn_subagent,
// spawn_foreach, wait_for_subagents, and yield_to_parent tool talks to,
// and the routing layer the root dispatcher calls into for every
// thread-scoped RootMsg (SPEC_FULL §4.G).
package chat

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/nexus-editor/agentcore/internal/thread"
	"github.com/nexus-editor/agentcore/internal/toolcore"
	"github.com/nexus-editor/agentcore/internal/tools/subagent"
	"github.com/nexus-editor/agentcore/pkg/ids"
	"github.com/nexus-editor/agentcore/pkg/message"
)

// State is a thread wrapper's own lifecycle, independent of the
// underlying Thread's Status: a thread sits "pending" for the brief
// window between the Chat minting its id and thread.New returning, so
// a message arriving in that window (vanishingly unlikely, but
// possible from a racing tool callback) has somewhere well-defined to
// be rejected rather than nil-panic.
type State int

const (
	StatePending State = iota
	StateInitialized
	StateError
)

// KindConfig resolves the provider profile, system prompt, and
// provider-facing tool declarations for one thread.Kind — what
// SPEC_FULL §4.F's send-message step 2 calls "toolSpecs(threadType,
// mcpManager)" and step 3's "system prompt derived from threadType".
type KindConfig struct {
	Profile      thread.Profile
	SystemPrompt string
	ToolSpecs    []thread.ToolSpec
}

// Config wires the Chat to everything it needs to build a Thread.
type Config struct {
	Provider    thread.StreamingProvider
	Kinds       map[thread.Kind]KindConfig
	ToolContext toolcore.ToolContext
	// SharedTools are registered on every thread's registry unmodified
	// (get_file, list_directory, bash_command, hover, …). Tools bound
	// to a specific thread (yield_to_parent, compact, thread_title,
	// spawn_*) are constructed per thread by buildRegistry instead.
	SharedTools             []toolcore.Tool
	CompactThresholdPercent int
	MaxTurns                int
	Logger                  *slog.Logger
	// OnRender is called after any render-triggering change to thread
	// id — the root dispatcher (SPEC_FULL §4.H) uses this to schedule
	// a coalesced render rather than rendering synchronously here.
	OnRender func(ids.ThreadId)
}

type threadWrapper struct {
	state  State
	thread *thread.Thread
	title  string
	err    error

	mu          sync.Mutex
	terminal    bool
	status      subagent.ChildStatus
	notifyQueue []func(subagent.ChildStatus)
}

// Chat is the owner of threadWrappers: Map<ThreadId, wrapper> described
// by SPEC_FULL §4.G, plus the monotonic counter implicit in
// ids.NewThreadId's uuid minting.
type Chat struct {
	mu      sync.Mutex
	cfg     Config
	logger  *slog.Logger
	threads map[ids.ThreadId]*threadWrapper
	order   []ids.ThreadId
}

// New constructs a Chat. cfg.Kinds must have an entry for every
// thread.Kind the caller intends to create (at minimum thread.KindRoot).
func New(cfg Config) *Chat {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Chat{
		cfg:     cfg,
		logger:  logger,
		threads: make(map[ids.ThreadId]*threadWrapper),
	}
}

// CreateThreadWithContext creates a new thread of kind, optionally
// parented, with initialParts sent as its first user message once
// construction finishes. Returns the new thread's id immediately — the
// thread itself, and its first turn, run independently of this call.
func (c *Chat) CreateThreadWithContext(kind thread.Kind, parent *thread.ParentLink, initialParts []message.Part) ids.ThreadId {
	id := ids.NewThreadId()
	w := &threadWrapper{state: StatePending}

	c.mu.Lock()
	c.threads[id] = w
	c.order = append(c.order, id)
	c.mu.Unlock()

	kindCfg, ok := c.cfg.Kinds[kind]
	if !ok {
		w.mu.Lock()
		w.state = StateError
		w.err = fmt.Errorf("chat: no KindConfig registered for thread kind %q", kind)
		w.mu.Unlock()
		return id
	}

	var t *thread.Thread
	registry := c.buildRegistry(id, kind, func() *thread.Thread { return t })

	t = thread.New(thread.Config{
		ID:                      id,
		Kind:                    kind,
		Profile:                 kindCfg.Profile,
		Provider:                c.cfg.Provider,
		Registry:                registry,
		ToolContext:             c.cfg.ToolContext,
		SystemPrompt:            kindCfg.SystemPrompt,
		ToolSpecs:               kindCfg.ToolSpecs,
		Parent:                  parent,
		OnRender:                func() { c.notifyRender(id) },
		OnTerminal:              func(term thread.Terminal) { c.onThreadTerminal(id, term) },
		CompactThresholdPercent: c.cfg.CompactThresholdPercent,
		MaxTurns:                c.cfg.MaxTurns,
		Logger:                  c.logger,
	})

	w.mu.Lock()
	w.state = StateInitialized
	w.thread = t
	w.mu.Unlock()

	if len(initialParts) > 0 {
		t.SendMessage(initialParts)
	}
	return id
}

// buildRegistry constructs the per-thread tool registry: the shared
// catalogue plus the tools bound to this specific thread (thread_title,
// compact, the three subagent-graph tools, and — only for a subagent
// thread — yield_to_parent). getThread resolves to the thread.Thread
// being constructed, not yet available when the registry is built (the
// registry must exist before thread.New can run), hence the indirection.
func (c *Chat) buildRegistry(id ids.ThreadId, kind thread.Kind, getThread func() *thread.Thread) *toolcore.Registry {
	reg := toolcore.NewRegistry()
	for _, tool := range c.cfg.SharedTools {
		reg.Register(tool)
	}
	reg.Register(subagent.NewSpawnSubagentTool(c))
	reg.Register(subagent.NewSpawnForeachTool(c))
	reg.Register(subagent.NewWaitForSubagentsTool(c))
	reg.Register(thread.NewThreadTitleTool(func(title string) { c.setTitle(id, title) }))
	reg.Register(thread.NewCompactTool(getThread))
	if kind.IsSubagent() {
		reg.Register(subagent.NewYieldToParentTool(func(req toolcore.ToolRequest, result string) {
			c.handleYield(id, result)
		}))
	}
	return reg
}

func (c *Chat) wrapper(id ids.ThreadId) (*threadWrapper, bool) {
	c.mu.Lock()
	w, ok := c.threads[id]
	c.mu.Unlock()
	return w, ok
}

func (c *Chat) setTitle(id ids.ThreadId, title string) {
	w, ok := c.wrapper(id)
	if !ok {
		return
	}
	w.mu.Lock()
	w.title = title
	w.mu.Unlock()
	c.notifyRender(id)
}

func (c *Chat) notifyRender(id ids.ThreadId) {
	if c.cfg.OnRender != nil {
		c.cfg.OnRender(id)
	}
}

// handleYield is yield_to_parent's callback: it finalizes the child
// thread. Dispatched on its own goroutine — the tool's run() is itself
// inside the child thread's Update call stack, and Thread.Yield takes
// the thread's lock, so calling it synchronously here would deadlock.
func (c *Chat) handleYield(id ids.ThreadId, result string) {
	w, ok := c.wrapper(id)
	if !ok || w.thread == nil {
		return
	}
	go w.thread.Yield(result)
}

func (c *Chat) onThreadTerminal(id ids.ThreadId, term thread.Terminal) {
	w, ok := c.wrapper(id)
	if !ok {
		return
	}
	status := subagent.ChildStatus{ThreadID: id, Done: true, Result: term.Result, Err: term.Err}

	w.mu.Lock()
	w.terminal = true
	w.status = status
	callbacks := w.notifyQueue
	w.notifyQueue = nil
	w.mu.Unlock()

	c.logger.Info("thread reached terminal state", "thread_id", string(id), "status", term.Status.String())

	for _, cb := range callbacks {
		cb(status)
	}
}
