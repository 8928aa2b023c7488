// Package appshell implements the App shell (Component I): the thin
// surface a host editor holds onto — Start/OnKey/Destroy — that mounts
// the sidebar buffer, wires keybindings through the root dispatcher, and
// spawns the Chat's root thread without blocking Start's return
// (SPEC_FULL §4.I).
package appshell

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nexus-editor/agentcore/internal/chat"
	"github.com/nexus-editor/agentcore/internal/rootdispatch"
	"github.com/nexus-editor/agentcore/internal/thread"
	"github.com/nexus-editor/agentcore/pkg/buffer"
	"github.com/nexus-editor/agentcore/pkg/ids"
	"github.com/nexus-editor/agentcore/pkg/position"
	"github.com/nexus-editor/agentcore/pkg/vdom"
)

// CursorFunc reports the current cursor position inside the sidebar
// buffer, as resolved by whatever window the host editor has active.
type CursorFunc func() position.Pos0

// Config wires the App shell to the host editor and the Chat it drives.
type Config struct {
	Host     buffer.Host
	BufferID ids.BufferId
	StartPos position.Pos0
	Chat     *chat.Chat
	// Cursor resolves the sidebar's current cursor position. Defaults to
	// always reporting position.Pos0{} (origin), which is good enough for
	// a harness with no real window to query.
	Cursor CursorFunc
	// RootKind and InitialPrompt seed the root thread Start creates.
	RootKind      thread.Kind
	InitialPrompt string
	Logger        *slog.Logger
}

// App is the handle a host editor keeps: one per session.
type App struct {
	mu         sync.Mutex
	host       buffer.Host
	bufID      ids.BufferId
	startPos   position.Pos0
	chat       *chat.Chat
	cursor     CursorFunc
	dispatcher *rootdispatch.Dispatcher
	mounted    *vdom.Mounted
	rootID     ids.ThreadId
	logger     *slog.Logger
}

// Start mounts the sidebar buffer, wires the root dispatcher to it, and
// dispatches the root thread's creation — the thread itself is built by
// the dispatcher's own goroutine, so Start returns before it exists.
func Start(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cursor := cfg.Cursor
	if cursor == nil {
		cursor = func() position.Pos0 { return position.Pos0{} }
	}

	a := &App{
		host:     cfg.Host,
		bufID:    cfg.BufferID,
		startPos: cfg.StartPos,
		chat:     cfg.Chat,
		cursor:   cursor,
		logger:   logger,
	}

	a.dispatcher = rootdispatch.New(rootdispatch.Config{
		Chat:   cfg.Chat,
		Render: a.render,
		IsBufferValid: func() bool {
			return cfg.Host.BufferIsValid(context.Background(), cfg.BufferID)
		},
		OnRenderError:       func(err error) { logger.Error("sidebar render failed", "error", err) },
		OnKey:               a.onRootKey,
		OnThreadInitialized: a.onThreadInitialized,
		Logger:              logger,
	})
	a.dispatcher.Run()

	if err := a.render(); err != nil {
		a.dispatcher.Stop()
		return nil, fmt.Errorf("appshell: initial render: %w", err)
	}

	a.dispatcher.Dispatch(rootdispatch.NewThread{Kind: cfg.RootKind, Prompt: cfg.InitialPrompt})
	return a, nil
}

func (a *App) onThreadInitialized(id ids.ThreadId) {
	a.mu.Lock()
	if a.rootID == "" {
		a.rootID = id
	}
	a.mu.Unlock()
}

// RootThreadID returns the id of the thread Start created, or "" before
// the dispatcher has gotten around to minting one.
func (a *App) RootThreadID() ids.ThreadId {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rootID
}

// OnKey forwards a raw keypress from the sidebar buffer into the root
// dispatcher's single goroutine.
func (a *App) OnKey(key string) {
	a.dispatcher.Dispatch(rootdispatch.KeyMsg{Key: key})
}

// onRootKey is the root dispatcher's registered OnKey handler: it reads
// the current cursor and delegates to the view engine's binding lookup
// against the last-mounted tree (SPEC_FULL §4.B/§4.I).
func (a *App) onRootKey(key string) {
	a.mu.Lock()
	mounted := a.mounted
	a.mu.Unlock()
	if mounted == nil {
		return
	}
	vdom.Dispatch(mounted, a.cursor(), vdom.Key(key))
}

// render re-mounts the sidebar view against the Chat's current state.
// The App shell always mounts from scratch rather than reconciling
// against the prior tree; pkg/vdom.Reconcile's incremental patching is
// exercised by the view engine's own tests, not needed for a sidebar
// this small to redraw wholesale on every change.
func (a *App) render() error {
	root := renderSidebar(a.chat, a.dispatcher.Dispatch)
	mounted, err := vdom.Mount(context.Background(), a.host, a.bufID, a.startPos, root)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.mounted = mounted
	a.mu.Unlock()
	return nil
}

// Destroy stops the root dispatcher. The sidebar buffer itself is torn
// down by whatever host editor owns it.
func (a *App) Destroy() {
	a.dispatcher.Stop()
}
