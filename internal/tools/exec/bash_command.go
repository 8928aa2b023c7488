package exec

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nexus-editor/agentcore/internal/toolcore"
	"github.com/nexus-editor/agentcore/pkg/vdom"
)

// DefaultTimeout is the bash_command hard timeout when the caller
// supplies none.
const DefaultTimeout = 300 * time.Second

// BashCommandTool runs a shell command under /bin/sh -c, synchronously
// or, with background:true, returning a process_id immediately.
type BashCommandTool struct {
	manager *Manager
	tmpRoot string
	pool    *toolcore.Pool
}

// NewBashCommandTool constructs the tool. tmpRoot is the directory under
// which per-request log files are written
// (tmpRoot/threads/<threadId>/tools/<requestId>/bashCommand.log).
func NewBashCommandTool(manager *Manager, tmpRoot string, pool *toolcore.Pool) *BashCommandTool {
	return &BashCommandTool{manager: manager, tmpRoot: tmpRoot, pool: pool}
}

func (t *BashCommandTool) Name() string { return "bash_command" }

func (t *BashCommandTool) Description() string {
	return "Run a shell command in the workspace, optionally in the background."
}

func (t *BashCommandTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"command": {"type": "string"},
			"cwd": {"type": "string"},
			"timeout_seconds": {"type": "integer", "minimum": 0},
			"background": {"type": "boolean"}
		},
		"required": ["command"]
	}`)
}

type bashCommandInput struct {
	Command        string `json:"command"`
	Cwd            string `json:"cwd"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	Background     bool   `json:"background"`
}

func (t *BashCommandTool) New(req toolcore.ToolRequest, tc toolcore.ToolContext, dispatch toolcore.DispatchFunc) toolcore.Executor {
	e := &bashCommandExecutor{Base: toolcore.NewBase(req), tool: t, tc: tc, dispatch: dispatch}
	e.start(req, tc, dispatch)
	return e
}

type bashCommandExecutor struct {
	*toolcore.Base
	tool     *BashCommandTool
	tc       toolcore.ToolContext
	dispatch toolcore.DispatchFunc
	logPath  string
}

func (e *bashCommandExecutor) start(req toolcore.ToolRequest, tc toolcore.ToolContext, dispatch toolcore.DispatchFunc) {
	var in bashCommandInput
	if err := json.Unmarshal(req.Input, &in); err != nil {
		e.Finish(toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: invalid input: %v", toolcore.ErrUserInput, err)))
		return
	}
	if in.Command == "" {
		e.Finish(toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: command is required", toolcore.ErrUserInput)))
		return
	}
	timeout := DefaultTimeout
	if in.TimeoutSeconds > 0 {
		timeout = time.Duration(in.TimeoutSeconds) * time.Second
	}

	if in.Background {
		proc, err := e.tool.manager.startBackground(context.Background(), in.Command, in.Cwd, nil, "", timeout)
		if err != nil {
			e.Finish(toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: %v", toolcore.ErrEnvironment, err)))
			return
		}
		e.Finish(toolcore.OKResult(req.ID, fmt.Sprintf("started process %s", proc.id)))
		return
	}

	e.Transition(toolcore.StateProcessing)
	e.logPath = filepath.Join(e.tool.tmpRoot, "threads", string(req.ThreadID), "tools", string(req.ID), "bashCommand.log")

	e.tool.pool.Run(context.Background(), func(ctx context.Context) (any, error) {
		return e.tool.manager.runSync(ctx, in.Command, in.Cwd, nil, "", timeout)
	}, e.dispatch)
}

func (e *bashCommandExecutor) Update(msg toolcore.ToolMsg) {
	switch m := msg.(type) {
	case toolcore.Abort:
		e.Abort()
	case toolcore.EffectCompleted:
		if m.Err != nil {
			e.Finish(toolcore.ErrorResult(e.Request.ID, fmt.Sprintf("%s: %v", toolcore.ErrEnvironment, m.Err)))
			return
		}
		result, _ := m.Payload.(ExecResult)
		e.finishWithResult(result)
	}
}

func (e *bashCommandExecutor) finishWithResult(result ExecResult) {
	if e.logPath != "" {
		_ = os.MkdirAll(filepath.Dir(e.logPath), 0o755)
		_ = os.WriteFile(e.logPath, []byte(result.Stdout+"\n--- stderr ---\n"+result.Stderr), 0o644)
	}
	summary := summarize(result.Stdout, 10, 20)
	status := fmt.Sprintf("exit code %d", result.ExitCode)
	if result.Error != "" {
		status = result.Error
	}
	text := fmt.Sprintf("%s\n(%s; full output: %s)", summary, status, e.logPath)
	if result.ExitCode != 0 {
		e.Finish(toolcore.ErrorResult(e.Request.ID, text))
		return
	}
	e.Finish(toolcore.OKResult(e.Request.ID, text))
}

func (e *bashCommandExecutor) RenderSummary() vdom.Node { return toolcore.DefaultResultView(e.GetToolResult()) }
func (e *bashCommandExecutor) RenderPreview() vdom.Node { return toolcore.DefaultResultView(e.GetToolResult()) }
func (e *bashCommandExecutor) RenderDetail() vdom.Node  { return toolcore.DefaultResultView(e.GetToolResult()) }
