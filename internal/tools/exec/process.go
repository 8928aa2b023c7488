package exec

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/nexus-editor/agentcore/internal/toolcore"
	"github.com/nexus-editor/agentcore/pkg/ids"
)

// ProcessTool implements the process tool: list/status/log/write/kill/
// remove against the Manager's background-process registry, the
// counterpart to bash_command's background:true mode (SPEC_FULL
// §4.D.1).
type ProcessTool struct {
	manager *Manager
}

func NewProcessTool(manager *Manager) *ProcessTool {
	return &ProcessTool{manager: manager}
}

func (t *ProcessTool) Name() string { return "process" }

func (t *ProcessTool) Description() string {
	return "List, inspect, or control background processes started by bash_command."
}

func (t *ProcessTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {"type": "string", "enum": ["list", "status", "log", "write", "kill", "remove"]},
			"process_id": {"type": "string"},
			"input": {"type": "string"}
		},
		"required": ["action"]
	}`)
}

type processInput struct {
	Action    string `json:"action"`
	ProcessID string `json:"process_id"`
	Input     string `json:"input"`
}

func (t *ProcessTool) New(req toolcore.ToolRequest, tc toolcore.ToolContext, dispatch toolcore.DispatchFunc) toolcore.Executor {
	return toolcore.NewSyncExecutor(req, tc, t.run, toolcore.DefaultResultView)
}

func (t *ProcessTool) run(req toolcore.ToolRequest, tc toolcore.ToolContext) toolcore.ToolResult {
	var in processInput
	if err := json.Unmarshal(req.Input, &in); err != nil {
		return toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: invalid input: %v", toolcore.ErrUserInput, err))
	}

	switch in.Action {
	case "list":
		return t.list(req)
	case "status", "log", "write", "kill", "remove":
		if in.ProcessID == "" {
			return toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: process_id is required for action %q", toolcore.ErrUserInput, in.Action))
		}
	default:
		return toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: unknown action %q", toolcore.ErrUserInput, in.Action))
	}

	proc, ok := t.manager.get(ids.ProcessId(in.ProcessID))
	if !ok {
		return toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: no such process %q", toolcore.ErrUserInput, in.ProcessID))
	}

	switch in.Action {
	case "status":
		return t.status(req, proc)
	case "log":
		return t.log(req, proc)
	case "write":
		return t.write(req, proc, in.Input)
	case "kill":
		return t.kill(req, proc)
	case "remove":
		return t.remove(req, in.ProcessID, proc)
	}
	return toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: unreachable", toolcore.ErrInternalInvariant))
}

func (t *ProcessTool) list(req toolcore.ToolRequest) toolcore.ToolResult {
	procs := t.manager.list()
	var b strings.Builder
	if len(procs) == 0 {
		b.WriteString("no background processes")
	}
	for _, p := range procs {
		fmt.Fprintf(&b, "%s [%s] %s\n", p.ID, p.Status, p.Command)
	}
	return toolcore.OKResult(req.ID, b.String())
}

func (t *ProcessTool) status(req toolcore.ToolRequest, proc *backgroundProcess) toolcore.ToolResult {
	info := proc.info()
	return toolcore.OKResult(req.ID, fmt.Sprintf("%s [%s] exit=%d %s", info.ID, info.Status, info.ExitCode, info.Error))
}

func (t *ProcessTool) log(req toolcore.ToolRequest, proc *backgroundProcess) toolcore.ToolResult {
	text := summarize(proc.stdout.String(), 10, 20)
	stderrText := proc.stderr.String()
	if stderrText != "" {
		text += "\n--- stderr ---\n" + summarize(stderrText, 10, 20)
	}
	return toolcore.OKResult(req.ID, text)
}

func (t *ProcessTool) write(req toolcore.ToolRequest, proc *backgroundProcess, input string) toolcore.ToolResult {
	if proc.status() != "running" {
		return toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: process %s is not running", toolcore.ErrUserInput, proc.id))
	}
	if _, err := io.WriteString(proc.stdin, input); err != nil {
		return toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: write stdin: %v", toolcore.ErrEnvironment, err))
	}
	return toolcore.OKResult(req.ID, "wrote to stdin")
}

func (t *ProcessTool) kill(req toolcore.ToolRequest, proc *backgroundProcess) toolcore.ToolResult {
	if proc.status() != "running" {
		return toolcore.OKResult(req.ID, fmt.Sprintf("process %s already exited", proc.id))
	}
	if err := proc.cmd.Process.Kill(); err != nil {
		return toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: kill: %v", toolcore.ErrEnvironment, err))
	}
	return toolcore.OKResult(req.ID, fmt.Sprintf("killed process %s", proc.id))
}

func (t *ProcessTool) remove(req toolcore.ToolRequest, id string, proc *backgroundProcess) toolcore.ToolResult {
	if proc.status() == "running" {
		return toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: cannot remove a running process, kill it first", toolcore.ErrUserInput))
	}
	t.manager.remove(ids.ProcessId(id))
	return toolcore.OKResult(req.ID, fmt.Sprintf("removed process %s", id))
}

var _ toolcore.Tool = (*ProcessTool)(nil)
var _ toolcore.Tool = (*BashCommandTool)(nil)
