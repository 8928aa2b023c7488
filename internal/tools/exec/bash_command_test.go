package exec

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nexus-editor/agentcore/internal/toolcore"
)

func waitDone(t *testing.T, e toolcore.Executor) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !e.IsDone() {
		if time.Now().After(deadline) {
			t.Fatal("executor never finished")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestBashCommandTool_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	manager := NewManager(dir)
	pool := toolcore.NewPool(toolcore.DefaultPoolConfig())
	tool := NewBashCommandTool(manager, t.TempDir(), pool)

	input, _ := json.Marshal(bashCommandInput{Command: "echo hello"})
	req := toolcore.ToolRequest{ID: "r1", ThreadID: "t1", Name: "bash_command", Input: input}

	var exec toolcore.Executor
	exec = tool.New(req, toolcore.ToolContext{}, func(msg toolcore.ToolMsg) {
		exec.Update(msg)
	})

	waitDone(t, exec)
	result := exec.GetToolResult()
	if result.IsError() {
		t.Fatalf("unexpected error: %s", result.Text)
	}
	if !strings.Contains(result.Text, "hello") {
		t.Fatalf("result text = %q, want to contain hello", result.Text)
	}
}

func TestBashCommandTool_Background(t *testing.T) {
	dir := t.TempDir()
	manager := NewManager(dir)
	pool := toolcore.NewPool(toolcore.DefaultPoolConfig())
	tool := NewBashCommandTool(manager, t.TempDir(), pool)

	input, _ := json.Marshal(bashCommandInput{Command: "sleep 5", Background: true})
	req := toolcore.ToolRequest{ID: "r1", ThreadID: "t1", Name: "bash_command", Input: input}

	exec := tool.New(req, toolcore.ToolContext{}, nil)
	if !exec.IsDone() {
		t.Fatal("background start should finish the bash_command executor immediately")
	}
	result := exec.GetToolResult()
	if result.IsError() {
		t.Fatalf("unexpected error: %s", result.Text)
	}
	if !strings.Contains(result.Text, "started process") {
		t.Fatalf("result text = %q, want to mention the started process", result.Text)
	}
}

func TestBashCommandTool_MissingCommand(t *testing.T) {
	dir := t.TempDir()
	manager := NewManager(dir)
	pool := toolcore.NewPool(toolcore.DefaultPoolConfig())
	tool := NewBashCommandTool(manager, t.TempDir(), pool)

	input, _ := json.Marshal(bashCommandInput{})
	req := toolcore.ToolRequest{ID: "r1", ThreadID: "t1", Name: "bash_command", Input: input}

	exec := tool.New(req, toolcore.ToolContext{}, nil)
	if !exec.GetToolResult().IsError() {
		t.Fatal("expected error for missing command")
	}
}
