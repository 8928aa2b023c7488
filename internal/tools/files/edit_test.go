package files

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/nexus-editor/agentcore/internal/toolcore"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestEditTool_Replace_FirstOccurrenceOnly(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "f.txt", "foo foo foo")

	tool := NewReplaceTool(Resolver{Root: dir}, nil)
	input, _ := json.Marshal(editInput{FilePath: "f.txt", Find: "foo", Replace: "bar"})
	req := toolcore.ToolRequest{ID: "r1", Name: "replace", Input: input}

	exec := tool.New(req, toolcore.ToolContext{}, nil)
	if !exec.IsDone() {
		t.Fatal("expected synchronous executor to finish immediately")
	}
	result := exec.GetToolResult()
	if result.IsError() {
		t.Fatalf("unexpected error: %s", result.Text)
	}
	got, err := os.ReadFile(filepath.Join(dir, "f.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "bar foo foo" {
		t.Fatalf("content = %q, want %q", got, "bar foo foo")
	}
}

func TestEditTool_Replace_FindNotFound(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "f.txt", "hello")

	tool := NewReplaceTool(Resolver{Root: dir}, nil)
	input, _ := json.Marshal(editInput{FilePath: "f.txt", Find: "missing", Replace: "x"})
	req := toolcore.ToolRequest{ID: "r1", Name: "replace", Input: input}

	result := tool.New(req, toolcore.ToolContext{}, nil).GetToolResult()
	if !result.IsError() {
		t.Fatal("expected error when find text is absent")
	}
}

func TestEditTool_Insert_EmptyAnchorAppends(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "f.txt", "line1")

	anchor := ""
	tool := NewInsertTool(Resolver{Root: dir}, nil)
	input, _ := json.Marshal(editInput{FilePath: "f.txt", InsertAfter: &anchor, Replace: "\nline2"})
	req := toolcore.ToolRequest{ID: "r1", Name: "insert", Input: input}

	tool.New(req, toolcore.ToolContext{}, nil)
	got, _ := os.ReadFile(filepath.Join(dir, "f.txt"))
	if string(got) != "line1\nline2" {
		t.Fatalf("content = %q, want %q", got, "line1\nline2")
	}
}

func TestEditTool_Replace_EmptyFindReplacesWholeFile(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "f.txt", "old content")

	tool := NewReplaceTool(Resolver{Root: dir}, nil)
	input, _ := json.Marshal(editInput{FilePath: "f.txt", Find: "", Replace: "new content"})
	req := toolcore.ToolRequest{ID: "r1", Name: "replace", Input: input}

	tool.New(req, toolcore.ToolContext{}, nil)
	got, _ := os.ReadFile(filepath.Join(dir, "f.txt"))
	if string(got) != "new content" {
		t.Fatalf("content = %q, want %q", got, "new content")
	}
}
