package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/nexus-editor/agentcore/internal/toolcore"
	"github.com/nexus-editor/agentcore/pkg/buffer"
	"github.com/nexus-editor/agentcore/pkg/ids"
	"github.com/nexus-editor/agentcore/pkg/position"
)

// BufferTracker reports whether a workspace-relative path is currently
// open as a live editor buffer, so edit tools can diff on top of
// in-editor state rather than silently clobbering unsaved changes.
type BufferTracker interface {
	Lookup(relPath string) (host buffer.Host, bufID ids.BufferId, ok bool)
}

// EditTool implements insert, replace, inline_edit, replace_selection and
// edl: find-and-replace edits against workspace files, diffed on top of
// any loaded buffer rather than bypassing it.
type EditTool struct {
	name     string
	resolver Resolver
	buffers  BufferTracker
}

// NewInsertTool, NewReplaceTool, NewInlineEditTool, NewReplaceSelectionTool
// and NewEDLTool all build the same executor under the catalogue's
// distinct names — the contract (find must occur exactly once, empty
// find replaces the whole file, insertAfter="" appends) is identical for
// all five; only the name the model calls it under differs, mirroring
// distinct UI affordances over one underlying operation.
func NewInsertTool(resolver Resolver, buffers BufferTracker) *EditTool {
	return &EditTool{name: "insert", resolver: resolver, buffers: buffers}
}
func NewReplaceTool(resolver Resolver, buffers BufferTracker) *EditTool {
	return &EditTool{name: "replace", resolver: resolver, buffers: buffers}
}
func NewInlineEditTool(resolver Resolver, buffers BufferTracker) *EditTool {
	return &EditTool{name: "inline_edit", resolver: resolver, buffers: buffers}
}
func NewReplaceSelectionTool(resolver Resolver, buffers BufferTracker) *EditTool {
	return &EditTool{name: "replace_selection", resolver: resolver, buffers: buffers}
}
func NewEDLTool(resolver Resolver, buffers BufferTracker) *EditTool {
	return &EditTool{name: "edl", resolver: resolver, buffers: buffers}
}

func (t *EditTool) Name() string { return t.name }

func (t *EditTool) Description() string {
	return "Apply a find/replace edit (or anchored insert) to a workspace file."
}

func (t *EditTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"filePath": {"type": "string"},
			"find": {"type": "string"},
			"replace": {"type": "string"},
			"insertAfter": {"type": "string"}
		},
		"required": ["filePath"]
	}`)
}

type editInput struct {
	FilePath    string `json:"filePath"`
	Find        string `json:"find"`
	Replace     string `json:"replace"`
	InsertAfter *string `json:"insertAfter"`
}

func (t *EditTool) New(req toolcore.ToolRequest, tc toolcore.ToolContext, dispatch toolcore.DispatchFunc) toolcore.Executor {
	return toolcore.NewSyncExecutor(req, tc, t.run, toolcore.DefaultResultView)
}

func (t *EditTool) run(req toolcore.ToolRequest, tc toolcore.ToolContext) toolcore.ToolResult {
	var in editInput
	if err := json.Unmarshal(req.Input, &in); err != nil {
		return errResult(req, toolcore.ErrUserInput, "invalid input: %v", err)
	}

	resolved, err := t.resolver.Resolve(in.FilePath)
	if err != nil {
		return errResult(req, toolcore.ErrUserInput, "%v", err)
	}
	rel := t.resolver.RelPath(resolved)

	data, err := os.ReadFile(resolved)
	if err != nil {
		return errResult(req, toolcore.ErrEnvironment, "read %s: %v", rel, err)
	}
	content := string(data)

	next, err := t.apply(content, in)
	if err != nil {
		return errResult(req, toolcore.ErrUserInput, "%v", err)
	}

	if t.buffers != nil {
		if host, bufID, ok := t.buffers.Lookup(rel); ok {
			if err := diffOnTopOfBuffer(host, bufID, next); err != nil {
				return errResult(req, toolcore.ErrEnvironment, "apply to live buffer %s: %v", rel, err)
			}
		}
	}

	if err := os.WriteFile(resolved, []byte(next), 0o644); err != nil {
		return errResult(req, toolcore.ErrEnvironment, "write %s: %v", rel, err)
	}
	return toolcore.OKResult(req.ID, fmt.Sprintf("%s updated", rel))
}

// apply computes the edited content for in against content, without
// touching disk, so the same logic backs a dry-run preview and the real
// write.
func (t *EditTool) apply(content string, in editInput) (string, error) {
	if in.InsertAfter != nil {
		if *in.InsertAfter == "" {
			return content + in.Replace, nil
		}
		idx := strings.Index(content, *in.InsertAfter)
		if idx < 0 {
			return "", fmt.Errorf("insertAfter anchor not found")
		}
		at := idx + len(*in.InsertAfter)
		return content[:at] + in.Replace + content[at:], nil
	}
	if in.Find == "" {
		return in.Replace, nil
	}
	idx := strings.Index(content, in.Find)
	if idx < 0 {
		return "", fmt.Errorf("find text not found")
	}
	return content[:idx] + in.Replace + content[idx+len(in.Find):], nil
}

// diffOnTopOfBuffer replaces a live buffer's entire content with next,
// so an edit never silently diverges from what's on screen. A full
// replace is the safe baseline; the view engine's reconciler (not this
// tool) is responsible for minimizing the resulting cursor/extmark
// churn on the next render.
func diffOnTopOfBuffer(host buffer.Host, bufID ids.BufferId, next string) error {
	ctx := context.Background()
	lines, err := host.GetLines(ctx, bufID, 0, -1)
	if err != nil {
		return err
	}
	start := position.Pos0{}
	if len(lines) == 0 {
		return host.SetText(ctx, bufID, start, start, strings.Split(next, "\n"))
	}
	last := lines[len(lines)-1]
	end := position.Pos0{Row: len(lines) - 1, Col: len(last)}
	return host.SetText(ctx, bufID, start, end, strings.Split(next, "\n"))
}
