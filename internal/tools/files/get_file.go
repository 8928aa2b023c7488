package files

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nexus-editor/agentcore/internal/contextmgr"
	"github.com/nexus-editor/agentcore/internal/toolcore"
)

// MaxGetFileBytes rejects a text read past this size; the model sees the
// same truncation notice a human would want before pasting a huge file
// into a context window.
const MaxGetFileBytes = 10 << 20

// GetFileTool implements the get_file tool: read a workspace file into
// context, or a single page of a PDF.
type GetFileTool struct {
	resolver    Resolver
	contextMgr  *contextmgr.Manager
	autoAllow   []string
	vcsTracked  func(relPath string) bool
}

// NewGetFileTool constructs the tool. autoAllowGlobs matches
// getFileAutoAllowGlobs from config; vcsTracked reports whether relPath
// is tracked by the workspace's VCS (used for the "inside project root
// and VCS tracked" auto-allow rule).
func NewGetFileTool(resolver Resolver, cm *contextmgr.Manager, autoAllowGlobs []string, vcsTracked func(relPath string) bool) *GetFileTool {
	if vcsTracked == nil {
		vcsTracked = func(string) bool { return false }
	}
	return &GetFileTool{resolver: resolver, contextMgr: cm, autoAllow: autoAllowGlobs, vcsTracked: vcsTracked}
}

func (t *GetFileTool) Name() string { return "get_file" }

func (t *GetFileTool) Description() string {
	return "Read a file into the conversation's context, or a single page of a PDF."
}

func (t *GetFileTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"filePath": {"type": "string"},
			"pdfPage": {"type": "integer", "minimum": 1},
			"force": {"type": "boolean"}
		},
		"required": ["filePath"]
	}`)
}

type getFileInput struct {
	FilePath string `json:"filePath"`
	PDFPage  *int   `json:"pdfPage"`
	Force    bool   `json:"force"`
}

// RequiresApproval implements toolcore.ApprovalAware: a path matching an
// auto-allow glob, or tracked by VCS inside the project root, never
// prompts; anything else does.
func (t *GetFileTool) RequiresApproval(tc toolcore.ToolContext, raw json.RawMessage) bool {
	var in getFileInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return true
	}
	rel := t.resolver.RelPath(in.FilePath)
	for _, glob := range t.autoAllow {
		if ok, _ := filepath.Match(glob, rel); ok {
			return false
		}
	}
	if t.vcsTracked(rel) {
		return false
	}
	return true
}

func (t *GetFileTool) New(req toolcore.ToolRequest, tc toolcore.ToolContext, dispatch toolcore.DispatchFunc) toolcore.Executor {
	return toolcore.NewSyncExecutor(req, tc, t.run, toolcore.DefaultResultView)
}

func (t *GetFileTool) run(req toolcore.ToolRequest, tc toolcore.ToolContext) toolcore.ToolResult {
	var in getFileInput
	if err := json.Unmarshal(req.Input, &in); err != nil {
		return errResult(req, toolcore.ErrUserInput, "invalid input: %v", err)
	}

	resolved, err := t.resolver.Resolve(in.FilePath)
	if err != nil {
		return errResult(req, toolcore.ErrUserInput, "%v", err)
	}
	rel := t.resolver.RelPath(resolved)

	if entry, ok := t.contextMgr.Contains(rel); ok && !in.Force {
		if entry.Category != contextmgr.CategoryPDF || in.PDFPage == nil {
			return toolcore.OKResult(req.ID, fmt.Sprintf("%s is already in context (use force to re-read).", rel))
		}
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return errResult(req, toolcore.ErrEnvironment, "stat %s: %v", rel, err)
	}
	if info.Size() > MaxGetFileBytes {
		return errResult(req, toolcore.ErrUserInput, "%s is %d bytes, exceeds the %d byte limit", rel, info.Size(), MaxGetFileBytes)
	}

	if strings.EqualFold(filepath.Ext(resolved), ".pdf") {
		return t.readPDF(req, rel, resolved, in.PDFPage)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return errResult(req, toolcore.ErrEnvironment, "read %s: %v", rel, err)
	}
	t.contextMgr.Add(rel, resolved, contextmgr.CategoryText, nil)
	return toolcore.OKResult(req.ID, string(data))
}

func (t *GetFileTool) readPDF(req toolcore.ToolRequest, rel, resolved string, page *int) toolcore.ToolResult {
	if page == nil {
		t.contextMgr.Add(rel, resolved, contextmgr.CategoryPDF, &contextmgr.PDFView{Summary: true, Pages: map[int]struct{}{}})
		return toolcore.OKResult(req.ID, fmt.Sprintf("%s is a PDF; call again with pdfPage to read a specific page.", rel))
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return errResult(req, toolcore.ErrEnvironment, "read %s: %v", rel, err)
	}
	t.contextMgr.Add(rel, resolved, contextmgr.CategoryPDF, &contextmgr.PDFView{Pages: map[int]struct{}{*page: {}}})
	result := toolcore.OKResult(req.ID, fmt.Sprintf("%s page %d", rel, *page))
	result.Documents = []toolcore.Document{{MediaType: "application/pdf", Bytes: data, Title: fmt.Sprintf("%s p.%d", rel, *page)}}
	return result
}

func errResult(req toolcore.ToolRequest, sentinel error, format string, args ...any) toolcore.ToolResult {
	return toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: %s", sentinel, fmt.Sprintf(format, args...)))
}

// ListDirectoryTool returns a bounded tree listing under a workspace
// path.
type ListDirectoryTool struct {
	resolver Resolver
	maxNodes int
}

func NewListDirectoryTool(resolver Resolver) *ListDirectoryTool {
	return &ListDirectoryTool{resolver: resolver, maxNodes: 2000}
}

func (t *ListDirectoryTool) Name() string        { return "list_directory" }
func (t *ListDirectoryTool) Description() string { return "List files and directories under a workspace path." }

func (t *ListDirectoryTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {"path": {"type": "string"}}, "required": ["path"]}`)
}

func (t *ListDirectoryTool) New(req toolcore.ToolRequest, tc toolcore.ToolContext, dispatch toolcore.DispatchFunc) toolcore.Executor {
	return toolcore.NewSyncExecutor(req, tc, t.run, toolcore.DefaultResultView)
}

func (t *ListDirectoryTool) run(req toolcore.ToolRequest, tc toolcore.ToolContext) toolcore.ToolResult {
	var in struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(req.Input, &in); err != nil {
		return errResult(req, toolcore.ErrUserInput, "invalid input: %v", err)
	}
	resolved, err := t.resolver.Resolve(in.Path)
	if err != nil {
		return errResult(req, toolcore.ErrUserInput, "%v", err)
	}

	var lines []string
	count := 0
	truncated := false
	walkErr := filepath.Walk(resolved, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if p == resolved {
			return nil
		}
		if count >= t.maxNodes {
			truncated = true
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, _ := filepath.Rel(resolved, p)
		if info.IsDir() {
			lines = append(lines, rel+"/")
		} else {
			lines = append(lines, rel)
		}
		count++
		return nil
	})
	if walkErr != nil {
		return errResult(req, toolcore.ErrEnvironment, "walk %s: %v", in.Path, walkErr)
	}
	text := strings.Join(lines, "\n")
	if truncated {
		text += "\n… (truncated)"
	}
	return toolcore.OKResult(req.ID, text)
}
