// Package diagnostics implements the diagnostics tool: a snapshot of
// the editor's diagnostic store, filtered to the workspace root. The
// provider-injection shape follows the teacher's system diagnostic
// tool (internal/tools/system/diagnostic.go): this package never talks
// to the editor directly, it only knows the Store interface a host
// wires in.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/nexus-editor/agentcore/internal/toolcore"
	"github.com/nexus-editor/agentcore/internal/tools/files"
)

// Severity mirrors the LSP diagnostic severity levels the editor's
// diagnostic store reports in.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
	SeverityHint
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	case SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// Diagnostic is one entry in the editor's diagnostic store.
type Diagnostic struct {
	FilePath string
	Line     int
	Column   int
	Severity Severity
	Message  string
	Source   string
}

// Store is the seam to the editor's live diagnostic state. A host
// wires in whatever aggregates its attached language servers'
// publishDiagnostics notifications; tests wire in a fixed snapshot.
type Store interface {
	Diagnostics() []Diagnostic
}

// DiagnosticsTool implements diagnostics: every entry in Store filtered
// to paths under the workspace root, optionally narrowed further to a
// single file.
type DiagnosticsTool struct {
	resolver files.Resolver
	store    Store
}

func NewDiagnosticsTool(resolver files.Resolver, store Store) *DiagnosticsTool {
	return &DiagnosticsTool{resolver: resolver, store: store}
}

func (t *DiagnosticsTool) Name() string { return "diagnostics" }

func (t *DiagnosticsTool) Description() string {
	return "Snapshot current editor diagnostics (errors, warnings) for the workspace, optionally filtered to one file."
}

func (t *DiagnosticsTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"filePath": {"type": "string"}
		},
		"required": []
	}`)
}

type diagnosticsInput struct {
	FilePath string `json:"filePath"`
}

func (t *DiagnosticsTool) New(req toolcore.ToolRequest, tc toolcore.ToolContext, dispatch toolcore.DispatchFunc) toolcore.Executor {
	return toolcore.NewSyncExecutor(req, tc, t.run, toolcore.DefaultResultView)
}

func (t *DiagnosticsTool) run(req toolcore.ToolRequest, tc toolcore.ToolContext) toolcore.ToolResult {
	var in diagnosticsInput
	if err := json.Unmarshal(req.Input, &in); err != nil {
		return toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: invalid input: %v", toolcore.ErrUserInput, err))
	}
	if t.store == nil {
		return toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: no diagnostic store configured", toolcore.ErrEnvironment))
	}

	var filterRel string
	if in.FilePath != "" {
		resolved, err := t.resolver.Resolve(in.FilePath)
		if err != nil {
			return toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: %v", toolcore.ErrUserInput, err))
		}
		filterRel = t.resolver.RelPath(resolved)
	}

	all := t.store.Diagnostics()
	filtered := make([]Diagnostic, 0, len(all))
	for _, d := range all {
		rel := t.resolver.RelPath(d.FilePath)
		if strings.HasPrefix(rel, "..") {
			continue // outside the workspace root
		}
		if filterRel != "" && rel != filterRel {
			continue
		}
		d.FilePath = rel
		filtered = append(filtered, d)
	}
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].FilePath != filtered[j].FilePath {
			return filtered[i].FilePath < filtered[j].FilePath
		}
		return filtered[i].Line < filtered[j].Line
	})

	if len(filtered) == 0 {
		return toolcore.OKResult(req.ID, "no diagnostics")
	}
	var b strings.Builder
	for _, d := range filtered {
		fmt.Fprintf(&b, "%s:%d:%d: %s: %s", d.FilePath, d.Line, d.Column, d.Severity, d.Message)
		if d.Source != "" {
			fmt.Fprintf(&b, " (%s)", d.Source)
		}
		b.WriteByte('\n')
	}
	return toolcore.OKResult(req.ID, strings.TrimRight(b.String(), "\n"))
}
