package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nexus-editor/agentcore/internal/toolcore"
	"github.com/nexus-editor/agentcore/internal/tools/files"
)

// FindReferencesTool implements find_references: resolve filePath +
// symbol to a position and ask the Bridge for every reference site.
type FindReferencesTool struct {
	resolver files.Resolver
	bridge   Bridge
}

func NewFindReferencesTool(resolver files.Resolver, bridge Bridge) *FindReferencesTool {
	return &FindReferencesTool{resolver: resolver, bridge: bridge}
}

func (t *FindReferencesTool) Name() string { return "find_references" }

func (t *FindReferencesTool) Description() string {
	return "List every reference to a symbol in a file, via the language server."
}

func (t *FindReferencesTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"filePath": {"type": "string"},
			"symbol": {"type": "string"}
		},
		"required": ["filePath", "symbol"]
	}`)
}

type findReferencesInput struct {
	FilePath string `json:"filePath"`
	Symbol   string `json:"symbol"`
}

func (t *FindReferencesTool) New(req toolcore.ToolRequest, tc toolcore.ToolContext, dispatch toolcore.DispatchFunc) toolcore.Executor {
	return toolcore.NewSyncExecutor(req, tc, t.run, toolcore.DefaultResultView)
}

func (t *FindReferencesTool) run(req toolcore.ToolRequest, tc toolcore.ToolContext) toolcore.ToolResult {
	var in findReferencesInput
	if err := json.Unmarshal(req.Input, &in); err != nil {
		return toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: invalid input: %v", toolcore.ErrUserInput, err))
	}
	if t.bridge == nil {
		return toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: no language-server bridge configured", toolcore.ErrEnvironment))
	}
	resolved, line, column, err := resolveAndLocate(t.resolver, in.FilePath, in.Symbol)
	if err != nil {
		return toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: %v", toolcore.ErrUserInput, err))
	}
	locs, err := t.bridge.References(context.Background(), resolved, line, column)
	if err != nil {
		return toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: %v", toolcore.ErrEnvironment, err))
	}
	if len(locs) == 0 {
		return toolcore.OKResult(req.ID, "no references found")
	}
	var b strings.Builder
	for _, loc := range locs {
		fmt.Fprintf(&b, "%s:%d:%d\n", t.resolver.RelPath(loc.FilePath), loc.Line, loc.Column)
	}
	return toolcore.OKResult(req.ID, strings.TrimRight(b.String(), "\n"))
}
