package lsp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nexus-editor/agentcore/internal/toolcore"
	"github.com/nexus-editor/agentcore/internal/tools/files"
)

// HoverTool implements hover: resolve filePath + symbol to a position
// and ask the Bridge for the language server's hover text at that
// position. It has no side effects, so per the tool catalogue it goes
// straight processing → done (SPEC_FULL §4.D).
type HoverTool struct {
	resolver files.Resolver
	bridge   Bridge
}

func NewHoverTool(resolver files.Resolver, bridge Bridge) *HoverTool {
	return &HoverTool{resolver: resolver, bridge: bridge}
}

func (t *HoverTool) Name() string { return "hover" }

func (t *HoverTool) Description() string {
	return "Show language-server hover information for a symbol in a file."
}

func (t *HoverTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"filePath": {"type": "string"},
			"symbol": {"type": "string"}
		},
		"required": ["filePath", "symbol"]
	}`)
}

type hoverInput struct {
	FilePath string `json:"filePath"`
	Symbol   string `json:"symbol"`
}

func (t *HoverTool) New(req toolcore.ToolRequest, tc toolcore.ToolContext, dispatch toolcore.DispatchFunc) toolcore.Executor {
	return toolcore.NewSyncExecutor(req, tc, t.run, toolcore.DefaultResultView)
}

func (t *HoverTool) run(req toolcore.ToolRequest, tc toolcore.ToolContext) toolcore.ToolResult {
	var in hoverInput
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
	text, err := t.bridge.Hover(context.Background(), resolved, line, column)
	if err != nil {
		return toolcore.ErrorResult(req.ID, fmt.Sprintf("%s: %v", toolcore.ErrEnvironment, err))
	}
	if text == "" {
		text = "(no hover information)"
	}
	return toolcore.OKResult(req.ID, text)
}
