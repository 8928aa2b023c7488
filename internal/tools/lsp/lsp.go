// Package lsp implements the hover and find_references tools by
// delegating to an injected language-server bridge, the same
// provider-injection shape the teacher uses for its diagnostic tool
// (internal/tools/system/diagnostic.go): the tool itself only resolves
// the workspace path and derives a cursor position, leaving the actual
// language-server round trip to whatever Bridge the host wires in.
package lsp

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/nexus-editor/agentcore/internal/tools/files"
)

// Location is a single position a Bridge can report — a reference site,
// a definition, a declaration.
type Location struct {
	FilePath string
	Line     int // 1-based
	Column   int // 1-based
}

// Bridge is the seam to a running language server. A host wires in
// whatever client talks to the editor's attached servers; tests wire in
// a fake that returns canned results.
type Bridge interface {
	Hover(ctx context.Context, filePath string, line, column int) (string, error)
	References(ctx context.Context, filePath string, line, column int) ([]Location, error)
}

// findSymbolPosition scans fileText for the first occurrence of symbol
// and returns the 1-based line/column of that occurrence's rightmost
// character — per the position-derivation rule (SPEC_FULL §4.D), this
// lands the cursor on the final component of a dotted path ("pkg.Type.Method"
// resolves to the position of "Method"), which is what a language
// server's hover/references expects for a qualified reference.
func findSymbolPosition(fileText, symbol string) (line, column int, err error) {
	idx := strings.Index(fileText, symbol)
	if idx < 0 {
		return 0, 0, fmt.Errorf("symbol %q not found", symbol)
	}
	end := idx + len(symbol) - 1

	line = 1
	lineStart := 0
	for i := 0; i < end; i++ {
		if fileText[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	column = end - lineStart + 1
	return line, column, nil
}

// resolveAndLocate resolves filePath against resolver, reads it, and
// returns the absolute path plus the 1-based line/column of symbol's
// rightmost character.
func resolveAndLocate(resolver files.Resolver, filePath, symbol string) (resolved string, line, column int, err error) {
	resolved, err = resolver.Resolve(filePath)
	if err != nil {
		return "", 0, 0, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", 0, 0, err
	}
	line, column, err = findSymbolPosition(string(data), symbol)
	if err != nil {
		return "", 0, 0, err
	}
	return resolved, line, column, nil
}
