// Package files implements the workspace-scoped file tools: get_file,
// list_directory, and the insert/replace/inline_edit/replace_selection/edl
// edit family.
package files

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolver resolves workspace-relative paths and rejects any path that
// would escape the workspace root.
type Resolver struct {
	Root string
}

// Resolve returns the absolute, cleaned path for a workspace-relative (or
// absolute) input path.
func (r Resolver) Resolve(path string) (string, error) {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return "", fmt.Errorf("path is required")
	}
	root := strings.TrimSpace(r.Root)
	if root == "" {
		root = "."
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve workspace root: %w", err)
	}
	var target string
	if filepath.IsAbs(clean) {
		target = filepath.Clean(clean)
	} else {
		target = filepath.Join(rootAbs, clean)
	}
	targetAbs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	rel, err := filepath.Rel(rootAbs, targetAbs)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes workspace")
	}
	return targetAbs, nil
}

// RelPath returns path relative to the workspace root, for context
// manager keys and log messages.
func (r Resolver) RelPath(absPath string) string {
	rootAbs, err := filepath.Abs(r.Root)
	if err != nil {
		return absPath
	}
	rel, err := filepath.Rel(rootAbs, absPath)
	if err != nil {
		return absPath
	}
	return rel
}
