// Package buffer defines the seam between the core and the host editor's
// buffer/extmark primitives. The editor RPC transport itself (the Lua
// bridge, the actual Neovim extmark API) is an external collaborator and
// is not implemented here; Host is the interface the core calls through,
// and MemHost (in membuffer.go) is a dependency-free fake good enough to
// drive the view engine and its tests without a real editor attached.
package buffer

import (
	"context"
	"errors"

	"github.com/nexus-editor/agentcore/pkg/ids"
	"github.com/nexus-editor/agentcore/pkg/position"
)

// ErrInvalidBuffer is returned by Host operations against a buffer that
// no longer exists on the editor side (closed, wiped, never opened).
var ErrInvalidBuffer = errors.New("buffer: invalid buffer")

// ExtmarkOpts describes the decoration attached to a buffer range.
type ExtmarkOpts struct {
	HLGroup      string
	LineHLGroup  string
	Priority     int
	SignText     string
	SignHLGroup  string
}

// Host is the set of buffer/extmark operations the core requires from an
// editor. endRow == -1 means "end of buffer" for GetLines.
type Host interface {
	GetLines(ctx context.Context, id ids.BufferId, startRow, endRow int) ([]string, error)
	SetText(ctx context.Context, id ids.BufferId, start, end position.Pos0, lines []string) error
	CreateExtmark(ctx context.Context, id ids.BufferId, start, end position.Pos0, opts ExtmarkOpts) (ids.ExtmarkId, error)
	UpdateExtmark(ctx context.Context, id ids.BufferId, mark ids.ExtmarkId, start, end position.Pos0, opts ExtmarkOpts) error
	DeleteExtmark(ctx context.Context, id ids.BufferId, mark ids.ExtmarkId) error
	BufferIsValid(ctx context.Context, id ids.BufferId) bool
}

// ClampCol clamps col to the byte length of line; callers that have
// explicitly opted into clamping (visual-selection endpoints) use this
// instead of trusting a position that may run past end of line.
func ClampCol(col int, line string) int {
	if col > len(line) {
		return len(line)
	}
	if col < 0 {
		return 0
	}
	return col
}
