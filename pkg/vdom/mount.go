package vdom

import (
	"context"
	"strings"

	"github.com/nexus-editor/agentcore/pkg/buffer"
	"github.com/nexus-editor/agentcore/pkg/ids"
	"github.com/nexus-editor/agentcore/pkg/position"
)

// Mounted is a VDOM node annotated with its live range in a buffer and,
// for nodes that asked for one, an allocated extmark id. Mounted trees
// mirror the shape of the Node tree they were produced from one-for-one.
type Mounted struct {
	Node      Node
	Start     position.Pos0
	End       position.Pos0
	ExtmarkId *ids.ExtmarkId
	Children  []*Mounted
}

// Range returns the mounted node's [Start, End) span.
func (m *Mounted) Range() position.Range {
	return position.Range{Start: m.Start, End: m.End}
}

// collectText returns the concatenated text a node (and its descendants)
// renders to, in document order.
func collectText(n Node) string {
	var b strings.Builder
	writeText(n, &b)
	return b.String()
}

func writeText(n Node, b *strings.Builder) {
	switch v := n.(type) {
	case *TextNode:
		b.WriteString(v.Content)
	case *TemplateNode:
		for _, c := range v.Children {
			writeText(c, b)
		}
	case *ArrayNode:
		for _, c := range v.Children {
			writeText(c, b)
		}
	default:
		panic("vdom: unreachable node kind")
	}
}

// cursor advances through written text to assign row/col positions,
// matching the exact semantics Mount specifies: newlines advance row and
// reset column; every other byte advances column by one UTF-8 byte.
type cursor struct {
	pos position.Pos0
}

func (c *cursor) advance(s string) {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			c.pos.Row++
			c.pos.Col = 0
		} else {
			c.pos.Col++
		}
	}
}

// Mount evaluates view(props), writes its concatenated text into
// [startPos, startPos+len(text)) of the given buffer, assigns
// start/end positions to every node by walking the tree in document
// order, and allocates extmarks for nodes that requested one.
func Mount(ctx context.Context, host buffer.Host, bufID ids.BufferId, startPos position.Pos0, root Node) (*Mounted, error) {
	text := collectText(root)
	endPos := endOfText(startPos, text)
	if err := host.SetText(ctx, bufID, startPos, startPos, strings.Split(text, "\n")); err != nil {
		return nil, err
	}
	c := &cursor{pos: startPos}
	m, err := mountNode(ctx, host, bufID, root, c)
	if err != nil {
		return nil, err
	}
	m.End = endPos
	return m, nil
}

// endOfText computes the position immediately after writing text starting
// at start, using the same newline/byte advance rule as cursor.advance.
func endOfText(start position.Pos0, text string) position.Pos0 {
	c := &cursor{pos: start}
	c.advance(text)
	return c.pos
}

func mountNode(ctx context.Context, host buffer.Host, bufID ids.BufferId, n Node, c *cursor) (*Mounted, error) {
	start := c.pos
	m := &Mounted{Node: n, Start: start}

	switch v := n.(type) {
	case *TextNode:
		c.advance(v.Content)
		m.End = c.pos
		if err := maybeAllocExtmark(ctx, host, bufID, m, v.Extmark); err != nil {
			return nil, err
		}
	case *TemplateNode:
		children := make([]*Mounted, 0, len(v.Children))
		for _, child := range v.Children {
			cm, err := mountNode(ctx, host, bufID, child, c)
			if err != nil {
				return nil, err
			}
			children = append(children, cm)
		}
		m.Children = children
		m.End = unionEnd(start, children)
		if err := maybeAllocExtmark(ctx, host, bufID, m, v.Extmark); err != nil {
			return nil, err
		}
	case *ArrayNode:
		children := make([]*Mounted, 0, len(v.Children))
		for _, child := range v.Children {
			cm, err := mountNode(ctx, host, bufID, child, c)
			if err != nil {
				return nil, err
			}
			children = append(children, cm)
		}
		m.Children = children
		m.End = unionEnd(start, children)
		if err := maybeAllocExtmark(ctx, host, bufID, m, v.Extmark); err != nil {
			return nil, err
		}
	default:
		panic("vdom: unreachable node kind")
	}
	return m, nil
}

// unionEnd returns the end of the last child's range, or start if there
// are no children (the empty-content rule: a zero-width point equal to
// the parent cursor at that moment).
func unionEnd(start position.Pos0, children []*Mounted) position.Pos0 {
	if len(children) == 0 {
		return start
	}
	return children[len(children)-1].End
}

// maybeAllocExtmark allocates an extmark for m covering [m.Start, m.End)
// unless spec is nil or the node's rendered text has zero length — the
// empty-content rule forbids an empty node from ever owning an extmark.
func maybeAllocExtmark(ctx context.Context, host buffer.Host, bufID ids.BufferId, m *Mounted, spec *Extmark) error {
	if spec == nil {
		return nil
	}
	if m.Start == m.End {
		return nil
	}
	markID, err := host.CreateExtmark(ctx, bufID, m.Start, m.End, spec.ExtmarkOpts)
	if err != nil {
		return err
	}
	m.ExtmarkId = &markID
	return nil
}
