package vdom

import (
	"context"

	"github.com/nexus-editor/agentcore/pkg/buffer"
	"github.com/nexus-editor/agentcore/pkg/ids"
	"github.com/nexus-editor/agentcore/pkg/position"
)

// AccumulatedEdit tracks the row/column drift introduced by edits already
// applied earlier in a single reconciliation pass, so that positions
// computed against the prior mounted tree can be remapped onto the buffer
// as it now exists without re-scanning from the top.
type AccumulatedEdit struct {
	DeltaRow     int
	DeltaCol     int
	LastEditRow  int
}

// RemapCurrentToNextPos remaps a range captured against the prior mounted
// tree onto the buffer's current state, given the drift accumulated by
// edits applied so far in this pass. Start and end endpoints use
// different thresholds against LastEditRow, per the reconciliation
// contract: a start at or before the last edited row carries the full
// column drift (it is still "inside" the edited region); an end carries
// the column drift only when it sits exactly on the last edited row,
// since rows strictly after that have not had their columns touched.
func RemapCurrentToNextPos(cur position.Range, acc AccumulatedEdit) position.Range {
	return position.Range{
		Start: remapStart(cur.Start, acc),
		End:   remapEnd(cur.End, acc),
	}
}

func remapStart(p position.Pos0, acc AccumulatedEdit) position.Pos0 {
	if p.Row > acc.LastEditRow {
		return position.Pos0{Row: p.Row + acc.DeltaRow, Col: p.Col}
	}
	return position.Pos0{Row: p.Row + acc.DeltaRow, Col: p.Col + acc.DeltaCol}
}

func remapEnd(p position.Pos0, acc AccumulatedEdit) position.Pos0 {
	if p.Row == acc.LastEditRow {
		return position.Pos0{Row: p.Row + acc.DeltaRow, Col: p.Col + acc.DeltaCol}
	}
	return position.Pos0{Row: p.Row + acc.DeltaRow, Col: p.Col}
}

// UpdateAccumulatedEdit folds one more applied edit into acc. oldRange is
// the edited node's range in the prior mounted tree (pre-remap);
// remappedOldRange is that same range remapped onto the current buffer
// via RemapCurrentToNextPos using acc as it stood before this edit;
// newRange is where the freshly written replacement text actually landed.
func UpdateAccumulatedEdit(acc AccumulatedEdit, oldRange, remappedOldRange, newRange position.Range) AccumulatedEdit {
	next := acc
	next.DeltaRow += newRange.End.Row - remappedOldRange.End.Row
	if oldRange.SingleLine() && newRange.SingleLine() {
		next.DeltaCol += newRange.End.Col - remappedOldRange.End.Col
	}
	if newRange.End.Row != oldRange.End.Row {
		next.DeltaCol = newRange.End.Col - oldRange.End.Col
	}
	next.LastEditRow = newRange.End.Row
	return next
}

// Reconcile walks prior (the previously mounted tree) against next (a
// freshly produced VDOM) in document order, patching the buffer with the
// minimal set of SetText/extmark calls and returning the newly mounted
// tree plus the accumulated edit as it stood after the last applied
// change (callers reconciling a sequence of siblings thread this value
// through).
func Reconcile(ctx context.Context, host buffer.Host, bufID ids.BufferId, prior *Mounted, next Node, acc AccumulatedEdit) (*Mounted, AccumulatedEdit, error) {
	if !shapeCompatible(prior.Node, next) {
		return replace(ctx, host, bufID, prior, next, acc)
	}

	switch curNode := prior.Node.(type) {
	case *TextNode:
		nextText := next.(*TextNode)
		if curNode.Content == nextText.Content {
			return remapOnly(prior, next, acc), acc, nil
		}
		return replace(ctx, host, bufID, prior, next, acc)

	case *TemplateNode:
		nextTmpl := next.(*TemplateNode)
		if len(curNode.Children) != len(nextTmpl.Children) {
			return replace(ctx, host, bufID, prior, next, acc)
		}
		return reconcileChildren(ctx, host, bufID, prior, nextTmpl, nextTmpl.Children, acc)

	case *ArrayNode:
		nextArr := next.(*ArrayNode)
		return reconcileArray(ctx, host, bufID, prior, nextArr, acc)

	default:
		panic("vdom: unreachable node kind")
	}
}

// shapeCompatible implements the "different structural types, different
// template keys, or different array-vs-non-array" replace trigger.
func shapeCompatible(cur Node, next Node) bool {
	switch c := cur.(type) {
	case *TextNode:
		_, ok := next.(*TextNode)
		return ok
	case *TemplateNode:
		n, ok := next.(*TemplateNode)
		return ok && n.TemplateKey == c.TemplateKey
	case *ArrayNode:
		_, ok := next.(*ArrayNode)
		return ok
	default:
		return false
	}
}

// remapOnly handles the "Text with identical content: only remap
// positions" rule — no buffer mutation, no accumulator change.
func remapOnly(prior *Mounted, next Node, acc AccumulatedEdit) *Mounted {
	r := RemapCurrentToNextPos(prior.Range(), acc)
	return &Mounted{Node: next, Start: r.Start, End: r.End, ExtmarkId: prior.ExtmarkId}
}

// replace writes next's text over prior's remapped range, re-scans
// positions for the freshly mounted subtree, frees prior's extmarks, and
// folds the edit into the accumulator.
func replace(ctx context.Context, host buffer.Host, bufID ids.BufferId, prior *Mounted, next Node, acc AccumulatedEdit) (*Mounted, AccumulatedEdit, error) {
	oldRange := prior.Range()
	remapped := RemapCurrentToNextPos(oldRange, acc)

	if err := freeExtmarks(ctx, host, bufID, prior); err != nil {
		return nil, acc, err
	}

	text := collectText(next)
	if err := host.SetText(ctx, bufID, remapped.Start, remapped.End, splitLines(text)); err != nil {
		return nil, acc, err
	}
	newEnd := endOfText(remapped.Start, text)
	newRange := position.Range{Start: remapped.Start, End: newEnd}

	c := &cursor{pos: remapped.Start}
	mounted, err := mountNode(ctx, host, bufID, next, c)
	if err != nil {
		return nil, acc, err
	}
	mounted.End = newEnd

	nextAcc := UpdateAccumulatedEdit(acc, oldRange, remapped, newRange)
	return mounted, nextAcc, nil
}

func splitLines(s string) []string {
	lines := []string{""}
	cur := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines[len(lines)-1] = s[cur:i]
			lines = append(lines, "")
			cur = i + 1
		}
	}
	lines[len(lines)-1] = s[cur:]
	return lines
}

// reconcileChildren handles the "same Template key and identical child
// count: recurse on children" rule.
func reconcileChildren(ctx context.Context, host buffer.Host, bufID ids.BufferId, prior *Mounted, next *TemplateNode, nextChildren []Node, acc AccumulatedEdit) (*Mounted, AccumulatedEdit, error) {
	children := make([]*Mounted, len(prior.Children))
	for i, priorChild := range prior.Children {
		mc, nextAcc, err := Reconcile(ctx, host, bufID, priorChild, nextChildren[i], acc)
		if err != nil {
			return nil, acc, err
		}
		children[i] = mc
		acc = nextAcc
	}
	start := prior.Start
	if len(children) > 0 {
		start = children[0].Start
	} else {
		r := RemapCurrentToNextPos(position.Range{Start: prior.Start, End: prior.Start}, acc)
		start = r.Start
	}
	m := &Mounted{Node: next, Start: start, End: unionEnd(start, children), Children: children, ExtmarkId: prior.ExtmarkId}
	if err := adjustExtmark(ctx, host, bufID, prior, m, next.Extmark); err != nil {
		return nil, acc, err
	}
	return m, acc, nil
}

// reconcileArray implements the ArrayNode rule: pairwise reconcile up to
// min(lenCur, lenNext); excess in cur is deleted; excess in next is
// inserted at the end of the prior array's range.
func reconcileArray(ctx context.Context, host buffer.Host, bufID ids.BufferId, prior *Mounted, next *ArrayNode, acc AccumulatedEdit) (*Mounted, AccumulatedEdit, error) {
	n := len(prior.Children)
	if len(next.Children) < n {
		n = len(next.Children)
	}
	children := make([]*Mounted, 0, len(next.Children))
	for i := 0; i < n; i++ {
		mc, nextAcc, err := Reconcile(ctx, host, bufID, prior.Children[i], next.Children[i], acc)
		if err != nil {
			return nil, acc, err
		}
		children = append(children, mc)
		acc = nextAcc
	}

	if len(prior.Children) > n {
		for _, excess := range prior.Children[n:] {
			if err := freeExtmarks(ctx, host, bufID, excess); err != nil {
				return nil, acc, err
			}
		}
		last := prior.Children[len(prior.Children)-1]
		removeStart := prior.Children[n].Start
		remapped := RemapCurrentToNextPos(position.Range{Start: removeStart, End: last.End}, acc)
		if err := host.SetText(ctx, bufID, remapped.Start, remapped.End, []string{""}); err != nil {
			return nil, acc, err
		}
		acc = UpdateAccumulatedEdit(acc, position.Range{Start: removeStart, End: last.End}, remapped, position.Range{Start: remapped.Start, End: remapped.Start})
	}

	if len(next.Children) > n {
		insertAt := prior.Start
		if len(prior.Children) > 0 {
			insertAt = prior.Children[len(prior.Children)-1].End
		}
		remappedPoint := RemapCurrentToNextPos(position.Range{Start: insertAt, End: insertAt}, acc)
		c := &cursor{pos: remappedPoint.Start}
		var insertedText string
		for _, extra := range next.Children[n:] {
			insertedText += collectText(extra)
		}
		if err := host.SetText(ctx, bufID, remappedPoint.Start, remappedPoint.Start, splitLines(insertedText)); err != nil {
			return nil, acc, err
		}
		for _, extra := range next.Children[n:] {
			mc, err := mountNode(ctx, host, bufID, extra, c)
			if err != nil {
				return nil, acc, err
			}
			children = append(children, mc)
		}
		newEnd := c.pos
		acc = UpdateAccumulatedEdit(acc, position.Range{Start: insertAt, End: insertAt}, remappedPoint, position.Range{Start: remappedPoint.Start, End: newEnd})
	}

	start := prior.Start
	if len(children) > 0 {
		start = children[0].Start
	} else {
		r := RemapCurrentToNextPos(position.Range{Start: prior.Start, End: prior.Start}, acc)
		start = r.Start
	}
	m := &Mounted{Node: next, Start: start, End: unionEnd(start, children), Children: children, ExtmarkId: prior.ExtmarkId}
	if err := adjustExtmark(ctx, host, bufID, prior, m, next.Extmark); err != nil {
		return nil, acc, err
	}
	return m, acc, nil
}

// adjustExtmark allocates, updates, or frees m's extmark relative to
// prior's, per the node's (possibly changed) extmark spec.
func adjustExtmark(ctx context.Context, host buffer.Host, bufID ids.BufferId, prior *Mounted, m *Mounted, spec *Extmark) error {
	switch {
	case spec == nil && prior.ExtmarkId != nil:
		if err := host.DeleteExtmark(ctx, bufID, *prior.ExtmarkId); err != nil {
			return err
		}
		m.ExtmarkId = nil
	case spec != nil && prior.ExtmarkId == nil:
		if m.Start == m.End {
			return nil
		}
		markID, err := host.CreateExtmark(ctx, bufID, m.Start, m.End, spec.ExtmarkOpts)
		if err != nil {
			return err
		}
		m.ExtmarkId = &markID
	case spec != nil && prior.ExtmarkId != nil:
		if m.Start == m.End {
			if err := host.DeleteExtmark(ctx, bufID, *prior.ExtmarkId); err != nil {
				return err
			}
			m.ExtmarkId = nil
			return nil
		}
		if err := host.UpdateExtmark(ctx, bufID, *prior.ExtmarkId, m.Start, m.End, spec.ExtmarkOpts); err != nil {
			return err
		}
		m.ExtmarkId = prior.ExtmarkId
	}
	return nil
}

// freeExtmarks releases every extmark owned by m's subtree, depth-first.
func freeExtmarks(ctx context.Context, host buffer.Host, bufID ids.BufferId, m *Mounted) error {
	for _, c := range m.Children {
		if err := freeExtmarks(ctx, host, bufID, c); err != nil {
			return err
		}
	}
	if m.ExtmarkId != nil {
		if err := host.DeleteExtmark(ctx, bufID, *m.ExtmarkId); err != nil {
			return err
		}
	}
	return nil
}
