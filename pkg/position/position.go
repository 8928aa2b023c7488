// Package position defines the core's row/column coordinate types and the
// conversions between them. Two disjoint position families and two
// disjoint index families exist on purpose: mixing a 0-indexed editor
// position with a 1-indexed one, or a code-unit string index with a
// buffer byte index, is a class of bug the type system should catch.
package position

import "fmt"

// Pos0 is a row/column position using 0-indexed rows and a byte offset
// into the line for col. This is the family used everywhere inside the
// core's model and view engine.
type Pos0 struct {
	Row int
	Col int
}

// Pos1Col1 is a 1-indexed row, 1-indexed column position used only at
// editor boundaries (most terminal editors report cursor position this
// way).
type Pos1Col1 struct {
	Row int
	Col int
}

// ToPos0 converts a 1-indexed editor position to the internal 0-indexed
// family.
func (p Pos1Col1) ToPos0() Pos0 {
	return Pos0{Row: p.Row - 1, Col: p.Col - 1}
}

// ToPos1Col1 converts an internal position back to the 1-indexed family
// expected at editor boundaries.
func (p Pos0) ToPos1Col1() Pos1Col1 {
	return Pos1Col1{Row: p.Row + 1, Col: p.Col + 1}
}

// Less reports whether p sorts strictly before o in (row, col) lexicographic
// order.
func (p Pos0) Less(o Pos0) bool {
	if p.Row != o.Row {
		return p.Row < o.Row
	}
	return p.Col < o.Col
}

// LessEq reports whether p sorts before or equal to o in (row, col)
// lexicographic order.
func (p Pos0) LessEq(o Pos0) bool {
	return p == o || p.Less(o)
}

func (p Pos0) String() string {
	return fmt.Sprintf("row%dcol%d", p.Row, p.Col)
}

// Range is a half-open [Start, End) span over buffer text expressed in
// Pos0 coordinates.
type Range struct {
	Start Pos0
	End   Pos0
}

// Empty reports whether the range spans zero text (a point range).
func (r Range) Empty() bool { return r.Start == r.End }

// SingleLine reports whether the range begins and ends on the same row.
func (r Range) SingleLine() bool { return r.Start.Row == r.End.Row }

func (r Range) String() string {
	return fmt.Sprintf("%s..%s", r.Start, r.End)
}

// StringIdx is a code-unit offset into an in-memory Go string (which,
// since Go strings are byte slices, coincides with a byte offset into
// that string specifically — it is kept distinct from ByteIdx because
// the two are never interchangeable once the string in question is a
// line scanned out of a buffer versus a one-off literal).
type StringIdx int

// ByteIdx is a byte offset into a buffer's UTF-8 encoded line contents.
type ByteIdx int
