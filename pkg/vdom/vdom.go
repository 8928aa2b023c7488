// Package vdom implements the core's incremental template-literal view
// engine: a small, immutable virtual-document tree, a mounting pass that
// writes it into an editor buffer via pkg/buffer, and an incremental
// reconciler that patches a live buffer range against a freshly produced
// tree while tracking row/column drift with an accumulated edit.
//
// Go has no tagged-template-literal syntax, so where the source language
// derives a stable per-call-site key from the call site itself, callers
// here pass an explicit static templateKey (see Tmpl).
package vdom

import "github.com/nexus-editor/agentcore/pkg/buffer"

// Key identifies a pressed key for binding lookup purposes (e.g. "<CR>",
// "d", "<C-c>").
type Key string

// Action is invoked when a bound key is pressed while the cursor is
// inside the owning node's mounted range.
type Action func()

// Bindings maps a pressed key to the action it triggers.
type Bindings map[Key]Action

// Extmark mirrors the decoration options a node asks the view engine to
// attach to its mounted range. A nil Extmark means the node owns no
// annotation.
type Extmark struct {
	buffer.ExtmarkOpts
}

// Node is the sealed interface implemented by the three VDOM node kinds.
// The unexported method prevents external packages from adding new kinds,
// mirroring the exhaustive-switch discipline of a closed sum type.
type Node interface {
	node()
}

// TextNode is a leaf carrying literal content.
type TextNode struct {
	Content  string
	Bindings Bindings
	Extmark  *Extmark
}

func (TextNode) node() {}

// Text constructs a leaf Text VDOM node.
func Text(content string) *TextNode {
	return &TextNode{Content: content}
}

// WithBindings returns a copy of the node carrying the given key bindings.
func (t *TextNode) WithBindings(b Bindings) *TextNode {
	cp := *t
	cp.Bindings = b
	return &cp
}

// WithExtmark returns a copy of the node carrying the given extmark spec.
func (t *TextNode) WithExtmark(e Extmark) *TextNode {
	cp := *t
	cp.Extmark = &e
	return &cp
}

// TemplateNode groups children produced by one template call site.
// TemplateKey identifies that call site; two TemplateNodes are
// shape-compatible during reconciliation iff their TemplateKey is
// identical and their child counts match.
type TemplateNode struct {
	TemplateKey string
	Children    []Node
	Bindings    Bindings
	Extmark     *Extmark
}

func (TemplateNode) node() {}

// WithBindings returns a copy of the node carrying the given key bindings.
func (t *TemplateNode) WithBindings(b Bindings) *TemplateNode {
	cp := *t
	cp.Bindings = b
	return &cp
}

// WithExtmark returns a copy of the node carrying the given extmark spec.
func (t *TemplateNode) WithExtmark(e Extmark) *TemplateNode {
	cp := *t
	cp.Extmark = &e
	return &cp
}

// ArrayNode is a homogeneous, dynamically sized sequence of children. It
// is shape-compatible with nothing except another ArrayNode.
type ArrayNode struct {
	Children []Node
	Bindings Bindings
	Extmark  *Extmark
}

func (ArrayNode) node() {}

// Array constructs an ArrayNode from a slice of children.
func Array(children ...Node) *ArrayNode {
	return &ArrayNode{Children: children}
}
