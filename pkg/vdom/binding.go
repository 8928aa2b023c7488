package vdom

import "github.com/nexus-editor/agentcore/pkg/position"

// contains reports whether p falls within [m.Start, m.End).
func contains(m *Mounted, p position.Pos0) bool {
	return m.Start.LessEq(p) && p.Less(m.End)
}

// bindingsOf returns the Bindings map a mounted node's source VDOM node
// carries, or nil if it carries none.
func bindingsOf(n Node) Bindings {
	switch v := n.(type) {
	case *TextNode:
		return v.Bindings
	case *TemplateNode:
		return v.Bindings
	case *ArrayNode:
		return v.Bindings
	default:
		return nil
	}
}

// Dispatch finds the deepest node in the mounted tree whose range contains
// cursor and whose bindings define key, and invokes its action. It returns
// true if a binding was found and invoked, false if the key press should
// be ignored.
func Dispatch(root *Mounted, cursor position.Pos0, key Key) bool {
	if !contains(root, cursor) {
		return false
	}
	for i := len(root.Children) - 1; i >= 0; i-- {
		if Dispatch(root.Children[i], cursor, key) {
			return true
		}
	}
	if b := bindingsOf(root.Node); b != nil {
		if action, ok := b[key]; ok {
			action()
			return true
		}
	}
	return false
}
