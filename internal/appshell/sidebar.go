package appshell

import (
	"fmt"
	"strings"

	"github.com/nexus-editor/agentcore/internal/chat"
	"github.com/nexus-editor/agentcore/internal/rootdispatch"
	"github.com/nexus-editor/agentcore/pkg/vdom"
)

// renderSidebar builds the sidebar's entire VDOM tree from the Chat's
// current thread overview: one line per thread, newest last, with <CR>
// on a line selecting that thread. dispatch is the root dispatcher's own
// Dispatch method, threaded through so a binding's action can enqueue a
// RootMsg rather than mutating anything directly.
func renderSidebar(c *chat.Chat, dispatch func(rootdispatch.RootMsg)) vdom.Node {
	overview := c.ThreadsOverview()
	if len(overview) == 0 {
		return vdom.Tmpl("sidebar", vdom.Str("(no threads yet)\n"))
	}
	rows := make([]vdom.Node, 0, len(overview))
	for _, entry := range overview {
		rows = append(rows, renderThreadRow(entry, dispatch))
	}
	return vdom.Tmpl("sidebar", vdom.Many{Nodes: rows})
}

// renderThreadRow renders one thread's summary line, bound to select
// that thread on <CR>.
func renderThreadRow(entry chat.ThreadOverviewEntry, dispatch func(rootdispatch.RootMsg)) vdom.Node {
	title := entry.Summary.Title
	if title == "" {
		title = string(entry.ID)
	}
	line := fmt.Sprintf("[%s] %s", strings.ToUpper(string(entry.Summary.Status)), title)
	if entry.Summary.Detail != "" {
		line += " — " + entry.Summary.Detail
	}
	line += "\n"

	id := entry.ID
	text := vdom.Text(line).WithBindings(vdom.Bindings{
		vdom.Key("<CR>"): func() { dispatch(rootdispatch.SelectThread{ID: id}) },
	})
	return vdom.Tmpl("thread-row", vdom.One{Node: text})
}
