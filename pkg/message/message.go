// Package message defines the ordered-part Message model threads
// accumulate: every exchange with a provider, and every tool call and its
// result, lives as a typed Part appended to a Message in arrival order.
package message

import (
	"time"

	"github.com/nexus-editor/agentcore/pkg/ids"
)

// Role distinguishes who produced a Message.
type Role int

const (
	RoleUser Role = iota
	RoleAssistant
)

// Message is a sequence of typed Parts attributed to one role. Messages
// are append-only except for the compact operation, which rewrites a
// contiguous range of a thread's message slice in place.
type Message struct {
	ID        ids.MessageId
	Role      Role
	Parts     []Part
	CreatedAt time.Time
}

// Part is the sealed union of content a Message carries. The unexported
// marker method keeps the set closed to this package — exhaustive
// switches elsewhere can panic on a default case in good conscience.
type Part interface {
	part()
}

// Text is plain model or user text.
type Text struct {
	Content string
}

func (Text) part() {}

// Thinking is a provider chain-of-thought segment. It is preserved for
// replay but stripped during compaction.
type Thinking struct {
	Content string
}

func (Thinking) part() {}

// ToolUse is a structured tool call the model emitted.
type ToolUse struct {
	RequestID ids.ToolRequestId
	ToolName  string
	Input     []byte
}

func (ToolUse) part() {}

// ToolResult carries a tool's outcome back as a user-message part. Err is
// non-nil when the tool finished in an error state; Payload carries the
// success text plus any document attachments.
type ToolResult struct {
	RequestID ids.ToolRequestId
	Payload   string
	Documents []ResultDocument
	Err       error
}

func (ToolResult) part() {}

// ResultDocument is a binary attachment carried by a ToolResult.
type ResultDocument struct {
	MediaType string
	Bytes     []byte
	Title     string
}

// SystemReminder is a user-message adornment (context file mentions,
// nudges) that may be stripped on compaction.
type SystemReminder struct {
	Content string
}

func (SystemReminder) part() {}

// Image is attached image content.
type Image struct {
	MIME  string
	Bytes []byte
}

func (Image) part() {}

// Document is attached non-image file content.
type Document struct {
	MIME  string
	Bytes []byte
	Title string
}

func (Document) part() {}

// ToolUseRequestIDs returns the request IDs of every ToolUse part in msg,
// in order, for matching against subsequent ToolResult parts.
func ToolUseRequestIDs(msg Message) []ids.ToolRequestId {
	var out []ids.ToolRequestId
	for _, p := range msg.Parts {
		if tu, ok := p.(ToolUse); ok {
			out = append(out, tu.RequestID)
		}
	}
	return out
}

// PendingToolResults reports which of the given request IDs have not yet
// been matched by a ToolResult part across messages.
func PendingToolResults(messages []Message, requestIDs []ids.ToolRequestId) []ids.ToolRequestId {
	satisfied := make(map[ids.ToolRequestId]bool, len(requestIDs))
	for _, m := range messages {
		for _, p := range m.Parts {
			if tr, ok := p.(ToolResult); ok {
				satisfied[tr.RequestID] = true
			}
		}
	}
	var pending []ids.ToolRequestId
	for _, id := range requestIDs {
		if !satisfied[id] {
			pending = append(pending, id)
		}
	}
	return pending
}
