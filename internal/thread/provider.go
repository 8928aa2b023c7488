// Package thread implements the per-conversation state machine: the
// send-message/stream/tool-wait loop, streaming decode of a provider's
// content-block events into a Message's Parts, and the subagent
// spawn/yield coupling. A Thread depends only on the StreamingProvider
// seam below — concrete wire adapters for any given LLM vendor live
// outside this module.
package thread

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// StopReason is the terminal reason a provider stream ended with.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
	StopAborted   StopReason = "aborted"
)

// BlockKind distinguishes the three content block shapes a streamed
// turn may open.
type BlockKind int

const (
	BlockText BlockKind = iota
	BlockThinking
	BlockToolUse
)

// ToolSpec is the provider-facing declaration of one callable tool,
// resolved by the Chat from the thread's type and any attached MCP
// servers before a turn opens.
type ToolSpec struct {
	Name        string
	Description string
	Schema      json.RawMessage
}

// Request is what the thread hands the provider to open one streaming
// turn.
type Request struct {
	Model     string
	System    string
	Messages  []RequestMessage
	Tools     []ToolSpec
	MaxTokens int
}

// RequestMessage is a provider-facing flattening of a message.Message;
// built fresh for every request since the wire shape a vendor adapter
// wants (role strings, inlined tool call/result JSON) is its own
// concern, not the thread's persisted Part sequence.
type RequestMessage struct {
	Role  string
	Parts []RequestPart
}

// RequestPart mirrors message.Part loosely enough that a vendor adapter
// can translate it without importing pkg/message's Part interface.
type RequestPart struct {
	Text           string
	Thinking       string
	ToolUseID      string
	ToolName       string
	ToolInput      json.RawMessage
	ToolResultText string
	ToolResultErr  string
	SystemReminder string
}

// BlockStart opens an assembling content block at index.
type BlockStart struct {
	Index     int
	Kind      BlockKind
	ToolUseID string
	ToolName  string
}

// BlockDelta carries one incremental update to the block at Index. Only
// the field matching the block's Kind is meaningful.
type BlockDelta struct {
	Index       int
	Text        string
	Thinking    string
	PartialJSON string
}

// MessageDelta carries the turn's terminal metadata, emitted once
// shortly before MessageStop.
type MessageDelta struct {
	StopReason   StopReason
	InputTokens  int
	OutputTokens int
}

// StreamEvent is the provider's typed event union. Exactly one field is
// set per event; the thread decodes these into the active assistant
// Message's Parts incrementally as they arrive.
type StreamEvent struct {
	BlockStart   *BlockStart
	Delta        *BlockDelta
	BlockStop    *int
	MessageDelta *MessageDelta
	MessageStop  bool
}

// StreamingProvider is the sole seam between a Thread and any concrete
// LLM vendor.
type StreamingProvider interface {
	OpenStream(ctx context.Context, req Request) (<-chan StreamEvent, error)
}

// FakeProvider is a deterministic in-memory StreamingProvider used by
// tests (and any harness exercising the thread without a network
// dependency). Each call to OpenStream replays the next scripted turn
// and then closes the channel; calling OpenStream with no turn left
// scripted is a test bug and returns an error rather than blocking
// forever.
type FakeProvider struct {
	mu    sync.Mutex
	turns [][]StreamEvent
	seen  []Request
}

// NewFakeProvider returns a provider with no turns scripted yet.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{}
}

// EnqueueTurn appends a scripted sequence of events to be replayed on
// the next OpenStream call.
func (f *FakeProvider) EnqueueTurn(events []StreamEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, events)
}

// Requests returns every request OpenStream has received so far, for
// tests asserting on what the thread sent (message history, tool specs).
func (f *FakeProvider) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.seen))
	copy(out, f.seen)
	return out
}

func (f *FakeProvider) OpenStream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	f.mu.Lock()
	f.seen = append(f.seen, req)
	if len(f.turns) == 0 {
		f.mu.Unlock()
		return nil, fmt.Errorf("thread: fake provider has no turn scripted for this call")
	}
	turn := f.turns[0]
	f.turns = f.turns[1:]
	f.mu.Unlock()

	ch := make(chan StreamEvent, len(turn))
	go func() {
		defer close(ch)
		for _, ev := range turn {
			select {
			case <-ctx.Done():
				return
			case ch <- ev:
			}
		}
	}()
	return ch, nil
}

// TextTurn builds a one-block, end-of-turn scripted response: a text
// block streamed in the given chunks, then message_stop.
func TextTurn(chunks ...string) []StreamEvent {
	events := []StreamEvent{{BlockStart: &BlockStart{Index: 0, Kind: BlockText}}}
	for _, c := range chunks {
		events = append(events, StreamEvent{Delta: &BlockDelta{Index: 0, Text: c}})
	}
	stop := 0
	events = append(events,
		StreamEvent{BlockStop: &stop},
		StreamEvent{MessageDelta: &MessageDelta{StopReason: StopEndTurn}},
		StreamEvent{MessageStop: true},
	)
	return events
}

// ToolUseTurn builds a single tool_use block turn: the block opens,
// streams inputJSON as one input_json_delta, closes, and the turn ends
// with stop_reason=tool_use.
func ToolUseTurn(toolUseID, toolName string, inputJSON string) []StreamEvent {
	stop := 0
	return []StreamEvent{
		{BlockStart: &BlockStart{Index: 0, Kind: BlockToolUse, ToolUseID: toolUseID, ToolName: toolName}},
		{Delta: &BlockDelta{Index: 0, PartialJSON: inputJSON}},
		{BlockStop: &stop},
		{MessageDelta: &MessageDelta{StopReason: StopToolUse}},
		{MessageStop: true},
	}
}
