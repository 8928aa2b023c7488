// Package ids defines the opaque, globally-unique identifier types used
// throughout the core: threads, messages, tool requests, buffers, extmarks
// and checkpoints never share a type, so a ThreadId can never be passed
// where a ToolRequestId is expected even though both are UUID strings
// underneath.
package ids

import "github.com/google/uuid"

// ThreadId identifies a single conversation state machine.
type ThreadId string

// MessageId identifies one Message within a thread's log.
type MessageId string

// ToolRequestId identifies one ToolUse/ToolResult pair.
type ToolRequestId string

// BufferId identifies an editor buffer, as handed to us by the host.
type BufferId string

// ExtmarkId identifies a position-tracking annotation within a buffer.
type ExtmarkId string

// CheckpointId identifies a marker in a thread's message log used as an
// anchor for compaction.
type CheckpointId string

// ProcessId identifies a background process started by bash_command and
// managed thereafter through the process tool.
type ProcessId string

// NewThreadId mints a fresh, process-unique ThreadId.
func NewThreadId() ThreadId { return ThreadId(uuid.New().String()) }

// NewMessageId mints a fresh, process-unique MessageId.
func NewMessageId() MessageId { return MessageId(uuid.New().String()) }

// NewToolRequestId mints a fresh, process-unique ToolRequestId.
func NewToolRequestId() ToolRequestId { return ToolRequestId(uuid.New().String()) }

// NewExtmarkId mints a fresh, process-unique ExtmarkId.
func NewExtmarkId() ExtmarkId { return ExtmarkId(uuid.New().String()) }

// NewCheckpointId mints a fresh, process-unique CheckpointId.
func NewCheckpointId() CheckpointId { return CheckpointId(uuid.New().String()) }

// NewProcessId mints a fresh, process-unique ProcessId.
func NewProcessId() ProcessId { return ProcessId(uuid.New().String()) }
