package toolcore

import "errors"

// Error taxonomy sentinels. Call sites branch on these with errors.Is,
// never on error message text — see SPEC_FULL.md §7.
var (
	// ErrUserInput is a validation failure in tool input or command
	// syntax; surfaced as a tool done(error) with a user-readable
	// message, thread continues.
	ErrUserInput = errors.New("toolcore: invalid input")

	// ErrPermissionDenied is raised when the user rejects a prompt or
	// policy forbids the action outright.
	ErrPermissionDenied = errors.New("toolcore: permission denied")

	// ErrEnvironment covers file-not-found, invalid buffer, command not
	// found, timeout, or signal termination.
	ErrEnvironment = errors.New("toolcore: environment error")

	// ErrProvider is a transport or decoding failure from the LLM.
	ErrProvider = errors.New("toolcore: provider error")

	// ErrInternalInvariant marks a condition that should never occur
	// (e.g. a reconciliation child-count mismatch under an identical
	// template key). The affected subtree is replaced wholesale rather
	// than crashing the app.
	ErrInternalInvariant = errors.New("toolcore: internal invariant violated")
)
