package types

import "errors"

// Error taxonomy for the engine. Callers classify failures with errors.Is
// against these sentinels; packages wrap them with operation detail.
var (
	// ErrInput marks empty or malformed document input. Never fatal:
	// chunking degrades to an empty or fallback-chunk result instead.
	ErrInput = errors.New("invalid input")

	// ErrStrategy marks an internal chunker failure such as unparseable
	// markers. Caught per document and degraded to a fallback chunk.
	ErrStrategy = errors.New("strategy failed")

	// ErrProvider marks an embedding provider call failure. Retried with
	// backoff; on exhaustion the item is marked embedding-missing.
	ErrProvider = errors.New("embedding provider failed")

	// ErrStorage marks a persistence I/O failure. Fatal for the specific
	// operation; retry policy belongs to the caller.
	ErrStorage = errors.New("storage failed")

	// ErrConfig marks invalid configuration. Rejected eagerly at
	// construction time, before any processing begins.
	ErrConfig = errors.New("invalid configuration")
)

// Validation errors for result types
var (
	ErrInvalidChunkID = errors.New("invalid chunk ID")
	ErrInvalidScore   = errors.New("score must be between 0 and 1")
	ErrEmptyContent   = errors.New("content cannot be empty")
)
