package domain

import "errors"

// Error taxonomy shared across the pipeline. Callers match with errors.Is.
var (
	// ErrInvalidArgument marks malformed chunking parameters or a dimension
	// mismatch between a query vector and the index.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrModelUnavailable means the embedding model could not be loaded.
	// Embedding cannot proceed without it.
	ErrModelUnavailable = errors.New("embedding model unavailable")

	// ErrCorruptIndex means the persisted index artifacts are missing in
	// part, mismatched, or unreadable. A rebuild is the only remedy.
	ErrCorruptIndex = errors.New("corrupt index")

	// ErrIndexNotReady means search was attempted before any index was
	// built. Distinct from ErrCorruptIndex: absence, not damage.
	ErrIndexNotReady = errors.New("index not ready")
)
