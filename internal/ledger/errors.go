package ledger

import "errors"

// Ledger errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a record whose key
	// already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCorruptState is returned when a read yields an impossible
	// position state (negative remaining size, remaining larger than
	// entry, terminal status with exposure). Fatal for the affected
	// position: callers must surface it, never repair it by guessing.
	ErrCorruptState = errors.New("corrupt position state")
)
