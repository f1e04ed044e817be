package store

import "errors"

// Error taxonomy for store operations. Callers classify with errors.Is.
var (
	// ErrValidation marks a malformed record: missing fields, bad status,
	// oversized or non-printable text. Recoverable; surfaced to the user.
	ErrValidation = errors.New("validation error")

	// ErrIntegrity marks a referential violation: a parent_id or status
	// update naming an unknown ID, or a duplicate creation ID.
	ErrIntegrity = errors.New("integrity error")

	// ErrConcurrency marks lock contention with another process. The store
	// does not retry; the caller may.
	ErrConcurrency = errors.New("concurrency error")

	// ErrStorage marks an I/O failure. Fatal for the operation; the atomic
	// append guarantees no partial record is visible afterwards.
	ErrStorage = errors.New("storage error")
)
