package messaging

import "errors"

// Domain-level errors for the delivery engine. Controllers map these to HTTP
// statuses; use cases wrap repository failures separately (usecase.ErrPersistence).
var (
	// ErrValidation rejects malformed input before any state change.
	ErrValidation = errors.New("messaging: invalid input")

	// ErrUnauthorized rejects callers that are not active conversation
	// participants, before any state change.
	ErrUnauthorized = errors.New("messaging: caller is not a participant in the conversation")

	// ErrNotFound means the target delivery record does not exist or is
	// already tombstoned.
	ErrNotFound = errors.New("messaging: delivery record not found")

	// ErrFanout means per-recipient record creation failed partway. The
	// message is rolled back with it; an undeliverable message must not
	// survive.
	ErrFanout = errors.New("messaging: delivery fan-out failed")
)
