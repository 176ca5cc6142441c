package service

import "errors"

var (
	// ErrInvalidInput marks malformed input to a core operation. Always
	// recoverable; the operation is rejected with no state change.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientCredits is returned by a debit the balance cannot
	// cover. No state mutation occurs.
	ErrInsufficientCredits = errors.New("insufficient credits, top-up required")

	// ErrNoImageReturned means the edit service answered successfully but
	// without an image. Surfaced as "try a different prompt", not a crash.
	ErrNoImageReturned = errors.New("no edited image was returned")

	// ErrUnauthorized covers failed logins and missing sessions.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound covers lookups of absent users, templates or entries.
	ErrNotFound = errors.New("not found")
)
