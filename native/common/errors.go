package common

import "errors"

// The emission modules classify every failure into one of four kinds so
// callers can assert on cause rather than matching message strings. Concrete
// errors wrap exactly one kind with %w, keeping errors.Is usable for both the
// precise condition and the taxonomy bucket.
var (
	// ErrValidation marks malformed input: non-positive amounts, nil
	// collaborators, zero addresses.
	ErrValidation = errors.New("validation failed")
	// ErrAuthorization marks callers that are neither the owner nor the
	// registered reward engine.
	ErrAuthorization = errors.New("unauthorized caller")
	// ErrState marks operations whose preconditions against current state do
	// not hold: unexpired cooldowns, missing stake, absent shields,
	// unconfigured collaborators.
	ErrState = errors.New("invalid state")
	// ErrAlreadyConfigured marks an attempt to rebind a one-time collaborator
	// reference to a different value.
	ErrAlreadyConfigured = errors.New("already configured")
)
