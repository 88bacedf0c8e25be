package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Stock errors
	ErrOutOfStock      = errors.New("service is out of stock")
	ErrServiceNotFound = errors.New("service does not exist")
	ErrServiceExists   = errors.New("service already exists")

	// Dispatch errors
	ErrBanned         = errors.New("user is banned from generation")
	ErrCooldownActive = errors.New("generation cooldown active")
	ErrWrongChannel   = errors.New("command not allowed in this channel")
	ErrNotAdmin       = errors.New("caller is not a bot admin")
	ErrDeliveryFailed = errors.New("could not deliver account to user")

	// Input errors
	ErrBadTier     = errors.New("invalid tier")
	ErrBadDuration = errors.New("invalid duration format")
)
