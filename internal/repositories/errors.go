package repositories

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repositories: record not found")
	// ErrConflict indicates a uniqueness constraint was violated.
	ErrConflict = errors.New("repositories: record already exists")
	// ErrTokenAlreadyUsed indicates the invite token was consumed by another user.
	ErrTokenAlreadyUsed = errors.New("repositories: invite token already used")
	// ErrSlotsExhausted indicates an item has no remaining order capacity.
	ErrSlotsExhausted = errors.New("repositories: item order slots exhausted")
)
