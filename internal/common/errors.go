// Package common defines shared constants and sentinel errors used across
// the client layers of medkeep. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors.
	ErrInternal       = errors.New("internal error")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrSyncInProgress = errors.New("sync already in progress")

	// Validation errors.
	ErrInvalidTimeOfDay = errors.New("invalid time of day")
	ErrInvalidStatus    = errors.New("invalid dose status")

	// Outbox errors.
	ErrUnknownEventKind = errors.New("unknown outbox event kind")
)
