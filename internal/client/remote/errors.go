package remote

import "errors"

var (
	// ErrUnavailable indicates the backend could not be reached or answered
	// with a server error. The sync orchestrator surfaces it as a sync-level
	// failure without touching local state.
	ErrUnavailable = errors.New("remote backend unavailable")

	// ErrNoSession indicates a call that requires authentication was made
	// without a signed-in session.
	ErrNoSession = errors.New("no active session")
)
