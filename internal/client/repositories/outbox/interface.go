package outbox

import (
	"context"

	"github.com/medkeep/medkeep/internal/client/models"
)

// Repository is the durable per-scope FIFO of pending remote mutations.
// Events are opaque here; only the sync orchestrator interprets their kind.
type Repository interface {
	// Enqueue appends the event to the scope's queue.
	Enqueue(ctx context.Context, scope models.Scope, event models.OutboxEvent) error

	// List returns the scope's events in enqueue order.
	List(ctx context.Context, scope models.Scope) ([]models.OutboxEvent, error)

	// Remove deletes one event after it was applied remotely.
	Remove(ctx context.Context, scope models.Scope, eventID string) error

	// IncrementRetry bumps the event's retry counter after a failed attempt.
	// The retry counter is the only field ever mutated in place.
	IncrementRetry(ctx context.Context, scope models.Scope, eventID string) error

	// Clear drops all events for the scope.
	Clear(ctx context.Context, scope models.Scope) error
}
