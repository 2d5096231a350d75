package states

import (
	"context"

	"github.com/medkeep/medkeep/internal/client/models"
)

// Repository persists one full state record per scope.
type Repository interface {
	// Load returns the scope's state. An absent or corrupt record yields an
	// empty state, never an error: availability over strictness.
	Load(ctx context.Context, scope models.Scope) (models.State, error)

	// Save replaces the scope's state record.
	Save(ctx context.Context, scope models.Scope, state models.State) error

	// Delete removes the scope's state record.
	Delete(ctx context.Context, scope models.Scope) error

	// MigrateLegacy adopts the pre-scoping unscoped record into the guest
	// partition and deletes it. It is a one-time pass run at startup; it does
	// nothing when no legacy record exists or the guest partition is already
	// populated.
	MigrateLegacy(ctx context.Context) error
}
