package checkpoints

import (
	"context"
	"time"

	"github.com/medkeep/medkeep/internal/client/models"
)

// Repository persists the last-successful-pull instant per scope. The
// checkpoint lives in its own table so a corrupt state record cannot erase
// sync progress.
type Repository interface {
	// Get returns the scope's checkpoint. found is false when no pull has
	// ever completed, which forces a full (non-incremental) pull.
	Get(ctx context.Context, scope models.Scope) (checkpoint time.Time, found bool, err error)

	// Set records the scope's checkpoint.
	Set(ctx context.Context, scope models.Scope, checkpoint time.Time) error

	// Delete drops the scope's checkpoint.
	Delete(ctx context.Context, scope models.Scope) error
}
