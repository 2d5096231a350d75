package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/medkeep/medkeep/internal/client/models"
	"github.com/medkeep/medkeep/internal/client/services"
	"github.com/medkeep/medkeep/internal/common"
)

func (a *App) runSync(ctx context.Context) {
	err := a.serialize(func(scope models.Scope) error {
		return a.sync.IncrementalPull(ctx, scope)
	})
	switch {
	case errors.Is(err, common.ErrUnauthorized):
		fmt.Println("Log in first; guest data stays local.")
	case err != nil:
		fmt.Println("Sync failed:", err)
	default:
		fmt.Println("Synced.")
	}
}

func (a *App) syncStatus() {
	st := a.sync.State()
	switch st.Status {
	case services.SyncSyncing:
		fmt.Println("Sync in progress...")
	case services.SyncError:
		fmt.Println("Last sync failed:", st.LastError)
	default:
		fmt.Println("Idle.")
	}
	if st.LastSyncedAt != nil {
		fmt.Println("Last successful sync:", st.LastSyncedAt.Format("2006-01-02 15:04:05"))
	}
}
