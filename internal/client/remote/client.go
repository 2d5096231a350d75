// Package remote defines the interface to the backend and its HTTP
// implementation. The client is constructed explicitly and injected into the
// sync orchestrator, so tests can substitute a double; there is no package
// level singleton.
package remote

import (
	"context"
	"time"

	"github.com/medkeep/medkeep/internal/client/models"
)

// Session is the result of a successful sign-in. UserID is the stable
// account identifier the authenticated scope is bound to.
type Session struct {
	AccessToken string
	UserID      string
}

// Client is the remote backend surface the core depends on.
type Client interface {
	Close() error

	SignIn(ctx context.Context, email, password string) (Session, error)
	SignOut(ctx context.Context) error
	Ping(ctx context.Context) error

	// UpsertMedication pushes a denormalized medication row.
	UpsertMedication(ctx context.Context, row models.RemoteMedicationRow) error

	// DeleteMedication records a deletion tombstone for the medication.
	DeleteMedication(ctx context.Context, medicationID string, deletedAt time.Time) error

	// InsertLog pushes one dose log row.
	InsertLog(ctx context.Context, row models.RemoteLogRow) error

	// FetchMedications returns the owner's medication rows, tombstones
	// included. A nil since requests the complete set; otherwise only rows
	// changed or deleted after the checkpoint are returned.
	FetchMedications(ctx context.Context, ownerID string, since *time.Time) ([]models.RemoteMedicationRow, error)

	// FetchLogs is the log-row counterpart of FetchMedications.
	FetchLogs(ctx context.Context, ownerID string, since *time.Time) ([]models.RemoteLogRow, error)
}
