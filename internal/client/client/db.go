// Package client wires the local database: it opens the sqlite file, runs
// the embedded migrations and builds the repository set.
package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/medkeep/medkeep/internal/client/migrations"
	"github.com/medkeep/medkeep/internal/client/repositories/checkpoints"
	"github.com/medkeep/medkeep/internal/client/repositories/outbox"
	"github.com/medkeep/medkeep/internal/client/repositories/states"
	"github.com/medkeep/medkeep/internal/dbx"
)

// Repositories bundles the storage layer handed to the services. It owns the
// underlying database handle; call Close when the client shuts down.
type Repositories struct {
	States      states.Repository
	Outbox      outbox.Repository
	Checkpoints checkpoints.Repository

	db *sql.DB
}

// Close releases the underlying database handle.
func (r *Repositories) Close() error {
	return r.db.Close()
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the client database, migrates it, adopts any legacy
// unscoped record into the guest partition, and returns the repositories.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Legacy adoption and the delete of the old row land atomically.
	err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return states.NewSQLiteRepository(tx).MigrateLegacy(ctx)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate legacy state: %w", err)
	}

	return &Repositories{
		States:      states.NewSQLiteRepository(db),
		Outbox:      outbox.NewSQLiteRepository(db),
		Checkpoints: checkpoints.NewSQLiteRepository(db),
		db:          db,
	}, nil
}
