package checkpoints

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/medkeep/medkeep/internal/client/models"
	"github.com/medkeep/medkeep/internal/dbx"
)

// SQLiteRepository implements Repository on top of the checkpoints table.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, scope models.Scope) (time.Time, bool, error) {
	var pulledAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT pulled_at FROM checkpoints WHERE scope = ?`, scope.Key()).Scan(&pulledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get checkpoint[%s]: %w", scope.Key(), err)
	}
	t, err := time.Parse(time.RFC3339Nano, pulledAt)
	if err != nil {
		// An unreadable checkpoint degrades to a full pull.
		return time.Time{}, false, nil
	}
	return t, true, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, scope models.Scope, checkpoint time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO checkpoints (scope, pulled_at) VALUES (?, ?)
		ON CONFLICT(scope) DO UPDATE SET pulled_at = excluded.pulled_at
	`, scope.Key(), checkpoint.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to set checkpoint[%s]: %w", scope.Key(), err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, scope models.Scope) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE scope = ?`, scope.Key())
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint[%s]: %w", scope.Key(), err)
	}
	return nil
}
