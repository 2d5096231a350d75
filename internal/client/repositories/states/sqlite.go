package states

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/medkeep/medkeep/internal/client/models"
	"github.com/medkeep/medkeep/internal/dbx"
)

// legacyKey is the record key used before storage was partitioned by scope.
const legacyKey = "state"

// SQLiteRepository implements Repository on top of the states table.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) load(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM states WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load state[%s]: %w", key, err)
	}
	return data, true, nil
}

// Load returns the scope's state. Missing and undecodable records both
// yield an empty state so the app stays usable after storage corruption.
func (r *SQLiteRepository) Load(ctx context.Context, scope models.Scope) (models.State, error) {
	data, found, err := r.load(ctx, scope.Key())
	if err != nil {
		return models.EmptyState(), err
	}
	if !found {
		return models.EmptyState(), nil
	}
	state, ok := models.DecodeState(data)
	if !ok {
		return models.EmptyState(), nil
	}
	return state, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, scope models.Scope, state models.State) error {
	data, err := models.EncodeState(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO states (key, data) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data
	`, scope.Key(), data)
	if err != nil {
		return fmt.Errorf("failed to save state[%s]: %w", scope.Key(), err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, scope models.Scope) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM states WHERE key = ?`, scope.Key())
	if err != nil {
		return fmt.Errorf("failed to delete state[%s]: %w", scope.Key(), err)
	}
	return nil
}

// MigrateLegacy moves the unscoped pre-partitioning record under the guest
// key, then deletes the legacy row. The guest partition wins if it already
// holds data.
func (r *SQLiteRepository) MigrateLegacy(ctx context.Context) error {
	data, found, err := r.load(ctx, legacyKey)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	guestKey := models.GuestScope().Key()
	_, guestExists, err := r.load(ctx, guestKey)
	if err != nil {
		return err
	}

	if !guestExists {
		if _, ok := models.DecodeState(data); ok {
			_, err = r.db.ExecContext(ctx,
				`INSERT INTO states (key, data) VALUES (?, ?)`, guestKey, data)
			if err != nil {
				return fmt.Errorf("failed to adopt legacy state: %w", err)
			}
		}
	}

	_, err = r.db.ExecContext(ctx, `DELETE FROM states WHERE key = ?`, legacyKey)
	if err != nil {
		return fmt.Errorf("failed to drop legacy state: %w", err)
	}
	return nil
}
