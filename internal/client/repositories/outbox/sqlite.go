package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/medkeep/medkeep/internal/client/models"
	"github.com/medkeep/medkeep/internal/common"
	"github.com/medkeep/medkeep/internal/dbx"
)

// SQLiteRepository implements Repository on top of the outbox table.
// The autoincrement seq column preserves FIFO order per scope.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, scope models.Scope, event models.OutboxEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO outbox (scope, id, kind, payload, retry_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, scope.Key(), event.ID, string(event.Kind), []byte(event.Payload),
		event.RetryCount, event.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to enqueue outbox event: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, scope models.Scope) ([]models.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, payload, retry_count, created_at
		FROM outbox WHERE scope = ? ORDER BY seq
	`, scope.Key())
	if err != nil {
		return nil, fmt.Errorf("failed to list outbox events: %w", err)
	}
	defer rows.Close()

	var result []models.OutboxEvent
	for rows.Next() {
		var (
			event     models.OutboxEvent
			kind      string
			createdAt string
		)
		if err := rows.Scan(&event.ID, &kind, (*[]byte)(&event.Payload), &event.RetryCount, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox row: %w", err)
		}
		event.Kind = models.EventKind(kind)
		event.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse outbox timestamp: %w", err)
		}
		result = append(result, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outbox rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, scope models.Scope, eventID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM outbox WHERE scope = ? AND id = ?`, scope.Key(), eventID)
	if err != nil {
		return fmt.Errorf("failed to remove outbox event: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("remove outbox event %s: %w", eventID, common.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) IncrementRetry(ctx context.Context, scope models.Scope, eventID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE outbox SET retry_count = retry_count + 1 WHERE scope = ? AND id = ?`,
		scope.Key(), eventID)
	if err != nil {
		return fmt.Errorf("failed to increment retry count: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("increment retry for event %s: %w", eventID, common.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context, scope models.Scope) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM outbox WHERE scope = ?`, scope.Key())
	if err != nil {
		return fmt.Errorf("failed to clear outbox: %w", err)
	}
	return nil
}
