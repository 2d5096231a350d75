package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medkeep/medkeep/internal/client/models"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE outbox (
  seq         INTEGER PRIMARY KEY AUTOINCREMENT,
  scope       TEXT NOT NULL,
  id          TEXT NOT NULL UNIQUE,
  kind        TEXT NOT NULL,
  payload     BLOB NOT NULL,
  retry_count INTEGER NOT NULL DEFAULT 0,
  created_at  TEXT NOT NULL
);
`)
	require.NoError(t, err)

	return db
}

func testEvent(id string, kind models.EventKind) models.OutboxEvent {
	return models.OutboxEvent{
		ID:        id,
		Kind:      kind,
		CreatedAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		Payload:   json.RawMessage(`{}`),
	}
}

func TestEnqueueList_PreservesFIFOOrder(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	scope := models.UserScope("u1")

	require.NoError(t, r.Enqueue(ctx, scope, testEvent("e1", models.EventUpsertMedication)))
	require.NoError(t, r.Enqueue(ctx, scope, testEvent("e2", models.EventInsertLog)))
	require.NoError(t, r.Enqueue(ctx, scope, testEvent("e3", models.EventDeleteMedication)))

	got, err := r.List(ctx, scope)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "e1", got[0].ID)
	assert.Equal(t, "e2", got[1].ID)
	assert.Equal(t, "e3", got[2].ID)
	assert.Equal(t, models.EventUpsertMedication, got[0].Kind)
	assert.Equal(t, 0, got[0].RetryCount)
}

func TestList_ScopesAreIsolated(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, models.UserScope("u1"), testEvent("e1", models.EventInsertLog)))

	got, err := r.List(ctx, models.UserScope("u2"))
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = r.List(ctx, models.GuestScope())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRemove(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	scope := models.UserScope("u1")

	require.NoError(t, r.Enqueue(ctx, scope, testEvent("e1", models.EventInsertLog)))
	require.NoError(t, r.Enqueue(ctx, scope, testEvent("e2", models.EventInsertLog)))

	require.NoError(t, r.Remove(ctx, scope, "e1"))

	got, err := r.List(ctx, scope)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "e2", got[0].ID)

	// removing twice fails
	require.Error(t, r.Remove(ctx, scope, "e1"))
}

func TestIncrementRetry(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	scope := models.UserScope("u1")

	require.NoError(t, r.Enqueue(ctx, scope, testEvent("e1", models.EventUpsertMedication)))

	require.NoError(t, r.IncrementRetry(ctx, scope, "e1"))
	require.NoError(t, r.IncrementRetry(ctx, scope, "e1"))

	got, err := r.List(ctx, scope)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].RetryCount)

	require.Error(t, r.IncrementRetry(ctx, scope, "nope"))
}

func TestClear(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, models.UserScope("u1"), testEvent("e1", models.EventInsertLog)))
	require.NoError(t, r.Enqueue(ctx, models.UserScope("u2"), testEvent("e2", models.EventInsertLog)))

	require.NoError(t, r.Clear(ctx, models.UserScope("u1")))

	got, err := r.List(ctx, models.UserScope("u1"))
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = r.List(ctx, models.UserScope("u2"))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
