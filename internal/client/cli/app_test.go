package cli

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medkeep/medkeep/internal/client/client"
	"github.com/medkeep/medkeep/internal/client/models"
	"github.com/medkeep/medkeep/internal/client/remote"
	"github.com/medkeep/medkeep/internal/client/services"
	"github.com/medkeep/medkeep/internal/logging"
)

// stallingRemote parks inside FetchLogs until released, holding a sync run
// open so the test can interleave a store mutation against it.
type stallingRemote struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	meds    []models.RemoteMedicationRow
}

func (r *stallingRemote) Close() error { return nil }

func (r *stallingRemote) SignOut(context.Context) error { return nil }

func (r *stallingRemote) Ping(context.Context) error { return nil }

func (r *stallingRemote) SignIn(context.Context, string, string) (remote.Session, error) {
	return remote.Session{}, nil
}

func (r *stallingRemote) UpsertMedication(context.Context, models.RemoteMedicationRow) error {
	return nil
}

func (r *stallingRemote) DeleteMedication(context.Context, string, time.Time) error {
	return nil
}

func (r *stallingRemote) InsertLog(context.Context, models.RemoteLogRow) error {
	return nil
}

func (r *stallingRemote) FetchMedications(context.Context, string, *time.Time) ([]models.RemoteMedicationRow, error) {
	return r.meds, nil
}

func (r *stallingRemote) FetchLogs(context.Context, string, *time.Time) ([]models.RemoteLogRow, error) {
	r.once.Do(func() { close(r.entered) })
	<-r.release
	return nil, nil
}

func newTestApp(t *testing.T, rc remote.Client) *App {
	t.Helper()
	ctx := context.Background()

	repos, err := client.InitDatabase(ctx, filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	log := logging.Discard()
	return &App{
		store:  services.NewStoreService(repos.States, repos.Outbox, nil, log),
		sync:   services.NewSyncService(rc, repos.States, repos.Outbox, repos.Checkpoints, log),
		remote: rc,
		repos:  repos,
		scope:  models.UserScope("u1"),
		log:    log,
	}
}

// A dose recorded while a sync run is mid-flight must survive the sync's
// persist: the app lock keeps the mutation out of the data layer until the
// run has written its snapshot, so the mutation always works on the merged
// state instead of being overwritten by it.
func TestApp_StoreMutationWaitsForSyncAndSurvives(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	rc := &stallingRemote{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		meds: []models.RemoteMedicationRow{{
			ID:        "m2",
			OwnerID:   "u1",
			Name:      "Ibuprofen",
			DoseTimes: []string{"08:00"},
			CreatedAt: base,
			UpdatedAt: base,
		}},
	}
	app := newTestApp(t, rc)

	med, err := app.store.AddMedication(ctx, app.scope, models.Medication{Name: "Aspirin"})
	require.NoError(t, err)

	syncDone := make(chan error, 1)
	go func() {
		syncDone <- app.serialize(func(scope models.Scope) error {
			return app.sync.FullSync(ctx, scope)
		})
	}()

	select {
	case <-rc.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("sync never reached the remote")
	}

	logDone := make(chan error, 1)
	go func() {
		logDone <- app.serialize(func(scope models.Scope) error {
			_, err := app.store.AddDoseLog(ctx, scope, models.DoseLog{
				MedicationID: med.ID,
				ScheduledAt:  base,
				Status:       models.StatusTaken,
				LoggedAt:     base,
			})
			return err
		})
	}()

	select {
	case <-logDone:
		t.Fatal("mutation entered the data layer while sync held the lock")
	case <-time.After(50 * time.Millisecond):
	}

	close(rc.release)
	require.NoError(t, <-syncDone)
	require.NoError(t, <-logDone)

	state, err := app.repos.States.Load(ctx, app.scope)
	require.NoError(t, err)
	assert.Len(t, state.Medications, 2)
	require.Len(t, state.DoseLogs, 1, "the dose recorded during sync must not be lost")
	assert.Equal(t, med.ID, state.DoseLogs[0].MedicationID)
}

// The background loop and a REPL logout race on the scope; both sides go
// through the lock, so the loop never pulls for a scope that was switched
// away mid-tick.
func TestApp_ScopeSwitchIsGuarded(t *testing.T) {
	rc := &stallingRemote{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	close(rc.release)
	app := newTestApp(t, rc)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			app.setScope(models.GuestScope())
		}()
		go func() {
			defer wg.Done()
			_ = app.serialize(func(scope models.Scope) error {
				_ = scope.IsUser()
				return nil
			})
		}()
	}
	wg.Wait()

	assert.False(t, app.activeScope().IsUser())
}
