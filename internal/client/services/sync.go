package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medkeep/medkeep/internal/client/merge"
	"github.com/medkeep/medkeep/internal/client/models"
	"github.com/medkeep/medkeep/internal/client/remote"
	"github.com/medkeep/medkeep/internal/client/repositories/checkpoints"
	"github.com/medkeep/medkeep/internal/client/repositories/outbox"
	"github.com/medkeep/medkeep/internal/client/repositories/states"
	"github.com/medkeep/medkeep/internal/common"
	"github.com/medkeep/medkeep/internal/logging"
)

// SyncStatus is the orchestrator's externally visible state.
type SyncStatus string

const (
	SyncIdle    SyncStatus = "idle"
	SyncSyncing SyncStatus = "syncing"
	SyncError   SyncStatus = "error"
)

// SyncState is the status surface the UI renders: idle/syncing/error plus
// the last error message and the last successful sync instant.
type SyncState struct {
	Status       SyncStatus
	LastError    string
	LastSyncedAt *time.Time
}

// SyncService coordinates outbox drain, push, pull, merge, persist and
// checkpoint advancement for one scope at a time. Callers must not overlap
// two sync calls for the same scope; an in-flight call makes further calls
// fail fast with ErrSyncInProgress.
type SyncService interface {
	// FullSync drains the outbox, pushes local-only changes, pulls the
	// complete remote sets, merges and persists, then advances the
	// checkpoint.
	FullSync(ctx context.Context, scope models.Scope) error

	// IncrementalPull degrades to a full sync when no checkpoint exists.
	// Otherwise it drains the outbox, pulls only rows changed since the
	// checkpoint, merges, pushes still-missing local changes, persists only
	// on change, and always advances the checkpoint.
	IncrementalPull(ctx context.Context, scope models.Scope) error

	// State returns the current status snapshot.
	State() SyncState
}

type syncService struct {
	client         remote.Client
	stateRepo      states.Repository
	outboxRepo     outbox.Repository
	checkpointRepo checkpoints.Repository
	log            logging.Logger
	now            func() time.Time
	newScheduleID  func() string

	mu    sync.Mutex
	state SyncState
}

func NewSyncService(client remote.Client, stateRepo states.Repository, outboxRepo outbox.Repository, checkpointRepo checkpoints.Repository, log logging.Logger) SyncService {
	return &syncService{
		client:         client,
		stateRepo:      stateRepo,
		outboxRepo:     outboxRepo,
		checkpointRepo: checkpointRepo,
		log:            log,
		now:            time.Now,
		newScheduleID:  uuid.NewString,
		state:          SyncState{Status: SyncIdle},
	}
}

func (s *syncService) State() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *syncService) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status == SyncSyncing {
		return common.ErrSyncInProgress
	}
	s.state.Status = SyncSyncing
	s.state.LastError = ""
	return nil
}

func (s *syncService) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state.Status = SyncError
		s.state.LastError = err.Error()
		return
	}
	s.state.Status = SyncIdle
	t := s.now()
	s.state.LastSyncedAt = &t
}

func (s *syncService) FullSync(ctx context.Context, scope models.Scope) error {
	if err := s.begin(); err != nil {
		return err
	}
	err := s.fullSync(ctx, scope)
	s.finish(err)
	if err != nil {
		s.log.Error(ctx, "full sync failed", "scope", scope.Key(), "error", err)
	}
	return err
}

func (s *syncService) IncrementalPull(ctx context.Context, scope models.Scope) error {
	if err := s.begin(); err != nil {
		return err
	}
	err := s.incrementalPull(ctx, scope)
	s.finish(err)
	if err != nil {
		s.log.Error(ctx, "incremental pull failed", "scope", scope.Key(), "error", err)
	}
	return err
}

func (s *syncService) fullSync(ctx context.Context, scope models.Scope) error {
	if !scope.IsUser() {
		return fmt.Errorf("sync requires an authenticated scope: %w", common.ErrUnauthorized)
	}

	if err := s.drainOutbox(ctx, scope); err != nil {
		return err
	}

	local, err := s.stateRepo.Load(ctx, scope)
	if err != nil {
		return err
	}

	// First pass over remote rows only decides what must be pushed; local
	// state is untouched until the pull below succeeds.
	remoteRows, err := s.client.FetchMedications(ctx, scope.UserID, nil)
	if err != nil {
		return fmt.Errorf("failed to fetch remote medications: %w", err)
	}
	if err := s.pushLocalChanges(ctx, scope, local, remoteRows, nil); err != nil {
		return err
	}

	medRows, err := s.client.FetchMedications(ctx, scope.UserID, nil)
	if err != nil {
		return fmt.Errorf("failed to fetch remote medications: %w", err)
	}
	logRows, err := s.client.FetchLogs(ctx, scope.UserID, nil)
	if err != nil {
		return fmt.Errorf("failed to fetch remote logs: %w", err)
	}

	checkpoint := s.now()
	res := merge.Merge(local, medRows, logRows, s.newScheduleID)
	if res.Changed {
		if err := s.stateRepo.Save(ctx, scope, res.State); err != nil {
			return err
		}
	}

	if err := s.checkpointRepo.Set(ctx, scope, checkpoint); err != nil {
		return err
	}

	s.log.Info(ctx, "full sync finished", "scope", scope.Key(), "changed", res.Changed)
	return nil
}

func (s *syncService) incrementalPull(ctx context.Context, scope models.Scope) error {
	if !scope.IsUser() {
		return fmt.Errorf("sync requires an authenticated scope: %w", common.ErrUnauthorized)
	}

	since, found, err := s.checkpointRepo.Get(ctx, scope)
	if err != nil {
		return err
	}
	if !found {
		return s.fullSync(ctx, scope)
	}

	if err := s.drainOutbox(ctx, scope); err != nil {
		return err
	}

	local, err := s.stateRepo.Load(ctx, scope)
	if err != nil {
		return err
	}

	medRows, err := s.client.FetchMedications(ctx, scope.UserID, &since)
	if err != nil {
		return fmt.Errorf("failed to fetch remote medications: %w", err)
	}
	logRows, err := s.client.FetchLogs(ctx, scope.UserID, &since)
	if err != nil {
		return fmt.Errorf("failed to fetch remote logs: %w", err)
	}

	checkpoint := s.now()
	res := merge.Merge(local, medRows, logRows, s.newScheduleID)

	if err := s.pushLocalChanges(ctx, scope, res.State, medRows, &since); err != nil {
		return err
	}

	if res.Changed {
		if err := s.stateRepo.Save(ctx, scope, res.State); err != nil {
			return err
		}
	}

	if err := s.checkpointRepo.Set(ctx, scope, checkpoint); err != nil {
		return err
	}

	s.log.Info(ctx, "incremental pull finished", "scope", scope.Key(), "changed", res.Changed)
	return nil
}

// pushLocalChanges uploads every local medication whose effective
// last-modified instant beats the remote row, or that the remote has never
// seen. A non-nil since further restricts the push to medications modified
// after that instant: on an incremental pull the remote rows are only a
// delta, and a medication untouched since the checkpoint is already
// reflected remotely even when the delta omits it.
func (s *syncService) pushLocalChanges(ctx context.Context, scope models.Scope, state models.State, remoteRows []models.RemoteMedicationRow, since *time.Time) error {
	byID := make(map[string]*models.RemoteMedicationRow, len(remoteRows))
	for i := range remoteRows {
		byID[remoteRows[i].ID] = &remoteRows[i]
	}

	for _, med := range state.Medications {
		if since != nil && !merge.EffectiveUpdatedAt(state, med.ID).After(*since) {
			continue
		}
		if !merge.ShouldPushLocalMedication(state, byID[med.ID], med.ID) {
			continue
		}
		row := models.MedicationRowFromLocal(scope.UserID, med, state.SchedulesFor(med.ID),
			merge.EffectiveUpdatedAt(state, med.ID))
		if err := s.client.UpsertMedication(ctx, row); err != nil {
			return fmt.Errorf("failed to push medication %s: %w", med.ID, err)
		}
	}
	return nil
}

// drainOutbox applies pending events in FIFO order. The first failure
// increments that event's retry counter and halts the drain so later events
// cannot overtake it; they are retried on the next sync attempt.
func (s *syncService) drainOutbox(ctx context.Context, scope models.Scope) error {
	events, err := s.outboxRepo.List(ctx, scope)
	if err != nil {
		return err
	}

	for _, ev := range events {
		if err := s.applyEvent(ctx, scope, ev); err != nil {
			if rerr := s.outboxRepo.IncrementRetry(ctx, scope, ev.ID); rerr != nil {
				s.log.Warn(ctx, "failed to record outbox retry", "event", ev.ID, "error", rerr)
			}
			return fmt.Errorf("outbox drain halted at event %s (%s): %w", ev.ID, ev.Kind, err)
		}
		if err := s.outboxRepo.Remove(ctx, scope, ev.ID); err != nil {
			return err
		}
	}
	return nil
}

// applyEvent dispatches one event to the backend. The switch over the
// decoded payload types is exhaustive; an unknown kind is an error.
func (s *syncService) applyEvent(ctx context.Context, scope models.Scope, ev models.OutboxEvent) error {
	payload, err := ev.Decode()
	if err != nil {
		return err
	}

	switch p := payload.(type) {
	case models.UpsertMedicationPayload:
		row := models.MedicationRowFromLocal(scope.UserID, p.Medication, p.Schedules, p.EffectiveAt)
		return s.client.UpsertMedication(ctx, row)
	case models.DeleteMedicationPayload:
		return s.client.DeleteMedication(ctx, p.MedicationID, p.DeletedAt)
	case models.InsertLogPayload:
		return s.client.InsertLog(ctx, models.LogRowFromLocal(scope.UserID, p.Log))
	default:
		return fmt.Errorf("%w: %T", common.ErrUnknownEventKind, payload)
	}
}
