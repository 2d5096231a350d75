package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/medkeep/medkeep/internal/client/models"
	"github.com/medkeep/medkeep/internal/client/repositories/outbox"
	"github.com/medkeep/medkeep/internal/client/repositories/states"
	"github.com/medkeep/medkeep/internal/common"
	"github.com/medkeep/medkeep/internal/logging"
)

// MedicationPatch carries the fields a medication edit may change. Nil
// fields are left untouched.
type MedicationPatch struct {
	Name         *string
	Strength     *string
	Instructions *string
}

// SchedulePatch carries the fields a schedule edit may change.
type SchedulePatch struct {
	Times      *[]string
	Timezone   *string
	StartDate  *string
	DaysOfWeek *[]time.Weekday
}

// StoreService owns all mutations of the scoped state record. Every helper
// is a read-modify-write of the full per-scope state; callers must serialize
// operations on one scope (single logical thread of control). Helpers
// refresh last-modified timestamps on every patch; reconciliation depends
// on that, so mutations must never bypass this service.
type StoreService interface {
	Load(ctx context.Context, scope models.Scope) (models.State, error)
	Save(ctx context.Context, scope models.Scope, state models.State) error

	AddMedication(ctx context.Context, scope models.Scope, med models.Medication) (models.Medication, error)
	AddSchedule(ctx context.Context, scope models.Scope, sch models.Schedule) (models.Schedule, error)
	AddDoseLog(ctx context.Context, scope models.Scope, log models.DoseLog) (models.DoseLog, error)
	UpdateMedication(ctx context.Context, scope models.Scope, id string, patch MedicationPatch) error
	UpdateSchedule(ctx context.Context, scope models.Scope, id string, patch SchedulePatch) error
	DeleteMedication(ctx context.Context, scope models.Scope, id string) error
	DeleteSchedule(ctx context.Context, scope models.Scope, id string) error
}

type storeService struct {
	stateRepo  states.Repository
	outboxRepo outbox.Repository
	scheduler  Scheduler
	log        logging.Logger
	now        func() time.Time
}

// NewStoreService builds the store service. scheduler may be nil when no
// notification collaborator is attached.
func NewStoreService(stateRepo states.Repository, outboxRepo outbox.Repository, scheduler Scheduler, log logging.Logger) StoreService {
	return &storeService{
		stateRepo:  stateRepo,
		outboxRepo: outboxRepo,
		scheduler:  scheduler,
		log:        log,
		now:        time.Now,
	}
}

// Load returns the scope's state with legacy identifiers normalized. The
// normalization pass runs before any other logic touches the state; a
// rewritten state is persisted immediately.
func (s *storeService) Load(ctx context.Context, scope models.Scope) (models.State, error) {
	state, err := s.stateRepo.Load(ctx, scope)
	if err != nil {
		return models.EmptyState(), fmt.Errorf("failed to load state: %w", err)
	}

	state, rewritten := models.NormalizeIDs(state)
	if rewritten {
		s.log.Info(ctx, "normalized legacy identifiers", "scope", scope.Key())
		if err := s.stateRepo.Save(ctx, scope, state); err != nil {
			return models.EmptyState(), fmt.Errorf("failed to persist normalized state: %w", err)
		}
	}
	return state, nil
}

func (s *storeService) Save(ctx context.Context, scope models.Scope, state models.State) error {
	if err := s.stateRepo.Save(ctx, scope, state); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

func (s *storeService) AddMedication(ctx context.Context, scope models.Scope, med models.Medication) (models.Medication, error) {
	now := s.now()
	if med.ID == "" {
		med.ID = uuid.NewString()
	}
	if med.CreatedAt.IsZero() {
		med.CreatedAt = now
	}
	med.UpdatedAt = now

	err := s.mutate(ctx, scope, func(state *models.State) (models.OutboxEvent, bool, error) {
		state.Medications = append(state.Medications, med)
		ev, err := models.NewUpsertMedicationEvent(med, state.SchedulesFor(med.ID), now)
		return ev, true, err
	})
	if err != nil {
		return models.Medication{}, err
	}
	return med, nil
}

func (s *storeService) AddSchedule(ctx context.Context, scope models.Scope, sch models.Schedule) (models.Schedule, error) {
	for _, tod := range sch.Times {
		if err := models.ValidateTimeOfDay(tod); err != nil {
			return models.Schedule{}, err
		}
	}

	now := s.now()
	if sch.ID == "" {
		sch.ID = uuid.NewString()
	}
	if sch.CreatedAt.IsZero() {
		sch.CreatedAt = now
	}
	sch.UpdatedAt = now

	err := s.mutate(ctx, scope, func(state *models.State) (models.OutboxEvent, bool, error) {
		med := state.MedicationByID(sch.MedicationID)
		if med == nil {
			return models.OutboxEvent{}, false, fmt.Errorf("medication %s: %w", sch.MedicationID, common.ErrNotFound)
		}
		state.Schedules = append(state.Schedules, sch)
		ev, err := models.NewUpsertMedicationEvent(*med, state.SchedulesFor(med.ID), now)
		return ev, true, err
	})
	if err != nil {
		return models.Schedule{}, err
	}
	return sch, nil
}

func (s *storeService) AddDoseLog(ctx context.Context, scope models.Scope, log models.DoseLog) (models.DoseLog, error) {
	if !models.ValidStatus(log.Status) {
		return models.DoseLog{}, fmt.Errorf("%w: %q", common.ErrInvalidStatus, log.Status)
	}

	now := s.now()
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.LoggedAt.IsZero() {
		log.LoggedAt = now
	}
	log.UpdatedAt = now

	err := s.mutate(ctx, scope, func(state *models.State) (models.OutboxEvent, bool, error) {
		if state.MedicationByID(log.MedicationID) == nil {
			return models.OutboxEvent{}, false, fmt.Errorf("medication %s: %w", log.MedicationID, common.ErrNotFound)
		}
		state.DoseLogs = append(state.DoseLogs, log)
		ev, err := models.NewInsertLogEvent(log)
		return ev, true, err
	})
	if err != nil {
		return models.DoseLog{}, err
	}
	return log, nil
}

func (s *storeService) UpdateMedication(ctx context.Context, scope models.Scope, id string, patch MedicationPatch) error {
	now := s.now()
	return s.mutate(ctx, scope, func(state *models.State) (models.OutboxEvent, bool, error) {
		med := state.MedicationByID(id)
		if med == nil {
			return models.OutboxEvent{}, false, fmt.Errorf("medication %s: %w", id, common.ErrNotFound)
		}
		if patch.Name != nil {
			med.Name = *patch.Name
		}
		if patch.Strength != nil {
			med.Strength = *patch.Strength
		}
		if patch.Instructions != nil {
			med.Instructions = *patch.Instructions
		}
		med.UpdatedAt = now

		ev, err := models.NewUpsertMedicationEvent(*med, state.SchedulesFor(id), now)
		return ev, true, err
	})
}

func (s *storeService) UpdateSchedule(ctx context.Context, scope models.Scope, id string, patch SchedulePatch) error {
	if patch.Times != nil {
		for _, tod := range *patch.Times {
			if err := models.ValidateTimeOfDay(tod); err != nil {
				return err
			}
		}
	}

	now := s.now()
	return s.mutate(ctx, scope, func(state *models.State) (models.OutboxEvent, bool, error) {
		idx := slices.IndexFunc(state.Schedules, func(sch models.Schedule) bool { return sch.ID == id })
		if idx < 0 {
			return models.OutboxEvent{}, false, fmt.Errorf("schedule %s: %w", id, common.ErrNotFound)
		}
		sch := &state.Schedules[idx]
		if patch.Times != nil {
			sch.Times = append([]string(nil), (*patch.Times)...)
		}
		if patch.Timezone != nil {
			sch.Timezone = *patch.Timezone
		}
		if patch.StartDate != nil {
			sch.StartDate = *patch.StartDate
		}
		if patch.DaysOfWeek != nil {
			sch.DaysOfWeek = append([]time.Weekday(nil), (*patch.DaysOfWeek)...)
		}
		sch.UpdatedAt = now

		med := state.MedicationByID(sch.MedicationID)
		if med == nil {
			return models.OutboxEvent{}, false, fmt.Errorf("medication %s: %w", sch.MedicationID, common.ErrNotFound)
		}
		ev, err := models.NewUpsertMedicationEvent(*med, state.SchedulesFor(med.ID), now)
		return ev, true, err
	})
}

// DeleteMedication removes the medication locally and cascades to its
// schedules and logs. Remotely it becomes a tombstone so the deletion wins
// races against stale updates.
func (s *storeService) DeleteMedication(ctx context.Context, scope models.Scope, id string) error {
	now := s.now()
	return s.mutate(ctx, scope, func(state *models.State) (models.OutboxEvent, bool, error) {
		idx := slices.IndexFunc(state.Medications, func(m models.Medication) bool { return m.ID == id })
		if idx < 0 {
			return models.OutboxEvent{}, false, fmt.Errorf("medication %s: %w", id, common.ErrNotFound)
		}
		state.Medications = slices.Delete(state.Medications, idx, idx+1)
		state.Schedules = slices.DeleteFunc(state.Schedules, func(sch models.Schedule) bool {
			return sch.MedicationID == id
		})
		state.DoseLogs = slices.DeleteFunc(state.DoseLogs, func(l models.DoseLog) bool {
			return l.MedicationID == id
		})

		ev, err := models.NewDeleteMedicationEvent(id, now)
		return ev, true, err
	})
}

// DeleteSchedule removes one schedule. The remote row is denormalized, so
// the deletion travels as an upsert of the owning medication with its
// remaining schedules.
func (s *storeService) DeleteSchedule(ctx context.Context, scope models.Scope, id string) error {
	now := s.now()
	return s.mutate(ctx, scope, func(state *models.State) (models.OutboxEvent, bool, error) {
		idx := slices.IndexFunc(state.Schedules, func(sch models.Schedule) bool { return sch.ID == id })
		if idx < 0 {
			return models.OutboxEvent{}, false, fmt.Errorf("schedule %s: %w", id, common.ErrNotFound)
		}
		medID := state.Schedules[idx].MedicationID
		state.Schedules = slices.Delete(state.Schedules, idx, idx+1)

		med := state.MedicationByID(medID)
		if med == nil {
			return models.OutboxEvent{}, false, fmt.Errorf("medication %s: %w", medID, common.ErrNotFound)
		}
		ev, err := models.NewUpsertMedicationEvent(*med, state.SchedulesFor(medID), now)
		return ev, true, err
	})
}

// mutate runs one load → transform → save cycle and, for authenticated
// scopes, appends the produced event to the outbox. Guest mutations stay
// local only.
func (s *storeService) mutate(ctx context.Context, scope models.Scope, fn func(state *models.State) (models.OutboxEvent, bool, error)) error {
	state, err := s.Load(ctx, scope)
	if err != nil {
		return err
	}

	ev, hasEvent, err := fn(&state)
	if err != nil {
		return err
	}

	if err := s.stateRepo.Save(ctx, scope, state); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}

	if hasEvent && scope.IsUser() {
		ev.ID = uuid.NewString()
		ev.CreatedAt = s.now()
		if err := s.outboxRepo.Enqueue(ctx, scope, ev); err != nil {
			return fmt.Errorf("failed to enqueue outbox event: %w", err)
		}
	}

	s.refreshReminders(ctx, state)
	return nil
}

func (s *storeService) refreshReminders(ctx context.Context, state models.State) {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.Reschedule(ctx, ReminderSnapshot(state)); err != nil {
		s.log.Warn(ctx, "failed to reschedule reminders", "error", err)
	}
}
