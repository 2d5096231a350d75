package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/medkeep/medkeep/internal/common"
)

// EventKind tags the variant carried by an OutboxEvent.
type EventKind string

const (
	EventUpsertMedication EventKind = "upsert_medication"
	EventDeleteMedication EventKind = "delete_medication"
	EventInsertLog        EventKind = "insert_log"
)

// OutboxEvent is one pending remote mutation. Events are appended in the
// order the originating mutation occurred and drained in that same order per
// scope. Only RetryCount may be mutated after creation.
type OutboxEvent struct {
	ID         string          `json:"id"`
	Kind       EventKind       `json:"kind"`
	CreatedAt  time.Time       `json:"createdAt"`
	RetryCount int             `json:"retryCount"`
	Payload    json.RawMessage `json:"payload"`
}

// UpsertMedicationPayload carries a medication together with its current
// schedules and the instant the mutation took effect.
type UpsertMedicationPayload struct {
	Medication  Medication `json:"medication"`
	Schedules   []Schedule `json:"schedules"`
	EffectiveAt time.Time  `json:"effectiveAt"`
}

// DeleteMedicationPayload carries a soft-delete tombstone.
type DeleteMedicationPayload struct {
	MedicationID string    `json:"medicationId"`
	DeletedAt    time.Time `json:"deletedAt"`
}

// InsertLogPayload carries a freshly created dose log.
type InsertLogPayload struct {
	Log DoseLog `json:"log"`
}

func wrapEvent(kind EventKind, payload any) (OutboxEvent, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return OutboxEvent{}, fmt.Errorf("failed to encode %s payload: %w", kind, err)
	}
	return OutboxEvent{Kind: kind, Payload: b}, nil
}

// NewUpsertMedicationEvent builds an upsert event for a medication and its
// current schedules. ID, CreatedAt and RetryCount are assigned on enqueue.
func NewUpsertMedicationEvent(med Medication, schedules []Schedule, effectiveAt time.Time) (OutboxEvent, error) {
	return wrapEvent(EventUpsertMedication, UpsertMedicationPayload{
		Medication:  med,
		Schedules:   schedules,
		EffectiveAt: effectiveAt,
	})
}

// NewDeleteMedicationEvent builds a soft-delete event.
func NewDeleteMedicationEvent(medicationID string, deletedAt time.Time) (OutboxEvent, error) {
	return wrapEvent(EventDeleteMedication, DeleteMedicationPayload{
		MedicationID: medicationID,
		DeletedAt:    deletedAt,
	})
}

// NewInsertLogEvent builds an insert event for a new dose log.
func NewInsertLogEvent(log DoseLog) (OutboxEvent, error) {
	return wrapEvent(EventInsertLog, InsertLogPayload{Log: log})
}

// Decode returns the typed payload for the event's kind. The sync
// orchestrator dispatches on the concrete type; an unrecognized kind is an
// error, never silently skipped.
func (e OutboxEvent) Decode() (any, error) {
	switch e.Kind {
	case EventUpsertMedication:
		var p UpsertMedicationPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", e.Kind, err)
		}
		return p, nil
	case EventDeleteMedication:
		var p DeleteMedicationPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", e.Kind, err)
		}
		return p, nil
	case EventInsertLog:
		var p InsertLogPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", e.Kind, err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownEventKind, e.Kind)
	}
}
