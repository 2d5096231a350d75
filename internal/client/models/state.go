package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/medkeep/medkeep/internal/common"
)

// DateLayout is the calendar-date form used for schedule start dates and
// dose-occurrence identity keys.
const DateLayout = "2006-01-02"

// Medication is a tracked medication owned by a single scope. Deletion is a
// soft delete: locally the record is removed, remotely a tombstone timestamp
// is kept so deletions win races against stale updates.
type Medication struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Strength     string     `json:"strength,omitempty"`
	Instructions string     `json:"instructions,omitempty"`
	ScanText     string     `json:"scanText,omitempty"`
	ScannedAt    *time.Time `json:"scannedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (m Medication) Equal(o Medication) bool {
	if m.ID != o.ID || m.Name != o.Name || m.Strength != o.Strength ||
		m.Instructions != o.Instructions || m.ScanText != o.ScanText {
		return false
	}
	if (m.ScannedAt == nil) != (o.ScannedAt == nil) {
		return false
	}
	if m.ScannedAt != nil && !m.ScannedAt.Equal(*o.ScannedAt) {
		return false
	}
	return m.CreatedAt.Equal(o.CreatedAt) && m.UpdatedAt.Equal(o.UpdatedAt)
}

// Schedule is a weekly recurring dose plan for one medication. A schedule
// cannot outlive its medication. An empty DaysOfWeek means every day.
type Schedule struct {
	ID           string         `json:"id"`
	MedicationID string         `json:"medicationId"`
	Times        []string       `json:"times"`
	Timezone     string         `json:"timezone"`
	StartDate    string         `json:"startDate"`
	DaysOfWeek   []time.Weekday `json:"daysOfWeek,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

func (s Schedule) Equal(o Schedule) bool {
	if s.ID != o.ID || s.MedicationID != o.MedicationID ||
		s.Timezone != o.Timezone || s.StartDate != o.StartDate {
		return false
	}
	if !slices.Equal(s.Times, o.Times) || !slices.Equal(s.DaysOfWeek, o.DaysOfWeek) {
		return false
	}
	return s.CreatedAt.Equal(o.CreatedAt) && s.UpdatedAt.Equal(o.UpdatedAt)
}

// DoseStatus records how a projected dose was acted on.
type DoseStatus string

const (
	StatusTaken   DoseStatus = "taken"
	StatusSkipped DoseStatus = "skipped"
	StatusLate    DoseStatus = "late"
)

// ValidStatus reports whether s is one of the recognized dose statuses.
func ValidStatus(s DoseStatus) bool {
	switch s {
	case StatusTaken, StatusSkipped, StatusLate:
		return true
	}
	return false
}

// DoseLog records the action taken for one projected dose occurrence.
// ScheduledAt is the instant the dose was due, not the instant it was acted
// on. Logs are append-only from the user's point of view.
type DoseLog struct {
	ID           string     `json:"id"`
	MedicationID string     `json:"medicationId"`
	ScheduledAt  time.Time  `json:"scheduledAt"`
	Status       DoseStatus `json:"status"`
	LoggedAt     time.Time  `json:"loggedAt"`
	Note         string     `json:"note,omitempty"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (l DoseLog) Equal(o DoseLog) bool {
	return l.ID == o.ID && l.MedicationID == o.MedicationID &&
		l.ScheduledAt.Equal(o.ScheduledAt) && l.Status == o.Status &&
		l.LoggedAt.Equal(o.LoggedAt) && l.Note == o.Note &&
		l.UpdatedAt.Equal(o.UpdatedAt)
}

// State is the full per-scope record kept by the local store. Every mutation
// is a read-modify-write of the whole value.
type State struct {
	Medications []Medication `json:"medications"`
	Schedules   []Schedule   `json:"schedules"`
	DoseLogs    []DoseLog    `json:"doseLogs"`
}

// EmptyState returns a usable zero state with non-nil collections.
func EmptyState() State {
	return State{
		Medications: []Medication{},
		Schedules:   []Schedule{},
		DoseLogs:    []DoseLog{},
	}
}

// EncodeState serializes a state for persistence.
func EncodeState(s State) ([]byte, error) {
	return json.Marshal(s)
}

// DecodeState deserializes a persisted state record. Corruption is a visible
// branch: ok is false and the caller substitutes an empty state rather than
// failing, keeping the app usable after storage corruption.
func DecodeState(data []byte) (State, bool) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return EmptyState(), false
	}
	if s.Medications == nil {
		s.Medications = []Medication{}
	}
	if s.Schedules == nil {
		s.Schedules = []Schedule{}
	}
	if s.DoseLogs == nil {
		s.DoseLogs = []DoseLog{}
	}
	return s, true
}

// MedicationByID returns a pointer into s.Medications, or nil.
func (s *State) MedicationByID(id string) *Medication {
	for i := range s.Medications {
		if s.Medications[i].ID == id {
			return &s.Medications[i]
		}
	}
	return nil
}

// SchedulesFor returns the schedules owned by the given medication,
// preserving slice order.
func (s *State) SchedulesFor(medicationID string) []Schedule {
	var out []Schedule
	for _, sch := range s.Schedules {
		if sch.MedicationID == medicationID {
			out = append(out, sch)
		}
	}
	return out
}

// ValidateTimeOfDay checks an "HH:MM" 24-hour string.
func ValidateTimeOfDay(tod string) error {
	if len(tod) != 5 || tod[2] != ':' {
		return fmt.Errorf("%w: %q", common.ErrInvalidTimeOfDay, tod)
	}
	h, err := strconv.Atoi(tod[:2])
	if err != nil {
		return fmt.Errorf("%w: %q", common.ErrInvalidTimeOfDay, tod)
	}
	m, err := strconv.Atoi(tod[3:])
	if err != nil {
		return fmt.Errorf("%w: %q", common.ErrInvalidTimeOfDay, tod)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return fmt.Errorf("%w: %q", common.ErrInvalidTimeOfDay, tod)
	}
	return nil
}

// NormalizeIDs re-keys any legacy non-UUID identifiers to fresh UUIDs,
// remapping foreign references consistently. It is applied once to a loaded
// state before any other logic touches it. The second return value reports
// whether anything was rewritten.
func NormalizeIDs(s State) (State, bool) {
	changed := false
	medIDs := make(map[string]string, len(s.Medications))

	for i := range s.Medications {
		old := s.Medications[i].ID
		if _, err := uuid.Parse(old); err != nil {
			id := uuid.NewString()
			medIDs[old] = id
			s.Medications[i].ID = id
			changed = true
		}
	}

	for i := range s.Schedules {
		if _, err := uuid.Parse(s.Schedules[i].ID); err != nil {
			s.Schedules[i].ID = uuid.NewString()
			changed = true
		}
		if id, ok := medIDs[s.Schedules[i].MedicationID]; ok {
			s.Schedules[i].MedicationID = id
			changed = true
		}
	}

	for i := range s.DoseLogs {
		if _, err := uuid.Parse(s.DoseLogs[i].ID); err != nil {
			s.DoseLogs[i].ID = uuid.NewString()
			changed = true
		}
		if id, ok := medIDs[s.DoseLogs[i].MedicationID]; ok {
			s.DoseLogs[i].MedicationID = id
			changed = true
		}
	}

	return s, changed
}
