// Package merge reconciles a remote snapshot (or delta) into the local
// state using last-writer-wins semantics with deletion tombstones. The merge
// is pure and deterministic given identical inputs: it never reads the wall
// clock, and schedule ids for newly reconstructed schedules come from the
// injected generator.
package merge

import (
	"slices"
	"time"

	"github.com/medkeep/medkeep/internal/client/models"
)

// Result carries the merged state and whether any collection was
// structurally altered, letting the caller skip a redundant persistence
// write.
type Result struct {
	State   models.State
	Changed bool
}

// EffectiveUpdatedAt is the medication's local last-modified instant for
// conflict purposes: the maximum of its own timestamp and those of all its
// schedules. A schedule edit counts as a medication-level change.
func EffectiveUpdatedAt(state models.State, medicationID string) time.Time {
	var eff time.Time
	if med := state.MedicationByID(medicationID); med != nil {
		eff = med.UpdatedAt
	}
	for _, sch := range state.Schedules {
		if sch.MedicationID == medicationID && sch.UpdatedAt.After(eff) {
			eff = sch.UpdatedAt
		}
	}
	return eff
}

// ShouldPushLocalMedication reports whether the local copy of a medication
// needs to be pushed: there is no remote row yet, or the local effective
// last-modified instant is strictly newer than the remote's.
func ShouldPushLocalMedication(local models.State, remoteRow *models.RemoteMedicationRow, medicationID string) bool {
	if local.MedicationByID(medicationID) == nil {
		return false
	}
	if remoteRow == nil {
		return true
	}
	remoteEff := remoteRow.UpdatedAt
	if remoteRow.DeletedAt != nil && remoteRow.DeletedAt.After(remoteEff) {
		remoteEff = *remoteRow.DeletedAt
	}
	return EffectiveUpdatedAt(local, medicationID).After(remoteEff)
}

// Merge applies remote medication and log rows onto the local state.
//
// Per medication row: a deletion tombstone that is not older than the local
// effective instant removes the medication with its schedules and logs
// (tombstone wins ties); otherwise a remote instant that is not older than
// the local effective instant overwrites the medication and its single
// reconstructed schedule; otherwise local wins silently. There is no
// unresolvable-conflict state.
//
// Per log row: tombstones remove, unknown ids insert, and an existing id is
// replaced only when the remote instant is strictly newer.
func Merge(local models.State, medRows []models.RemoteMedicationRow, logRows []models.RemoteLogRow, newScheduleID func() string) Result {
	state := clone(local)
	changed := false

	for _, row := range medRows {
		localEff := EffectiveUpdatedAt(state, row.ID)

		if row.DeletedAt != nil {
			if !row.DeletedAt.Before(localEff) && removeMedication(&state, row.ID) {
				changed = true
			}
			continue
		}

		localMed := state.MedicationByID(row.ID)
		if localMed == nil {
			state.Medications = append(state.Medications, models.MedicationFromRow(row))
			applySchedule(&state, row, newScheduleID)
			changed = true
			continue
		}

		if row.UpdatedAt.Before(localEff) {
			// Local wins silently: deliberate last-writer-wins, not a
			// three-way merge.
			continue
		}

		if remote := models.MedicationFromRow(row); !remote.Equal(*localMed) {
			*localMed = remote
			changed = true
		}
		if applySchedule(&state, row, newScheduleID) {
			changed = true
		}
	}

	for _, row := range logRows {
		idx := slices.IndexFunc(state.DoseLogs, func(l models.DoseLog) bool { return l.ID == row.ID })

		if row.DeletedAt != nil {
			if idx >= 0 {
				state.DoseLogs = slices.Delete(state.DoseLogs, idx, idx+1)
				changed = true
			}
			continue
		}

		// A log cannot outlive its medication: rows whose medication was
		// tombstoned above, or is otherwise unknown, would strand orphans.
		if state.MedicationByID(row.MedicationID) == nil {
			continue
		}

		remote := models.LogFromRow(row)
		if idx < 0 {
			state.DoseLogs = append(state.DoseLogs, remote)
			changed = true
			continue
		}
		// Logs are append-mostly; same-id conflicts resolve by recency only.
		if row.UpdatedAt.After(state.DoseLogs[idx].UpdatedAt) && !remote.Equal(state.DoseLogs[idx]) {
			state.DoseLogs[idx] = remote
			changed = true
		}
	}

	if pruneOrphanSchedules(&state) {
		changed = true
	}

	return Result{State: state, Changed: changed}
}

// applySchedule reconstructs the medication's single schedule from the
// denormalized row. An existing local schedule id is reused to avoid
// recreating notification registrations; extra schedules are dropped. A row
// without dose times clears the medication's schedules.
func applySchedule(state *models.State, row models.RemoteMedicationRow, newScheduleID func() string) bool {
	existing := state.SchedulesFor(row.ID)

	if len(row.DoseTimes) == 0 {
		if len(existing) == 0 {
			return false
		}
		dropSchedules(state, row.ID)
		return true
	}

	id := ""
	if len(existing) > 0 {
		id = existing[0].ID
	} else {
		id = newScheduleID()
	}
	remote := models.ScheduleFromRow(row, id)

	if len(existing) == 1 && existing[0].Equal(remote) {
		return false
	}

	dropSchedules(state, row.ID)
	state.Schedules = append(state.Schedules, remote)
	return true
}

func dropSchedules(state *models.State, medicationID string) {
	state.Schedules = slices.DeleteFunc(state.Schedules, func(s models.Schedule) bool {
		return s.MedicationID == medicationID
	})
}

// removeMedication drops the medication and everything hanging off it.
func removeMedication(state *models.State, medicationID string) bool {
	removed := false

	if idx := slices.IndexFunc(state.Medications, func(m models.Medication) bool { return m.ID == medicationID }); idx >= 0 {
		state.Medications = slices.Delete(state.Medications, idx, idx+1)
		removed = true
	}

	before := len(state.Schedules)
	dropSchedules(state, medicationID)
	removed = removed || len(state.Schedules) != before

	before = len(state.DoseLogs)
	state.DoseLogs = slices.DeleteFunc(state.DoseLogs, func(l models.DoseLog) bool {
		return l.MedicationID == medicationID
	})
	removed = removed || len(state.DoseLogs) != before

	return removed
}

// pruneOrphanSchedules silently drops schedules referencing a vanished
// medication. Identity errors are resolved here, never surfaced.
func pruneOrphanSchedules(state *models.State) bool {
	before := len(state.Schedules)
	state.Schedules = slices.DeleteFunc(state.Schedules, func(s models.Schedule) bool {
		return state.MedicationByID(s.MedicationID) == nil
	})
	return len(state.Schedules) != before
}

func clone(s models.State) models.State {
	return models.State{
		Medications: append([]models.Medication{}, s.Medications...),
		Schedules:   append([]models.Schedule{}, s.Schedules...),
		DoseLogs:    append([]models.DoseLog{}, s.DoseLogs...),
	}
}
