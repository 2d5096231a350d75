package models

import "time"

// RemoteMedicationRow is the denormalized shape the backend stores per
// medication: the medication fields plus the dose-time list, timezone, start
// date and weekday filter of its schedule.
type RemoteMedicationRow struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"owner_id"`
	Name         string     `json:"name"`
	Strength     string     `json:"strength,omitempty"`
	Instructions string     `json:"instructions,omitempty"`
	DoseTimes    []string   `json:"dose_times"`
	Timezone     string     `json:"timezone,omitempty"`
	StartDate    string     `json:"start_date,omitempty"`
	DaysOfWeek   []int      `json:"days_of_week,omitempty"`
	ScanText     string     `json:"scan_text,omitempty"`
	ScannedAt    *time.Time `json:"scanned_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// RemoteLogRow is the backend row for one dose log.
type RemoteLogRow struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"owner_id"`
	MedicationID string     `json:"medication_id"`
	ScheduledAt  time.Time  `json:"scheduled_at"`
	Status       string     `json:"status"`
	LoggedAt     time.Time  `json:"logged_at"`
	Note         string     `json:"note,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// MedicationRowFromLocal denormalizes a medication and its schedules into a
// remote row. The backend keeps one schedule per medication, so the first
// local schedule provides the recurrence fields. effectiveAt becomes the
// row's updated_at so schedule edits count as medication-level changes.
func MedicationRowFromLocal(ownerID string, med Medication, schedules []Schedule, effectiveAt time.Time) RemoteMedicationRow {
	row := RemoteMedicationRow{
		ID:           med.ID,
		OwnerID:      ownerID,
		Name:         med.Name,
		Strength:     med.Strength,
		Instructions: med.Instructions,
		ScanText:     med.ScanText,
		ScannedAt:    med.ScannedAt,
		CreatedAt:    med.CreatedAt,
		UpdatedAt:    effectiveAt,
	}
	if len(schedules) > 0 {
		sch := schedules[0]
		row.DoseTimes = append([]string(nil), sch.Times...)
		row.Timezone = sch.Timezone
		row.StartDate = sch.StartDate
		for _, d := range sch.DaysOfWeek {
			row.DaysOfWeek = append(row.DaysOfWeek, int(d))
		}
	}
	return row
}

// MedicationFromRow extracts the medication fields of a remote row.
func MedicationFromRow(row RemoteMedicationRow) Medication {
	return Medication{
		ID:           row.ID,
		Name:         row.Name,
		Strength:     row.Strength,
		Instructions: row.Instructions,
		ScanText:     row.ScanText,
		ScannedAt:    row.ScannedAt,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

// ScheduleFromRow reconstructs the single schedule denormalized into a
// remote row. The caller supplies the schedule id: an existing local id is
// reused so notification registrations are not needlessly recreated.
func ScheduleFromRow(row RemoteMedicationRow, scheduleID string) Schedule {
	sch := Schedule{
		ID:           scheduleID,
		MedicationID: row.ID,
		Times:        append([]string(nil), row.DoseTimes...),
		Timezone:     row.Timezone,
		StartDate:    row.StartDate,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	for _, d := range row.DaysOfWeek {
		sch.DaysOfWeek = append(sch.DaysOfWeek, time.Weekday(d))
	}
	return sch
}

// LogRowFromLocal maps a local dose log to its remote row.
func LogRowFromLocal(ownerID string, log DoseLog) RemoteLogRow {
	return RemoteLogRow{
		ID:           log.ID,
		OwnerID:      ownerID,
		MedicationID: log.MedicationID,
		ScheduledAt:  log.ScheduledAt,
		Status:       string(log.Status),
		LoggedAt:     log.LoggedAt,
		CreatedAt:    log.LoggedAt,
		UpdatedAt:    log.UpdatedAt,
		Note:         log.Note,
	}
}

// LogFromRow maps a remote log row back to the local model.
func LogFromRow(row RemoteLogRow) DoseLog {
	return DoseLog{
		ID:           row.ID,
		MedicationID: row.MedicationID,
		ScheduledAt:  row.ScheduledAt,
		Status:       DoseStatus(row.Status),
		LoggedAt:     row.LoggedAt,
		Note:         row.Note,
		UpdatedAt:    row.UpdatedAt,
	}
}
