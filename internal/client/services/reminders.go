package services

import (
	"context"
	"time"

	"github.com/medkeep/medkeep/internal/client/models"
)

// ReminderItem is one schedule joined with its medication's display fields,
// the read-only shape consumed by the notification collaborator.
type ReminderItem struct {
	ScheduleID     string
	MedicationID   string
	MedicationName string
	Strength       string
	Times          []string
	Timezone       string
	StartDate      string
	DaysOfWeek     []time.Weekday
}

// Scheduler is the notification-scheduler boundary. The platform layer
// implements it; the core only hands it snapshots whenever medications,
// schedules or the active scope change.
type Scheduler interface {
	Reschedule(ctx context.Context, items []ReminderItem) error
}

// ReminderSnapshot joins the state's schedules with medication names and
// strengths. Schedules whose medication is gone are skipped.
func ReminderSnapshot(state models.State) []ReminderItem {
	items := make([]ReminderItem, 0, len(state.Schedules))
	for _, sch := range state.Schedules {
		med := state.MedicationByID(sch.MedicationID)
		if med == nil {
			continue
		}
		items = append(items, ReminderItem{
			ScheduleID:     sch.ID,
			MedicationID:   med.ID,
			MedicationName: med.Name,
			Strength:       med.Strength,
			Times:          append([]string(nil), sch.Times...),
			Timezone:       sch.Timezone,
			StartDate:      sch.StartDate,
			DaysOfWeek:     append([]time.Weekday(nil), sch.DaysOfWeek...),
		})
	}
	return items
}
