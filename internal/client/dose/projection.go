// Package dose expands recurring schedules into concrete, date-anchored
// dose instances and computes completion statistics against the dose log.
// Everything here is pure: no I/O, no wall-clock reads beyond the reference
// instant passed in by the caller.
package dose

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/medkeep/medkeep/internal/client/models"
)

// Instance is one concrete dose occurrence on a calendar day. Its Key, not
// any generated id, is what ties it to dose logs.
type Instance struct {
	// Key is the occurrence identity: medicationId:date:timeOfDay.
	Key          string
	MedicationID string
	ScheduleID   string
	TimeOfDay    string
	// At is the occurrence anchored to the schedule's local wall clock.
	At time.Time
	// Upcoming reports whether the occurrence is still ahead of the
	// reference instant. A past occurrence with no log is implicitly missed;
	// it is never logged automatically.
	Upcoming bool
	// Log is the first matching dose log, or nil.
	Log *models.DoseLog
}

// DayStats summarizes one projected day.
type DayStats struct {
	Taken     int
	Skipped   int
	Remaining int
	Total     int
}

// Key derives the occurrence identity for a medication, local calendar date
// and time-of-day.
func Key(medicationID, date, timeOfDay string) string {
	return fmt.Sprintf("%s:%s:%s", medicationID, date, timeOfDay)
}

// location resolves an IANA timezone label, falling back to the system
// zone when the label is unknown.
func location(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

// ProjectDay expands every schedule active on the reference instant's
// calendar day into dose instances, and matches each instance against the
// day's logs. For a given occurrence key the first log in slice order wins;
// duplicates beyond the first are ignored to guard against double
// submission.
func ProjectDay(state models.State, now time.Time) []Instance {
	var instances []Instance
	seen := make(map[string]struct{})

	for _, sch := range state.Schedules {
		if state.MedicationByID(sch.MedicationID) == nil {
			continue
		}

		loc := location(sch.Timezone)
		local := now.In(loc)
		date := local.Format(models.DateLayout)

		if sch.StartDate != "" && date < sch.StartDate {
			continue
		}
		if len(sch.DaysOfWeek) > 0 && !slices.Contains(sch.DaysOfWeek, local.Weekday()) {
			continue
		}

		for _, tod := range sch.Times {
			h, m, ok := splitTimeOfDay(tod)
			if !ok {
				continue
			}
			key := Key(sch.MedicationID, date, tod)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			at := time.Date(local.Year(), local.Month(), local.Day(), h, m, 0, 0, loc)
			instances = append(instances, Instance{
				Key:          key,
				MedicationID: sch.MedicationID,
				ScheduleID:   sch.ID,
				TimeOfDay:    tod,
				At:           at,
				Upcoming:     at.After(now),
			})
		}
	}

	slices.SortStableFunc(instances, func(a, b Instance) int {
		if c := a.At.Compare(b.At); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})

	matchLogs(state.DoseLogs, instances)
	return instances
}

// matchLogs attaches to each instance the first log whose derived key equals
// the instance's key.
func matchLogs(logs []models.DoseLog, instances []Instance) {
	for i := range instances {
		inst := &instances[i]
		loc := inst.At.Location()
		for j := range logs {
			log := &logs[j]
			if log.MedicationID != inst.MedicationID {
				continue
			}
			at := log.ScheduledAt.In(loc)
			if Key(log.MedicationID, at.Format(models.DateLayout), at.Format("15:04")) == inst.Key {
				inst.Log = log
				break
			}
		}
	}
}

// Stats computes completion statistics for a projected day. A late dose
// counts as taken: the medication was still acted on.
func Stats(instances []Instance) DayStats {
	st := DayStats{Total: len(instances)}
	for _, inst := range instances {
		if inst.Log == nil {
			st.Remaining++
			continue
		}
		switch inst.Log.Status {
		case models.StatusTaken, models.StatusLate:
			st.Taken++
		case models.StatusSkipped:
			st.Skipped++
		default:
			st.Remaining++
		}
	}
	return st
}

func splitTimeOfDay(tod string) (int, int, bool) {
	if models.ValidateTimeOfDay(tod) != nil {
		return 0, 0, false
	}
	h, _ := strconv.Atoi(tod[:2])
	m, _ := strconv.Atoi(tod[3:])
	return h, m, true
}
