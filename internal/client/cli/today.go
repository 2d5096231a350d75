package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/medkeep/medkeep/internal/client/dose"
	"github.com/medkeep/medkeep/internal/client/models"
)

func (a *App) today(ctx context.Context) {
	var state models.State
	err := a.serialize(func(scope models.Scope) error {
		var err error
		state, err = a.store.Load(ctx, scope)
		return err
	})
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	instances := dose.ProjectDay(state, time.Now())
	if len(instances) == 0 {
		fmt.Println("Nothing scheduled today.")
		return
	}

	for i, inst := range instances {
		med := state.MedicationByID(inst.MedicationID)
		name := inst.MedicationID
		if med != nil {
			name = med.Name
		}
		mark := " "
		switch {
		case inst.Log != nil && inst.Log.Status == models.StatusSkipped:
			mark = "-"
		case inst.Log != nil:
			mark = "x"
		case !inst.Upcoming:
			mark = "!"
		}
		fmt.Printf("%d. [%s] %s  %s\n", i+1, mark, inst.TimeOfDay, name)
	}

	st := dose.Stats(instances)
	fmt.Printf("Taken %d, skipped %d, remaining %d of %d.\n",
		st.Taken, st.Skipped, st.Remaining, st.Total)
}

func (a *App) logDose(ctx context.Context, args []string, skipped bool) {
	if len(args) == 0 {
		fmt.Println("Usage: take|skip <number>")
		return
	}

	var status models.DoseStatus
	var outcome string
	err := a.serialize(func(scope models.Scope) error {
		state, err := a.store.Load(ctx, scope)
		if err != nil {
			return err
		}

		now := time.Now()
		instances := dose.ProjectDay(state, now)
		idx := parseIndex(args[0], len(instances))
		if idx < 0 {
			outcome = "No such dose."
			return nil
		}
		inst := instances[idx]
		if inst.Log != nil {
			outcome = "Already logged."
			return nil
		}

		status = models.StatusTaken
		switch {
		case skipped:
			status = models.StatusSkipped
		case !inst.Upcoming:
			status = models.StatusLate
		}

		_, err = a.store.AddDoseLog(ctx, scope, models.DoseLog{
			MedicationID: inst.MedicationID,
			ScheduledAt:  inst.At,
			Status:       status,
			LoggedAt:     now,
		})
		return err
	})
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if outcome != "" {
		fmt.Println(outcome)
		return
	}
	fmt.Println("Logged", status)
}

// parseIndex converts a 1-based argument into a bounds-checked 0-based
// index, returning -1 when invalid.
func parseIndex(arg string, n int) int {
	i, err := strconv.Atoi(arg)
	if err != nil || i < 1 || i > n {
		return -1
	}
	return i - 1
}
