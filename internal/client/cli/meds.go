package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/medkeep/medkeep/internal/client/models"
)

func (a *App) addMedication(ctx context.Context) {
	name := a.readString("Name: ")
	if name == "" {
		fmt.Println("Name is required.")
		return
	}
	strength := a.readString("Strength (optional): ")
	times := a.readString("Dose times (HH:MM, comma separated, optional): ")

	var med models.Medication
	err := a.serialize(func(scope models.Scope) error {
		var err error
		med, err = a.store.AddMedication(ctx, scope, models.Medication{
			Name:     name,
			Strength: strength,
		})
		if err != nil {
			return err
		}
		if times == "" {
			return nil
		}
		var todList []string
		for _, tod := range strings.Split(times, ",") {
			todList = append(todList, strings.TrimSpace(tod))
		}
		_, err = a.store.AddSchedule(ctx, scope, models.Schedule{
			MedicationID: med.ID,
			Times:        todList,
			Timezone:     time.Local.String(),
			StartDate:    time.Now().Format(models.DateLayout),
		})
		return err
	})
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	fmt.Println("Added", med.Name, med.ID)
}

func (a *App) listMedications(ctx context.Context) {
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

	if len(state.Medications) == 0 {
		fmt.Println("No medications.")
		return
	}
	for i, med := range state.Medications {
		line := fmt.Sprintf("%d. %s", i+1, med.Name)
		if med.Strength != "" {
			line += " " + med.Strength
		}
		for _, sch := range state.SchedulesFor(med.ID) {
			line += fmt.Sprintf("  [%s]", strings.Join(sch.Times, " "))
		}
		fmt.Println(line)
	}
}

func (a *App) deleteMedication(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: del <number>")
		return
	}

	found := true
	err := a.serialize(func(scope models.Scope) error {
		state, err := a.store.Load(ctx, scope)
		if err != nil {
			return err
		}
		idx := parseIndex(args[0], len(state.Medications))
		if idx < 0 {
			found = false
			return nil
		}
		return a.store.DeleteMedication(ctx, scope, state.Medications[idx].ID)
	})
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if !found {
		fmt.Println("No such medication.")
		return
	}
	fmt.Println("Deleted.")
}
