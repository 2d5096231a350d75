package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medkeep/medkeep/internal/client/models"
)

var base = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func at(min int) time.Time { return base.Add(time.Duration(min) * time.Minute) }

func ptr(t time.Time) *time.Time { return &t }

func fixedIDs(ids ...string) func() string {
	i := 0
	return func() string {
		id := ids[i]
		i++
		return id
	}
}

func localState(medUpdated time.Time) models.State {
	s := models.EmptyState()
	s.Medications = append(s.Medications, models.Medication{
		ID: "m1", Name: "Aspirin", Strength: "100mg", CreatedAt: base, UpdatedAt: medUpdated,
	})
	s.Schedules = append(s.Schedules, models.Schedule{
		ID: "s1", MedicationID: "m1", Times: []string{"08:00"}, Timezone: "UTC",
		CreatedAt: base, UpdatedAt: medUpdated,
	})
	return s
}

func medRow(updated time.Time) models.RemoteMedicationRow {
	return models.RemoteMedicationRow{
		ID: "m1", OwnerID: "u1", Name: "Aspirin Remote", Strength: "100mg",
		DoseTimes: []string{"09:00"}, Timezone: "UTC",
		CreatedAt: base, UpdatedAt: updated,
	}
}

func TestEffectiveUpdatedAt_IncludesSchedules(t *testing.T) {
	s := localState(at(5))
	s.Schedules[0].UpdatedAt = at(30)

	assert.True(t, EffectiveUpdatedAt(s, "m1").Equal(at(30)))
	assert.True(t, EffectiveUpdatedAt(s, "absent").IsZero())
}

func TestMerge_LocalNewerWinsSilently(t *testing.T) {
	local := localState(at(20))

	res := Merge(local, []models.RemoteMedicationRow{medRow(at(10))}, nil, fixedIDs())

	assert.False(t, res.Changed)
	require.Len(t, res.State.Medications, 1)
	assert.Equal(t, "Aspirin", res.State.Medications[0].Name)
	require.Len(t, res.State.Schedules, 1)
	assert.Equal(t, []string{"08:00"}, res.State.Schedules[0].Times)
}

func TestMerge_RemoteNewerOverwrites(t *testing.T) {
	local := localState(at(10))

	res := Merge(local, []models.RemoteMedicationRow{medRow(at(20))}, nil, fixedIDs())

	assert.True(t, res.Changed)
	assert.Equal(t, "Aspirin Remote", res.State.Medications[0].Name)
	require.Len(t, res.State.Schedules, 1)
	assert.Equal(t, []string{"09:00"}, res.State.Schedules[0].Times)
	// the existing local schedule id is reused
	assert.Equal(t, "s1", res.State.Schedules[0].ID)
}

func TestMerge_TombstoneNewerRemovesEverything(t *testing.T) {
	local := localState(at(10))
	local.DoseLogs = append(local.DoseLogs, models.DoseLog{
		ID: "l1", MedicationID: "m1", ScheduledAt: base, Status: models.StatusTaken, UpdatedAt: at(5),
	})

	row := medRow(at(20))
	row.DeletedAt = ptr(at(20))

	res := Merge(local, []models.RemoteMedicationRow{row}, nil, fixedIDs())

	assert.True(t, res.Changed)
	assert.Empty(t, res.State.Medications)
	assert.Empty(t, res.State.Schedules)
	assert.Empty(t, res.State.DoseLogs)
}

func TestMerge_TombstoneWinsTies(t *testing.T) {
	local := localState(at(10))

	row := medRow(at(10))
	row.DeletedAt = ptr(at(10))

	res := Merge(local, []models.RemoteMedicationRow{row}, nil, fixedIDs())

	assert.True(t, res.Changed)
	assert.Empty(t, res.State.Medications)
}

func TestMerge_OlderTombstoneLosesToLocalEdit(t *testing.T) {
	local := localState(at(20))

	row := medRow(at(10))
	row.DeletedAt = ptr(at(10))

	res := Merge(local, []models.RemoteMedicationRow{row}, nil, fixedIDs())

	assert.False(t, res.Changed)
	require.Len(t, res.State.Medications, 1)
}

func TestMerge_UnknownMedicationInserts(t *testing.T) {
	res := Merge(models.EmptyState(), []models.RemoteMedicationRow{medRow(at(1))}, nil, fixedIDs("gen-1"))

	assert.True(t, res.Changed)
	require.Len(t, res.State.Medications, 1)
	require.Len(t, res.State.Schedules, 1)
	assert.Equal(t, "gen-1", res.State.Schedules[0].ID)
	assert.Equal(t, "m1", res.State.Schedules[0].MedicationID)
}

func TestMerge_Idempotent(t *testing.T) {
	first := Merge(models.EmptyState(), []models.RemoteMedicationRow{medRow(at(1))}, nil, fixedIDs("gen-1"))
	require.True(t, first.Changed)

	second := Merge(first.State, []models.RemoteMedicationRow{medRow(at(1))}, nil, fixedIDs("gen-2"))

	assert.False(t, second.Changed)
	assert.Equal(t, first.State, second.State)
}

func TestMerge_EmptyDoseTimesClearsSchedules(t *testing.T) {
	local := localState(at(10))

	row := medRow(at(20))
	row.DoseTimes = nil

	res := Merge(local, []models.RemoteMedicationRow{row}, nil, fixedIDs())

	assert.True(t, res.Changed)
	assert.Empty(t, res.State.Schedules)
}

func TestMerge_OrphanSchedulesPruned(t *testing.T) {
	s := models.EmptyState()
	s.Schedules = append(s.Schedules, models.Schedule{ID: "s1", MedicationID: "ghost"})

	res := Merge(s, nil, nil, fixedIDs())

	assert.True(t, res.Changed)
	assert.Empty(t, res.State.Schedules)
}

func TestMerge_LogInsertAndRecency(t *testing.T) {
	local := localState(at(10))
	local.DoseLogs = append(local.DoseLogs, models.DoseLog{
		ID: "l1", MedicationID: "m1", ScheduledAt: base,
		Status: models.StatusTaken, UpdatedAt: at(10),
	})

	rows := []models.RemoteLogRow{
		{ID: "l1", MedicationID: "m1", ScheduledAt: base, Status: "skipped", UpdatedAt: at(5)},
		{ID: "l2", MedicationID: "m1", ScheduledAt: base, Status: "taken", UpdatedAt: at(5)},
	}

	res := Merge(local, nil, rows, fixedIDs())

	assert.True(t, res.Changed)
	require.Len(t, res.State.DoseLogs, 2)
	// older remote row must not clobber the local log
	assert.Equal(t, models.StatusTaken, res.State.DoseLogs[0].Status)
	assert.Equal(t, "l2", res.State.DoseLogs[1].ID)
}

func TestMerge_EqualTimestampLogKeepsLocal(t *testing.T) {
	local := localState(at(10))
	local.DoseLogs = append(local.DoseLogs, models.DoseLog{
		ID: "l1", MedicationID: "m1", ScheduledAt: base,
		Status: models.StatusTaken, UpdatedAt: at(10),
	})

	rows := []models.RemoteLogRow{
		{ID: "l1", MedicationID: "m1", ScheduledAt: base, Status: "skipped", UpdatedAt: at(10)},
	}

	res := Merge(local, nil, rows, fixedIDs())

	assert.False(t, res.Changed)
	assert.Equal(t, models.StatusTaken, res.State.DoseLogs[0].Status)
}

func TestMerge_LogRowForTombstonedMedicationSkipped(t *testing.T) {
	local := localState(at(10))

	row := medRow(at(20))
	row.DeletedAt = ptr(at(20))
	logs := []models.RemoteLogRow{
		{ID: "l9", MedicationID: "m1", ScheduledAt: base, Status: "taken", UpdatedAt: at(20)},
	}

	res := Merge(local, []models.RemoteMedicationRow{row}, logs, fixedIDs())

	assert.Empty(t, res.State.Medications)
	assert.Empty(t, res.State.DoseLogs, "a log must not outlive its medication's tombstone")
}

func TestMerge_LogRowForUnknownMedicationSkipped(t *testing.T) {
	logs := []models.RemoteLogRow{
		{ID: "l1", MedicationID: "ghost", ScheduledAt: base, Status: "taken", UpdatedAt: at(1)},
	}

	res := Merge(models.EmptyState(), nil, logs, fixedIDs())

	assert.False(t, res.Changed)
	assert.Empty(t, res.State.DoseLogs)
}

func TestMerge_LogTombstoneRemoves(t *testing.T) {
	local := localState(at(10))
	local.DoseLogs = append(local.DoseLogs, models.DoseLog{
		ID: "l1", MedicationID: "m1", ScheduledAt: base, Status: models.StatusTaken,
	})

	rows := []models.RemoteLogRow{{ID: "l1", UpdatedAt: at(20), DeletedAt: ptr(at(20))}}

	res := Merge(local, nil, rows, fixedIDs())

	assert.True(t, res.Changed)
	assert.Empty(t, res.State.DoseLogs)
}

func TestMerge_DoesNotMutateInput(t *testing.T) {
	local := localState(at(10))

	_ = Merge(local, []models.RemoteMedicationRow{medRow(at(20))}, nil, fixedIDs())

	assert.Equal(t, "Aspirin", local.Medications[0].Name)
	assert.Equal(t, []string{"08:00"}, local.Schedules[0].Times)
}

func TestShouldPushLocalMedication(t *testing.T) {
	local := localState(at(10))
	row := medRow(at(5))

	assert.False(t, ShouldPushLocalMedication(local, nil, "absent"))
	assert.True(t, ShouldPushLocalMedication(local, nil, "m1"))
	assert.True(t, ShouldPushLocalMedication(local, &row, "m1"))

	row.UpdatedAt = at(10)
	assert.False(t, ShouldPushLocalMedication(local, &row, "m1"), "tie keeps both sides as they are")

	row.UpdatedAt = at(5)
	row.DeletedAt = ptr(at(20))
	assert.False(t, ShouldPushLocalMedication(local, &row, "m1"), "newer tombstone suppresses the push")
}
