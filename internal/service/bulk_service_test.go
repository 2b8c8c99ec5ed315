package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-grid-api/internal/models"
)

func subjectsFor(date string, ids ...string) map[string][]models.Subject {
	subjects := make([]models.Subject, 0, len(ids))
	for _, id := range ids {
		subjects = append(subjects, models.Subject{SubjectID: id, SubjectName: "Subject " + id})
	}
	return map[string][]models.Subject{date: subjects}
}

func noCommitted(models.ChangeKey) (models.AttendanceStatus, bool) { return "", false }

func TestActivateRequiresEditableDate(t *testing.T) {
	p := policyAt(t, "2026-03-04 10:00:00")
	engine := NewBulkSelectionEngine(p, subjectsFor("2026-03-03", "m1"))

	err := engine.Activate("2026-03-03")
	require.Error(t, err)

	err = engine.Activate("2026-03-05")
	require.Error(t, err)
}

func TestActivateRequiresSubjects(t *testing.T) {
	p := policyAt(t, "2026-03-04 10:00:00")
	engine := NewBulkSelectionEngine(p, nil)

	err := engine.Activate("2026-03-04")
	require.Error(t, err)
}

func TestActivateDefaultsAndSingleActive(t *testing.T) {
	p := policyAt(t, "2026-03-04 10:00:00")
	subjects := subjectsFor("2026-03-04", "m1")
	engine := NewBulkSelectionEngine(p, subjects)

	require.NoError(t, engine.Activate("2026-03-04"))
	view := engine.Session("2026-03-04")
	assert.True(t, view.Active)
	assert.Equal(t, models.AttendanceStatusPresent, view.SelectedStatus)
	assert.Zero(t, view.Count)

	require.NoError(t, engine.ToggleStudent("2026-03-04", "s1"))

	// Re-activating replaces the previous session wholesale.
	require.NoError(t, engine.Activate("2026-03-04"))
	assert.Zero(t, engine.Session("2026-03-04").Count)
}

func TestToggleSelectDeselect(t *testing.T) {
	p := policyAt(t, "2026-03-04 10:00:00")
	engine := NewBulkSelectionEngine(p, subjectsFor("2026-03-04", "m1"))
	require.NoError(t, engine.Activate("2026-03-04"))

	require.NoError(t, engine.ToggleStudent("2026-03-04", "s1"))
	require.NoError(t, engine.ToggleStudent("2026-03-04", "s2"))
	assert.Equal(t, 2, engine.Session("2026-03-04").Count)

	require.NoError(t, engine.ToggleStudent("2026-03-04", "s1"))
	assert.Equal(t, []string{"s2"}, engine.Session("2026-03-04").StudentIDs)

	require.NoError(t, engine.SelectAll("2026-03-04", []string{"s1", "s2", "s3"}))
	assert.Equal(t, 3, engine.Session("2026-03-04").Count)

	require.NoError(t, engine.DeselectAll("2026-03-04"))
	view := engine.Session("2026-03-04")
	assert.Zero(t, view.Count)
	assert.True(t, view.Active)
}

func TestSetStatusValidation(t *testing.T) {
	p := policyAt(t, "2026-03-04 10:00:00")
	engine := NewBulkSelectionEngine(p, subjectsFor("2026-03-04", "m1"))
	require.NoError(t, engine.Activate("2026-03-04"))

	require.Error(t, engine.SetStatus("2026-03-04", "X"))
	require.NoError(t, engine.SetStatus("2026-03-04", models.AttendanceStatusAbsent))
	assert.Equal(t, models.AttendanceStatusAbsent, engine.Session("2026-03-04").SelectedStatus)
}

func TestOperationsRequireActiveSession(t *testing.T) {
	p := policyAt(t, "2026-03-04 10:00:00")
	engine := NewBulkSelectionEngine(p, subjectsFor("2026-03-04", "m1"))

	require.Error(t, engine.ToggleStudent("2026-03-04", "s1"))
	require.Error(t, engine.SetStatus("2026-03-04", models.AttendanceStatusAbsent))
	_, err := engine.Apply("2026-03-04", noCommitted)
	require.Error(t, err)
}

func TestApplySkipsMatchingCommitted(t *testing.T) {
	p := policyAt(t, "2026-03-04 10:00:00")
	engine := NewBulkSelectionEngine(p, subjectsFor("2026-03-04", "m1", "m2"))
	require.NoError(t, engine.Activate("2026-03-04"))
	require.NoError(t, engine.SelectAll("2026-03-04", []string{"s1", "s2"}))
	require.NoError(t, engine.SetStatus("2026-03-04", models.AttendanceStatusAbsent))

	committed := func(k models.ChangeKey) (models.AttendanceStatus, bool) {
		if k.StudentID == "s1" && k.SubjectID == "m1" {
			return models.AttendanceStatusAbsent, true
		}
		if k.StudentID == "s2" && k.SubjectID == "m2" {
			return models.AttendanceStatusPresent, true
		}
		return "", false
	}

	intents, err := engine.Apply("2026-03-04", committed)
	require.NoError(t, err)

	// s1/m1 already Absent so it is skipped; the other three pairs stage.
	require.Len(t, intents, 3)
	for _, intent := range intents {
		assert.Equal(t, models.AttendanceStatusAbsent, intent.Status)
		assert.False(t, intent.StudentID == "s1" && intent.SubjectID == "m1")
	}

	// The session is consumed on apply.
	assert.False(t, engine.Session("2026-03-04").Active)
}

func TestApplyRequiresSelection(t *testing.T) {
	p := policyAt(t, "2026-03-04 10:00:00")
	engine := NewBulkSelectionEngine(p, subjectsFor("2026-03-04", "m1"))
	require.NoError(t, engine.Activate("2026-03-04"))

	_, err := engine.Apply("2026-03-04", noCommitted)
	require.Error(t, err)
	assert.True(t, engine.Session("2026-03-04").Active)
}

func TestCancelKeepsNothing(t *testing.T) {
	p := policyAt(t, "2026-03-04 10:00:00")
	engine := NewBulkSelectionEngine(p, subjectsFor("2026-03-04", "m1"))
	require.NoError(t, engine.Activate("2026-03-04"))
	require.NoError(t, engine.ToggleStudent("2026-03-04", "s1"))

	engine.Cancel("2026-03-04")
	assert.False(t, engine.Session("2026-03-04").Active)
}

func TestGlobalSelectionFlow(t *testing.T) {
	p := policyAt(t, "2026-03-04 10:00:00")
	engine := NewBulkSelectionEngine(p, subjectsFor("2026-03-04", "m1"))

	engine.ToggleGlobal("s2")
	engine.ToggleGlobal("s1")
	engine.ToggleGlobal("s3")
	engine.ToggleGlobal("s3")
	assert.Equal(t, []string{"s1", "s2"}, engine.GlobalSelection())

	intents, err := engine.ApplyGlobal(models.AttendanceStatusExcused, "2026-03-04", noCommitted)
	require.NoError(t, err)
	require.Len(t, intents, 2)
	assert.Equal(t, "s1", intents[0].StudentID)
	assert.Equal(t, models.AttendanceStatusExcused, intents[0].Status)

	// The global set is cleared on success.
	assert.Empty(t, engine.GlobalSelection())
}

func TestGlobalApplyValidation(t *testing.T) {
	p := policyAt(t, "2026-03-04 10:00:00")
	engine := NewBulkSelectionEngine(p, subjectsFor("2026-03-04", "m1"))
	engine.ToggleGlobal("s1")

	_, err := engine.ApplyGlobal("X", "2026-03-04", noCommitted)
	require.Error(t, err)

	_, err = engine.ApplyGlobal(models.AttendanceStatusAbsent, "2026-03-03", noCommitted)
	require.Error(t, err)

	// Failures keep the selection for a corrected retry.
	assert.Equal(t, []string{"s1"}, engine.GlobalSelection())

	engine.ClearGlobal()
	_, err = engine.ApplyGlobal(models.AttendanceStatusAbsent, "2026-03-04", noCommitted)
	require.Error(t, err)
}
