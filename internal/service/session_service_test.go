package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-grid-api/internal/dto"
	"github.com/noah-isme/attendance-grid-api/internal/models"
	"github.com/noah-isme/attendance-grid-api/pkg/config"
	appErrors "github.com/noah-isme/attendance-grid-api/pkg/errors"
	"github.com/noah-isme/attendance-grid-api/pkg/jobs"
)

func sessionFixtureSnapshot() *dto.RawGridSnapshot {
	return &dto.RawGridSnapshot{
		Class: models.ClassInfo{ClassID: "c1", ClassName: "X IPA 1"},
		Students: []dto.RawStudentAttendance{
			{
				RowNumber: 1, StudentID: "s1", FullName: "Alice",
				Attendance: map[string]dto.RawDayData{
					"2026-03-04": sparseDay(map[string][]dto.RawSessionRecord{
						"m1": {{Status: "P"}},
					}),
				},
			},
			{RowNumber: 2, StudentID: "s2", FullName: "Bob"},
		},
		TotalCount: 2,
	}
}

func newSessionFixture(t *testing.T, writer BatchWriter, subjectFailures map[string]error) (*EditSessionService, GridRequest) {
	t.Helper()

	subjects := &subjectRepoStub{
		byDate: map[string][]models.Subject{
			"2026-03-03": {{SubjectID: "m1", SubjectName: "Math"}},
			"2026-03-04": {{SubjectID: "m1", SubjectName: "Math"}, {SubjectID: "m2", SubjectName: "Physics"}},
			"2026-03-05": {{SubjectID: "m1", SubjectName: "Math"}},
		},
		fail: subjectFailures,
	}
	grid := newTestGridService(&gridRepoStub{snapshot: sessionFixtureSnapshot()}, subjects)
	notifier := NewNotificationService(nil, false, jobs.QueueConfig{}, nil)

	svc := NewEditSessionService(grid, writer, notifier, nil, config.SessionConfig{TTL: time.Hour}, nil)
	ref, err := time.Parse("2006-01-02 15:04:05", "2026-03-04 10:00:00")
	require.NoError(t, err)
	svc.now = func() time.Time { return ref }
	svc.store.now = svc.now

	req := GridRequest{ClassID: "c1", StartDate: "2026-03-03", EndDate: "2026-03-05"}
	return svc, req
}

func TestOpenFreezesEditableWindow(t *testing.T) {
	svc, req := newSessionFixture(t, &batchWriterStub{}, nil)

	session, grid, err := svc.Open(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, grid)

	assert.Equal(t, "2026-03-04", session.Policy.Today())
	assert.Equal(t, 0, session.Pending.Count())

	view := session.View()
	assert.Equal(t, session.ID, view.SessionID)
	assert.Equal(t, "2026-03-04", view.Today)

	fetched, err := svc.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, fetched.ID)
}

func TestSessionExpiry(t *testing.T) {
	svc, req := newSessionFixture(t, &batchWriterStub{}, nil)

	session, _, err := svc.Open(context.Background(), req)
	require.NoError(t, err)

	opened := svc.now()
	svc.store.now = func() time.Time { return opened.Add(2 * time.Hour) }

	_, err = svc.Get(session.ID)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrSessionExpired.Code, appErr.Code)
}

func TestStageSeesCommittedSnapshot(t *testing.T) {
	svc, req := newSessionFixture(t, &batchWriterStub{}, nil)
	session, _, err := svc.Open(context.Background(), req)
	require.NoError(t, err)

	change, err := svc.Stage(session.ID, "s1", "2026-03-04", "m1", models.AttendanceStatusAbsent)
	require.NoError(t, err)
	assert.True(t, change.IsModification)
	assert.Equal(t, models.AttendanceStatusPresent, change.PreviousStatus)

	_, err = svc.Stage(session.ID, "s1", "2026-03-03", "m1", models.AttendanceStatusAbsent)
	require.Error(t, err)
}

func TestStageBlockedOnFailedSubjectDate(t *testing.T) {
	svc, req := newSessionFixture(t, &batchWriterStub{}, map[string]error{
		"2026-03-04": errors.New("schedule unavailable"),
	})
	session, _, err := svc.Open(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Stage(session.ID, "s1", "2026-03-04", "m1", models.AttendanceStatusAbsent)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedule unavailable")

	_, err = svc.BulkActivate(session.ID, "2026-03-04")
	require.Error(t, err)
}

func TestBulkApplyStagesIntents(t *testing.T) {
	svc, req := newSessionFixture(t, &batchWriterStub{}, nil)
	session, _, err := svc.Open(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.BulkActivate(session.ID, "2026-03-04")
	require.NoError(t, err)
	_, err = svc.BulkToggle(session.ID, "2026-03-04", "s1")
	require.NoError(t, err)
	_, err = svc.BulkToggle(session.ID, "2026-03-04", "s2")
	require.NoError(t, err)
	_, err = svc.BulkSetStatus(session.ID, "2026-03-04", models.AttendanceStatusAbsent)
	require.NoError(t, err)

	staged, err := svc.BulkApply(session.ID, "2026-03-04")
	require.NoError(t, err)

	// Two students across Math and Physics; every committed status differs.
	assert.Len(t, staged, 4)
	assert.Equal(t, 4, session.Pending.Count())
}

func TestGlobalApplyStagesIntents(t *testing.T) {
	svc, req := newSessionFixture(t, &batchWriterStub{}, nil)
	session, _, err := svc.Open(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.GlobalToggle(session.ID, "s2")
	require.NoError(t, err)

	staged, err := svc.GlobalApply(session.ID, models.AttendanceStatusLate, "2026-03-04")
	require.NoError(t, err)
	assert.Len(t, staged, 2)

	selection, err := svc.GlobalSelection(session.ID)
	require.NoError(t, err)
	assert.Empty(t, selection)
}

func TestSubmitFlushesAndKeepsSession(t *testing.T) {
	writer := &batchWriterStub{}
	svc, req := newSessionFixture(t, writer, nil)
	session, _, err := svc.Open(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Stage(session.ID, "s1", "2026-03-04", "m1", models.AttendanceStatusAbsent)
	require.NoError(t, err)
	_, err = svc.Stage(session.ID, "s2", "2026-03-04", "m1", models.AttendanceStatusAbsent)
	require.NoError(t, err)

	summary, err := svc.Submit(context.Background(), session.ID, "t1", "Pak Budi")
	require.NoError(t, err)

	assert.Equal(t, "X IPA 1", summary.ClassName)
	assert.Equal(t, 2, summary.TotalUpdates)
	require.Len(t, summary.Groups, 1)
	assert.Equal(t, []string{"Alice", "Bob"}, summary.Groups[0].StudentNames)
	assert.Equal(t, "Math", summary.Groups[0].SubjectName)

	require.Len(t, writer.batches, 1)
	assert.Len(t, writer.batches[0], 2)

	// The session survives with an empty staging store.
	fetched, err := svc.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, fetched.Pending.Count())
}

func TestSubmitWithoutStagedChanges(t *testing.T) {
	writer := &batchWriterStub{}
	svc, req := newSessionFixture(t, writer, nil)
	session, _, err := svc.Open(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), session.ID, "t1", "Pak Budi")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Empty(t, writer.batches)
}

func TestSubmitFailurePreservesStagedChanges(t *testing.T) {
	writer := &batchWriterStub{err: errors.New("backend down")}
	svc, req := newSessionFixture(t, writer, nil)
	session, _, err := svc.Open(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Stage(session.ID, "s1", "2026-03-04", "m1", models.AttendanceStatusAbsent)
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), session.ID, "t1", "Pak Budi")
	require.Error(t, err)
	assert.Equal(t, 1, session.Pending.Count())
}

func TestDiscardDropsSession(t *testing.T) {
	svc, req := newSessionFixture(t, &batchWriterStub{}, nil)
	session, _, err := svc.Open(context.Background(), req)
	require.NoError(t, err)

	svc.Discard(session.ID)
	_, err = svc.Get(session.ID)
	require.Error(t, err)
}
