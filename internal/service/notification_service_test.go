package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-grid-api/internal/models"
	"github.com/noah-isme/attendance-grid-api/pkg/jobs"
)

type senderStub struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (s *senderStub) Send(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, text)
	return nil
}

func (s *senderStub) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func submittedChanges() []models.PendingChange {
	return []models.PendingChange{
		{StudentID: "s2", Date: "2026-03-04", SubjectID: "m1", Status: models.AttendanceStatusAbsent},
		{StudentID: "s1", Date: "2026-03-04", SubjectID: "m1", Status: models.AttendanceStatusAbsent},
		{StudentID: "s3", Date: "2026-03-04", SubjectID: "m1", Status: models.AttendanceStatusLate},
		{StudentID: "s1", Date: "2026-03-04", SubjectID: "m2", Status: models.AttendanceStatusAbsent},
	}
}

func TestBuildSummaryGroupsAndSorts(t *testing.T) {
	svc := NewNotificationService(nil, false, jobs.QueueConfig{}, nil)

	studentNames := map[string]string{"s1": "Alice", "s2": "Bob", "s3": "Carol"}
	subjectNames := map[string]string{"m1": "Math", "m2": "Physics"}

	summary := svc.BuildSummary("X IPA 1", "Pak Budi", submittedChanges(), studentNames, subjectNames)

	assert.Equal(t, "X IPA 1", summary.ClassName)
	assert.Equal(t, "Pak Budi", summary.SubmittedBy)
	assert.Equal(t, 4, summary.TotalUpdates)
	require.Len(t, summary.Groups, 3)

	first := summary.Groups[0]
	assert.Equal(t, "m1", first.SubjectID)
	assert.Equal(t, "Math", first.SubjectName)
	assert.Equal(t, models.AttendanceStatusAbsent, first.Status)
	assert.Equal(t, []string{"Alice", "Bob"}, first.StudentNames)

	assert.Equal(t, models.AttendanceStatusLate, summary.Groups[1].Status)
	assert.Equal(t, []string{"Carol"}, summary.Groups[1].StudentNames)

	assert.Equal(t, "m2", summary.Groups[2].SubjectID)
}

func TestBuildSummaryFallsBackToIDs(t *testing.T) {
	svc := NewNotificationService(nil, false, jobs.QueueConfig{}, nil)

	summary := svc.BuildSummary("X IPA 1", "", []models.PendingChange{
		{StudentID: "s9", Date: "2026-03-04", SubjectID: "m9", Status: models.AttendanceStatusExcused},
	}, nil, nil)

	require.Len(t, summary.Groups, 1)
	assert.Equal(t, []string{"s9"}, summary.Groups[0].StudentNames)
	assert.Empty(t, summary.Groups[0].SubjectName)
}

func TestFormatRendersMarkdown(t *testing.T) {
	svc := NewNotificationService(nil, false, jobs.QueueConfig{}, nil)

	summary := models.SubmissionSummary{
		ClassName:    "X IPA 1",
		TotalUpdates: 2,
		SubmittedBy:  "Pak Budi",
		Groups: []models.SummaryGroup{
			{Date: "2026-03-04", SubjectID: "m1", SubjectName: "Math", Status: models.AttendanceStatusAbsent, StudentNames: []string{"Alice", "Bob"}},
		},
	}

	text := svc.Format(summary)
	assert.Contains(t, text, "*Attendance Update — X IPA 1*")
	assert.Contains(t, text, "Pak Budi")
	assert.Contains(t, text, "2 update(s)")
	assert.Contains(t, text, "*2026-03-04 · Math*")
	assert.Contains(t, text, "Absent: Alice, Bob")
}

func TestDispatchDeliversThroughQueue(t *testing.T) {
	sender := &senderStub{}
	svc := NewNotificationService(sender, true, jobs.QueueConfig{Workers: 1, RetryDelay: time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	svc.Dispatch(models.SubmissionSummary{ClassName: "X IPA 1", TotalUpdates: 1})

	require.Eventually(t, func() bool {
		return len(sender.messages()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, sender.messages()[0], "X IPA 1")
}

func TestDispatchDisabledIsNoOp(t *testing.T) {
	svc := NewNotificationService(nil, false, jobs.QueueConfig{}, nil)
	svc.Dispatch(models.SubmissionSummary{ClassName: "X IPA 1"})
}
