package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-grid-api/internal/models"
	"github.com/noah-isme/attendance-grid-api/pkg/jobs"
)

// Notifier delivers a rendered notification message to an external channel.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

const jobTypeSubmissionNotice = "submission_notice"

// NotificationService turns submitted batches into structured summaries and
// relays them through a background queue. Delivery is strictly best-effort:
// a failed or disabled relay never affects the submission that produced it.
type NotificationService struct {
	sender  Notifier
	queue   *jobs.Queue
	enabled bool
	logger  *zap.Logger
}

// NewNotificationService constructs the service. With enabled false or a nil
// sender, Dispatch becomes a no-op.
func NewNotificationService(sender Notifier, enabled bool, queueCfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{sender: sender, enabled: enabled && sender != nil, logger: logger}
	if queueCfg.Logger == nil {
		queueCfg.Logger = logger
	}
	s.queue = jobs.NewQueue("notifications", s.handle, queueCfg)
	return s
}

// Start begins queue consumption.
func (s *NotificationService) Start(ctx context.Context) {
	if s.enabled {
		s.queue.Start(ctx)
	}
}

// Stop drains the queue workers.
func (s *NotificationService) Stop() {
	if s.enabled {
		s.queue.Stop()
	}
}

// BuildSummary groups submitted changes by (date, subject, status) with
// student names sorted inside each group and groups ordered by date, subject
// and status. Names missing from the lookup fall back to the raw id.
func (s *NotificationService) BuildSummary(className, submittedBy string, changes []models.PendingChange, studentNames, subjectNames map[string]string) models.SubmissionSummary {
	type groupKey struct {
		date      string
		subjectID string
		status    models.AttendanceStatus
	}

	grouped := make(map[groupKey][]string)
	for _, change := range changes {
		key := groupKey{date: change.Date, subjectID: change.SubjectID, status: change.Status}
		name, ok := studentNames[change.StudentID]
		if !ok {
			name = change.StudentID
		}
		grouped[key] = append(grouped[key], name)
	}

	keys := make([]groupKey, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].date != keys[j].date {
			return keys[i].date < keys[j].date
		}
		if keys[i].subjectID != keys[j].subjectID {
			return keys[i].subjectID < keys[j].subjectID
		}
		return keys[i].status < keys[j].status
	})

	summary := models.SubmissionSummary{
		ClassName:    className,
		TotalUpdates: len(changes),
		SubmittedBy:  submittedBy,
		Groups:       make([]models.SummaryGroup, 0, len(keys)),
	}
	for _, key := range keys {
		names := grouped[key]
		sort.Strings(names)
		summary.Groups = append(summary.Groups, models.SummaryGroup{
			Date:         key.date,
			SubjectID:    key.subjectID,
			SubjectName:  subjectNames[key.subjectID],
			Status:       key.status,
			StudentNames: names,
		})
	}
	return summary
}

// Format renders the summary as a Telegram Markdown message.
func (s *NotificationService) Format(summary models.SubmissionSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 *Attendance Update — %s*\n", summary.ClassName)
	if summary.SubmittedBy != "" {
		fmt.Fprintf(&b, "👤 Submitted by: %s\n", summary.SubmittedBy)
	}
	fmt.Fprintf(&b, "✏️ %d update(s)\n", summary.TotalUpdates)

	for _, group := range summary.Groups {
		subject := group.SubjectName
		if subject == "" {
			subject = group.SubjectID
		}
		fmt.Fprintf(&b, "\n*%s · %s*\n", group.Date, subject)
		fmt.Fprintf(&b, "%s: %s\n", group.Status.Label(), strings.Join(group.StudentNames, ", "))
	}
	return b.String()
}

// Dispatch enqueues the summary for delivery. Errors are logged and
// swallowed: by the time a summary exists the batch is already committed.
func (s *NotificationService) Dispatch(summary models.SubmissionSummary) {
	if !s.enabled {
		return
	}
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeSubmissionNotice,
		Payload: s.Format(summary),
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue submission notice", zap.String("class", summary.ClassName), zap.Error(err))
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	text, ok := job.Payload.(string)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.sender.Send(ctx, text)
}
