package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-grid-api/internal/models"
	"github.com/noah-isme/attendance-grid-api/pkg/config"
	appErrors "github.com/noah-isme/attendance-grid-api/pkg/errors"
)

// EditSession is one teacher's server-side editing surface over a loaded
// grid: a frozen editability window, the committed-status snapshot, the
// staging store and both selection mechanisms. Sessions expire after a TTL;
// an expired session loses its staged changes.
type EditSession struct {
	ID           string
	Class        models.ClassInfo
	Period       models.GridPeriod
	Policy       *EditabilityPolicy
	Pending      *PendingChangeStore
	Bulk         *BulkSelectionEngine
	studentNames map[string]string
	subjectNames map[string]string
	failedDates  map[string]string
	ExpiresAt    time.Time
}

// SessionView is the projection of a session returned to clients.
type SessionView struct {
	SessionID    string    `json:"session_id"`
	Today        string    `json:"today"`
	PendingCount int       `json:"pending_count"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// View builds the client projection.
func (s *EditSession) View() SessionView {
	return SessionView{
		SessionID:    s.ID,
		Today:        s.Policy.Today(),
		PendingCount: s.Pending.Count(),
		ExpiresAt:    s.ExpiresAt,
	}
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*EditSession
	now      func() time.Time
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*EditSession), now: time.Now}
}

func (st *sessionStore) put(session *EditSession) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[session.ID] = session
}

func (st *sessionStore) get(id string) (*EditSession, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	session, ok := st.sessions[id]
	if !ok {
		return nil, appErrors.ErrSessionExpired
	}
	if st.now().After(session.ExpiresAt) {
		delete(st.sessions, id)
		return nil, appErrors.ErrSessionExpired
	}
	return session, nil
}

func (st *sessionStore) delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

func (st *sessionStore) sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := st.now()
	removed := 0
	for id, session := range st.sessions {
		if now.After(session.ExpiresAt) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// EditSessionService owns the lifecycle of edit sessions and routes every
// staging, bulk and submission operation through them.
type EditSessionService struct {
	store    *sessionStore
	grid     *GridService
	writer   BatchWriter
	notifier *NotificationService
	metrics  *MetricsService
	cfg      config.SessionConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewEditSessionService constructs the service.
func NewEditSessionService(grid *GridService, writer BatchWriter, notifier *NotificationService, metrics *MetricsService, cfg config.SessionConfig, logger *zap.Logger) *EditSessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EditSessionService{
		store:    newSessionStore(),
		grid:     grid,
		writer:   writer,
		notifier: notifier,
		metrics:  metrics,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// StartCleanup sweeps expired sessions until the context is cancelled.
func (s *EditSessionService) StartCleanup(ctx context.Context) {
	interval := s.cfg.CleanupInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.store.sweep(); removed > 0 {
					s.logger.Info("expired edit sessions removed", zap.Int("count", removed))
				}
			}
		}
	}()
}

// Open composes the grid for the request and builds a fresh session over it.
// The editability window is frozen at this moment: the session's "today"
// stays fixed even if the wall clock crosses midnight, and submission-time
// validation catches the staleness.
func (s *EditSessionService) Open(ctx context.Context, req GridRequest) (*EditSession, *models.WeeklyGrid, error) {
	grid, err := s.grid.Compose(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	committed := make(map[models.ChangeKey]models.AttendanceStatus)
	studentNames := make(map[string]string, len(grid.Students))
	for _, student := range grid.Students {
		studentNames[student.StudentID] = student.FullName
		for date, day := range student.Days {
			for _, rec := range day.Subjects {
				key := models.ChangeKey{StudentID: student.StudentID, Date: date, SubjectID: rec.SubjectID}
				committed[key] = rec.Status
			}
		}
	}

	subjectNames := make(map[string]string)
	for _, subjects := range grid.Subjects.ByDate {
		for _, subject := range subjects {
			subjectNames[subject.SubjectID] = subject.SubjectName
		}
	}

	policy := NewEditabilityPolicy(s.now())
	policy.now = s.now
	session := &EditSession{
		ID:           uuid.NewString(),
		Class:        grid.Class,
		Period:       grid.Period,
		Policy:       policy,
		Pending:      NewPendingChangeStore(policy, committed),
		Bulk:         NewBulkSelectionEngine(policy, grid.Subjects.ByDate),
		studentNames: studentNames,
		subjectNames: subjectNames,
		failedDates:  grid.Subjects.Failed,
		ExpiresAt:    s.now().Add(s.cfg.TTL),
	}
	s.store.put(session)

	s.logger.Info("edit session opened",
		zap.String("session_id", session.ID),
		zap.String("class_id", grid.Class.ClassID),
		zap.String("today", policy.Today()))
	return session, grid, nil
}

// Get returns the live session or ErrSessionExpired.
func (s *EditSessionService) Get(id string) (*EditSession, error) {
	return s.store.get(id)
}

// Discard drops the session and everything staged in it.
func (s *EditSessionService) Discard(id string) {
	s.store.delete(id)
}

// Stage proposes a status for one cell inside the session. Dates whose
// subject join failed at composition time are closed to staging even though
// their column renders.
func (s *EditSessionService) Stage(id, studentID, date, subjectID string, status models.AttendanceStatus) (models.PendingChange, error) {
	session, err := s.store.get(id)
	if err != nil {
		return models.PendingChange{}, err
	}
	if reason, failed := session.failedDates[date]; failed {
		return models.PendingChange{}, appErrors.Clone(appErrors.ErrValidation, "subject data unavailable for "+date+": "+reason)
	}
	return session.Pending.Stage(studentID, date, subjectID, status)
}

// Unstage removes one staged change.
func (s *EditSessionService) Unstage(id string, key models.ChangeKey) error {
	session, err := s.store.get(id)
	if err != nil {
		return err
	}
	session.Pending.Remove(key)
	return nil
}

// ClearChanges empties the session's staging store.
func (s *EditSessionService) ClearChanges(id string) error {
	session, err := s.store.get(id)
	if err != nil {
		return err
	}
	session.Pending.ClearAll()
	return nil
}

// Changes lists the staged changes in deterministic order.
func (s *EditSessionService) Changes(id string) ([]models.PendingChange, error) {
	session, err := s.store.get(id)
	if err != nil {
		return nil, err
	}
	return session.Pending.Changes(), nil
}

// BulkActivate opens the per-date bulk selection for the date.
func (s *EditSessionService) BulkActivate(id, date string) (models.BulkSelectionView, error) {
	session, err := s.store.get(id)
	if err != nil {
		return models.BulkSelectionView{}, err
	}
	if reason, failed := session.failedDates[date]; failed {
		return models.BulkSelectionView{}, appErrors.Clone(appErrors.ErrValidation, "subject data unavailable for "+date+": "+reason)
	}
	if err := session.Bulk.Activate(date); err != nil {
		return models.BulkSelectionView{}, err
	}
	return session.Bulk.Session(date), nil
}

// BulkToggle flips a student in the active per-date selection.
func (s *EditSessionService) BulkToggle(id, date, studentID string) (models.BulkSelectionView, error) {
	session, err := s.store.get(id)
	if err != nil {
		return models.BulkSelectionView{}, err
	}
	if err := session.Bulk.ToggleStudent(date, studentID); err != nil {
		return models.BulkSelectionView{}, err
	}
	return session.Bulk.Session(date), nil
}

// BulkSelectAll selects every student known to the session.
func (s *EditSessionService) BulkSelectAll(id, date string) (models.BulkSelectionView, error) {
	session, err := s.store.get(id)
	if err != nil {
		return models.BulkSelectionView{}, err
	}
	candidates := make([]string, 0, len(session.studentNames))
	for studentID := range session.studentNames {
		candidates = append(candidates, studentID)
	}
	if err := session.Bulk.SelectAll(date, candidates); err != nil {
		return models.BulkSelectionView{}, err
	}
	return session.Bulk.Session(date), nil
}

// BulkDeselectAll empties the active selection.
func (s *EditSessionService) BulkDeselectAll(id, date string) (models.BulkSelectionView, error) {
	session, err := s.store.get(id)
	if err != nil {
		return models.BulkSelectionView{}, err
	}
	if err := session.Bulk.DeselectAll(date); err != nil {
		return models.BulkSelectionView{}, err
	}
	return session.Bulk.Session(date), nil
}

// BulkSetStatus changes the status the selection will apply.
func (s *EditSessionService) BulkSetStatus(id, date string, status models.AttendanceStatus) (models.BulkSelectionView, error) {
	session, err := s.store.get(id)
	if err != nil {
		return models.BulkSelectionView{}, err
	}
	if err := session.Bulk.SetStatus(date, status); err != nil {
		return models.BulkSelectionView{}, err
	}
	return session.Bulk.Session(date), nil
}

// BulkApply expands the active selection into staged changes.
func (s *EditSessionService) BulkApply(id, date string) ([]models.PendingChange, error) {
	session, err := s.store.get(id)
	if err != nil {
		return nil, err
	}
	intents, err := session.Bulk.Apply(date, session.Pending.CommittedStatus)
	if err != nil {
		return nil, err
	}
	return s.stageIntents(session, intents)
}

// BulkCancel deactivates the per-date selection without applying it.
func (s *EditSessionService) BulkCancel(id, date string) error {
	session, err := s.store.get(id)
	if err != nil {
		return err
	}
	session.Bulk.Cancel(date)
	return nil
}

// BulkSession returns the current per-date selection view.
func (s *EditSessionService) BulkSession(id, date string) (models.BulkSelectionView, error) {
	session, err := s.store.get(id)
	if err != nil {
		return models.BulkSelectionView{}, err
	}
	return session.Bulk.Session(date), nil
}

// GlobalToggle flips a student in the global selection.
func (s *EditSessionService) GlobalToggle(id, studentID string) ([]string, error) {
	session, err := s.store.get(id)
	if err != nil {
		return nil, err
	}
	session.Bulk.ToggleGlobal(studentID)
	return session.Bulk.GlobalSelection(), nil
}

// GlobalClear empties the global selection.
func (s *EditSessionService) GlobalClear(id string) error {
	session, err := s.store.get(id)
	if err != nil {
		return err
	}
	session.Bulk.ClearGlobal()
	return nil
}

// GlobalSelection lists the global selection.
func (s *EditSessionService) GlobalSelection(id string) ([]string, error) {
	session, err := s.store.get(id)
	if err != nil {
		return nil, err
	}
	return session.Bulk.GlobalSelection(), nil
}

// GlobalApply stages the chosen status for the global selection on the date.
func (s *EditSessionService) GlobalApply(id string, status models.AttendanceStatus, date string) ([]models.PendingChange, error) {
	session, err := s.store.get(id)
	if err != nil {
		return nil, err
	}
	if reason, failed := session.failedDates[date]; failed {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject data unavailable for "+date+": "+reason)
	}
	intents, err := session.Bulk.ApplyGlobal(status, date, session.Pending.CommittedStatus)
	if err != nil {
		return nil, err
	}
	return s.stageIntents(session, intents)
}

func (s *EditSessionService) stageIntents(session *EditSession, intents []StageIntent) ([]models.PendingChange, error) {
	staged := make([]models.PendingChange, 0, len(intents))
	for _, intent := range intents {
		change, err := session.Pending.Stage(intent.StudentID, intent.Date, intent.SubjectID, intent.Status)
		if err != nil {
			return staged, err
		}
		staged = append(staged, change)
	}
	return staged, nil
}

// Submit flushes the session's staged changes as one batch, invalidates the
// class's cached grids and dispatches the submission summary. The session
// survives submission with an empty staging store, so the teacher can keep
// editing against a re-fetched grid.
func (s *EditSessionService) Submit(ctx context.Context, id, teacherID, submittedBy string) (*models.SubmissionSummary, error) {
	session, err := s.store.get(id)
	if err != nil {
		return nil, err
	}
	if !session.Pending.HasChanges() {
		// An empty submit is a client mistake, not a backend failure;
		// reject it before it reaches the writer or the metrics.
		return nil, appErrors.Clone(appErrors.ErrValidation, "no changes to submit")
	}

	submitted, err := session.Pending.Submit(ctx, s.writer, teacherID)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordSubmission("failure")
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordSubmission("success")
	}

	if err := s.grid.InvalidateClass(ctx, session.Class.ClassID); err != nil {
		s.logger.Warn("grid cache invalidation failed", zap.String("class_id", session.Class.ClassID), zap.Error(err))
	}

	summary := s.notifier.BuildSummary(session.Class.ClassName, submittedBy, submitted, session.studentNames, session.subjectNames)
	s.notifier.Dispatch(summary)

	s.logger.Info("attendance batch submitted",
		zap.String("session_id", session.ID),
		zap.String("class_id", session.Class.ClassID),
		zap.Int("updates", summary.TotalUpdates))
	return &summary, nil
}
