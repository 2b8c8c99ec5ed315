package service

import (
	"fmt"
	"sort"
	"sync"

	"github.com/noah-isme/attendance-grid-api/internal/models"
	appErrors "github.com/noah-isme/attendance-grid-api/pkg/errors"
)

// StageIntent is one staging instruction produced by a bulk apply. Intents
// are handed to the PendingChangeStore, which re-validates editability on
// each one.
type StageIntent struct {
	StudentID string
	Date      string
	SubjectID string
	Status    models.AttendanceStatus
}

// CommittedLookup resolves the committed status for a cell, used to skip
// no-op writes during bulk apply.
type CommittedLookup func(key models.ChangeKey) (models.AttendanceStatus, bool)

// BulkSelectionEngine manages the two multi-student selection mechanisms:
// per-date bulk sessions for marking one day's column while browsing it, and
// a flat global set for marking a cross-cutting group of students against an
// explicitly chosen date. The two are independent so activating one never
// has to reason about the other's state.
type BulkSelectionEngine struct {
	mu       sync.Mutex
	policy   *EditabilityPolicy
	subjects map[string][]models.Subject
	sessions map[string]*models.BulkSelectionState
	global   map[string]struct{}
}

// NewBulkSelectionEngine builds the engine over the per-date subject lists
// of the currently loaded grid.
func NewBulkSelectionEngine(policy *EditabilityPolicy, subjectsByDate map[string][]models.Subject) *BulkSelectionEngine {
	if subjectsByDate == nil {
		subjectsByDate = make(map[string][]models.Subject)
	}
	return &BulkSelectionEngine{
		policy:   policy,
		subjects: subjectsByDate,
		sessions: make(map[string]*models.BulkSelectionState),
		global:   make(map[string]struct{}),
	}
}

// Activate opens a per-date bulk session. The date must be editable and have
// at least one scheduled subject. Any other active per-date session is
// cleared: at most one may be active system-wide.
func (e *BulkSelectionEngine) Activate(date string) error {
	if !e.policy.IsEditable(date) {
		remaining := e.policy.TimeRemaining(date)
		if remaining.Countdown {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("date %s opens for editing in %dh %dm %ds", date, remaining.Hours, remaining.Minutes, remaining.Seconds))
		}
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("date %s is closed for editing", date))
	}
	if len(e.subjects[date]) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("no subjects scheduled on %s", date))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessions = map[string]*models.BulkSelectionState{date: models.NewBulkSelectionState(date)}
	return nil
}

// ToggleStudent flips a student's membership in the date's active selection.
func (e *BulkSelectionEngine) ToggleStudent(date, studentID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, err := e.activeLocked(date)
	if err != nil {
		return err
	}
	if _, ok := state.Selected[studentID]; ok {
		delete(state.Selected, studentID)
	} else {
		state.Selected[studentID] = struct{}{}
	}
	return nil
}

// SelectAll replaces the membership with all candidate students.
func (e *BulkSelectionEngine) SelectAll(date string, candidates []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, err := e.activeLocked(date)
	if err != nil {
		return err
	}
	state.Selected = make(map[string]struct{}, len(candidates))
	for _, id := range candidates {
		state.Selected[id] = struct{}{}
	}
	return nil
}

// DeselectAll empties the membership without deactivating the session.
func (e *BulkSelectionEngine) DeselectAll(date string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, err := e.activeLocked(date)
	if err != nil {
		return err
	}
	state.Selected = make(map[string]struct{})
	return nil
}

// SetStatus changes the status the session will apply. Membership is not
// touched.
func (e *BulkSelectionEngine) SetStatus(date string, status models.AttendanceStatus) error {
	if !status.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid attendance status %q", status))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	state, err := e.activeLocked(date)
	if err != nil {
		return err
	}
	state.SelectedStatus = status
	return nil
}

// Apply expands the active session into staging intents: every selected
// student crossed with every subject scheduled on the date, keeping only
// pairs whose committed status differs from the chosen one. Skipping no-op
// writes keeps the pending count meaningful and avoids redundant backend
// writes. The session is consumed on success.
func (e *BulkSelectionEngine) Apply(date string, committed CommittedLookup) ([]StageIntent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, err := e.activeLocked(date)
	if err != nil {
		return nil, err
	}
	if len(state.Selected) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no students selected")
	}
	subjects := e.subjects[date]
	if len(subjects) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("no subjects scheduled on %s", date))
	}

	intents := e.expandLocked(state.StudentIDs(), date, subjects, state.SelectedStatus, committed)
	delete(e.sessions, date)
	return intents, nil
}

// Cancel deactivates the date's session without applying it.
func (e *BulkSelectionEngine) Cancel(date string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessions, date)
}

// Session returns a read-only view of the date's selection, active or not.
func (e *BulkSelectionEngine) Session(date string) models.BulkSelectionView {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, ok := e.sessions[date]
	if !ok {
		return models.BulkSelectionView{Date: date}
	}
	ids := state.StudentIDs()
	sort.Strings(ids)
	return models.BulkSelectionView{
		Date:           date,
		SelectedStatus: state.SelectedStatus,
		StudentIDs:     ids,
		Count:          state.Count(),
		Active:         state.Active,
	}
}

// ToggleGlobal flips a student's membership in the global row selection.
func (e *BulkSelectionEngine) ToggleGlobal(studentID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.global[studentID]; ok {
		delete(e.global, studentID)
	} else {
		e.global[studentID] = struct{}{}
	}
}

// ClearGlobal empties the global selection.
func (e *BulkSelectionEngine) ClearGlobal() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.global = make(map[string]struct{})
}

// GlobalSelection returns the sorted global membership.
func (e *BulkSelectionEngine) GlobalSelection() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.global))
	for id := range e.global {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ApplyGlobal performs the same diff-and-stage expansion as Apply, scoped to
// the explicitly passed date, using the global membership. The global set is
// cleared on success.
func (e *BulkSelectionEngine) ApplyGlobal(status models.AttendanceStatus, date string, committed CommittedLookup) ([]StageIntent, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid attendance status %q", status))
	}
	if !e.policy.IsEditable(date) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("date %s is not editable", date))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.global) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no students selected")
	}
	subjects := e.subjects[date]
	if len(subjects) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("no subjects scheduled on %s", date))
	}

	ids := make([]string, 0, len(e.global))
	for id := range e.global {
		ids = append(ids, id)
	}
	intents := e.expandLocked(ids, date, subjects, status, committed)
	e.global = make(map[string]struct{})
	return intents, nil
}

func (e *BulkSelectionEngine) expandLocked(studentIDs []string, date string, subjects []models.Subject, status models.AttendanceStatus, committed CommittedLookup) []StageIntent {
	sort.Strings(studentIDs)
	var intents []StageIntent
	for _, studentID := range studentIDs {
		for _, subject := range subjects {
			key := models.ChangeKey{StudentID: studentID, Date: date, SubjectID: subject.SubjectID}
			if current, ok := committed(key); ok && current == status {
				continue
			}
			intents = append(intents, StageIntent{
				StudentID: studentID,
				Date:      date,
				SubjectID: subject.SubjectID,
				Status:    status,
			})
		}
	}
	return intents
}

func (e *BulkSelectionEngine) activeLocked(date string) (*models.BulkSelectionState, error) {
	state, ok := e.sessions[date]
	if !ok || !state.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("no active bulk selection for %s", date))
	}
	return state, nil
}
