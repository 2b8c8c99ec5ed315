package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/noah-isme/attendance-grid-api/internal/models"
	appErrors "github.com/noah-isme/attendance-grid-api/pkg/errors"
)

// BatchWriter issues staged changes to the attendance backend as one logical
// batch. Implementations must be all-or-nothing from the store's point of
// view: on any error nothing is considered written.
type BatchWriter interface {
	SubmitBatch(ctx context.Context, writes []models.AttendanceWrite) error
}

// PendingChangeStore is the staging area every attendance mutation passes
// through before reaching the backend. Entries are keyed by
// (student, date, subject); staging the same key again overwrites the entry
// entirely. All methods are safe for concurrent use: the overwrite-by-key
// semantics are not safe under unguarded concurrent writes, so the store
// serialises mutations through one mutex.
type PendingChangeStore struct {
	mu        sync.Mutex
	policy    *EditabilityPolicy
	committed map[models.ChangeKey]models.AttendanceStatus
	changes   map[models.ChangeKey]models.PendingChange
}

// NewPendingChangeStore builds a store over the committed-status snapshot of
// the currently loaded grid. The snapshot is what modification detection and
// previous-status capture read from; it is never mutated by staging.
func NewPendingChangeStore(policy *EditabilityPolicy, committed map[models.ChangeKey]models.AttendanceStatus) *PendingChangeStore {
	if committed == nil {
		committed = make(map[models.ChangeKey]models.AttendanceStatus)
	}
	return &PendingChangeStore{
		policy:    policy,
		committed: committed,
		changes:   make(map[models.ChangeKey]models.PendingChange),
	}
}

// Stage proposes a status for one cell. The date must be inside the editable
// window and the status must be a known value; a rejected call leaves the
// store untouched. PreviousStatus always reflects the committed record, so
// restaging a key keeps the original previous status rather than the
// previously staged one.
func (s *PendingChangeStore) Stage(studentID, date, subjectID string, status models.AttendanceStatus) (models.PendingChange, error) {
	if !status.Valid() {
		return models.PendingChange{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid attendance status %q", status))
	}
	if !s.policy.IsEditable(date) {
		return models.PendingChange{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("date %s is not editable, only %s is open for changes", date, s.policy.Today()))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.ChangeKey{StudentID: studentID, Date: date, SubjectID: subjectID}
	previous, existed := s.committed[key]
	change := models.PendingChange{
		StudentID:      studentID,
		Date:           date,
		SubjectID:      subjectID,
		Status:         status,
		PreviousStatus: previous,
		IsModification: existed,
	}
	s.changes[key] = change
	return change, nil
}

// Remove deletes a staged entry if present. Removing an absent key is not an
// error.
func (s *PendingChangeStore) Remove(key models.ChangeKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.changes, key)
}

// ClearAll empties the store.
func (s *PendingChangeStore) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = make(map[models.ChangeKey]models.PendingChange)
}

// HasChanges reports whether any change is staged.
func (s *PendingChangeStore) HasChanges() bool {
	return s.Count() > 0
}

// Count returns the number of staged changes.
func (s *PendingChangeStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.changes)
}

// Changes returns the staged entries ordered by (date, student, subject).
func (s *PendingChangeStore) Changes() []models.PendingChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

func (s *PendingChangeStore) sortedLocked() []models.PendingChange {
	out := make([]models.PendingChange, 0, len(s.changes))
	for _, change := range s.changes {
		out = append(out, change)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].StudentID != out[j].StudentID {
			return out[i].StudentID < out[j].StudentID
		}
		return out[i].SubjectID < out[j].SubjectID
	})
	return out
}

// CommittedStatus looks up the committed status for a cell.
func (s *PendingChangeStore) CommittedStatus(key models.ChangeKey) (models.AttendanceStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.committed[key]
	return status, ok
}

// ValidateAllEditable re-checks every staged date against the wall clock and
// returns the dates that are no longer editable, sorted and de-duplicated.
// A session that crossed midnight surfaces its stale dates here.
func (s *PendingChangeStore) ValidateAllEditable() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staleDatesLocked()
}

func (s *PendingChangeStore) staleDatesLocked() []string {
	seen := make(map[string]struct{})
	var violations []string
	for key := range s.changes {
		if s.policy.EditableNow(key.Date) {
			continue
		}
		if _, ok := seen[key.Date]; ok {
			continue
		}
		seen[key.Date] = struct{}{}
		violations = append(violations, key.Date)
	}
	sort.Strings(violations)
	return violations
}

// Submit validates and flushes the staged changes as one batch through the
// writer. Every write carries the force flag so the backend overwrites
// instead of rejecting on conflict. Validation and the batch snapshot happen
// under one lock acquisition, so a change cannot slip in between being
// checked and being captured. On success only the snapshotted entries are
// removed: anything staged while the batch was in flight stays staged for
// the next submission. On any failure the store is left untouched so the
// user can retry or cancel without re-entering edits. The caller is expected
// to re-fetch grid data afterwards: the store never merges its own state
// into the displayed grid.
func (s *PendingChangeStore) Submit(ctx context.Context, writer BatchWriter, teacherID string) ([]models.PendingChange, error) {
	s.mu.Lock()
	if len(s.changes) == 0 {
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrValidation, "no changes to submit")
	}
	if violations := s.staleDatesLocked(); len(violations) > 0 {
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrStaleDate, fmt.Sprintf("dates no longer editable: %v", violations))
	}
	submitted := s.sortedLocked()
	s.mu.Unlock()

	writes := make([]models.AttendanceWrite, len(submitted))
	for i, change := range submitted {
		writes[i] = models.AttendanceWrite{
			StudentID:      change.StudentID,
			TeacherID:      teacherID,
			SubjectID:      change.SubjectID,
			AttendanceDate: change.Date,
			Status:         change.Status,
			ForceUpdate:    true,
		}
	}

	if err := writer.SubmitBatch(ctx, writes); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit attendance batch")
	}

	// Drop only what was written. An entry staged or restaged while the
	// batch was in flight keeps its place in the store.
	s.mu.Lock()
	for _, change := range submitted {
		if current, ok := s.changes[change.Key()]; ok && current == change {
			delete(s.changes, change.Key())
		}
	}
	s.mu.Unlock()
	return submitted, nil
}
