package models

// BulkSelectionState is the per-date bulk marking session. At most one may be
// active system-wide; activating another clears it.
type BulkSelectionState struct {
	Date           string
	SelectedStatus AttendanceStatus
	Selected       map[string]struct{}
	Active         bool
}

// NewBulkSelectionState creates a fresh, active selection for the date with
// the default status Present and an empty membership.
func NewBulkSelectionState(date string) *BulkSelectionState {
	return &BulkSelectionState{
		Date:           date,
		SelectedStatus: AttendanceStatusPresent,
		Selected:       make(map[string]struct{}),
		Active:         true,
	}
}

// Count returns the number of selected students.
func (s *BulkSelectionState) Count() int {
	if s == nil {
		return 0
	}
	return len(s.Selected)
}

// StudentIDs returns the selected student ids.
func (s *BulkSelectionState) StudentIDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.Selected))
	for id := range s.Selected {
		ids = append(ids, id)
	}
	return ids
}

// BulkSelectionView is the read-only projection served to clients.
type BulkSelectionView struct {
	Date           string           `json:"date"`
	SelectedStatus AttendanceStatus `json:"selected_status"`
	StudentIDs     []string         `json:"student_ids"`
	Count          int              `json:"count"`
	Active         bool             `json:"active"`
}
