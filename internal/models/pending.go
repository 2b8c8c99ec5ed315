package models

// ChangeKey uniquely identifies a staged change by (student, date, subject).
type ChangeKey struct {
	StudentID string `json:"student_id"`
	Date      string `json:"date"`
	SubjectID string `json:"subject_id"`
}

// PendingChange is a proposed status edit held in memory until submission.
// PreviousStatus is the committed status at staging time, empty when the cell
// had no record; IsModification mirrors whether a previous status existed.
type PendingChange struct {
	StudentID      string           `json:"student_id"`
	Date           string           `json:"date"`
	SubjectID      string           `json:"subject_id"`
	Status         AttendanceStatus `json:"status"`
	PreviousStatus AttendanceStatus `json:"previous_status,omitempty"`
	IsModification bool             `json:"is_modification"`
}

// Key returns the staging key for the change.
func (p PendingChange) Key() ChangeKey {
	return ChangeKey{StudentID: p.StudentID, Date: p.Date, SubjectID: p.SubjectID}
}

// AttendanceWrite is one entry of the batch sent to the write collaborator.
// ForceUpdate tells the backend to overwrite on conflict instead of rejecting.
type AttendanceWrite struct {
	StudentID      string           `json:"student_id"`
	TeacherID      string           `json:"teacher_id"`
	SubjectID      string           `json:"subject_id"`
	AttendanceDate string           `json:"attendance_date"`
	Status         AttendanceStatus `json:"status"`
	Notes          string           `json:"notes,omitempty"`
	ForceUpdate    bool             `json:"force_update"`
}

// SummaryGroup lists the students that received one (date, subject, status)
// combination in a submitted batch.
type SummaryGroup struct {
	Date         string           `json:"date"`
	SubjectID    string           `json:"subject_id"`
	SubjectName  string           `json:"subject_name,omitempty"`
	Status       AttendanceStatus `json:"status"`
	StudentNames []string         `json:"student_names"`
}

// SubmissionSummary is the structured notification payload produced after a
// successful batch submission. The core builds it; delivery is external.
type SubmissionSummary struct {
	ClassName    string         `json:"class_name"`
	TotalUpdates int            `json:"total_updates"`
	SubmittedBy  string         `json:"submitted_by,omitempty"`
	Groups       []SummaryGroup `json:"groups"`
}
