package dto

import (
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/attendance-grid-api/internal/models"
)

// The grid fetch boundary delivers a sparse, loosely-shaped payload:
// per student, a map of date to subject-session records. Everything past
// this package works on typed records only; the raw shapes never leak
// inward.

// RawSessionRecord is one session entry inside the sparse payload.
type RawSessionRecord struct {
	Session string `json:"session"`
	Status  string `json:"status" validate:"required"`
	Notes   string `json:"notes,omitempty"`
}

// RawDayData groups a date's records by subject id.
type RawDayData struct {
	Subjects map[string][]RawSessionRecord `json:"subjects"`
}

// RawStudentAttendance is one student's sparse attendance map.
type RawStudentAttendance struct {
	RowNumber  int                   `json:"row_number"`
	StudentID  string                `json:"student_id" validate:"required"`
	FullName   string                `json:"full_name" validate:"required"`
	Gender     string                `json:"gender,omitempty"`
	Attendance map[string]RawDayData `json:"attendance"`
}

// RawGridSnapshot is the single consistent snapshot returned by one grid
// fetch: all dates, subjects and statuses as of one point in time.
type RawGridSnapshot struct {
	Class      models.ClassInfo       `json:"class"`
	Students   []RawStudentAttendance `json:"students"`
	TotalCount int                    `json:"total_count"`
}

// Validate checks the snapshot's shape before decoding.
func (s *RawGridSnapshot) Validate(v *validator.Validate) error {
	for i := range s.Students {
		if err := v.Struct(&s.Students[i]); err != nil {
			return fmt.Errorf("student %d: %w", i, err)
		}
	}
	return nil
}

// DecodeDayRecords converts one student's raw entries for a date into typed
// subject records. Subject names resolve through the provided index with the
// original system's "Subject <id>" fallback. Status codes are carried
// through verbatim, known or not; the rollup engine decides what an unknown
// code means.
func DecodeDayRecords(day RawDayData, subjectNames map[string]string) []models.SubjectAttendanceRecord {
	if len(day.Subjects) == 0 {
		return nil
	}

	subjectIDs := make([]string, 0, len(day.Subjects))
	for id := range day.Subjects {
		subjectIDs = append(subjectIDs, id)
	}
	sort.Strings(subjectIDs)

	var records []models.SubjectAttendanceRecord
	for _, subjectID := range subjectIDs {
		name, ok := subjectNames[subjectID]
		if !ok {
			name = fmt.Sprintf("Subject %s", subjectID)
		}
		for _, session := range day.Subjects[subjectID] {
			records = append(records, models.SubjectAttendanceRecord{
				SubjectID:   subjectID,
				SubjectName: name,
				Session:     session.Session,
				Status:      models.AttendanceStatus(session.Status),
				Notes:       session.Notes,
			})
		}
	}
	return records
}
