package models

// AttendanceStatus represents the status for a subject attendance record.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "P"
	AttendanceStatusAbsent  AttendanceStatus = "A"
	AttendanceStatusLate    AttendanceStatus = "L"
	AttendanceStatusExcused AttendanceStatus = "E"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate, AttendanceStatusExcused:
		return true
	default:
		return false
	}
}

// Label returns the display label for the status.
func (s AttendanceStatus) Label() string {
	switch s {
	case AttendanceStatusPresent:
		return "Present"
	case AttendanceStatusAbsent:
		return "Absent"
	case AttendanceStatusLate:
		return "Late"
	case AttendanceStatusExcused:
		return "Excused"
	default:
		return ""
	}
}

// Symbol returns the grid cell symbol for the status.
func (s AttendanceStatus) Symbol() string {
	if s == AttendanceStatusPresent {
		return "✓"
	}
	if s.Valid() {
		return string(s)
	}
	return ""
}

// SubjectAttendanceRecord is one recorded fact: a student's status for one
// subject session on one date. Immutable once fetched.
type SubjectAttendanceRecord struct {
	SubjectID   string           `json:"subject_id"`
	SubjectName string           `json:"subject_name"`
	Session     string           `json:"session,omitempty"`
	Status      AttendanceStatus `json:"status"`
	Notes       string           `json:"notes,omitempty"`
}

// DailyRollup is the derived per-(student, date) aggregate. DailyStatus is
// empty when no records exist for the day; it is always recomputed from
// Subjects, never hand-set.
type DailyRollup struct {
	Date        string                    `json:"date"`
	Subjects    []SubjectAttendanceRecord `json:"subjects"`
	DailyStatus AttendanceStatus          `json:"daily_status,omitempty"`
}

// HasStatus reports whether the day carries a recorded daily status.
func (r DailyRollup) HasStatus() bool {
	return r.DailyStatus != ""
}

// DayClassification places a date relative to the editing reference date.
type DayClassification string

const (
	DayPast   DayClassification = "past"
	DayToday  DayClassification = "today"
	DayFuture DayClassification = "future"
)

// TimeRemaining describes the countdown for a date's editability window.
// For future dates Hours may exceed 24; the presentation layer derives the
// "Xd Yh" form itself. Countdown is false for past dates, which have no
// countdown at all rather than a zero one.
type TimeRemaining struct {
	Countdown bool `json:"countdown"`
	Hours     int  `json:"hours"`
	Minutes   int  `json:"minutes"`
	Seconds   int  `json:"seconds"`
}
