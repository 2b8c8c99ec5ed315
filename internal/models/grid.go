package models

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// ClassInfo identifies the class a grid belongs to.
type ClassInfo struct {
	ClassID   string `db:"class_id" json:"class_id"`
	ClassName string `db:"class_name" json:"class_name"`
	ClassCode string `db:"class_code" json:"class_code,omitempty"`
}

// Subject describes one subject scheduled for a class.
type Subject struct {
	SubjectID   string `db:"subject_id" json:"subject_id"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	SubjectCode string `db:"subject_code" json:"subject_code,omitempty"`
}

// GridPeriod is the inclusive date range covered by a weekly grid.
type GridPeriod struct {
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	Dates     []string `json:"dates"`
	TotalDays int      `json:"total_days"`
}

// StudentStatistics aggregates one student's rollups across the period.
// AttendanceRate is a fixed one-decimal string without a percent sign
// ("75.0"); exports and the UI rely on that exact form.
type StudentStatistics struct {
	Present         int    `json:"present"`
	Absent          int    `json:"absent"`
	Late            int    `json:"late"`
	Excused         int    `json:"excused"`
	TotalDays       int    `json:"total_days"`
	RecordedDays    int    `json:"recorded_days"`
	AttendanceRate  string `json:"attendance_rate"`
	SubjectAbsences int    `json:"subject_absences"`
	SubjectLates    int    `json:"subject_lates"`
	SubjectExcused  int    `json:"subject_excused"`
}

// DateStatistics aggregates all students for one date. Unlike the
// per-student rate, AttendanceRate here carries the percent sign ("75.0%").
type DateStatistics struct {
	Present        int    `json:"present"`
	Absent         int    `json:"absent"`
	Late           int    `json:"late"`
	Excused        int    `json:"excused"`
	Total          int    `json:"total"`
	AttendanceRate string `json:"attendance_rate"`
}

// OverallStatistics sums student statistics across the whole period.
type OverallStatistics struct {
	TotalStudents  int    `json:"total_students"`
	Present        int    `json:"present"`
	Absent         int    `json:"absent"`
	Late           int    `json:"late"`
	Excused        int    `json:"excused"`
	RecordedDays   int    `json:"recorded_days"`
	AttendanceRate string `json:"attendance_rate"`
}

// StudentRow is one student's row in the weekly grid.
type StudentRow struct {
	RowNumber  int                    `json:"row_number"`
	StudentID  string                 `json:"student_id"`
	FullName   string                 `json:"full_name"`
	Gender     string                 `json:"gender,omitempty"`
	Days       map[string]DailyRollup `json:"days"`
	Statistics StudentStatistics      `json:"statistics"`
}

// SubjectIndex holds per-date subject lists joined from individual fetches.
// A date present in Failed had its fetch fail; its column stays usable for
// reading but not for staging. Other dates are unaffected.
type SubjectIndex struct {
	ByDate map[string][]Subject `json:"by_date"`
	Failed map[string]string    `json:"failed,omitempty"`
}

// SubjectsFor returns the subjects scheduled on the given date.
func (i SubjectIndex) SubjectsFor(date string) []Subject {
	if i.ByDate == nil {
		return nil
	}
	return i.ByDate[date]
}

// WeeklyGrid is the composed read model served to the presentation layer.
type WeeklyGrid struct {
	Class           ClassInfo                 `json:"class"`
	Period          GridPeriod                `json:"period"`
	Students        []StudentRow              `json:"students"`
	Subjects        SubjectIndex              `json:"subjects"`
	DailyStatistics map[string]DateStatistics `json:"daily_statistics"`
	Overall         OverallStatistics         `json:"overall_statistics"`
	Pagination      *Pagination               `json:"pagination,omitempty"`
}
