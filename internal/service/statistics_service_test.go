package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/attendance-grid-api/internal/models"
)

func dayWith(date string, records ...models.SubjectAttendanceRecord) models.DailyRollup {
	return models.DailyRollup{Date: date, Subjects: records, DailyStatus: DailyStatus(records)}
}

func TestStudentStatistics(t *testing.T) {
	agg := NewStatisticsAggregator()

	days := map[string]models.DailyRollup{
		"2026-03-02": dayWith("2026-03-02", rec("1", "P"), rec("2", "P")),
		"2026-03-03": dayWith("2026-03-03", rec("1", "P"), rec("2", "P")),
		"2026-03-04": dayWith("2026-03-04", rec("1", "P")),
		"2026-03-05": dayWith("2026-03-05", rec("1", "A"), rec("2", "L")),
		"2026-03-06": dayWith("2026-03-06"),
	}

	stats := agg.Student(days, 5)

	assert.Equal(t, 5, stats.TotalDays)
	assert.Equal(t, 4, stats.RecordedDays)
	assert.Equal(t, 3, stats.Present)
	assert.Equal(t, 1, stats.Absent)
	assert.Equal(t, 0, stats.Late)
	assert.Equal(t, "75.0", stats.AttendanceRate)

	assert.Equal(t, 1, stats.SubjectAbsences)
	assert.Equal(t, 1, stats.SubjectLates)
	assert.Equal(t, 0, stats.SubjectExcused)
}

func TestStudentStatisticsDayCountersFollowRollup(t *testing.T) {
	agg := NewStatisticsAggregator()

	// Late on one subject, present on the other: the day is Late but the
	// subject counters still see only the late record.
	days := map[string]models.DailyRollup{
		"2026-03-02": dayWith("2026-03-02", rec("1", "L"), rec("2", "P")),
	}

	stats := agg.Student(days, 1)
	assert.Equal(t, 1, stats.Late)
	assert.Equal(t, 0, stats.Present)
	assert.Equal(t, 1, stats.SubjectLates)
	assert.Equal(t, "0.0", stats.AttendanceRate)
}

func TestStudentStatisticsEmpty(t *testing.T) {
	agg := NewStatisticsAggregator()
	stats := agg.Student(nil, 0)
	assert.Equal(t, 0, stats.RecordedDays)
	assert.Equal(t, "0.0", stats.AttendanceRate)
}

func TestPerDateStatistics(t *testing.T) {
	agg := NewStatisticsAggregator()

	students := []models.StudentRow{
		{StudentID: "s1", Days: map[string]models.DailyRollup{"2026-03-02": dayWith("2026-03-02", rec("1", "P"))}},
		{StudentID: "s2", Days: map[string]models.DailyRollup{"2026-03-02": dayWith("2026-03-02", rec("1", "P"))}},
		{StudentID: "s3", Days: map[string]models.DailyRollup{"2026-03-02": dayWith("2026-03-02", rec("1", "P"))}},
		{StudentID: "s4", Days: map[string]models.DailyRollup{"2026-03-02": dayWith("2026-03-02", rec("1", "A"))}},
		{StudentID: "s5", Days: map[string]models.DailyRollup{"2026-03-02": dayWith("2026-03-02")}},
	}

	stats := agg.PerDate(students, "2026-03-02")
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 3, stats.Present)
	assert.Equal(t, 1, stats.Absent)
	assert.Equal(t, "75.0%", stats.AttendanceRate)
}

func TestPerDateStatisticsNoRecords(t *testing.T) {
	agg := NewStatisticsAggregator()
	stats := agg.PerDate(nil, "2026-03-02")
	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, "0.0%", stats.AttendanceRate)
}

func TestOverallStatistics(t *testing.T) {
	agg := NewStatisticsAggregator()

	students := []models.StudentRow{
		{Statistics: models.StudentStatistics{Present: 4, Absent: 1, RecordedDays: 5}},
		{Statistics: models.StudentStatistics{Present: 2, Late: 1, RecordedDays: 3}},
	}

	stats := agg.Overall(students)
	assert.Equal(t, 2, stats.TotalStudents)
	assert.Equal(t, 6, stats.Present)
	assert.Equal(t, 1, stats.Absent)
	assert.Equal(t, 1, stats.Late)
	assert.Equal(t, 8, stats.RecordedDays)
	assert.Equal(t, "75.0%", stats.AttendanceRate)
}

func TestStatisticsConsistency(t *testing.T) {
	agg := NewStatisticsAggregator()
	dates := []string{"2026-03-02", "2026-03-03"}

	students := []models.StudentRow{
		{StudentID: "s1", Days: map[string]models.DailyRollup{
			"2026-03-02": dayWith("2026-03-02", rec("1", "P")),
			"2026-03-03": dayWith("2026-03-03", rec("1", "A")),
		}},
		{StudentID: "s2", Days: map[string]models.DailyRollup{
			"2026-03-02": dayWith("2026-03-02", rec("1", "L")),
			"2026-03-03": dayWith("2026-03-03", rec("1", "P")),
		}},
	}
	for i := range students {
		students[i].Statistics = agg.Student(students[i].Days, len(dates))
	}

	overall := agg.Overall(students)

	var sumPresent, sumAbsent, sumLate int
	for _, date := range dates {
		daily := agg.PerDate(students, date)
		sumPresent += daily.Present
		sumAbsent += daily.Absent
		sumLate += daily.Late
	}

	assert.Equal(t, overall.Present, sumPresent)
	assert.Equal(t, overall.Absent, sumAbsent)
	assert.Equal(t, overall.Late, sumLate)
}
