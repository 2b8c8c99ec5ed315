package service

import (
	"fmt"

	"github.com/noah-isme/attendance-grid-api/internal/models"
)

// StatisticsAggregator derives per-student, per-date and overall statistics
// from daily rollups. All reducers are total over empty input: they yield
// zeroed statistics, never an error.
type StatisticsAggregator struct{}

// NewStatisticsAggregator constructs the aggregator.
func NewStatisticsAggregator() *StatisticsAggregator {
	return &StatisticsAggregator{}
}

// Student reduces one student's rollups across the period.
//
// Day counters follow the daily status; subject-level counters follow every
// record regardless of the day's rollup. The rate is formatted as a fixed
// one-decimal string without a percent sign, which exports depend on.
func (a *StatisticsAggregator) Student(days map[string]models.DailyRollup, totalDays int) models.StudentStatistics {
	stats := models.StudentStatistics{TotalDays: totalDays, AttendanceRate: "0.0"}

	for _, day := range days {
		if day.HasStatus() {
			stats.RecordedDays++
			switch day.DailyStatus {
			case models.AttendanceStatusPresent:
				stats.Present++
			case models.AttendanceStatusAbsent:
				stats.Absent++
			case models.AttendanceStatusLate:
				stats.Late++
			case models.AttendanceStatusExcused:
				stats.Excused++
			}
		}

		for _, rec := range day.Subjects {
			switch rec.Status {
			case models.AttendanceStatusAbsent:
				stats.SubjectAbsences++
			case models.AttendanceStatusLate:
				stats.SubjectLates++
			case models.AttendanceStatusExcused:
				stats.SubjectExcused++
			}
		}
	}

	if stats.RecordedDays > 0 {
		stats.AttendanceRate = formatRate(stats.Present, stats.RecordedDays)
	}
	return stats
}

// PerDate reduces all students for one date. Only students with a recorded
// daily status count toward the totals. The rate here carries a percent sign,
// unlike the per-student rate; consumers rely on the asymmetry.
func (a *StatisticsAggregator) PerDate(students []models.StudentRow, date string) models.DateStatistics {
	stats := models.DateStatistics{AttendanceRate: "0.0%"}

	for _, student := range students {
		day, ok := student.Days[date]
		if !ok || !day.HasStatus() {
			continue
		}
		stats.Total++
		switch day.DailyStatus {
		case models.AttendanceStatusPresent:
			stats.Present++
		case models.AttendanceStatusAbsent:
			stats.Absent++
		case models.AttendanceStatusLate:
			stats.Late++
		case models.AttendanceStatusExcused:
			stats.Excused++
		}
	}

	if stats.Total > 0 {
		stats.AttendanceRate = formatRate(stats.Present, stats.Total) + "%"
	}
	return stats
}

// Overall sums each student's statistics across the whole period.
func (a *StatisticsAggregator) Overall(students []models.StudentRow) models.OverallStatistics {
	stats := models.OverallStatistics{TotalStudents: len(students), AttendanceRate: "0.0%"}

	for _, student := range students {
		stats.Present += student.Statistics.Present
		stats.Absent += student.Statistics.Absent
		stats.Late += student.Statistics.Late
		stats.Excused += student.Statistics.Excused
		stats.RecordedDays += student.Statistics.RecordedDays
	}

	if stats.RecordedDays > 0 {
		stats.AttendanceRate = formatRate(stats.Present, stats.RecordedDays) + "%"
	}
	return stats
}

func formatRate(present, recorded int) string {
	return fmt.Sprintf("%.1f", float64(present)/float64(recorded)*100)
}
