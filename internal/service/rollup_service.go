package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/attendance-grid-api/internal/models"
)

// RollupEngine reduces subject session records into per-day statuses.
//
// The reduction is a pure function of its input and is recomputed wholesale
// on every data refresh; nothing is patched incrementally.
type RollupEngine struct {
	logger  *zap.Logger
	metrics *MetricsService
}

// NewRollupEngine constructs the engine.
func NewRollupEngine(metrics *MetricsService, logger *zap.Logger) *RollupEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RollupEngine{logger: logger, metrics: metrics}
}

// DailyStatus reduces the records of one (student, date) pair using the fixed
// priority Absent > Late > Excused > Present. With no records the day has no
// status. A record with an unrecognised code never wins a priority branch but
// also blocks the all-present branch, so the day degrades to "no status";
// that matches the system this replaces and is deliberately kept.
func DailyStatus(records []models.SubjectAttendanceRecord) models.AttendanceStatus {
	if len(records) == 0 {
		return ""
	}

	hasAbsent := false
	hasLate := false
	hasExcused := false
	allPresent := true
	for _, rec := range records {
		switch rec.Status {
		case models.AttendanceStatusAbsent:
			hasAbsent = true
		case models.AttendanceStatusLate:
			hasLate = true
		case models.AttendanceStatusExcused:
			hasExcused = true
		}
		if rec.Status != models.AttendanceStatusPresent {
			allPresent = false
		}
	}

	switch {
	case hasAbsent:
		return models.AttendanceStatusAbsent
	case hasLate:
		return models.AttendanceStatusLate
	case hasExcused:
		return models.AttendanceStatusExcused
	case allPresent:
		return models.AttendanceStatusPresent
	default:
		return ""
	}
}

// Rollup builds the DailyRollup for one date.
func (e *RollupEngine) Rollup(date string, records []models.SubjectAttendanceRecord) models.DailyRollup {
	return models.DailyRollup{
		Date:        date,
		Subjects:    records,
		DailyStatus: DailyStatus(records),
	}
}

// BuildDays computes rollups for every date in the period. Dates without
// records still get an entry so the grid renders every column.
func (e *RollupEngine) BuildDays(dates []string, recordsByDate map[string][]models.SubjectAttendanceRecord) map[string]models.DailyRollup {
	start := time.Now()
	days := make(map[string]models.DailyRollup, len(dates))
	for _, date := range dates {
		records := recordsByDate[date]
		days[date] = e.Rollup(date, records)
	}
	if e.metrics != nil {
		e.metrics.ObserveRollup(time.Since(start))
	}
	return days
}
