package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-grid-api/internal/dto"
	"github.com/noah-isme/attendance-grid-api/internal/models"
	"github.com/noah-isme/attendance-grid-api/pkg/config"
	appErrors "github.com/noah-isme/attendance-grid-api/pkg/errors"
)

type gridRepoStub struct {
	snapshot *dto.RawGridSnapshot
	err      error
}

func (s *gridRepoStub) FetchGrid(ctx context.Context, classID, startDate, endDate, search string, page, pageSize int) (*dto.RawGridSnapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.snapshot, nil
}

type subjectRepoStub struct {
	byDate map[string][]models.Subject
	fail   map[string]error
}

func (s *subjectRepoStub) SubjectsForDate(ctx context.Context, classID, date string) ([]models.Subject, error) {
	if err, ok := s.fail[date]; ok {
		return nil, err
	}
	return s.byDate[date], nil
}

type cacheRepoStub struct {
	sets    []string
	deleted []string
}

func (c *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	return appErrors.ErrCacheMiss
}

func (c *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.sets = append(c.sets, key)
	return nil
}

func (c *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	c.deleted = append(c.deleted, pattern)
	return nil
}

func testGridConfig() config.GridConfig {
	return config.GridConfig{DefaultPageSize: 20, MaxPageSize: 100}
}

func disabledCache() *CacheService {
	return NewCacheService(nil, nil, 0, nil, false)
}

func sparseDay(subjects map[string][]dto.RawSessionRecord) dto.RawDayData {
	return dto.RawDayData{Subjects: subjects}
}

func newTestGridService(grids GridRepository, subjects SubjectRepository) *GridService {
	rollup := NewRollupEngine(nil, nil)
	stats := NewStatisticsAggregator()
	return NewGridService(grids, subjects, rollup, stats, disabledCache(), testGridConfig(), nil)
}

func TestComposeBuildsRollupsAndStatistics(t *testing.T) {
	snapshot := &dto.RawGridSnapshot{
		Class: models.ClassInfo{ClassID: "c1", ClassName: "X IPA 1"},
		Students: []dto.RawStudentAttendance{
			{
				RowNumber: 1, StudentID: "s1", FullName: "Alice",
				Attendance: map[string]dto.RawDayData{
					"2026-03-02": sparseDay(map[string][]dto.RawSessionRecord{
						"m1": {{Status: "P"}},
						"m2": {{Status: "P"}},
					}),
					"2026-03-03": sparseDay(map[string][]dto.RawSessionRecord{
						"m1": {{Status: "A"}},
					}),
				},
			},
			{
				RowNumber: 2, StudentID: "s2", FullName: "Bob",
				Attendance: map[string]dto.RawDayData{
					"2026-03-02": sparseDay(map[string][]dto.RawSessionRecord{
						"m1": {{Status: "L"}},
					}),
				},
			},
		},
		TotalCount: 2,
	}
	subjects := &subjectRepoStub{byDate: map[string][]models.Subject{
		"2026-03-02": {{SubjectID: "m1", SubjectName: "Math"}, {SubjectID: "m2", SubjectName: "Physics"}},
		"2026-03-03": {{SubjectID: "m1", SubjectName: "Math"}},
	}}

	svc := newTestGridService(&gridRepoStub{snapshot: snapshot}, subjects)

	grid, err := svc.Compose(context.Background(), GridRequest{
		ClassID: "c1", StartDate: "2026-03-02", EndDate: "2026-03-04",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"2026-03-02", "2026-03-03", "2026-03-04"}, grid.Period.Dates)
	assert.Equal(t, 3, grid.Period.TotalDays)
	require.Len(t, grid.Students, 2)

	alice := grid.Students[0]
	assert.Equal(t, models.AttendanceStatusPresent, alice.Days["2026-03-02"].DailyStatus)
	assert.Equal(t, models.AttendanceStatusAbsent, alice.Days["2026-03-03"].DailyStatus)
	assert.False(t, alice.Days["2026-03-04"].HasStatus())
	assert.Equal(t, "Math", alice.Days["2026-03-03"].Subjects[0].SubjectName)
	assert.Equal(t, "50.0", alice.Statistics.AttendanceRate)

	bob := grid.Students[1]
	assert.Equal(t, models.AttendanceStatusLate, bob.Days["2026-03-02"].DailyStatus)

	daily := grid.DailyStatistics["2026-03-02"]
	assert.Equal(t, 2, daily.Total)
	assert.Equal(t, "50.0%", daily.AttendanceRate)

	assert.Equal(t, 2, grid.Overall.TotalStudents)
	require.NotNil(t, grid.Pagination)
	assert.Equal(t, 2, grid.Pagination.TotalCount)
	assert.Equal(t, 1, grid.Pagination.Page)
	assert.Equal(t, 20, grid.Pagination.PageSize)
}

func TestComposeSubjectNameFallback(t *testing.T) {
	snapshot := &dto.RawGridSnapshot{
		Students: []dto.RawStudentAttendance{
			{
				RowNumber: 1, StudentID: "s1", FullName: "Alice",
				Attendance: map[string]dto.RawDayData{
					"2026-03-02": sparseDay(map[string][]dto.RawSessionRecord{
						"m9": {{Status: "P"}},
					}),
				},
			},
		},
		TotalCount: 1,
	}
	svc := newTestGridService(&gridRepoStub{snapshot: snapshot}, &subjectRepoStub{})

	grid, err := svc.Compose(context.Background(), GridRequest{
		ClassID: "c1", StartDate: "2026-03-02", EndDate: "2026-03-02",
	})
	require.NoError(t, err)
	assert.Equal(t, "Subject m9", grid.Students[0].Days["2026-03-02"].Subjects[0].SubjectName)
}

func TestComposeSubjectJoinDegradesPerDate(t *testing.T) {
	snapshot := &dto.RawGridSnapshot{TotalCount: 0}
	subjects := &subjectRepoStub{
		byDate: map[string][]models.Subject{"2026-03-02": {{SubjectID: "m1", SubjectName: "Math"}}},
		fail:   map[string]error{"2026-03-03": errors.New("schedule service timeout")},
	}
	svc := newTestGridService(&gridRepoStub{snapshot: snapshot}, subjects)

	grid, err := svc.Compose(context.Background(), GridRequest{
		ClassID: "c1", StartDate: "2026-03-02", EndDate: "2026-03-03",
	})
	require.NoError(t, err)

	assert.Len(t, grid.Subjects.SubjectsFor("2026-03-02"), 1)
	assert.Empty(t, grid.Subjects.SubjectsFor("2026-03-03"))
	require.Contains(t, grid.Subjects.Failed, "2026-03-03")
	assert.Contains(t, grid.Subjects.Failed["2026-03-03"], "timeout")
}

func TestComposeSkipsCacheOnDegradedGrid(t *testing.T) {
	repo := &cacheRepoStub{}
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	subjects := &subjectRepoStub{
		byDate: map[string][]models.Subject{"2026-03-02": {{SubjectID: "m1", SubjectName: "Math"}}},
		fail:   map[string]error{"2026-03-03": errors.New("schedule service timeout")},
	}
	svc := NewGridService(&gridRepoStub{snapshot: &dto.RawGridSnapshot{}}, subjects,
		NewRollupEngine(nil, nil), NewStatisticsAggregator(), cache, testGridConfig(), nil)

	grid, err := svc.Compose(context.Background(), GridRequest{
		ClassID: "c1", StartDate: "2026-03-02", EndDate: "2026-03-03",
	})
	require.NoError(t, err)
	require.Contains(t, grid.Subjects.Failed, "2026-03-03")

	// The degraded grid must not outlive the outage in the cache.
	assert.Empty(t, repo.sets)

	// A healthy compose on the same service writes through.
	_, err = svc.Compose(context.Background(), GridRequest{
		ClassID: "c1", StartDate: "2026-03-02", EndDate: "2026-03-02",
	})
	require.NoError(t, err)
	assert.Len(t, repo.sets, 1)
}

func TestComposeValidatesRequest(t *testing.T) {
	svc := newTestGridService(&gridRepoStub{}, &subjectRepoStub{})

	_, err := svc.Compose(context.Background(), GridRequest{StartDate: "2026-03-02", EndDate: "2026-03-03"})
	require.Error(t, err)

	_, err = svc.Compose(context.Background(), GridRequest{ClassID: "c1", StartDate: "bad", EndDate: "2026-03-03"})
	require.Error(t, err)

	_, err = svc.Compose(context.Background(), GridRequest{ClassID: "c1", StartDate: "2026-03-05", EndDate: "2026-03-03"})
	require.Error(t, err)
}

func TestComposeNormalisesPagination(t *testing.T) {
	snapshot := &dto.RawGridSnapshot{TotalCount: 500}
	svc := newTestGridService(&gridRepoStub{snapshot: snapshot}, &subjectRepoStub{})

	grid, err := svc.Compose(context.Background(), GridRequest{
		ClassID: "c1", StartDate: "2026-03-02", EndDate: "2026-03-02",
		Page: -3, PageSize: 10_000,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, grid.Pagination.Page)
	assert.Equal(t, 100, grid.Pagination.PageSize)
}

func TestDatesBetween(t *testing.T) {
	dates, err := datesBetween("2026-02-27", "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-02-27", "2026-02-28", "2026-03-01", "2026-03-02"}, dates)

	single, err := datesBetween("2026-03-02", "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-03-02"}, single)
}
