package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-grid-api/internal/dto"
	"github.com/noah-isme/attendance-grid-api/internal/models"
	"github.com/noah-isme/attendance-grid-api/pkg/config"
	appErrors "github.com/noah-isme/attendance-grid-api/pkg/errors"
)

// GridRepository delivers one consistent grid snapshot per fetch: every
// student, date and status as of a single point in time.
type GridRepository interface {
	FetchGrid(ctx context.Context, classID, startDate, endDate, search string, page, pageSize int) (*dto.RawGridSnapshot, error)
}

// SubjectRepository resolves the subjects scheduled for a class on one date.
type SubjectRepository interface {
	SubjectsForDate(ctx context.Context, classID, date string) ([]models.Subject, error)
}

// GridRequest carries the parameters of one grid composition.
type GridRequest struct {
	ClassID   string `validate:"required"`
	StartDate string `validate:"required"`
	EndDate   string `validate:"required"`
	Search    string
	Page      int
	PageSize  int
}

// GridService composes the weekly grid read model: snapshot fetch, per-date
// subject joins, rollups, statistics and pagination, behind a cache-aside
// layer keyed on the full request.
type GridService struct {
	grids    GridRepository
	subjects SubjectRepository
	rollup   *RollupEngine
	stats    *StatisticsAggregator
	cache    *CacheService
	validate *validator.Validate
	cfg      config.GridConfig
	logger   *zap.Logger
}

// NewGridService constructs the grid service.
func NewGridService(grids GridRepository, subjects SubjectRepository, rollup *RollupEngine, stats *StatisticsAggregator, cache *CacheService, cfg config.GridConfig, logger *zap.Logger) *GridService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GridService{
		grids:    grids,
		subjects: subjects,
		rollup:   rollup,
		stats:    stats,
		cache:    cache,
		validate: validator.New(),
		cfg:      cfg,
		logger:   logger,
	}
}

// Compose builds the weekly grid for the request. Subject lists are joined
// per date; a failed join marks only that date as degraded and never fails
// the composition. Statistics are always recomputed wholesale from the
// snapshot, never patched incrementally.
func (s *GridService) Compose(ctx context.Context, req GridRequest) (*models.WeeklyGrid, error) {
	if err := s.validate.Struct(&req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	dates, err := datesBetween(req.StartDate, req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	req.Page, req.PageSize = s.normalizePage(req.Page, req.PageSize)

	cacheKey := gridCacheKey(req)
	var cached models.WeeklyGrid
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	snapshot, err := s.grids.FetchGrid(ctx, req.ClassID, req.StartDate, req.EndDate, req.Search, req.Page, req.PageSize)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch attendance grid")
	}
	if err := snapshot.Validate(s.validate); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "grid snapshot failed validation")
	}

	index := s.joinSubjects(ctx, req.ClassID, dates)

	grid := &models.WeeklyGrid{
		Class: snapshot.Class,
		Period: models.GridPeriod{
			StartDate: req.StartDate,
			EndDate:   req.EndDate,
			Dates:     dates,
			TotalDays: len(dates),
		},
		Subjects:        index,
		DailyStatistics: make(map[string]models.DateStatistics, len(dates)),
	}

	grid.Students = make([]models.StudentRow, 0, len(snapshot.Students))
	for _, raw := range snapshot.Students {
		recordsByDate := make(map[string][]models.SubjectAttendanceRecord, len(raw.Attendance))
		for date, day := range raw.Attendance {
			recordsByDate[date] = dto.DecodeDayRecords(day, subjectNames(index.SubjectsFor(date)))
		}

		days := s.rollup.BuildDays(dates, recordsByDate)
		grid.Students = append(grid.Students, models.StudentRow{
			RowNumber:  raw.RowNumber,
			StudentID:  raw.StudentID,
			FullName:   raw.FullName,
			Gender:     raw.Gender,
			Days:       days,
			Statistics: s.stats.Student(days, len(dates)),
		})
	}

	for _, date := range dates {
		grid.DailyStatistics[date] = s.stats.PerDate(grid.Students, date)
	}
	grid.Overall = s.stats.Overall(grid.Students)

	grid.Pagination = &models.Pagination{
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalCount: snapshot.TotalCount,
	}

	// A grid with failed subject joins is never cached: the next fetch
	// should see the repaired schedule as soon as the source recovers,
	// not after the TTL runs out.
	if len(grid.Subjects.Failed) == 0 {
		if err := s.cache.Set(ctx, cacheKey, grid, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("failed to cache grid", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	return grid, nil
}

// InvalidateClass drops every cached grid for the class. Called after a batch
// submission so the next read recomposes from fresh data instead of merging
// staged state into a possibly stale snapshot.
func (s *GridService) InvalidateClass(ctx context.Context, classID string) error {
	return s.cache.Invalidate(ctx, fmt.Sprintf("grid:%s:*", classID))
}

// joinSubjects fetches each date's subject list concurrently. A failed fetch
// marks only its own date: the column stays readable but closed to staging.
func (s *GridService) joinSubjects(ctx context.Context, classID string, dates []string) models.SubjectIndex {
	index := models.SubjectIndex{
		ByDate: make(map[string][]models.Subject, len(dates)),
		Failed: make(map[string]string),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, date := range dates {
		wg.Add(1)
		go func(date string) {
			defer wg.Done()
			subjects, err := s.subjects.SubjectsForDate(ctx, classID, date)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warn("subject join failed", zap.String("date", date), zap.Error(err))
				index.Failed[date] = err.Error()
				return
			}
			index.ByDate[date] = subjects
		}(date)
	}
	wg.Wait()

	if len(index.Failed) == 0 {
		index.Failed = nil
	}
	return index
}

func (s *GridService) normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.cfg.DefaultPageSize
	}
	if s.cfg.MaxPageSize > 0 && pageSize > s.cfg.MaxPageSize {
		pageSize = s.cfg.MaxPageSize
	}
	return page, pageSize
}

func gridCacheKey(req GridRequest) string {
	return fmt.Sprintf("grid:%s:%s:%s:%d:%d:%s", req.ClassID, req.StartDate, req.EndDate, req.Page, req.PageSize, req.Search)
}

func subjectNames(subjects []models.Subject) map[string]string {
	names := make(map[string]string, len(subjects))
	for _, subject := range subjects {
		names[subject.SubjectID] = subject.SubjectName
	}
	return names
}

// datesBetween expands an inclusive ISO date range into its day list.
func datesBetween(startDate, endDate string) ([]string, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q", startDate)
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q", endDate)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s precedes start date %s", endDate, startDate)
	}

	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(dateLayout))
	}
	return dates, nil
}
