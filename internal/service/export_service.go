package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/attendance-grid-api/internal/models"
	appErrors "github.com/noah-isme/attendance-grid-api/pkg/errors"
	"github.com/noah-isme/attendance-grid-api/pkg/export"
)

// ExportFormat identifies a supported grid export format.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders a composed weekly grid into downloadable documents.
type ExportService struct {
	grid    *GridService
	csv     csvRenderer
	pdf     pdfRenderer
	enabled bool
	logger  *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(grid *GridService, enabled bool, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{grid: grid, csv: csv, pdf: pdf, enabled: enabled, logger: logger}
}

// Enabled reports whether exports are switched on.
func (s *ExportService) Enabled() bool {
	return s != nil && s.enabled
}

// Generate composes the grid for the request and renders it in the requested
// format. It returns the payload, a suggested filename and the content type.
func (s *ExportService) Generate(ctx context.Context, req GridRequest, format ExportFormat) ([]byte, string, string, error) {
	if !s.Enabled() {
		return nil, "", "", appErrors.Clone(appErrors.ErrForbidden, "exports are disabled")
	}

	grid, err := s.grid.Compose(ctx, req)
	if err != nil {
		return nil, "", "", err
	}

	dataset := buildGridDataset(grid)
	title := fmt.Sprintf("Attendance %s %s to %s", grid.Class.ClassName, grid.Period.StartDate, grid.Period.EndDate)
	base := fmt.Sprintf("attendance_%s_%s", grid.Class.ClassID, time.Now().UTC().Format("20060102T150405"))

	switch format {
	case ExportFormatCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return payload, base + ".csv", "text/csv", nil
	case ExportFormatPDF:
		payload, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return payload, base + ".pdf", "application/pdf", nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

// buildGridDataset flattens the grid into one row per student: daily status
// symbols per date column followed by the period counters and rate. The rate
// column reuses the per-student form without a percent sign.
func buildGridDataset(grid *models.WeeklyGrid) export.Dataset {
	headers := []string{"No", "Student ID", "Name"}
	headers = append(headers, grid.Period.Dates...)
	headers = append(headers, "Present", "Absent", "Late", "Excused", "Rate")

	rows := make([]map[string]string, 0, len(grid.Students))
	for _, student := range grid.Students {
		row := map[string]string{
			"No":         fmt.Sprintf("%d", student.RowNumber),
			"Student ID": student.StudentID,
			"Name":       student.FullName,
			"Present":    fmt.Sprintf("%d", student.Statistics.Present),
			"Absent":     fmt.Sprintf("%d", student.Statistics.Absent),
			"Late":       fmt.Sprintf("%d", student.Statistics.Late),
			"Excused":    fmt.Sprintf("%d", student.Statistics.Excused),
			"Rate":       student.Statistics.AttendanceRate,
		}
		for _, date := range grid.Period.Dates {
			row[date] = student.Days[date].DailyStatus.Symbol()
		}
		rows = append(rows, row)
	}

	return export.Dataset{Headers: headers, Rows: rows}
}
