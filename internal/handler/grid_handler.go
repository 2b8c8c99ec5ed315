package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-grid-api/internal/service"
	appErrors "github.com/noah-isme/attendance-grid-api/pkg/errors"
	"github.com/noah-isme/attendance-grid-api/pkg/response"
)

// GridHandler serves the composed weekly grid and its exports.
type GridHandler struct {
	grid   *service.GridService
	export *service.ExportService
}

// NewGridHandler creates a new handler.
func NewGridHandler(grid *service.GridService, export *service.ExportService) *GridHandler {
	return &GridHandler{grid: grid, export: export}
}

func gridRequestFromQuery(c *gin.Context) service.GridRequest {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("page_size"))
	return service.GridRequest{
		ClassID:   c.Query("class_id"),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
		Search:    c.Query("search"),
		Page:      page,
		PageSize:  pageSize,
	}
}

// Grid godoc
// @Summary Weekly attendance grid
// @Description Compose the weekly grid for a class and period with rollups and statistics
// @Tags Attendance
// @Produce json
// @Param class_id query string true "Class id"
// @Param start_date query string true "Period start (YYYY-MM-DD)"
// @Param end_date query string true "Period end (YYYY-MM-DD)"
// @Param search query string false "Student name or id filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/grid [get]
func (h *GridHandler) Grid(c *gin.Context) {
	grid, err := h.grid.Compose(c.Request.Context(), gridRequestFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, grid.Pagination)
}

// Export godoc
// @Summary Export the weekly grid
// @Description Render the weekly grid as a CSV or PDF download
// @Tags Attendance
// @Produce octet-stream
// @Param class_id query string true "Class id"
// @Param start_date query string true "Period start (YYYY-MM-DD)"
// @Param end_date query string true "Period end (YYYY-MM-DD)"
// @Param format query string true "Export format (csv or pdf)"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/grid/export [get]
func (h *GridHandler) Export(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportFormatCSV)))

	payload, filename, contentType, err := h.export.Generate(c.Request.Context(), gridRequestFromQuery(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	if len(payload) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "empty export payload"))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, payload)
}
