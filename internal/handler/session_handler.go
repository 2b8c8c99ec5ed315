package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-grid-api/internal/models"
	"github.com/noah-isme/attendance-grid-api/internal/service"
	appErrors "github.com/noah-isme/attendance-grid-api/pkg/errors"
	"github.com/noah-isme/attendance-grid-api/pkg/response"
)

// SessionHandler exposes the edit-session lifecycle: staging, bulk and
// global selections, and batch submission.
type SessionHandler struct {
	sessions *service.EditSessionService
}

// NewSessionHandler creates a new handler.
func NewSessionHandler(sessions *service.EditSessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type openSessionRequest struct {
	ClassID   string `json:"class_id" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	Search    string `json:"search"`
	Page      int    `json:"page"`
	PageSize  int    `json:"page_size"`
}

type stageChangeRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	Date      string `json:"date" binding:"required"`
	SubjectID string `json:"subject_id" binding:"required"`
	Status    string `json:"status" binding:"required"`
}

type dateRequest struct {
	Date string `json:"date" binding:"required"`
}

type bulkToggleRequest struct {
	Date      string `json:"date" binding:"required"`
	StudentID string `json:"student_id" binding:"required"`
}

type bulkStatusRequest struct {
	Date   string `json:"date" binding:"required"`
	Status string `json:"status" binding:"required"`
}

type globalToggleRequest struct {
	StudentID string `json:"student_id" binding:"required"`
}

type globalApplyRequest struct {
	Date   string `json:"date" binding:"required"`
	Status string `json:"status" binding:"required"`
}

// Open godoc
// @Summary Open an edit session
// @Description Compose the grid and open a server-side editing session over it
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body openSessionRequest true "Session scope"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/sessions [post]
func (h *SessionHandler) Open(c *gin.Context) {
	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}

	session, grid, err := h.sessions.Open(c.Request.Context(), service.GridRequest{
		ClassID:   req.ClassID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Search:    req.Search,
		Page:      req.Page,
		PageSize:  req.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusCreated, gin.H{
		"session": session.View(),
		"grid":    grid,
	}, nil)
}

// Get godoc
// @Summary Inspect an edit session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session id"
// @Success 200 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"session": session.View(),
		"changes": session.Pending.Changes(),
	}, nil)
}

// Discard godoc
// @Summary Discard an edit session
// @Tags Sessions
// @Param id path string true "Session id"
// @Success 204
// @Security BearerAuth
// @Router /attendance/sessions/{id} [delete]
func (h *SessionHandler) Discard(c *gin.Context) {
	h.sessions.Discard(c.Param("id"))
	response.NoContent(c)
}

// Stage godoc
// @Summary Stage an attendance change
// @Description Propose a status for one cell; only the current day is editable
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param payload body stageChangeRequest true "Change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/sessions/{id}/changes [post]
func (h *SessionHandler) Stage(c *gin.Context) {
	var req stageChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid change payload"))
		return
	}

	change, err := h.sessions.Stage(c.Param("id"), req.StudentID, req.Date, req.SubjectID, models.AttendanceStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, change, nil)
}

// Changes godoc
// @Summary List staged changes
// @Tags Sessions
// @Produce json
// @Param id path string true "Session id"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/sessions/{id}/changes [get]
func (h *SessionHandler) Changes(c *gin.Context) {
	changes, err := h.sessions.Changes(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, changes, nil)
}

// ClearChanges godoc
// @Summary Clear all staged changes
// @Tags Sessions
// @Param id path string true "Session id"
// @Success 204
// @Security BearerAuth
// @Router /attendance/sessions/{id}/changes [delete]
func (h *SessionHandler) ClearChanges(c *gin.Context) {
	if err := h.sessions.ClearChanges(c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Unstage godoc
// @Summary Remove one staged change
// @Tags Sessions
// @Accept json
// @Param id path string true "Session id"
// @Param payload body models.ChangeKey true "Change key"
// @Success 204
// @Security BearerAuth
// @Router /attendance/sessions/{id}/changes/remove [post]
func (h *SessionHandler) Unstage(c *gin.Context) {
	var key models.ChangeKey
	if err := c.ShouldBindJSON(&key); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid change key"))
		return
	}
	if err := h.sessions.Unstage(c.Param("id"), key); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// BulkActivate godoc
// @Summary Activate bulk selection for a date
// @Tags Bulk
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param payload body dateRequest true "Date"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/sessions/{id}/bulk/activate [post]
func (h *SessionHandler) BulkActivate(c *gin.Context) {
	var req dateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	view, err := h.sessions.BulkActivate(c.Param("id"), req.Date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// BulkToggle godoc
// @Summary Toggle a student in the bulk selection
// @Tags Bulk
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param payload body bulkToggleRequest true "Toggle"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/sessions/{id}/bulk/toggle [post]
func (h *SessionHandler) BulkToggle(c *gin.Context) {
	var req bulkToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	view, err := h.sessions.BulkToggle(c.Param("id"), req.Date, req.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// BulkSelectAll godoc
// @Summary Select every student for the date
// @Tags Bulk
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param payload body dateRequest true "Date"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/sessions/{id}/bulk/select-all [post]
func (h *SessionHandler) BulkSelectAll(c *gin.Context) {
	var req dateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	view, err := h.sessions.BulkSelectAll(c.Param("id"), req.Date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// BulkDeselectAll godoc
// @Summary Empty the bulk selection
// @Tags Bulk
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param payload body dateRequest true "Date"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/sessions/{id}/bulk/deselect-all [post]
func (h *SessionHandler) BulkDeselectAll(c *gin.Context) {
	var req dateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	view, err := h.sessions.BulkDeselectAll(c.Param("id"), req.Date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// BulkSetStatus godoc
// @Summary Set the status the bulk selection applies
// @Tags Bulk
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param payload body bulkStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/sessions/{id}/bulk/status [post]
func (h *SessionHandler) BulkSetStatus(c *gin.Context) {
	var req bulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	view, err := h.sessions.BulkSetStatus(c.Param("id"), req.Date, models.AttendanceStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// BulkApply godoc
// @Summary Apply the bulk selection into staged changes
// @Tags Bulk
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param payload body dateRequest true "Date"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/sessions/{id}/bulk/apply [post]
func (h *SessionHandler) BulkApply(c *gin.Context) {
	var req dateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	staged, err := h.sessions.BulkApply(c.Param("id"), req.Date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, staged, nil)
}

// BulkCancel godoc
// @Summary Cancel the bulk selection without applying it
// @Tags Bulk
// @Accept json
// @Param id path string true "Session id"
// @Param payload body dateRequest true "Date"
// @Success 204
// @Security BearerAuth
// @Router /attendance/sessions/{id}/bulk/cancel [post]
func (h *SessionHandler) BulkCancel(c *gin.Context) {
	var req dateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.sessions.BulkCancel(c.Param("id"), req.Date); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// BulkSession godoc
// @Summary Inspect the bulk selection for a date
// @Tags Bulk
// @Produce json
// @Param id path string true "Session id"
// @Param date query string true "Date"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/sessions/{id}/bulk [get]
func (h *SessionHandler) BulkSession(c *gin.Context) {
	view, err := h.sessions.BulkSession(c.Param("id"), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// GlobalToggle godoc
// @Summary Toggle a student in the global selection
// @Tags Bulk
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param payload body globalToggleRequest true "Toggle"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/sessions/{id}/global/toggle [post]
func (h *SessionHandler) GlobalToggle(c *gin.Context) {
	var req globalToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	selection, err := h.sessions.GlobalToggle(c.Param("id"), req.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"student_ids": selection}, nil)
}

// GlobalClear godoc
// @Summary Empty the global selection
// @Tags Bulk
// @Param id path string true "Session id"
// @Success 204
// @Security BearerAuth
// @Router /attendance/sessions/{id}/global [delete]
func (h *SessionHandler) GlobalClear(c *gin.Context) {
	if err := h.sessions.GlobalClear(c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// GlobalSelection godoc
// @Summary Inspect the global selection
// @Tags Bulk
// @Produce json
// @Param id path string true "Session id"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/sessions/{id}/global [get]
func (h *SessionHandler) GlobalSelection(c *gin.Context) {
	selection, err := h.sessions.GlobalSelection(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"student_ids": selection}, nil)
}

// GlobalApply godoc
// @Summary Apply the global selection for a date
// @Tags Bulk
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param payload body globalApplyRequest true "Target"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/sessions/{id}/global/apply [post]
func (h *SessionHandler) GlobalApply(c *gin.Context) {
	var req globalApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	staged, err := h.sessions.GlobalApply(c.Param("id"), models.AttendanceStatus(req.Status), req.Date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, staged, nil)
}

// Submit godoc
// @Summary Submit all staged changes as one batch
// @Description Validates every staged date is still editable, writes the batch atomically and dispatches the submission summary
// @Tags Sessions
// @Produce json
// @Param id path string true "Session id"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/sessions/{id}/submit [post]
func (h *SessionHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	summary, err := h.sessions.Submit(c.Request.Context(), c.Param("id"), claims.UserID, claims.FullName)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
