package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusops/timetable-api/internal/models"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
	"github.com/campusops/timetable-api/pkg/response"
)

type scheduleProvider interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, *models.Pagination, error)
	Deactivate(ctx context.Context, id string) error
	ExportCSV(ctx context.Context, semester, year int) ([]byte, string, error)
	ExportPDF(ctx context.Context, semester, year int) ([]byte, string, error)
}

// ScheduleHandler exposes the persisted timetable over HTTP.
type ScheduleHandler struct {
	service scheduleProvider
}

// NewScheduleHandler creates a new handler.
func NewScheduleHandler(svc scheduleProvider) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// List godoc
// @Summary List schedules
// @Description List active schedules filtered by term, classroom or weekday
// @Tags Schedules
// @Produce json
// @Param semester query int false "Semester (1 or 2)"
// @Param year query int false "Academic year"
// @Param classroomId query string false "Classroom ID"
// @Param dayOfWeek query int false "Weekday 1-5"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	var filter models.ScheduleFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule filter"))
		return
	}

	schedules, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, schedules, pagination)
}

// Deactivate godoc
// @Summary Remove a schedule
// @Description Soft-delete one schedule row so its section can be rescheduled
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Deactivate(c *gin.Context) {
	if err := h.service.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ExportCSV godoc
// @Summary Export timetable as CSV
// @Tags Schedules
// @Produce text/csv
// @Param semester query int true "Semester (1 or 2)"
// @Param year query int true "Academic year"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules/export/csv [get]
func (h *ScheduleHandler) ExportCSV(c *gin.Context) {
	semester, year, ok := termQuery(c)
	if !ok {
		return
	}
	payload, filename, err := h.service.ExportCSV(c.Request.Context(), semester, year)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv", payload)
}

// ExportPDF godoc
// @Summary Export timetable as PDF
// @Tags Schedules
// @Produce application/pdf
// @Param semester query int true "Semester (1 or 2)"
// @Param year query int true "Academic year"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules/export/pdf [get]
func (h *ScheduleHandler) ExportPDF(c *gin.Context) {
	semester, year, ok := termQuery(c)
	if !ok {
		return
	}
	payload, filename, err := h.service.ExportPDF(c.Request.Context(), semester, year)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", payload)
}

func termQuery(c *gin.Context) (int, int, bool) {
	var query struct {
		Semester int `form:"semester"`
		Year     int `form:"year"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid term query"))
		return 0, 0, false
	}
	return query.Semester, query.Year, true
}
