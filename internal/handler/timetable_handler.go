package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusops/timetable-api/internal/dto"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
	"github.com/campusops/timetable-api/pkg/response"
)

type timetableGenerator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
	LatestResult(ctx context.Context, query dto.TimetableResultQuery) (*dto.GenerateTimetableResponse, error)
}

// TimetableHandler wires HTTP endpoints to the timetable generator.
type TimetableHandler struct {
	service timetableGenerator
}

// NewTimetableHandler creates a new handler.
func NewTimetableHandler(svc timetableGenerator) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Generate godoc
// @Summary Generate a timetable
// @Description Run the constraint-based generator for a semester/year and persist the accepted schedules
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation parameters"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /timetable/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generation payload"))
		return
	}

	res, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Result godoc
// @Summary Latest generation result
// @Description Return the cached result of the most recent generator run for a term
// @Tags Timetable
// @Produce json
// @Param semester query int true "Semester (1 or 2)"
// @Param year query int true "Academic year"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /timetable/result [get]
func (h *TimetableHandler) Result(c *gin.Context) {
	var query dto.TimetableResultQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid result query"))
		return
	}

	res, err := h.service.LatestResult(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}
