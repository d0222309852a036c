package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/campusops/timetable-api/internal/dto"
	internalmiddleware "github.com/campusops/timetable-api/internal/middleware"
	"github.com/campusops/timetable-api/internal/models"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
)

type timetableGeneratorMock struct {
	captured  dto.GenerateTimetableRequest
	resultErr error
}

func (m *timetableGeneratorMock) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	m.captured = req
	return &dto.GenerateTimetableResponse{Success: true, ScheduledCount: 2}, nil
}

func (m *timetableGeneratorMock) LatestResult(ctx context.Context, query dto.TimetableResultQuery) (*dto.GenerateTimetableResponse, error) {
	if m.resultErr != nil {
		return nil, m.resultErr
	}
	return &dto.GenerateTimetableResponse{Success: true, Semester: query.Semester, Year: query.Year}, nil
}

func validGeneratePayload() []byte {
	return []byte(`{"semester":1,"year":2026,"sectionIds":["sec-1"],"maxIterations":500,"dryRun":true}`)
}

func TestTimetableGenerateSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableGeneratorMock{}
	handler := NewTimetableHandler(mockSvc)

	req, _ := http.NewRequest(http.MethodPost, "/timetable/generate", bytes.NewReader(validGeneratePayload()))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, mockSvc.captured.Semester)
	require.Equal(t, 2026, mockSvc.captured.Year)
	require.Equal(t, []string{"sec-1"}, mockSvc.captured.SectionIDs)
	require.NotNil(t, mockSvc.captured.MaxIterations)
	require.Equal(t, 500, *mockSvc.captured.MaxIterations)
	require.True(t, mockSvc.captured.DryRun)
}

func TestTimetableGenerateMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTimetableHandler(&timetableGeneratorMock{})

	req, _ := http.NewRequest(http.MethodPost, "/timetable/generate", bytes.NewReader([]byte(`{"semester":`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableGenerateForbiddenForInstructor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTimetableHandler(&timetableGeneratorMock{})
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "inst-1", Role: models.RoleInstructor})
		c.Next()
	})
	router.POST("/timetable/generate",
		internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleRegistrar),
		handler.Generate,
	)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/timetable/generate", bytes.NewReader(validGeneratePayload()))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestTimetableGenerateUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTimetableHandler(&timetableGeneratorMock{})
	router := gin.New()
	router.POST("/timetable/generate",
		internalmiddleware.RequireRoles(models.RoleAdmin),
		handler.Generate,
	)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/timetable/generate", bytes.NewReader(validGeneratePayload()))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTimetableResult(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTimetableHandler(&timetableGeneratorMock{})
	router := gin.New()
	router.GET("/timetable/result", handler.Result)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/timetable/result?semester=1&year=2026", nil)

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestTimetableResultNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableGeneratorMock{resultErr: appErrors.Clone(appErrors.ErrNotFound, "no cached timetable result for this term")}
	handler := NewTimetableHandler(mockSvc)
	router := gin.New()
	router.GET("/timetable/result", handler.Result)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/timetable/result?semester=1&year=2031", nil)

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}
