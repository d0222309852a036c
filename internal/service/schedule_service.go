package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusops/timetable-api/internal/models"
	appErrors "github.com/campusops/timetable-api/pkg/errors"
	"github.com/campusops/timetable-api/pkg/export"
)

type scheduleRepository interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, int, error)
	ListForTerm(ctx context.Context, semester, year int) ([]models.ScheduleDetail, error)
	Deactivate(ctx context.Context, id string) error
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	RenderGrid(title string, dayNames []string, cells []export.GridCell) ([]byte, error)
}

// ScheduleConfig defines presentation options for schedule exports.
type ScheduleConfig struct {
	ExportTitle string
}

// ScheduleService exposes read, removal and export operations over the
// persisted timetable.
type ScheduleService struct {
	repo      scheduleRepository
	csv       csvRenderer
	pdf       pdfRenderer
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ScheduleConfig
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(repo scheduleRepository, csv csvRenderer, pdf pdfRenderer, validate *validator.Validate, logger *zap.Logger, cfg ScheduleConfig) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ExportTitle == "" {
		cfg.ExportTitle = "Weekly Timetable"
	}
	return &ScheduleService{repo: repo, csv: csv, pdf: pdf, validator: validate, logger: logger, cfg: cfg}
}

// List returns active schedules matching the filter with pagination metadata.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, *models.Pagination, error) {
	if filter.DayOfWeek != 0 && models.DayName(filter.DayOfWeek) == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "dayOfWeek must be between 1 and 5")
	}

	schedules, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return schedules, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Deactivate soft-deletes one schedule row so its section can be rescheduled.
func (s *ScheduleService) Deactivate(ctx context.Context, id string) error {
	if id == "" {
		return appErrors.Clone(appErrors.ErrValidation, "schedule id is required")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "schedule not found")
	}
	s.logger.Info("schedule deactivated", zap.String("schedule_id", id))
	return nil
}

// ExportCSV renders the term timetable as CSV.
func (s *ScheduleService) ExportCSV(ctx context.Context, semester, year int) ([]byte, string, error) {
	schedules, err := s.loadTerm(ctx, semester, year)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Day", "Start", "End", "Course", "Classroom"},
		Rows:    make([]map[string]string, 0, len(schedules)),
	}
	for _, row := range schedules {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Day":       models.DayName(row.DayOfWeek),
			"Start":     models.FormatClock(row.StartMinute),
			"End":       models.FormatClock(row.EndMinute),
			"Course":    fmt.Sprintf("%s %s", row.CourseCode, row.CourseName),
			"Classroom": row.ClassroomCode,
		})
	}

	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
	}
	return payload, fmt.Sprintf("timetable_%d_%d.csv", year, semester), nil
}

// ExportPDF renders the term timetable as a weekly grid PDF.
func (s *ScheduleService) ExportPDF(ctx context.Context, semester, year int) ([]byte, string, error) {
	schedules, err := s.loadTerm(ctx, semester, year)
	if err != nil {
		return nil, "", err
	}

	cells := make([]export.GridCell, 0, len(schedules))
	for _, row := range schedules {
		cells = append(cells, export.GridCell{
			Day:   row.DayOfWeek,
			Start: models.FormatClock(row.StartMinute),
			End:   models.FormatClock(row.EndMinute),
			Label: fmt.Sprintf("%s %s", row.CourseCode, row.ClassroomCode),
		})
	}

	title := fmt.Sprintf("%s Semester %d %d", s.cfg.ExportTitle, semester, year)
	payload, err := s.pdf.RenderGrid(title, models.WeekdayNames(), cells)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
	}
	return payload, fmt.Sprintf("timetable_%d_%d.pdf", year, semester), nil
}

func (s *ScheduleService) loadTerm(ctx context.Context, semester, year int) ([]models.ScheduleDetail, error) {
	if semester < 1 || semester > 2 || year == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester and year are required")
	}
	schedules, err := s.repo.ListForTerm(ctx, semester, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term schedules")
	}
	if len(schedules) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no schedules found for this term")
	}
	return schedules, nil
}
