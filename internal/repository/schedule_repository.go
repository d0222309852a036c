package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusops/timetable-api/internal/models"
)

// ScheduleRepository provides persistence for generated schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleDetailSelect = `SELECT sc.id, sc.section_id, sc.classroom_id, sc.day_of_week, sc.start_minute, sc.end_minute, sc.active, sc.created_at, sc.updated_at,
	s.instructor_id, c.code AS course_code, c.name AS course_name, r.code AS classroom_code`

const scheduleDetailFrom = ` FROM schedules sc
	JOIN sections s ON s.id = sc.section_id
	JOIN courses c ON c.id = s.course_id
	JOIN classrooms r ON r.id = sc.classroom_id`

// List returns active schedules with optional filtering and pagination.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, int, error) {
	base := scheduleDetailFrom + ` WHERE sc.active = TRUE`
	var conditions []string
	var args []interface{}

	if filter.Semester != 0 {
		conditions = append(conditions, fmt.Sprintf("s.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.Year != 0 {
		conditions = append(conditions, fmt.Sprintf("s.year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	if filter.ClassroomID != "" {
		conditions = append(conditions, fmt.Sprintf("sc.classroom_id = $%d", len(args)+1))
		args = append(args, filter.ClassroomID)
	}
	if filter.DayOfWeek != 0 {
		conditions = append(conditions, fmt.Sprintf("sc.day_of_week = $%d", len(args)+1))
		args = append(args, filter.DayOfWeek)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("%s%s ORDER BY sc.day_of_week ASC, sc.start_minute ASC, r.code ASC LIMIT %d OFFSET %d", scheduleDetailSelect, base, size, offset)
	var schedules []models.ScheduleDetail
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	countQuery := "SELECT COUNT(*)" + base
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	return schedules, total, nil
}

// ListActiveDetailed returns every active schedule row with instructor and
// classroom info. The generator prefetches these once per run to build its
// persisted-conflict index.
func (r *ScheduleRepository) ListActiveDetailed(ctx context.Context) ([]models.ScheduleDetail, error) {
	query := scheduleDetailSelect + scheduleDetailFrom + ` WHERE sc.active = TRUE ORDER BY sc.day_of_week ASC, sc.start_minute ASC`
	var schedules []models.ScheduleDetail
	if err := r.db.SelectContext(ctx, &schedules, query); err != nil {
		return nil, fmt.Errorf("list active schedules: %w", err)
	}
	return schedules, nil
}

// ListForTerm returns every active schedule for a semester/year pair without
// pagination, ordered for rendering a weekly grid.
func (r *ScheduleRepository) ListForTerm(ctx context.Context, semester, year int) ([]models.ScheduleDetail, error) {
	query := scheduleDetailSelect + scheduleDetailFrom + ` WHERE sc.active = TRUE AND s.semester = $1 AND s.year = $2 ORDER BY sc.day_of_week ASC, sc.start_minute ASC, r.code ASC`
	var schedules []models.ScheduleDetail
	if err := r.db.SelectContext(ctx, &schedules, query, semester, year); err != nil {
		return nil, fmt.Errorf("list term schedules: %w", err)
	}
	return schedules, nil
}

// BulkCreateWithTx inserts schedules using an existing transaction.
func (r *ScheduleRepository) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, schedules []models.Schedule) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	now := time.Now().UTC()
	for i := range schedules {
		payload := schedules[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		payload.UpdatedAt = now
		payload.Active = true

		const query = `INSERT INTO schedules (id, section_id, classroom_id, day_of_week, start_minute, end_minute, active, created_at, updated_at) VALUES (:id, :section_id, :classroom_id, :day_of_week, :start_minute, :end_minute, :active, :created_at, :updated_at)`
		if _, err := sqlx.NamedExecContext(ctx, tx, query, &payload); err != nil {
			return fmt.Errorf("bulk insert schedule: %w", err)
		}
		schedules[i] = payload
	}
	return nil
}

// Deactivate soft-deletes a schedule row.
func (r *ScheduleRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE schedules SET active = FALSE, updated_at = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate schedule: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("schedule %s not found", id)
	}
	return nil
}
