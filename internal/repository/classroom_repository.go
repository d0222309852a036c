package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campusops/timetable-api/internal/models"
)

// ClassroomRepository provides read access to classrooms.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository creates a new classroom repository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// ListActive returns classrooms available for scheduling ordered by capacity
// so the generator enumerates the tightest fitting rooms first.
func (r *ClassroomRepository) ListActive(ctx context.Context) ([]models.Classroom, error) {
	const query = `SELECT id, code, capacity, active, created_at, updated_at FROM classrooms WHERE active = TRUE ORDER BY capacity ASC, code ASC`
	var rooms []models.Classroom
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("list active classrooms: %w", err)
	}
	return rooms, nil
}

// FindByID loads a classroom by id.
func (r *ClassroomRepository) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	const query = `SELECT id, code, capacity, active, created_at, updated_at FROM classrooms WHERE id = $1`
	var room models.Classroom
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}
	return &room, nil
}
