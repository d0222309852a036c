package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campusops/timetable-api/internal/models"
)

// SectionRepository provides read access to course sections.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository creates a new section repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

const sectionDetailColumns = `s.id, s.course_id, s.instructor_id, s.capacity, s.scheduled, s.semester, s.year, s.created_at, s.updated_at, c.code AS course_code, c.name AS course_name`

// ListForTerm returns sections for a semester/year with course identifiers,
// optionally restricted to an explicit set of section ids.
func (r *SectionRepository) ListForTerm(ctx context.Context, semester, year int, ids []string) ([]models.SectionDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM sections s JOIN courses c ON c.id = s.course_id WHERE s.semester = ? AND s.year = ?`, sectionDetailColumns)
	args := []interface{}{semester, year}

	if len(ids) > 0 {
		expanded, inArgs, err := sqlx.In(query+` AND s.id IN (?)`, semester, year, ids)
		if err != nil {
			return nil, fmt.Errorf("expand section id filter: %w", err)
		}
		query = expanded
		args = inArgs
	}

	query += ` ORDER BY s.capacity DESC, s.id ASC`
	query = r.db.Rebind(query)

	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, fmt.Errorf("list sections for term: %w", err)
	}
	return sections, nil
}

// FindByID loads a single section with course info.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM sections s JOIN courses c ON c.id = s.course_id WHERE s.id = $1`, sectionDetailColumns)
	var section models.SectionDetail
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// MarkScheduledWithTx flags sections as scheduled inside an existing
// transaction so the flag lands atomically with the schedule rows.
func (r *SectionRepository) MarkScheduledWithTx(ctx context.Context, tx *sqlx.Tx, ids []string) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE sections SET scheduled = TRUE, updated_at = ? WHERE id IN (?)`, time.Now().UTC(), ids)
	if err != nil {
		return fmt.Errorf("expand section update: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("mark sections scheduled: %w", err)
	}
	return nil
}
