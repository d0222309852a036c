package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func sectionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "course_id", "instructor_id", "capacity", "scheduled", "semester", "year",
		"created_at", "updated_at", "course_code", "course_name",
	})
}

func TestSectionRepositoryListForTerm(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSectionRepository(db)
	now := time.Now()
	rows := sectionRows().
		AddRow("sec-1", "course-1", "inst-1", 40, false, 1, 2026, now, now, "CS101", "Intro to CS").
		AddRow("sec-2", "course-2", nil, 25, false, 1, 2026, now, now, "MA201", "Linear Algebra")

	mock.ExpectQuery(regexp.QuoteMeta("FROM sections s JOIN courses c ON c.id = s.course_id")).
		WithArgs(1, 2026).
		WillReturnRows(rows)

	sections, err := repo.ListForTerm(context.Background(), 1, 2026, nil)
	require.NoError(t, err)
	require.Len(t, sections, 2)
	require.Equal(t, "sec-1", sections[0].ID)
	require.Equal(t, "CS101", sections[0].CourseCode)
	require.NotNil(t, sections[0].InstructorID)
	require.Nil(t, sections[1].InstructorID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryListForTermWithIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSectionRepository(db)
	now := time.Now()
	rows := sectionRows().
		AddRow("sec-1", "course-1", nil, 30, false, 2, 2026, now, now, "PH101", "Mechanics")

	mock.ExpectQuery(regexp.QuoteMeta("AND s.id IN")).
		WithArgs(2, 2026, "sec-1", "sec-9").
		WillReturnRows(rows)

	sections, err := repo.ListForTerm(context.Background(), 2, 2026, []string{"sec-1", "sec-9"})
	require.NoError(t, err)
	require.Len(t, sections, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryMarkScheduledWithTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSectionRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sections SET scheduled = TRUE")).
		WithArgs(sqlmock.AnyArg(), "sec-1", "sec-2").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	require.NoError(t, repo.MarkScheduledWithTx(context.Background(), tx, []string{"sec-1", "sec-2"}))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryMarkScheduledRequiresTx(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSectionRepository(db)
	require.Error(t, repo.MarkScheduledWithTx(context.Background(), nil, []string{"sec-1"}))
}
