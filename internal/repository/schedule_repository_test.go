package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/campusops/timetable-api/internal/models"
)

func scheduleRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "section_id", "classroom_id", "day_of_week", "start_minute", "end_minute",
		"active", "created_at", "updated_at", "instructor_id", "course_code", "course_name", "classroom_code",
	})
}

func TestScheduleRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	now := time.Now()
	rows := scheduleRows().
		AddRow("sch-1", "sec-1", "room-1", 1, 510, 560, true, now, now, "inst-1", "CS101", "Intro to CS", "R101")

	mock.ExpectQuery(regexp.QuoteMeta("FROM schedules sc")).
		WithArgs(1, 2026).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(1, 2026).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	schedules, total, err := repo.List(context.Background(), models.ScheduleFilter{Semester: 1, Year: 2026})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, schedules, 1)
	require.Equal(t, "sch-1", schedules[0].ID)
	require.Equal(t, "R101", schedules[0].ClassroomCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListActiveDetailed(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	now := time.Now()
	rows := scheduleRows().
		AddRow("sch-1", "sec-1", "room-1", 1, 510, 560, true, now, now, nil, "CS101", "Intro to CS", "R101").
		AddRow("sch-2", "sec-2", "room-2", 3, 810, 860, true, now, now, "inst-2", "MA201", "Linear Algebra", "R202")

	mock.ExpectQuery(regexp.QuoteMeta("WHERE sc.active = TRUE ORDER BY sc.day_of_week")).
		WillReturnRows(rows)

	schedules, err := repo.ListActiveDetailed(context.Background())
	require.NoError(t, err)
	require.Len(t, schedules, 2)
	require.Nil(t, schedules[0].InstructorID)
	require.NotNil(t, schedules[1].InstructorID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryBulkCreateWithTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedules")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedules")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)

	schedules := []models.Schedule{
		{SectionID: "sec-1", ClassroomID: "room-1", DayOfWeek: 1, StartMinute: 510, EndMinute: 560},
		{SectionID: "sec-2", ClassroomID: "room-2", DayOfWeek: 2, StartMinute: 570, EndMinute: 620},
	}
	require.NoError(t, repo.BulkCreateWithTx(context.Background(), tx, schedules))
	require.NoError(t, tx.Commit())

	// IDs and timestamps are filled in during insert.
	require.NotEmpty(t, schedules[0].ID)
	require.NotEmpty(t, schedules[1].ID)
	require.True(t, schedules[0].Active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryDeactivate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedules SET active = FALSE")).
		WithArgs("sch-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Deactivate(context.Background(), "sch-1"))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedules SET active = FALSE")).
		WithArgs("missing", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.Error(t, repo.Deactivate(context.Background(), "missing"))
	require.NoError(t, mock.ExpectationsWereMet())
}
