package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/aquaflow/swimschool-api/internal/models"
)

func newCourseRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCourseRepositoryFindByIDHydratesChildren(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	courseRows := sqlmock.NewRows([]string{"id", "name", "description", "type", "start_date", "end_date", "created_at", "updated_at"}).
		AddRow("course-1", "Beginner Swim", "", models.CourseTypeAdmin, now, now.Add(90*24*time.Hour), now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, description, type, start_date, end_date, created_at, updated_at")).
		WithArgs("course-1").
		WillReturnRows(courseRows)

	scheduleRows := sqlmock.NewRows([]string{"id", "course_id", "start_time", "end_time"}).
		AddRow("sched-1", "course-1", "10:00", "11:00")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, start_time, end_time")).
		WithArgs("course-1").
		WillReturnRows(scheduleRows)

	optionRows := sqlmock.NewRows([]string{"id", "schedule_id", "lesson_count", "price"}).
		AddRow("opt-1", "sched-1", 4, 25.0).
		AddRow("opt-2", "sched-1", 8, 22.0)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, schedule_id, lesson_count, price")).
		WithArgs("sched-1").
		WillReturnRows(optionRows)

	pricingRows := sqlmock.NewRows([]string{"id", "course_id", "student_range", "price"}).
		AddRow("price-1", "course-1", models.TierSmall, 25.0).
		AddRow("price-2", "course-1", models.TierLarge, 20.0)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, student_range, price")).
		WithArgs("course-1").
		WillReturnRows(pricingRows)

	course, err := repo.FindByID(context.Background(), "course-1")
	require.NoError(t, err)
	require.Len(t, course.Schedules, 1)
	require.Len(t, course.Schedules[0].LessonOptions, 2)
	require.Len(t, course.GroupPricing, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListFiltersByType(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "description", "type", "start_date", "end_date", "created_at", "updated_at"}).
		AddRow("course-1", "Parent and Baby", "", models.CourseTypeClient, now, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, description, type, start_date, end_date, created_at, updated_at")).
		WithArgs(models.CourseTypeClient).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses WHERE type = $1")).
		WithArgs(models.CourseTypeClient).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, start_time, end_time")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "start_time", "end_time"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, student_range, price")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "student_range", "price"}))

	courses, total, err := repo.List(context.Background(), models.CourseFilter{Type: models.CourseTypeClient})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, courses, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryDeleteRemovesChildren(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM lesson_options WHERE schedule_id IN (SELECT id FROM course_schedules WHERE course_id = $1)")).
		WithArgs("course-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_schedules WHERE course_id = $1")).
		WithArgs("course-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM group_pricing WHERE course_id = $1")).
		WithArgs("course-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses WHERE id = $1")).
		WithArgs("course-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "course-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
