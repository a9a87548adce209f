package repository

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/aquaflow/swimschool-api/internal/conflict"
	"github.com/aquaflow/swimschool-api/internal/models"
	appErrors "github.com/aquaflow/swimschool-api/pkg/errors"
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryListAllIncludesCancelled(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db, conflict.Config{})

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "course_id", "client_id", "guardian_contact", "status", "enrollment_date",
		"schedule_start", "schedule_end", "student_count", "selected_lesson_count", "price", "created_at", "updated_at"}).
		AddRow("enr-1", "course-1", "client-1", "0555 111 22 33", models.EnrollmentStatusActive, now, "10:00", "11:00", 2, 4, 200.0, now, now).
		AddRow("enr-2", "course-1", "client-2", "0555 444 55 66", models.EnrollmentStatusCancelled, now, "10:00", "11:00", 1, 4, 100.0, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, client_id, guardian_contact, status, enrollment_date")).
		WillReturnRows(rows)

	enrollments, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, enrollments, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateWithoutSlotSkipsLock(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db, conflict.Config{})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	enrollment := &models.Enrollment{
		CourseID:        "course-1",
		ClientID:        "client-1",
		GuardianContact: "0555 111 22 33",
		StudentCount:    1,
	}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	require.NotEmpty(t, enrollment.ID)
	require.Equal(t, models.EnrollmentStatusPending, enrollment.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func historyRows(enrollments ...[]driver.Value) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "course_id", "client_id", "guardian_contact", "status", "enrollment_date",
		"schedule_start", "schedule_end", "student_count", "selected_lesson_count", "price", "created_at", "updated_at"})
	for _, e := range enrollments {
		rows.AddRow(e...)
	}
	return rows
}

func historyRow(id, courseID, start, end string, students, lessons int, date time.Time) []driver.Value {
	return []driver.Value{id, courseID, "client-x", "0555 111 22 33", models.EnrollmentStatusActive, date,
		start, end, students, lessons, 100.0, date, date}
}

func expectBookingLock(mock sqlmock.Sqlmock) {
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(slotBookingLockID).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestEnrollmentRepositoryCreateLocksSlot(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db, conflict.Config{})

	now := time.Now()
	mock.ExpectBegin()
	expectBookingLock(mock)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, client_id, guardian_contact, status, enrollment_date")).
		WillReturnRows(historyRows(historyRow("enr-1", "course-1", "10:00", "11:00", 2, 4, now)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	enrollment := &models.Enrollment{
		CourseID:            "course-1",
		ClientID:            "client-2",
		GuardianContact:     "0555 444 55 66",
		ScheduleStart:       "10:00",
		ScheduleEnd:         "11:00",
		StudentCount:        2,
		SelectedLessonCount: 4,
	}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateFirstBookingTakesLock(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db, conflict.Config{})

	// An empty table must still go through the advisory lock, since
	// there are no rows a FOR UPDATE could have held against a
	// concurrent first booking at the same slot.
	mock.ExpectBegin()
	expectBookingLock(mock)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, client_id, guardian_contact, status, enrollment_date")).
		WillReturnRows(historyRows())
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	enrollment := &models.Enrollment{
		CourseID:            "course-1",
		ClientID:            "client-1",
		GuardianContact:     "0555 111 22 33",
		ScheduleStart:       "10:00",
		ScheduleEnd:         "11:00",
		StudentCount:        2,
		SelectedLessonCount: 4,
	}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateDetectsLostRace(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db, conflict.Config{})

	now := time.Now()
	mock.ExpectBegin()
	expectBookingLock(mock)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, client_id, guardian_contact, status, enrollment_date")).
		WillReturnRows(historyRows(historyRow("enr-1", "course-1", "10:00", "11:00", 4, 4, now)))
	mock.ExpectRollback()

	enrollment := &models.Enrollment{
		CourseID:            "course-1",
		ClientID:            "client-2",
		ScheduleStart:       "10:00",
		ScheduleEnd:         "11:00",
		StudentCount:        1,
		SelectedLessonCount: 4,
	}
	err := repo.Create(context.Background(), enrollment)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrEnrollmentFailed.Code, appErr.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateRejectsForeignOwner(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db, conflict.Config{})

	now := time.Now()
	mock.ExpectBegin()
	expectBookingLock(mock)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, client_id, guardian_contact, status, enrollment_date")).
		WillReturnRows(historyRows(historyRow("enr-1", "course-other", "10:00", "11:00", 2, 4, now)))
	mock.ExpectRollback()

	enrollment := &models.Enrollment{
		CourseID:            "course-1",
		ClientID:            "client-2",
		ScheduleStart:       "10:00",
		ScheduleEnd:         "11:00",
		StudentCount:        1,
		SelectedLessonCount: 4,
	}
	err := repo.Create(context.Background(), enrollment)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrEnrollmentFailed.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateRejectsOverlappingOwner(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db, conflict.Config{})

	// A competing course holds 09:00-10:00; a 09:30-10:30 booking
	// shares no exact slot key but still collides.
	now := time.Now()
	mock.ExpectBegin()
	expectBookingLock(mock)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, course_id, client_id, guardian_contact, status, enrollment_date")).
		WillReturnRows(historyRows(historyRow("enr-1", "course-other", "09:00", "10:00", 2, 4, now)))
	mock.ExpectRollback()

	enrollment := &models.Enrollment{
		CourseID:            "course-1",
		ClientID:            "client-2",
		ScheduleStart:       "09:30",
		ScheduleEnd:         "10:30",
		StudentCount:        1,
		SelectedLessonCount: 4,
	}
	err := repo.Create(context.Background(), enrollment)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrEnrollmentFailed.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCancel(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db, conflict.Config{})

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("enr-1", models.EnrollmentStatusCancelled, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Cancel(context.Background(), "enr-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
