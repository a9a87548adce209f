package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aquaflow/swimschool-api/internal/conflict"
	"github.com/aquaflow/swimschool-api/internal/models"
	appErrors "github.com/aquaflow/swimschool-api/pkg/errors"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db  *sqlx.DB
	cfg conflict.Config
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB, cfg conflict.Config) *EnrollmentRepository {
	return &EnrollmentRepository{db: db, cfg: cfg}
}

const enrollmentColumns = `id, course_id, client_id, guardian_contact, status, enrollment_date,
        schedule_start, schedule_end, student_count, selected_lesson_count, price, created_at, updated_at`

// List returns enrollments with course and client context.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN courses c ON c.id = e.course_id
LEFT JOIN users u ON u.id = e.client_id`
	var conditions []string
	var args []interface{}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.ClientID != "" {
		conditions = append(conditions, fmt.Sprintf("e.client_id = $%d", len(args)+1))
		args = append(args, filter.ClientID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("e.enrollment_date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("e.enrollment_date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"enrollment_date": "e.enrollment_date",
		"course_name":     "c.name",
		"client_name":     "u.full_name",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "e.enrollment_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf(`SELECT e.id, e.course_id, e.client_id, e.guardian_contact, e.status, e.enrollment_date,
        e.schedule_start, e.schedule_end, e.student_count, e.selected_lesson_count, e.price, e.created_at, e.updated_at,
        c.name AS course_name, c.type AS course_type, u.full_name AS client_name, u.email AS client_email
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// ListAll returns the full enrollment history, cancelled records
// included, as the snapshot input for the conflict engine.
func (r *EnrollmentRepository) ListAll(ctx context.Context) ([]models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments", enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query); err != nil {
		return nil, fmt.Errorf("list enrollment history: %w", err)
	}
	return enrollments, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE id = $1", enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// slotBookingLockID is the advisory lock key serializing slotted
// booking transactions. Row locks cannot guard against rows that do
// not exist yet, so two first bookings at the same or overlapping
// slots would both slip past a SELECT FOR UPDATE.
const slotBookingLockID int64 = 0x736c6f74 // "slot"

// Create persists a new enrollment. Slotted enrollments take the
// booking advisory lock for the length of the transaction and re-run
// the ownership, capacity and lesson-count checks against the full
// history, so a race lost to a concurrent booking comes back as
// ENROLLMENT_FAILED rather than an over-booked slot. The
// service-level pre-check is advisory only.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.EnrollmentDate.IsZero() {
		enrollment.EnrollmentDate = now
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusPending
	}
	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now

	const insert = `INSERT INTO enrollments (id, course_id, client_id, guardian_contact, status, enrollment_date,
        schedule_start, schedule_end, student_count, selected_lesson_count, price, created_at, updated_at)
        VALUES (:id, :course_id, :client_id, :guardian_contact, :status, :enrollment_date,
        :schedule_start, :schedule_end, :student_count, :selected_lesson_count, :price, :created_at, :updated_at)`

	if !enrollment.HasSlot() {
		if _, err := r.db.NamedExecContext(ctx, insert, enrollment); err != nil {
			return fmt.Errorf("create enrollment: %w", err)
		}
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create enrollment: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", slotBookingLockID); err != nil {
		return fmt.Errorf("acquire booking lock: %w", err)
	}

	history := fmt.Sprintf("SELECT %s FROM enrollments", enrollmentColumns)
	var held []models.Enrollment
	if err := tx.SelectContext(ctx, &held, history); err != nil {
		return fmt.Errorf("load enrollment history: %w", err)
	}

	snapshot, err := conflict.Rebuild(held)
	if err != nil {
		return fmt.Errorf("rebuild slot ownership: %w", err)
	}
	slot := conflict.SlotKey{Start: enrollment.ScheduleStart, End: enrollment.ScheduleEnd}
	course := conflict.NormalizeCourseID(enrollment.CourseID)
	spots, err := snapshot.AvailableSpots(slot, course, r.cfg)
	if err != nil {
		return fmt.Errorf("recheck slot capacity: %w", err)
	}
	if spots < enrollment.StudentCount {
		return appErrors.Clone(appErrors.ErrEnrollmentFailed, "slot filled up concurrently")
	}
	required, locked, err := snapshot.RequiredLessonCount(slot, course)
	if err != nil {
		return fmt.Errorf("recheck lesson count: %w", err)
	}
	if locked && required != enrollment.SelectedLessonCount {
		return appErrors.Clone(appErrors.ErrEnrollmentFailed, "lesson count no longer matches the slot")
	}

	if _, err := tx.NamedExecContext(ctx, insert, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create enrollment: %w", err)
	}
	return nil
}

// Cancel soft-removes an enrollment; history stays on record.
func (r *EnrollmentRepository) Cancel(ctx context.Context, id string) error {
	const query = `UPDATE enrollments SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.EnrollmentStatusCancelled, time.Now().UTC()); err != nil {
		return fmt.Errorf("cancel enrollment: %w", err)
	}
	return nil
}
