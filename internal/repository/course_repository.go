package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aquaflow/swimschool-api/internal/models"
)

// CourseRepository handles persistence of courses and their schedule and
// pricing sub-resources.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses filtered by the provided criteria, with schedules
// and pricing hydrated.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"name":       "name",
		"created_at": "created_at",
		"start_date": "start_date",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "created_at"
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

	query := fmt.Sprintf(`SELECT id, name, description, type, start_date, end_date, created_at, updated_at
        FROM courses%s ORDER BY %s %s LIMIT %d OFFSET %d`, clause, orderBy, order, size, offset)

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM courses" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}

	if err := r.hydrate(ctx, courses); err != nil {
		return nil, 0, err
	}
	return courses, total, nil
}

// ListAll returns every course fully hydrated, for availability snapshots.
func (r *CourseRepository) ListAll(ctx context.Context) ([]models.Course, error) {
	const query = `SELECT id, name, description, type, start_date, end_date, created_at, updated_at
        FROM courses ORDER BY created_at`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list all courses: %w", err)
	}
	if err := r.hydrate(ctx, courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// FindByID returns one course with schedules, lesson options and pricing.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, name, description, type, start_date, end_date, created_at, updated_at
        FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	courses := []models.Course{course}
	if err := r.hydrate(ctx, courses); err != nil {
		return nil, err
	}
	return &courses[0], nil
}

func (r *CourseRepository) hydrate(ctx context.Context, courses []models.Course) error {
	if len(courses) == 0 {
		return nil
	}

	placeholders := make([]string, len(courses))
	args := make([]interface{}, len(courses))
	index := make(map[string]*models.Course, len(courses))
	for i := range courses {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = courses[i].ID
		index[courses[i].ID] = &courses[i]
	}
	in := strings.Join(placeholders, ",")

	var schedules []models.Schedule
	scheduleQuery := fmt.Sprintf(`SELECT id, course_id, start_time, end_time
        FROM course_schedules WHERE course_id IN (%s) ORDER BY start_time, end_time`, in)
	if err := r.db.SelectContext(ctx, &schedules, scheduleQuery, args...); err != nil {
		return fmt.Errorf("list course schedules: %w", err)
	}

	if len(schedules) > 0 {
		schedulePlaceholders := make([]string, len(schedules))
		scheduleArgs := make([]interface{}, len(schedules))
		scheduleIndex := make(map[string]*models.Schedule, len(schedules))
		for i := range schedules {
			schedulePlaceholders[i] = fmt.Sprintf("$%d", i+1)
			scheduleArgs[i] = schedules[i].ID
			scheduleIndex[schedules[i].ID] = &schedules[i]
		}
		var options []models.LessonOption
		optionQuery := fmt.Sprintf(`SELECT id, schedule_id, lesson_count, price
            FROM lesson_options WHERE schedule_id IN (%s) ORDER BY lesson_count`, strings.Join(schedulePlaceholders, ","))
		if err := r.db.SelectContext(ctx, &options, optionQuery, scheduleArgs...); err != nil {
			return fmt.Errorf("list lesson options: %w", err)
		}
		for _, option := range options {
			if s, ok := scheduleIndex[option.ScheduleID]; ok {
				s.LessonOptions = append(s.LessonOptions, option)
			}
		}
	}

	for _, schedule := range schedules {
		if c, ok := index[schedule.CourseID]; ok {
			c.Schedules = append(c.Schedules, schedule)
		}
	}

	var pricing []models.GroupPricing
	pricingQuery := fmt.Sprintf(`SELECT id, course_id, student_range, price
        FROM group_pricing WHERE course_id IN (%s) ORDER BY student_range`, in)
	if err := r.db.SelectContext(ctx, &pricing, pricingQuery, args...); err != nil {
		return fmt.Errorf("list group pricing: %w", err)
	}
	for _, p := range pricing {
		if c, ok := index[p.CourseID]; ok {
			c.GroupPricing = append(c.GroupPricing, p)
		}
	}
	return nil
}

// Create persists a course together with its schedules and pricing.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create course: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertCourse = `INSERT INTO courses (id, name, description, type, start_date, end_date, created_at, updated_at)
        VALUES (:id, :name, :description, :type, :start_date, :end_date, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertCourse, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}

	if err := r.insertChildren(ctx, tx, course); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create course: %w", err)
	}
	return nil
}

// Update replaces a course definition including its sub-resources.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update course: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const updateCourse = `UPDATE courses SET name = :name, description = :description, type = :type,
        start_date = :start_date, end_date = :end_date, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, updateCourse, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}

	// schedules and pricing are replaced wholesale
	if _, err := tx.ExecContext(ctx, `DELETE FROM lesson_options WHERE schedule_id IN (SELECT id FROM course_schedules WHERE course_id = $1)`, course.ID); err != nil {
		return fmt.Errorf("clear lesson options: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM course_schedules WHERE course_id = $1`, course.ID); err != nil {
		return fmt.Errorf("clear course schedules: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM group_pricing WHERE course_id = $1`, course.ID); err != nil {
		return fmt.Errorf("clear group pricing: %w", err)
	}

	if err := r.insertChildren(ctx, tx, course); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update course: %w", err)
	}
	return nil
}

func (r *CourseRepository) insertChildren(ctx context.Context, tx *sqlx.Tx, course *models.Course) error {
	const insertSchedule = `INSERT INTO course_schedules (id, course_id, start_time, end_time)
        VALUES ($1, $2, $3, $4)`
	const insertOption = `INSERT INTO lesson_options (id, schedule_id, lesson_count, price)
        VALUES ($1, $2, $3, $4)`
	const insertPricing = `INSERT INTO group_pricing (id, course_id, student_range, price)
        VALUES ($1, $2, $3, $4)`

	for i := range course.Schedules {
		schedule := &course.Schedules[i]
		if schedule.ID == "" {
			schedule.ID = uuid.NewString()
		}
		schedule.CourseID = course.ID
		if _, err := tx.ExecContext(ctx, insertSchedule, schedule.ID, course.ID, schedule.StartTime, schedule.EndTime); err != nil {
			return fmt.Errorf("create course schedule: %w", err)
		}
		for j := range schedule.LessonOptions {
			option := &schedule.LessonOptions[j]
			if option.ID == "" {
				option.ID = uuid.NewString()
			}
			option.ScheduleID = schedule.ID
			if _, err := tx.ExecContext(ctx, insertOption, option.ID, schedule.ID, option.LessonCount, option.Price); err != nil {
				return fmt.Errorf("create lesson option: %w", err)
			}
		}
	}
	for i := range course.GroupPricing {
		pricing := &course.GroupPricing[i]
		if pricing.ID == "" {
			pricing.ID = uuid.NewString()
		}
		pricing.CourseID = course.ID
		if _, err := tx.ExecContext(ctx, insertPricing, pricing.ID, course.ID, pricing.StudentRange, pricing.Price); err != nil {
			return fmt.Errorf("create group pricing: %w", err)
		}
	}
	return nil
}

// Delete removes a course and its sub-resources.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete course: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM lesson_options WHERE schedule_id IN (SELECT id FROM course_schedules WHERE course_id = $1)`, id); err != nil {
		return fmt.Errorf("delete lesson options: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM course_schedules WHERE course_id = $1`, id); err != nil {
		return fmt.Errorf("delete course schedules: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM group_pricing WHERE course_id = $1`, id); err != nil {
		return fmt.Errorf("delete group pricing: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete course: %w", err)
	}
	return nil
}
