package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aquaflow/swimschool-api/internal/conflict"
	"github.com/aquaflow/swimschool-api/internal/models"
	appErrors "github.com/aquaflow/swimschool-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	ListAll(ctx context.Context) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// LessonOptionRequest is one bookable lesson package of a schedule.
type LessonOptionRequest struct {
	LessonCount int     `json:"lesson_count" validate:"required,gt=0"`
	Price       float64 `json:"price" validate:"gte=0"`
}

// ScheduleRequest describes one time slot offered by a course.
type ScheduleRequest struct {
	StartTime     string                `json:"start_time" validate:"required"`
	EndTime       string                `json:"end_time" validate:"required"`
	LessonOptions []LessonOptionRequest `json:"lesson_options" validate:"dive"`
}

// GroupPricingRequest sets the per-student rate for a group-size tier.
type GroupPricingRequest struct {
	StudentRange string  `json:"student_range" validate:"required,oneof=1-4 5-6"`
	Price        float64 `json:"price" validate:"gte=0"`
}

// CourseRequest is the payload for creating or replacing a course.
type CourseRequest struct {
	Name         string                `json:"name" validate:"required"`
	Description  string                `json:"description"`
	Type         models.CourseType     `json:"type" validate:"required,oneof=client professional admin_course"`
	StartDate    *time.Time            `json:"start_date"`
	EndDate      *time.Time            `json:"end_date"`
	Schedules    []ScheduleRequest     `json:"schedules" validate:"dive"`
	GroupPricing []GroupPricingRequest `json:"group_pricing" validate:"dive"`
}

// CourseService manages the course catalog.
type CourseService struct {
	repo      courseRepository
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns courses with pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return courses, pagination, nil
}

// Get returns a single course by id.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create validates and stores a new course.
func (s *CourseService) Create(ctx context.Context, req CourseRequest) (*models.Course, error) {
	course, err := s.buildCourse(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.invalidateAvailability(ctx)
	return course, nil
}

// Update replaces a course, including schedules and pricing.
func (s *CourseService) Update(ctx context.Context, id string, req CourseRequest) (*models.Course, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	course, err := s.buildCourse(req)
	if err != nil {
		return nil, err
	}
	course.ID = existing.ID
	course.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	s.invalidateAvailability(ctx)
	return course, nil
}

// Delete removes a course. Enrollments pointing at it stay on record and
// keep their priced history.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	s.invalidateAvailability(ctx)
	return nil
}

func (s *CourseService) buildCourse(req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
	}

	course := &models.Course{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}

	for _, schedule := range req.Schedules {
		start, err := conflict.ParseClock(schedule.StartTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "malformed schedule start time")
		}
		end, err := conflict.ParseClock(schedule.EndTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "malformed schedule end time")
		}
		if start >= end {
			return nil, appErrors.Clone(appErrors.ErrValidation, "schedule must end after it starts")
		}
		built := models.Schedule{StartTime: schedule.StartTime, EndTime: schedule.EndTime}
		for _, option := range schedule.LessonOptions {
			built.LessonOptions = append(built.LessonOptions, models.LessonOption{
				LessonCount: option.LessonCount,
				Price:       option.Price,
			})
		}
		course.Schedules = append(course.Schedules, built)
	}

	seenTiers := make(map[string]bool, 2)
	for _, pricing := range req.GroupPricing {
		if seenTiers[pricing.StudentRange] {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate pricing tier")
		}
		seenTiers[pricing.StudentRange] = true
		course.GroupPricing = append(course.GroupPricing, models.GroupPricing{
			StudentRange: pricing.StudentRange,
			Price:        pricing.Price,
		})
	}
	return course, nil
}

func (s *CourseService) invalidateAvailability(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, availabilityCachePattern); err != nil {
		s.logger.Warn("failed to invalidate availability cache", zap.Error(err))
	}
}
