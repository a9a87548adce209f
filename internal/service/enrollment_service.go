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

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	ListAll(ctx context.Context) ([]models.Enrollment, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Cancel(ctx context.Context, id string) error
}

type enrollmentCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// SubmitEnrollmentRequest is the booking payload. Schedule and lesson
// option are resolved against the course; leaving them out is reported
// by the validation pipeline, not by payload validation, so the client
// sees the booking error codes in a fixed order.
type SubmitEnrollmentRequest struct {
	CourseID        string `json:"course_id" validate:"required"`
	ScheduleID      string `json:"schedule_id"`
	LessonOptionID  string `json:"lesson_option_id"`
	GuardianContact string `json:"guardian_contact"`
	StudentCount    int    `json:"student_count"`
}

// EnrollmentService orchestrates booking submissions against the
// conflict engine and the enrollment store.
type EnrollmentService struct {
	repo      enrollmentRepository
	courses   enrollmentCourseReader
	cache     cacheInvalidator
	cfg       conflict.Config
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, courses enrollmentCourseReader, cache cacheInvalidator, cfg conflict.Config, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, courses: courses, cache: cache, cfg: cfg, validator: validate, logger: logger}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
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
	return enrollments, pagination, nil
}

// Submit runs the booking pipeline for a client. For admin courses every
// invariant is checked against a fresh snapshot of the enrollment
// history; the store re-checks capacity atomically at write time.
func (s *EnrollmentService) Submit(ctx context.Context, clientID string, req SubmitEnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	input := conflict.BookingInput{
		GuardianContact: req.GuardianContact,
		StudentCount:    req.StudentCount,
	}
	var schedule *models.Schedule
	if req.ScheduleID != "" {
		schedule = course.ScheduleByID(req.ScheduleID)
		if schedule == nil {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found on course")
		}
		input.Slot = &conflict.SlotKey{Start: schedule.StartTime, End: schedule.EndTime}
	}
	if req.LessonOptionID != "" {
		if schedule == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "lesson option given without a schedule")
		}
		for i := range schedule.LessonOptions {
			if schedule.LessonOptions[i].ID == req.LessonOptionID {
				input.Option = &schedule.LessonOptions[i]
				break
			}
		}
		if input.Option == nil {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson option not found on schedule")
		}
	}

	if course.Type != models.CourseTypeAdmin {
		return s.submitFlat(ctx, clientID, course, input)
	}

	history, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment history")
	}
	snapshot, err := conflict.Rebuild(history)
	if err != nil {
		return nil, err
	}

	quote, err := snapshot.ValidateAndPrice(*course, input, s.cfg)
	if err != nil {
		return nil, err
	}
	if !quote.TierMatched {
		s.logger.Warn("no pricing entry for group tier, booking priced at zero",
			zap.String("course_id", course.ID),
			zap.String("tier", quote.Tier))
	}

	enrollment := &models.Enrollment{
		CourseID:            course.ID,
		ClientID:            clientID,
		GuardianContact:     input.GuardianContact,
		Status:              models.EnrollmentStatusPending,
		EnrollmentDate:      time.Now().UTC(),
		ScheduleStart:       input.Slot.Start,
		ScheduleEnd:         input.Slot.End,
		StudentCount:        input.StudentCount,
		SelectedLessonCount: input.Option.LessonCount,
		Price:               quote.Price,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrEnrollmentFailed.Code, appErrors.ErrEnrollmentFailed.Status, "failed to store enrollment")
	}

	s.invalidateAvailability(ctx)
	return enrollment, nil
}

// submitFlat books client and professional courses, which carry no slot
// and no capacity rules.
func (s *EnrollmentService) submitFlat(ctx context.Context, clientID string, course *models.Course, input conflict.BookingInput) (*models.Enrollment, error) {
	if input.GuardianContact == "" {
		return nil, appErrors.ErrContactRequired
	}
	if input.StudentCount < 1 || input.StudentCount > 6 {
		return nil, appErrors.ErrStudentCountRange
	}

	enrollment := &models.Enrollment{
		CourseID:        course.ID,
		ClientID:        clientID,
		GuardianContact: input.GuardianContact,
		Status:          models.EnrollmentStatusPending,
		EnrollmentDate:  time.Now().UTC(),
		StudentCount:    input.StudentCount,
	}
	if input.Option != nil {
		enrollment.SelectedLessonCount = input.Option.LessonCount
		price, matched := conflict.Quote(course.GroupPricing, *input.Option, input.StudentCount)
		enrollment.Price = price
		if !matched {
			s.logger.Warn("no pricing entry for group tier, booking priced at zero",
				zap.String("course_id", course.ID),
				zap.String("tier", conflict.TierFor(input.StudentCount)))
		}
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrEnrollmentFailed.Code, appErrors.ErrEnrollmentFailed.Status, "failed to store enrollment")
	}
	s.invalidateAvailability(ctx)
	return enrollment, nil
}

// Cancel marks an enrollment as cancelled, freeing its seats and, when
// it was the last one of the owning course, the slot itself. Clients can
// only cancel their own bookings.
func (s *EnrollmentService) Cancel(ctx context.Context, id string, requesterID string, requesterRole models.UserRole) error {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if requesterRole != models.RoleAdmin && enrollment.ClientID != requesterID {
		return appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another client")
	}
	if enrollment.Status == models.EnrollmentStatusCancelled {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment already cancelled")
	}
	if err := s.repo.Cancel(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel enrollment")
	}
	s.invalidateAvailability(ctx)
	return nil
}

func (s *EnrollmentService) invalidateAvailability(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, availabilityCachePattern); err != nil {
		s.logger.Warn("failed to invalidate availability cache", zap.Error(err))
	}
}
