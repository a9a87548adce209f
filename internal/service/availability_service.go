package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/aquaflow/swimschool-api/internal/conflict"
	"github.com/aquaflow/swimschool-api/internal/models"
	appErrors "github.com/aquaflow/swimschool-api/pkg/errors"
)

const (
	availabilityCacheKey     = "availability:report"
	availabilityCachePattern = "availability:*"
)

type courseCatalog interface {
	ListAll(ctx context.Context) ([]models.Course, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type enrollmentHistory interface {
	ListAll(ctx context.Context) ([]models.Enrollment, error)
}

// AvailabilityService recomputes slot availability from the enrollment
// history on every request, with a short-lived cache in front. The
// engine itself keeps no state between calls.
type AvailabilityService struct {
	courses     courseCatalog
	enrollments enrollmentHistory
	cache       *CacheService
	cfg         conflict.Config
	logger      *zap.Logger
}

// NewAvailabilityService constructs AvailabilityService.
func NewAvailabilityService(courses courseCatalog, enrollments enrollmentHistory, cache *CacheService, cfg conflict.Config, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{courses: courses, enrollments: enrollments, cache: cache, cfg: cfg, logger: logger}
}

// Report returns the availability verdict for every course. The bool
// reports whether the payload came from cache.
func (s *AvailabilityService) Report(ctx context.Context) (*conflict.AvailabilityReport, bool, error) {
	var cached conflict.AvailabilityReport
	if hit, err := s.cache.Get(ctx, availabilityCacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	report, err := s.compute(ctx)
	if err != nil {
		return nil, false, err
	}

	if err := s.cache.Set(ctx, availabilityCacheKey, report, 0); err != nil {
		s.logger.Warn("failed to cache availability report", zap.Error(err))
	}
	return report, false, nil
}

// Snapshot rebuilds the raw conflict state without course evaluation.
// Booking validation uses this directly so it never reads a stale cache.
func (s *AvailabilityService) Snapshot(ctx context.Context) (*conflict.Snapshot, error) {
	enrollments, err := s.enrollments.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment history")
	}
	snapshot, err := conflict.Rebuild(enrollments)
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Invalidate drops all cached availability payloads.
func (s *AvailabilityService) Invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, availabilityCachePattern); err != nil {
		s.logger.Warn("failed to invalidate availability cache", zap.Error(err))
	}
}

func (s *AvailabilityService) compute(ctx context.Context) (*conflict.AvailabilityReport, error) {
	courses, err := s.courses.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	enrollments, err := s.enrollments.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment history")
	}
	report, err := conflict.ComputeAvailability(courses, enrollments, s.cfg)
	if err != nil {
		return nil, err
	}
	return report, nil
}
