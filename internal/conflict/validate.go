package conflict

import (
	"github.com/aquaflow/swimschool-api/internal/models"
	appErrors "github.com/aquaflow/swimschool-api/pkg/errors"
)

// Booking limits per group.
const (
	minStudents = 1
	maxStudents = 6
)

// BookingInput is a prospective enrollment before submission.
type BookingInput struct {
	GuardianContact string
	Slot            *SlotKey
	Option          *models.LessonOption
	StudentCount    int
}

// Quotation is the validated outcome of a booking attempt. TierMatched
// is false when the course carries no pricing entry for the group's
// tier, in which case the price is zero.
type Quotation struct {
	Price        float64 `json:"price"`
	TierMatched  bool    `json:"tier_matched"`
	Tier         string  `json:"tier"`
	LessonCount  int     `json:"lesson_count"`
	StudentCount int     `json:"student_count"`
}

// ValidateAndPrice runs the booking checks in order, failing fast on the
// first violation, and prices the enrollment on success. The capacity
// check here is advisory: the store re-checks atomically at write time.
func (s *Snapshot) ValidateAndPrice(course models.Course, in BookingInput, cfg Config) (*Quotation, error) {
	if in.GuardianContact == "" {
		return nil, appErrors.ErrContactRequired
	}
	if in.Slot == nil {
		return nil, appErrors.ErrScheduleRequired
	}
	if in.Option == nil {
		return nil, appErrors.ErrLessonOptionRequired
	}
	if in.StudentCount < minStudents || in.StudentCount > maxStudents {
		return nil, appErrors.ErrStudentCountRange
	}

	ref := NormalizeCourseID(course.ID)
	available, err := s.AvailableSpots(*in.Slot, ref, cfg)
	if err != nil {
		return nil, err
	}
	if in.StudentCount > available {
		return nil, appErrors.WithDetails(appErrors.ErrInsufficientSpots, map[string]interface{}{"available": available})
	}

	required, locked, err := s.RequiredLessonCount(*in.Slot, ref)
	if err != nil {
		return nil, err
	}
	if locked && required != in.Option.LessonCount {
		return nil, appErrors.WithDetails(appErrors.ErrLessonCountMismatch, map[string]interface{}{"required": required})
	}

	price, matched := Quote(course.GroupPricing, *in.Option, in.StudentCount)
	return &Quotation{
		Price:        price,
		TierMatched:  matched,
		Tier:         TierFor(in.StudentCount),
		LessonCount:  in.Option.LessonCount,
		StudentCount: in.StudentCount,
	}, nil
}
