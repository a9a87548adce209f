package conflict

import "github.com/aquaflow/swimschool-api/internal/models"

// SlotAvailability describes one deduped schedule slot of a course.
type SlotAvailability struct {
	Slot         SlotKey `json:"slot"`
	Spots        int     `json:"spots"`
	LessonCount  int     `json:"lesson_count,omitempty"`
	LessonLocked bool    `json:"lesson_locked"`
	OwnedByOther bool    `json:"owned_by_other"`
}

// CourseAvailability is the per-course verdict of the engine.
type CourseAvailability struct {
	CourseID   string             `json:"course_id"`
	Enrollable bool               `json:"enrollable"`
	Slots      []SlotAvailability `json:"slots,omitempty"`
}

// SlotOwnership is the JSON-friendly projection of one ownership entry.
type SlotOwnership struct {
	Slot     SlotKey   `json:"slot"`
	CourseID CourseRef `json:"course_id"`
}

// AvailabilityReport bundles everything the booking UI needs for one
// snapshot of the enrollment history.
type AvailabilityReport struct {
	Ownership []SlotOwnership      `json:"ownership"`
	Conflicts []SlotConflict       `json:"conflicts"`
	Courses   []CourseAvailability `json:"courses"`
}

// IsEnrollable decides whether a course can take any further booking.
// Admin courses need at least one deduped slot that this course owns or
// that is unclaimed and conflict-free, with seats left. Other course
// types are always enrollable; their capacity model lives elsewhere.
func (s *Snapshot) IsEnrollable(course models.Course, cfg Config) (bool, error) {
	if course.Type != models.CourseTypeAdmin {
		return true, nil
	}
	availability, err := s.courseAvailability(course, cfg)
	if err != nil {
		return false, err
	}
	return availability.Enrollable, nil
}

func (s *Snapshot) courseAvailability(course models.Course, cfg Config) (CourseAvailability, error) {
	result := CourseAvailability{CourseID: course.ID}
	if course.Type != models.CourseTypeAdmin {
		result.Enrollable = true
		return result, nil
	}

	ref := NormalizeCourseID(course.ID)
	seen := make(map[SlotKey]struct{}, len(course.Schedules))
	for _, schedule := range course.Schedules {
		key := SlotKey{Start: schedule.StartTime, End: schedule.EndTime}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		spots, err := s.AvailableSpots(key, ref, cfg)
		if err != nil {
			return result, err
		}
		lessons, locked, err := s.RequiredLessonCount(key, ref)
		if err != nil {
			return result, err
		}
		owner, claimed := s.Ownership[key]
		slot := SlotAvailability{
			Slot:         key,
			Spots:        spots,
			LessonCount:  lessons,
			LessonLocked: locked,
			OwnedByOther: claimed && owner != ref,
		}
		if spots > 0 {
			result.Enrollable = true
		}
		result.Slots = append(result.Slots, slot)
	}
	return result, nil
}

// ComputeAvailability rebuilds the conflict state from the enrollment
// history and evaluates every course against it in one pass.
func ComputeAvailability(courses []models.Course, enrollments []models.Enrollment, cfg Config) (*AvailabilityReport, error) {
	snapshot, err := Rebuild(enrollments)
	if err != nil {
		return nil, err
	}
	report := &AvailabilityReport{Conflicts: snapshot.Conflicts}
	for _, c := range snapshot.Conflicts {
		report.Ownership = append(report.Ownership, SlotOwnership{Slot: c.Slot, CourseID: c.Course})
	}
	for _, course := range courses {
		availability, err := snapshot.courseAvailability(course, cfg)
		if err != nil {
			return nil, err
		}
		report.Courses = append(report.Courses, availability)
	}
	return report, nil
}
