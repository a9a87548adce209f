package conflict

import (
	"sort"
	"time"

	"github.com/aquaflow/swimschool-api/internal/models"
)

// SlotConflict aggregates the owning course's position at one slot.
// It is derived, never persisted.
type SlotConflict struct {
	Slot             SlotKey   `json:"slot"`
	Course           CourseRef `json:"course_id"`
	OccupiedStudents int       `json:"occupied_students"`
	LessonCount      int       `json:"lesson_count"`
	FirstEnrollment  time.Time `json:"first_enrollment"`
	// OrphanedStudents counts students held by non-owning courses at this
	// slot. Both courses can legally hold enrollments here if the second
	// enrolled before the first cancelled; only the owner keeps future
	// visibility.
	OrphanedStudents int `json:"orphaned_students,omitempty"`
}

// Ownership maps each claimed slot to its owning course.
type Ownership map[SlotKey]CourseRef

// Snapshot is the fully derived conflict state for one enrollment list.
// It is rebuilt from scratch on every read; nothing is patched in place.
type Snapshot struct {
	Ownership Ownership
	Conflicts []SlotConflict
}

type coursePartition struct {
	course   CourseRef
	students int
	first    time.Time
	lessons  int
}

// Rebuild derives slot ownership and per-slot aggregates from the full
// enrollment history. Cancelled enrollments and enrollments without a
// time range or student count are ignored. The earliest enrollment at a
// slot decides the owner; ties fall back to course id order so the result
// is deterministic.
func Rebuild(enrollments []models.Enrollment) (*Snapshot, error) {
	bySlot := make(map[SlotKey][]models.Enrollment)
	for _, e := range enrollments {
		if e.Status == models.EnrollmentStatusCancelled {
			continue
		}
		if !e.HasSlot() || e.StudentCount <= 0 {
			continue
		}
		key := SlotKey{Start: e.ScheduleStart, End: e.ScheduleEnd}
		if _, _, err := key.Minutes(); err != nil {
			return nil, err
		}
		bySlot[key] = append(bySlot[key], e)
	}

	snapshot := &Snapshot{Ownership: make(Ownership, len(bySlot))}
	for key, slotEnrollments := range bySlot {
		partitions := make(map[CourseRef]*coursePartition)
		for _, e := range slotEnrollments {
			ref := NormalizeCourseID(e.CourseID)
			p, ok := partitions[ref]
			if !ok {
				p = &coursePartition{course: ref, first: e.EnrollmentDate, lessons: e.SelectedLessonCount}
				partitions[ref] = p
			}
			p.students += e.StudentCount
			if e.EnrollmentDate.Before(p.first) {
				p.first = e.EnrollmentDate
				p.lessons = e.SelectedLessonCount
			}
		}

		var owner *coursePartition
		orphaned := 0
		for _, p := range partitions {
			if owner == nil || p.first.Before(owner.first) ||
				(p.first.Equal(owner.first) && p.course < owner.course) {
				owner = p
			}
		}
		for _, p := range partitions {
			if p != owner {
				orphaned += p.students
			}
		}

		snapshot.Ownership[key] = owner.course
		snapshot.Conflicts = append(snapshot.Conflicts, SlotConflict{
			Slot:             key,
			Course:           owner.course,
			OccupiedStudents: owner.students,
			LessonCount:      owner.lessons,
			FirstEnrollment:  owner.first,
			OrphanedStudents: orphaned,
		})
	}

	sort.Slice(snapshot.Conflicts, func(i, j int) bool {
		a, b := snapshot.Conflicts[i].Slot, snapshot.Conflicts[j].Slot
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End < b.End
	})
	return snapshot, nil
}

// conflictAt returns the conflict record for an exact slot key.
func (s *Snapshot) conflictAt(key SlotKey) *SlotConflict {
	for i := range s.Conflicts {
		if s.Conflicts[i].Slot == key {
			return &s.Conflicts[i]
		}
	}
	return nil
}
