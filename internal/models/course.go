package models

import "time"

// CourseType distinguishes how a course is booked.
type CourseType string

// Course types. Only admin courses run through the slot-conflict engine;
// client and professional courses are flat offerings.
const (
	CourseTypeClient       CourseType = "client"
	CourseTypeProfessional CourseType = "professional"
	CourseTypeAdmin        CourseType = "admin_course"
)

// Group pricing tiers. A slot is billed per student at the tier rate.
const (
	TierSmall = "1-4"
	TierLarge = "5-6"
)

// LessonOption is a bookable lesson-count/price pair offered by a schedule.
type LessonOption struct {
	ID          string  `db:"id" json:"id"`
	ScheduleID  string  `db:"schedule_id" json:"schedule_id"`
	LessonCount int     `db:"lesson_count" json:"lesson_count"`
	Price       float64 `db:"price" json:"price"`
}

// Schedule is a time slot offered by a course. Times are local clock
// strings ("HH:MM"), minute precision. A slot's identity for ownership
// purposes is its (start, end) pair, not its row id: identical ranges
// across courses collide because they share a physical pool lane.
type Schedule struct {
	ID            string         `db:"id" json:"id"`
	CourseID      string         `db:"course_id" json:"course_id"`
	StartTime     string         `db:"start_time" json:"start_time"`
	EndTime       string         `db:"end_time" json:"end_time"`
	LessonOptions []LessonOption `db:"-" json:"lesson_options,omitempty"`
}

// GroupPricing is the per-student price for a group-size tier.
// At most one entry per tier per course.
type GroupPricing struct {
	ID           string  `db:"id" json:"id"`
	CourseID     string  `db:"course_id" json:"course_id"`
	StudentRange string  `db:"student_range" json:"student_range"`
	Price        float64 `db:"price" json:"price"`
}

// Course is a swim-school offering.
type Course struct {
	ID           string         `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	Description  string         `db:"description" json:"description"`
	Type         CourseType     `db:"type" json:"type"`
	StartDate    *time.Time     `db:"start_date" json:"start_date,omitempty"`
	EndDate      *time.Time     `db:"end_date" json:"end_date,omitempty"`
	Schedules    []Schedule     `db:"-" json:"schedules,omitempty"`
	GroupPricing []GroupPricing `db:"-" json:"group_pricing,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// ScheduleByID returns the schedule with the given row id.
func (c *Course) ScheduleByID(id string) *Schedule {
	for i := range c.Schedules {
		if c.Schedules[i].ID == id {
			return &c.Schedules[i]
		}
	}
	return nil
}

// CourseFilter captures filtering criteria for listing courses.
type CourseFilter struct {
	Type      CourseType
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
