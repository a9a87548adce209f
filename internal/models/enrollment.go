package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses. Cancelled enrollments stay on record but
// no longer count toward slot ownership or capacity.
const (
	EnrollmentStatusPending   EnrollmentStatus = "pending"
	EnrollmentStatusApproved  EnrollmentStatus = "approved"
	EnrollmentStatusActive    EnrollmentStatus = "active"
	EnrollmentStatusInProcess EnrollmentStatus = "in_process"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
	EnrollmentStatusCancelled EnrollmentStatus = "cancelled"
)

// Enrollment registers a student group against one course and, for admin
// courses, one schedule slot. EnrollmentDate is the ownership tie-break key.
type Enrollment struct {
	ID                  string           `db:"id" json:"id"`
	CourseID            string           `db:"course_id" json:"course_id"`
	ClientID            string           `db:"client_id" json:"client_id"`
	GuardianContact     string           `db:"guardian_contact" json:"guardian_contact"`
	Status              EnrollmentStatus `db:"status" json:"status"`
	EnrollmentDate      time.Time        `db:"enrollment_date" json:"enrollment_date"`
	ScheduleStart       string           `db:"schedule_start" json:"schedule_start,omitempty"`
	ScheduleEnd         string           `db:"schedule_end" json:"schedule_end,omitempty"`
	StudentCount        int              `db:"student_count" json:"student_count"`
	SelectedLessonCount int              `db:"selected_lesson_count" json:"selected_lesson_count"`
	Price               float64          `db:"price" json:"price"`
	CreatedAt           time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time        `db:"updated_at" json:"updated_at"`
}

// HasSlot reports whether the enrollment carries a schedule time range.
func (e Enrollment) HasSlot() bool {
	return e.ScheduleStart != "" && e.ScheduleEnd != ""
}

// EnrollmentDetail enriches Enrollment with course and client info.
type EnrollmentDetail struct {
	Enrollment
	CourseName  string `db:"course_name" json:"course_name"`
	CourseType  string `db:"course_type" json:"course_type"`
	ClientName  string `db:"client_name" json:"client_name"`
	ClientEmail string `db:"client_email" json:"client_email"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	CourseID  string
	ClientID  string
	Status    EnrollmentStatus
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
