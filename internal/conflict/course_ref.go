package conflict

import "strings"

// courseIDPrefix namespaces raw numeric course ids carried over from the
// legacy catalogue so both forms compare equal.
const courseIDPrefix = "admin_course_"

// CourseRef is a normalized course identifier. Raw ids and their
// prefixed form refer to the same course.
type CourseRef string

// NormalizeCourseID maps a raw or already-namespaced course id onto its
// canonical form.
func NormalizeCourseID(raw string) CourseRef {
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, courseIDPrefix) {
		return CourseRef(raw)
	}
	return CourseRef(courseIDPrefix + raw)
}
