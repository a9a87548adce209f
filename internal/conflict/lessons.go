package conflict

// RequiredLessonCount returns the lesson count locked for a course at a
// slot, if any. The first enrollment against a slot fixes the lesson
// count for everyone who joins the same group; overlap is enough, the
// ranges need not match exactly.
func (s *Snapshot) RequiredLessonCount(slot SlotKey, course CourseRef) (int, bool, error) {
	slotStart, slotEnd, err := slot.Minutes()
	if err != nil {
		return 0, false, err
	}
	for i := range s.Conflicts {
		c := &s.Conflicts[i]
		if c.Course != course {
			continue
		}
		cStart, cEnd, err := c.Slot.Minutes()
		if err != nil {
			return 0, false, err
		}
		if Overlaps(slotStart, slotEnd, cStart, cEnd) {
			return c.LessonCount, true, nil
		}
	}
	return 0, false, nil
}
