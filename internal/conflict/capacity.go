package conflict

// Group capacity tiers: small groups fill a 4-seat slot; a slot already
// committed past 4 extends to 6. Hitting exactly 4 or 6 closes the slot.
const (
	smallTierCap = 4
	largeTierCap = 6
)

// Config tunes the capacity policy.
type Config struct {
	// AllowTierGrowth lets a slot that filled at the small tier reopen
	// into the 5-6 tier. Off by default; the encoded business rule closes
	// the slot at exactly 4.
	AllowTierGrowth bool
}

// AvailableSpots computes remaining seats at a slot for a course.
// A course gets zero seats when another course owns the exact slot, or
// when the range overlaps any other course's owned slot, even partially
// (pool lanes cannot be double-booked across courses). An empty course
// ref skips the ownership filter.
func (s *Snapshot) AvailableSpots(slot SlotKey, course CourseRef, cfg Config) (int, error) {
	slotStart, slotEnd, err := slot.Minutes()
	if err != nil {
		return 0, err
	}

	if course != "" {
		if owner, claimed := s.Ownership[slot]; claimed && owner != course {
			return 0, nil
		}
		for i := range s.Conflicts {
			c := &s.Conflicts[i]
			if c.Course == course {
				continue
			}
			cStart, cEnd, err := c.Slot.Minutes()
			if err != nil {
				return 0, err
			}
			if Overlaps(slotStart, slotEnd, cStart, cEnd) {
				return 0, nil
			}
		}
	}

	record := s.conflictAt(slot)
	if record == nil {
		return largeTierCap, nil
	}

	n := record.OccupiedStudents
	if n >= largeTierCap {
		return 0, nil
	}
	if n == smallTierCap && !cfg.AllowTierGrowth {
		return 0, nil
	}
	tierMax := smallTierCap
	if n >= smallTierCap {
		tierMax = largeTierCap
	}
	return tierMax - n, nil
}
