package conflict

import "github.com/aquaflow/swimschool-api/internal/models"

// TierFor maps a student count onto its group pricing tier.
func TierFor(studentCount int) string {
	if studentCount <= smallTierCap {
		return models.TierSmall
	}
	return models.TierLarge
}

// Quote computes the total price for a booking: per-student tier rate
// times students times lessons. When the course has no pricing entry for
// the tier the price is zero and ok is false; callers decide whether to
// flag that (the catalogue treats a missing tier as free rather than an
// error).
func Quote(pricing []models.GroupPricing, option models.LessonOption, studentCount int) (float64, bool) {
	tier := TierFor(studentCount)
	for _, p := range pricing {
		if p.StudentRange == tier {
			return p.Price * float64(studentCount) * float64(option.LessonCount), true
		}
	}
	return 0, false
}
