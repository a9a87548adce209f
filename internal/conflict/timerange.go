package conflict

import (
	"fmt"
	"strconv"
	"strings"

	appErrors "github.com/aquaflow/swimschool-api/pkg/errors"
)

// ParseClock converts an "HH:MM" or "HH:MM:SS" clock string into minutes
// since midnight. Malformed input is a data-integrity fault and never
// silently maps to zero.
func ParseClock(value string) (int, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, appErrors.Wrap(fmt.Errorf("clock %q", value), appErrors.ErrInvalidTimeFormat.Code, appErrors.ErrInvalidTimeFormat.Status, "expected HH:MM or HH:MM:SS")
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, appErrors.Wrap(fmt.Errorf("clock %q", value), appErrors.ErrInvalidTimeFormat.Code, appErrors.ErrInvalidTimeFormat.Status, "hour out of range")
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, appErrors.Wrap(fmt.Errorf("clock %q", value), appErrors.ErrInvalidTimeFormat.Code, appErrors.ErrInvalidTimeFormat.Status, "minute out of range")
	}
	if len(parts) == 3 {
		seconds, err := strconv.Atoi(parts[2])
		if err != nil || seconds < 0 || seconds > 59 {
			return 0, appErrors.Wrap(fmt.Errorf("clock %q", value), appErrors.ErrInvalidTimeFormat.Code, appErrors.ErrInvalidTimeFormat.Status, "second out of range")
		}
	}
	return hours*60 + minutes, nil
}

// Overlaps reports whether two half-open minute ranges intersect.
// Touching endpoints (a ends exactly when b starts) do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// SlotKey identifies a schedule slot by its exact time range. Identity is
// structural: the same range offered by two courses is the same slot.
type SlotKey struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Minutes returns the slot boundaries as minutes since midnight.
func (k SlotKey) Minutes() (int, int, error) {
	start, err := ParseClock(k.Start)
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseClock(k.End)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// OverlapsKey reports whether two slots intersect in time.
func (k SlotKey) OverlapsKey(other SlotKey) (bool, error) {
	aStart, aEnd, err := k.Minutes()
	if err != nil {
		return false, err
	}
	bStart, bEnd, err := other.Minutes()
	if err != nil {
		return false, err
	}
	return Overlaps(aStart, aEnd, bStart, bEnd), nil
}

func (k SlotKey) String() string {
	return k.Start + "-" + k.End
}
