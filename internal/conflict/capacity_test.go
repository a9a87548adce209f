package conflict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquaflow/swimschool-api/internal/models"
)

func snapshotWith(t *testing.T, enrollments ...models.Enrollment) *Snapshot {
	t.Helper()
	snapshot, err := Rebuild(enrollments)
	require.NoError(t, err)
	return snapshot
}

func spots(t *testing.T, s *Snapshot, slot SlotKey, course string, cfg Config) int {
	t.Helper()
	n, err := s.AvailableSpots(slot, NormalizeCourseID(course), cfg)
	require.NoError(t, err)
	return n
}

func TestAvailableSpotsUnclaimedSlot(t *testing.T) {
	snapshot := snapshotWith(t)
	assert.Equal(t, 6, spots(t, snapshot, SlotKey{Start: "09:00", End: "10:00"}, "7", Config{}))
}

func TestAvailableSpotsTierProgression(t *testing.T) {
	slot := SlotKey{Start: "09:00", End: "10:00"}
	cases := []struct {
		occupied int
		want     int
	}{
		{occupied: 1, want: 3},
		{occupied: 3, want: 1},
		{occupied: 4, want: 0}, // full at the small tier, does not widen to 6
		{occupied: 5, want: 1},
		{occupied: 6, want: 0},
	}
	for _, tc := range cases {
		snapshot := snapshotWith(t, enrollment("7", slot.Start, slot.End, tc.occupied, 4, baseTime))
		assert.Equal(t, tc.want, spots(t, snapshot, slot, "7", Config{}), "occupied=%d", tc.occupied)
	}
}

func TestAvailableSpotsNeverExceedsCeiling(t *testing.T) {
	slot := SlotKey{Start: "09:00", End: "10:00"}
	for occupied := 0; occupied <= 6; occupied++ {
		var enrollments []models.Enrollment
		if occupied > 0 {
			enrollments = append(enrollments, enrollment("7", slot.Start, slot.End, occupied, 4, baseTime))
		}
		snapshot := snapshotWith(t, enrollments...)
		n := spots(t, snapshot, slot, "7", Config{})
		assert.LessOrEqual(t, occupied+n, 6, "occupied=%d", occupied)
	}
}

func TestAvailableSpotsTierGrowthFlag(t *testing.T) {
	slot := SlotKey{Start: "09:00", End: "10:00"}
	snapshot := snapshotWith(t, enrollment("7", slot.Start, slot.End, 4, 4, baseTime))
	assert.Equal(t, 0, spots(t, snapshot, slot, "7", Config{}))
	assert.Equal(t, 2, spots(t, snapshot, slot, "7", Config{AllowTierGrowth: true}))
}

func TestAvailableSpotsCrossCourseExclusivity(t *testing.T) {
	snapshot := snapshotWith(t, enrollment("7", "09:00", "10:00", 2, 4, baseTime))

	// exact slot, competing course
	assert.Equal(t, 0, spots(t, snapshot, SlotKey{Start: "09:00", End: "10:00"}, "8", Config{}))
	// partial overlap, competing course
	assert.Equal(t, 0, spots(t, snapshot, SlotKey{Start: "09:30", End: "10:30"}, "8", Config{}))
	// adjacent slot does not conflict
	assert.Equal(t, 6, spots(t, snapshot, SlotKey{Start: "10:00", End: "11:00"}, "8", Config{}))
	// the owner keeps its remaining seats
	assert.Equal(t, 2, spots(t, snapshot, SlotKey{Start: "09:00", End: "10:00"}, "7", Config{}))
}

func TestAvailableSpotsNoCourseFilter(t *testing.T) {
	snapshot := snapshotWith(t, enrollment("7", "09:00", "10:00", 3, 4, baseTime))
	n, err := snapshot.AvailableSpots(SlotKey{Start: "09:00", End: "10:00"}, "", Config{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCancellationFreesCapacity(t *testing.T) {
	slot := SlotKey{Start: "09:00", End: "10:00"}
	active := enrollment("7", slot.Start, slot.End, 4, 4, baseTime)
	snapshot := snapshotWith(t, active)
	assert.Equal(t, 0, spots(t, snapshot, slot, "7", Config{}))

	active.Status = models.EnrollmentStatusCancelled
	snapshot = snapshotWith(t, active)
	assert.Equal(t, 6, spots(t, snapshot, slot, "7", Config{}))
}

func TestOwnershipFlipsAfterOwnerCancels(t *testing.T) {
	slot := SlotKey{Start: "09:00", End: "10:00"}
	first := enrollment("7", slot.Start, slot.End, 2, 4, baseTime)
	second := enrollment("8", slot.Start, slot.End, 1, 8, baseTime.Add(time.Hour))

	snapshot := snapshotWith(t, first, second)
	assert.Equal(t, NormalizeCourseID("7"), snapshot.Ownership[slot])

	first.Status = models.EnrollmentStatusCancelled
	snapshot = snapshotWith(t, first, second)
	assert.Equal(t, NormalizeCourseID("8"), snapshot.Ownership[slot], "full recomputation must hand the slot to the survivor")
	assert.Equal(t, 3, spots(t, snapshot, slot, "8", Config{}))
}
