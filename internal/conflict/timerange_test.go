package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "09:30", want: 570},
		{in: "23:59", want: 1439},
		{in: "10:15:30", want: 615},
		{in: "24:00", wantErr: true},
		{in: "09:60", wantErr: true},
		{in: "09", wantErr: true},
		{in: "ab:cd", wantErr: true},
		{in: "", wantErr: true},
		{in: "09:30:99", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestOverlapsSymmetry(t *testing.T) {
	ranges := [][2]int{{540, 600}, {570, 630}, {600, 660}, {0, 1440}, {300, 301}}
	for _, a := range ranges {
		for _, b := range ranges {
			assert.Equal(t, Overlaps(a[0], a[1], b[0], b[1]), Overlaps(b[0], b[1], a[0], a[1]),
				"overlap must be symmetric for %v and %v", a, b)
		}
	}
}

func TestOverlapsTouchingBoundary(t *testing.T) {
	ok, err := SlotKey{Start: "09:00", End: "10:00"}.OverlapsKey(SlotKey{Start: "10:00", End: "11:00"})
	require.NoError(t, err)
	assert.False(t, ok, "touching endpoints must not overlap")

	ok, err = SlotKey{Start: "09:00", End: "10:00"}.OverlapsKey(SlotKey{Start: "09:30", End: "10:30"})
	require.NoError(t, err)
	assert.True(t, ok, "partial overlap must be detected")
}

func TestSlotKeyMinutesRejectsCorruptData(t *testing.T) {
	_, _, err := SlotKey{Start: "9am", End: "10:00"}.Minutes()
	assert.Error(t, err)
}
