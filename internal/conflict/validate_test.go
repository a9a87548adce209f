package conflict

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquaflow/swimschool-api/internal/models"
	appErrors "github.com/aquaflow/swimschool-api/pkg/errors"
)

func bookingCourse() models.Course {
	return models.Course{
		ID:   "7",
		Type: models.CourseTypeAdmin,
		GroupPricing: []models.GroupPricing{
			{StudentRange: models.TierSmall, Price: 20},
			{StudentRange: models.TierLarge, Price: 15},
		},
	}
}

func validInput() BookingInput {
	return BookingInput{
		GuardianContact: "+34 600 000 000",
		Slot:            &SlotKey{Start: "09:00", End: "10:00"},
		Option:          &models.LessonOption{LessonCount: 4, Price: 80},
		StudentCount:    2,
	}
}

func assertCode(t *testing.T, err error, want *appErrors.Error) {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, want.Code, appErr.Code)
}

func TestValidateAndPriceSuccess(t *testing.T) {
	snapshot := snapshotWith(t)
	quote, err := snapshot.ValidateAndPrice(bookingCourse(), validInput(), Config{})
	require.NoError(t, err)
	assert.Equal(t, 160.0, quote.Price) // 20 * 2 students * 4 lessons
	assert.True(t, quote.TierMatched)
	assert.Equal(t, models.TierSmall, quote.Tier)
}

func TestValidateAndPriceFailFastOrder(t *testing.T) {
	snapshot := snapshotWith(t)

	in := validInput()
	in.GuardianContact = ""
	in.Slot = nil // contact must win even with other fields missing
	_, err := snapshot.ValidateAndPrice(bookingCourse(), in, Config{})
	assertCode(t, err, appErrors.ErrContactRequired)

	in = validInput()
	in.Slot = nil
	_, err = snapshot.ValidateAndPrice(bookingCourse(), in, Config{})
	assertCode(t, err, appErrors.ErrScheduleRequired)

	in = validInput()
	in.Option = nil
	_, err = snapshot.ValidateAndPrice(bookingCourse(), in, Config{})
	assertCode(t, err, appErrors.ErrLessonOptionRequired)

	for _, count := range []int{0, -1, 7} {
		in = validInput()
		in.StudentCount = count
		_, err = snapshot.ValidateAndPrice(bookingCourse(), in, Config{})
		assertCode(t, err, appErrors.ErrStudentCountRange)
	}
}

func TestValidateAndPriceInsufficientSpots(t *testing.T) {
	snapshot := snapshotWith(t, enrollment("7", "09:00", "10:00", 3, 4, baseTime))

	in := validInput()
	in.StudentCount = 2
	_, err := snapshot.ValidateAndPrice(bookingCourse(), in, Config{})
	assertCode(t, err, appErrors.ErrInsufficientSpots)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 1, appErr.Details["available"])
}

func TestValidateAndPriceLessonCountLock(t *testing.T) {
	snapshot := snapshotWith(t, enrollment("7", "09:00", "10:00", 1, 4, baseTime))

	in := validInput()
	in.Option = &models.LessonOption{LessonCount: 8, Price: 160}
	_, err := snapshot.ValidateAndPrice(bookingCourse(), in, Config{})
	assertCode(t, err, appErrors.ErrLessonCountMismatch)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 4, appErr.Details["required"])

	// matching lesson count joins the group
	in.Option = &models.LessonOption{LessonCount: 4, Price: 80}
	quote, err := snapshot.ValidateAndPrice(bookingCourse(), in, Config{})
	require.NoError(t, err)
	assert.Equal(t, 160.0, quote.Price)
}

func TestValidateAndPriceBlockedByCompetingOwner(t *testing.T) {
	snapshot := snapshotWith(t, enrollment("8", "09:30", "10:30", 1, 4, baseTime))
	_, err := snapshot.ValidateAndPrice(bookingCourse(), validInput(), Config{})
	assertCode(t, err, appErrors.ErrInsufficientSpots)
}

func TestValidateAndPriceMissingTierIsNotBlocking(t *testing.T) {
	snapshot := snapshotWith(t)
	course := bookingCourse()
	course.GroupPricing = nil

	quote, err := snapshot.ValidateAndPrice(course, validInput(), Config{})
	require.NoError(t, err, "a missing pricing tier quotes zero instead of rejecting")
	assert.Zero(t, quote.Price)
	assert.False(t, quote.TierMatched)
}
