package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquaflow/swimschool-api/internal/models"
	appErrors "github.com/aquaflow/swimschool-api/pkg/errors"
)

type mockCourseRepo struct {
	courses map[string]*models.Course
	created *models.Course
	updated *models.Course
	deleted []string
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var list []models.Course
	for _, c := range m.courses {
		list = append(list, *c)
	}
	return list, len(list), nil
}

func (m *mockCourseRepo) ListAll(ctx context.Context) ([]models.Course, error) {
	var list []models.Course
	for _, c := range m.courses {
		list = append(list, *c)
	}
	return list, nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if m.courses == nil {
		m.courses = make(map[string]*models.Course)
	}
	if course.ID == "" {
		course.ID = "new-course"
	}
	m.courses[course.ID] = course
	m.created = course
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	m.courses[course.ID] = course
	m.updated = course
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id string) error {
	delete(m.courses, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func validCourseRequest() CourseRequest {
	return CourseRequest{
		Name: "Kids Group",
		Type: models.CourseTypeAdmin,
		Schedules: []ScheduleRequest{
			{
				StartTime: "10:00",
				EndTime:   "11:00",
				LessonOptions: []LessonOptionRequest{
					{LessonCount: 4, Price: 20},
				},
			},
		},
		GroupPricing: []GroupPricingRequest{
			{StudentRange: models.TierSmall, Price: 25},
			{StudentRange: models.TierLarge, Price: 20},
		},
	}
}

func TestCourseServiceCreate(t *testing.T) {
	repo := &mockCourseRepo{}
	cache := &mockInvalidator{}
	svc := NewCourseService(repo, cache, nil, nil)

	course, err := svc.Create(context.Background(), validCourseRequest())
	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.Len(t, course.Schedules, 1)
	assert.Len(t, course.Schedules[0].LessonOptions, 1)
	assert.Len(t, course.GroupPricing, 2)
	assert.NotEmpty(t, cache.patterns)
}

func TestCourseServiceCreateRejectsBadSchedules(t *testing.T) {
	svc := NewCourseService(&mockCourseRepo{}, nil, nil, nil)

	t.Run("malformed time", func(t *testing.T) {
		req := validCourseRequest()
		req.Schedules[0].StartTime = "25:00"
		_, err := svc.Create(context.Background(), req)
		requireCode(t, err, appErrors.ErrValidation.Code)
	})

	t.Run("inverted range", func(t *testing.T) {
		req := validCourseRequest()
		req.Schedules[0].StartTime = "11:00"
		req.Schedules[0].EndTime = "10:00"
		_, err := svc.Create(context.Background(), req)
		requireCode(t, err, appErrors.ErrValidation.Code)
	})

	t.Run("duplicate pricing tier", func(t *testing.T) {
		req := validCourseRequest()
		req.GroupPricing = []GroupPricingRequest{
			{StudentRange: models.TierSmall, Price: 25},
			{StudentRange: models.TierSmall, Price: 30},
		}
		_, err := svc.Create(context.Background(), req)
		requireCode(t, err, appErrors.ErrValidation.Code)
	})

	t.Run("zero lesson count", func(t *testing.T) {
		req := validCourseRequest()
		req.Schedules[0].LessonOptions[0].LessonCount = 0
		_, err := svc.Create(context.Background(), req)
		requireCode(t, err, appErrors.ErrValidation.Code)
	})
}

func TestCourseServiceUpdateKeepsIdentity(t *testing.T) {
	existing := &models.Course{ID: "course-1", Name: "Old Name", Type: models.CourseTypeAdmin}
	repo := &mockCourseRepo{courses: map[string]*models.Course{"course-1": existing}}
	svc := NewCourseService(repo, nil, nil, nil)

	updated, err := svc.Update(context.Background(), "course-1", validCourseRequest())
	require.NoError(t, err)
	assert.Equal(t, "course-1", updated.ID)
	assert.Equal(t, "Kids Group", updated.Name)
}

func TestCourseServiceUpdateMissing(t *testing.T) {
	svc := NewCourseService(&mockCourseRepo{}, nil, nil, nil)
	_, err := svc.Update(context.Background(), "ghost", validCourseRequest())
	requireCode(t, err, appErrors.ErrNotFound.Code)
}

func TestCourseServiceDelete(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]*models.Course{"course-1": {ID: "course-1"}}}
	svc := NewCourseService(repo, nil, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "course-1"))
	assert.Contains(t, repo.deleted, "course-1")

	err := svc.Delete(context.Background(), "course-1")
	requireCode(t, err, appErrors.ErrNotFound.Code)
}
