package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/aquaflow/swimschool-api/internal/middleware"
	"github.com/aquaflow/swimschool-api/internal/models"
	"github.com/aquaflow/swimschool-api/internal/service"
	appErrors "github.com/aquaflow/swimschool-api/pkg/errors"
)

type fakeEnrollmentSrv struct {
	listResp   []models.EnrollmentDetail
	listErr    error
	lastFilter models.EnrollmentFilter

	submitResp *models.Enrollment
	submitErr  error
	lastClient string
	lastSubmit service.SubmitEnrollmentRequest

	cancelErr  error
	lastCancel struct {
		id   string
		user string
		role models.UserRole
	}
}

func (f *fakeEnrollmentSrv) List(_ context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	f.lastFilter = filter
	return f.listResp, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize}, f.listErr
}

func (f *fakeEnrollmentSrv) Submit(_ context.Context, clientID string, req service.SubmitEnrollmentRequest) (*models.Enrollment, error) {
	f.lastClient = clientID
	f.lastSubmit = req
	return f.submitResp, f.submitErr
}

func (f *fakeEnrollmentSrv) Cancel(_ context.Context, id string, requesterID string, requesterRole models.UserRole) error {
	f.lastCancel.id = id
	f.lastCancel.user = requesterID
	f.lastCancel.role = requesterRole
	return f.cancelErr
}

func TestEnrollmentHandlerListScopesClients(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeEnrollmentSrv{}
	handler := NewEnrollmentHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/enrollments?clientId=someone-else", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "client-9", Role: models.RoleClient})

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "client-9", srv.lastFilter.ClientID)
}

func TestEnrollmentHandlerListKeepsAdminFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeEnrollmentSrv{}
	handler := NewEnrollmentHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/enrollments?clientId=client-1&status=approved", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "client-1", srv.lastFilter.ClientID)
	assert.Equal(t, models.EnrollmentStatusApproved, srv.lastFilter.Status)
}

func TestEnrollmentHandlerCreateRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEnrollmentHandler(&fakeEnrollmentSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/enrollments", strings.NewReader(`{"course_id":"admin_course_1"}`))

	handler.Create(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEnrollmentHandlerCreateSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeEnrollmentSrv{
		submitResp: &models.Enrollment{ID: "enr-1", CourseID: "admin_course_1"},
	}
	handler := NewEnrollmentHandler(srv)

	body := `{"course_id":"admin_course_1","schedule_id":"sched-1","lesson_option_id":"opt-4","guardian_contact":"0812","student_count":2}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/enrollments", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "client-1", Role: models.RoleClient})

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "client-1", srv.lastClient)
	assert.Equal(t, "sched-1", srv.lastSubmit.ScheduleID)
	assert.Equal(t, 2, srv.lastSubmit.StudentCount)
}

func TestEnrollmentHandlerCreatePropagatesBookingError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeEnrollmentSrv{
		submitErr: appErrors.WithDetails(appErrors.ErrInsufficientSpots, map[string]interface{}{"available": 0}),
	}
	handler := NewEnrollmentHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/enrollments", strings.NewReader(`{"course_id":"admin_course_1"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "client-1", Role: models.RoleClient})

	handler.Create(c)

	assert.Equal(t, appErrors.ErrInsufficientSpots.Status, rec.Code)
	var envelope struct {
		Error *appErrors.Error `json:"error"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, appErrors.ErrInsufficientSpots.Code, envelope.Error.Code)
}

func TestEnrollmentHandlerCancelForwardsCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeEnrollmentSrv{}
	handler := NewEnrollmentHandler(srv)

	// Routed through an engine so the 204 status, which gin writes
	// lazily, actually reaches the recorder.
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "client-1", Role: models.RoleClient})
		c.Next()
	})
	router.DELETE("/enrollments/:id", handler.Cancel)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/enrollments/enr-1", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "enr-1", srv.lastCancel.id)
	assert.Equal(t, "client-1", srv.lastCancel.user)
	assert.Equal(t, models.RoleClient, srv.lastCancel.role)
}
