package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/aquaflow/swimschool-api/internal/models"
)

type auditSink struct {
	entries []*models.AuditLog
}

func (s *auditSink) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	s.entries = append(s.entries, log)
	return nil
}

func TestAuditRecordsSuccessfulAction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sink := &auditSink{}

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
		c.Next()
	})
	router.DELETE("/courses/:id", Audit(sink, "course.delete", "courses"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/courses/course-1", nil)
	router.ServeHTTP(recorder, req)

	if len(sink.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(sink.entries))
	}
	entry := sink.entries[0]
	if entry.Action != "course.delete" || entry.Resource != "courses" {
		t.Fatalf("unexpected entry: %s %s", entry.Action, entry.Resource)
	}
	if entry.UserID == nil || *entry.UserID != "admin-1" {
		t.Fatalf("expected user admin-1, got %v", entry.UserID)
	}
	if entry.ResourceID == nil || *entry.ResourceID != "course-1" {
		t.Fatalf("expected resource id course-1, got %v", entry.ResourceID)
	}
}

func TestAuditSkipsFailedRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sink := &auditSink{}

	router := gin.New()
	router.POST("/courses", Audit(sink, "course.create", "courses"), func(c *gin.Context) {
		c.Status(http.StatusBadRequest)
	})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/courses", nil)
	router.ServeHTTP(recorder, req)

	if len(sink.entries) != 0 {
		t.Fatalf("expected no audit entries, got %d", len(sink.entries))
	}
}

func TestResponseMetaCarriesCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var meta map[string]interface{}
	router := gin.New()
	router.Use(ResponseMeta())
	router.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if meta == nil {
		t.Fatal("expected response meta")
	}
	if hit, ok := meta["cache_hit"].(bool); !ok || !hit {
		t.Fatalf("expected cache_hit true, got %v", meta["cache_hit"])
	}
	if _, ok := meta["elapsed_ms"]; !ok {
		t.Fatal("expected elapsed_ms in meta")
	}
}
