package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aquaflow/swimschool-api/internal/models"
	"github.com/aquaflow/swimschool-api/internal/service"
	appErrors "github.com/aquaflow/swimschool-api/pkg/errors"
	"github.com/aquaflow/swimschool-api/pkg/response"
)

// ReportHandler serves downloadable enrollment reports.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Enrollments godoc
// @Summary Download the enrollment roster
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Param courseId query string false "Filter by course"
// @Param status query string false "Filter by status"
// @Param from query string false "Enrolled on or after (YYYY-MM-DD)"
// @Param to query string false "Enrolled before (YYYY-MM-DD)"
// @Success 200 {file} binary
// @Router /reports/enrollments [get]
func (h *ReportHandler) Enrollments(c *gin.Context) {
	var filter models.EnrollmentFilter
	filter.CourseID = c.Query("courseId")
	filter.Status = models.EnrollmentStatus(c.Query("status"))

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD"))
			return
		}
		filter.From = &parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD"))
			return
		}
		filter.To = &parsed
	}

	format := service.ReportFormat(c.DefaultQuery("format", "csv"))
	file, err := h.reports.EnrollmentRoster(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
