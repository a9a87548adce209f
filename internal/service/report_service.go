package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aquaflow/swimschool-api/internal/models"
	appErrors "github.com/aquaflow/swimschool-api/pkg/errors"
	"github.com/aquaflow/swimschool-api/pkg/export"
)

// ReportFormat selects the rendering backend for a report.
type ReportFormat string

// Supported report output formats.
const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportFile is a rendered report ready for download.
type ReportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type reportEnrollmentLister interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
}

// ReportService renders enrollment rosters for download.
type ReportService struct {
	enrollments reportEnrollmentLister
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewReportService constructs the report service.
func NewReportService(enrollments reportEnrollmentLister, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		enrollments: enrollments,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

// EnrollmentRoster renders the enrollment list matching the filter.
func (s *ReportService) EnrollmentRoster(ctx context.Context, filter models.EnrollmentFilter, format ReportFormat) (*ReportFile, error) {
	filter.Page = 1
	if filter.PageSize <= 0 {
		filter.PageSize = 100
	}

	var rows []map[string]string
	for {
		page, total, err := s.enrollments.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments for report")
		}
		for _, e := range page {
			rows = append(rows, rosterRow(e))
		}
		if len(rows) >= total || len(page) == 0 {
			break
		}
		filter.Page++
	}

	dataset := export.Dataset{
		Headers: []string{"Enrollment ID", "Course", "Client", "Slot", "Students", "Lessons", "Price", "Status", "Enrolled At"},
		Rows:    rows,
	}

	switch format {
	case ReportFormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv report")
		}
		return &ReportFile{
			Filename:    reportFilename("enrollments", "csv"),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case ReportFormatPDF:
		data, err := s.pdf.Render(dataset, "Enrollment Roster")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
		}
		return &ReportFile{
			Filename:    reportFilename("enrollments", "pdf"),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
}

func rosterRow(e models.EnrollmentDetail) map[string]string {
	slot := ""
	if e.HasSlot() {
		slot = e.ScheduleStart + "-" + e.ScheduleEnd
	}
	return map[string]string{
		"Enrollment ID": e.ID,
		"Course":        e.CourseName,
		"Client":        e.ClientName,
		"Slot":          slot,
		"Students":      strconv.Itoa(e.StudentCount),
		"Lessons":       strconv.Itoa(e.SelectedLessonCount),
		"Price":         fmt.Sprintf("%.2f", e.Price),
		"Status":        string(e.Status),
		"Enrolled At":   e.EnrollmentDate.UTC().Format(time.RFC3339),
	}
}

func reportFilename(prefix, ext string) string {
	stamp := time.Now().UTC().Format("20060102-150405")
	return strings.Join([]string{prefix, stamp}, "-") + "." + ext
}
