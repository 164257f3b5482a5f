package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
	"github.com/noah-isme/grievance-api/pkg/export"
)

const (
	exportFormatCSV = "csv"
	exportFormatPDF = "pdf"
	exportRowLimit  = 5000
)

var exportHeaders = []string{
	"ID", "Title", "Citizen", "Category", "Officer", "Priority", "Status",
	"Escalation", "SLA", "Due Date", "Created At",
}

type csvRenderer interface {
	Render(table export.Table) ([]byte, error)
}

type pdfRenderer interface {
	Render(table export.Table) ([]byte, error)
}

// ExportResult is a rendered report ready to stream.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
	Rows        int
}

// ExportService renders the admin grievance report.
type ExportService struct {
	grievances grievanceLister
	csv        csvRenderer
	pdf        pdfRenderer
	validator  *validator.Validate
	warning    time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewExportService constructs an ExportService. warning is the SLA warning window.
func NewExportService(grievances grievanceLister, csv csvRenderer, pdf pdfRenderer, warning time.Duration, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if warning <= 0 {
		warning = 48 * time.Hour
	}
	return &ExportService{
		grievances: grievances,
		csv:        csv,
		pdf:        pdf,
		validator:  validate,
		warning:    warning,
		logger:     logger,
		now:        time.Now,
	}
}

// Grievances renders the filtered grievance list as CSV (default) or PDF.
func (s *ExportService) Grievances(ctx context.Context, query dto.ExportQuery) (*ExportResult, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export query")
	}
	if query.Format == "" {
		query.Format = exportFormatCSV
	}

	items, err := s.grievances.ListDetails(ctx, models.GrievanceFilter{
		Status:     models.GrievanceStatus(query.Status),
		CategoryID: query.CategoryID,
		Limit:      exportRowLimit,
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load grievances for export")
	}

	now := s.now().UTC()
	table := export.Table{Title: "Grievance Report", Headers: exportHeaders, Rows: make([][]string, 0, len(items))}
	for _, item := range items {
		table.Rows = append(table.Rows, []string{
			item.ID,
			item.Title,
			item.OwnerUsername,
			valueOr(item.CategoryName, "N/A"),
			valueOr(item.OfficerName, "Unassigned"),
			string(item.Priority),
			item.Status.Label(),
			strconv.Itoa(item.EscalationLevel),
			string(item.SLAStatusAt(now, s.warning)),
			item.DueDate.UTC().Format("2006-01-02 15:04"),
			item.CreatedAt.UTC().Format("2006-01-02 15:04"),
		})
	}

	var (
		payload     []byte
		contentType string
	)
	switch query.Format {
	case exportFormatPDF:
		payload, err = s.pdf.Render(table)
		contentType = "application/pdf"
	default:
		payload, err = s.csv.Render(table)
		contentType = "text/csv"
	}
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render export")
	}

	s.logger.Info("grievance export rendered", zap.String("format", query.Format), zap.Int("rows", len(table.Rows)))
	return &ExportResult{
		Filename:    fmt.Sprintf("grievances_%s.%s", now.Format("20060102_150405"), query.Format),
		ContentType: contentType,
		Payload:     payload,
		Rows:        len(table.Rows),
	}, nil
}

func valueOr(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}
