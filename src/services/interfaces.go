package services

import (
	"context"
	"errors"
	"io"

	"github.com/RendaniXcode/moneypro/src/models"
	"github.com/RendaniXcode/moneypro/src/normalizer"
	"github.com/RendaniXcode/moneypro/src/upload"
)

var (
	ErrReportNotFound = errors.New("report not found")

	// ErrUploadFailed wraps validation and transfer failures surfaced per
	// file by ProcessUpload.
	ErrUploadFailed = errors.New("upload failed")
)

// Executor runs one named GraphQL operation against the report backend and
// decodes the payload under root into out. Injected so the core never
// reaches for a process-wide client.
type Executor interface {
	Execute(ctx context.Context, query string, variables map[string]any, root string, out any) error
}

// ReportService exposes the named report operations. Reads return normalized
// reports; writes accept them and denormalize for submission.
type ReportService interface {
	GetReport(ctx context.Context, companyID, reportDate string) (*models.NormalizedFinancialReport, error)
	ListReports(ctx context.Context, filter models.ListFilter, limit int, pageToken string) (*models.ReportPage, error)
	ListCompanies(ctx context.Context) ([]models.Company, error)
	CreateReport(ctx context.Context, report *models.NormalizedFinancialReport) (*models.NormalizedFinancialReport, error)
	UpdateReport(ctx context.Context, report *models.NormalizedFinancialReport) (*models.NormalizedFinancialReport, error)
	DeleteReport(ctx context.Context, companyID, reportDate string) error
	RatioSummary(ctx context.Context, companyID, reportDate string) ([]normalizer.CategorySummary, error)
}

// UploadService runs one file through the full upload lifecycle inside a
// session: validation, transfer, side-channel parse, remote processing.
type UploadService interface {
	ProcessUpload(ctx context.Context, session *upload.Session, name, mimeType string, sizeBytes int64, file io.ReadSeeker) (upload.FileItem, error)
}
