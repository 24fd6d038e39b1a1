package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/RendaniXcode/moneypro/src/logger"
	"github.com/RendaniXcode/moneypro/src/models"
	"github.com/RendaniXcode/moneypro/src/normalizer"
)

const (
	ckReport    = "report_%s_%s"
	ckCompanies = "companies"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

const getFinancialReportsQuery = `
query GetFinancialReports($companyId: String!, $reportDate: String!) {
  getFinancialReports(companyId: $companyId, reportDate: $reportDate) {
    companyId
    reportDate
    companyName
    creditDecision
    creditScore
    industry
    lastUpdated
    reportStatus
    financialRatios
    recommendations
  }
}`

const listFinancialReportsQuery = `
query ListFinancialReports($filter: TableFinancialReportsFilterInput, $limit: Int, $nextToken: String) {
  listFinancialReports(filter: $filter, limit: $limit, nextToken: $nextToken) {
    items {
      companyId
      reportDate
      companyName
      creditDecision
      creditScore
      industry
      lastUpdated
      reportStatus
      financialRatios
      recommendations
    }
    nextToken
  }
}`

const createFinancialReportsMutation = `
mutation CreateFinancialReports($input: CreateFinancialReportsInput!) {
  createFinancialReports(input: $input) {
    companyId
    reportDate
    companyName
    creditDecision
    creditScore
    industry
    lastUpdated
    reportStatus
    financialRatios
    recommendations
  }
}`

const updateFinancialReportsMutation = `
mutation UpdateFinancialReports($input: UpdateFinancialReportsInput!) {
  updateFinancialReports(input: $input) {
    companyId
    reportDate
    companyName
    creditDecision
    creditScore
    industry
    lastUpdated
    reportStatus
    financialRatios
    recommendations
  }
}`

const deleteFinancialReportsMutation = `
mutation DeleteFinancialReports($input: DeleteFinancialReportsInput!) {
  deleteFinancialReports(input: $input) {
    companyId
    reportDate
  }
}`

type reportServiceImpl struct {
	backend     Executor
	reportCache *cache.Cache
}

func NewReportService(backend Executor, reportCache *cache.Cache) ReportService {
	return &reportServiceImpl{
		backend:     backend,
		reportCache: reportCache,
	}
}

// GetReport fetches one stored report and normalizes it. A fetch failure is
// surfaced as an error; there is no silent fallback to sample data.
func (s *reportServiceImpl) GetReport(ctx context.Context, companyID, reportDate string) (*models.NormalizedFinancialReport, error) {
	cacheKey := fmt.Sprintf(ckReport, companyID, reportDate)
	if cached, found := s.reportCache.Get(cacheKey); found {
		logger.L.Debug("Cache hit for report", "companyId", companyID, "reportDate", reportDate)
		return cached.(*models.NormalizedFinancialReport), nil
	}

	var stored models.StoredReport
	variables := map[string]any{"companyId": companyID, "reportDate": reportDate}
	if err := s.backend.Execute(ctx, getFinancialReportsQuery, variables, "getFinancialReports", &stored); err != nil {
		return nil, fmt.Errorf("fetching report for company %s on %s: %w", companyID, reportDate, err)
	}
	if stored.CompanyID == "" {
		return nil, fmt.Errorf("%w: company %s on %s", ErrReportNotFound, companyID, reportDate)
	}

	report, err := normalizer.Normalize(normalizer.ParseStoredReport(stored))
	if err != nil {
		return nil, err
	}

	s.reportCache.Set(cacheKey, report, DefaultCacheExpiration)
	return report, nil
}

func (s *reportServiceImpl) ListReports(ctx context.Context, filter models.ListFilter, limit int, pageToken string) (*models.ReportPage, error) {
	variables := map[string]any{}
	if limit > 0 {
		variables["limit"] = limit
	}
	if pageToken != "" {
		variables["nextToken"] = pageToken
	}
	if f := listFilterVariables(filter); len(f) > 0 {
		variables["filter"] = f
	}

	var page struct {
		Items     []models.StoredReport `json:"items"`
		NextToken string                `json:"nextToken"`
	}
	if err := s.backend.Execute(ctx, listFinancialReportsQuery, variables, "listFinancialReports", &page); err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}

	return &models.ReportPage{Items: page.Items, PageToken: page.NextToken}, nil
}

// ListCompanies derives the company picker rows from the report listing,
// preserving the backend's ordering.
func (s *reportServiceImpl) ListCompanies(ctx context.Context) ([]models.Company, error) {
	if cached, found := s.reportCache.Get(ckCompanies); found {
		return cached.([]models.Company), nil
	}

	page, err := s.ListReports(ctx, models.ListFilter{}, 100, "")
	if err != nil {
		return nil, err
	}

	companies := make([]models.Company, 0, len(page.Items))
	for _, stored := range page.Items {
		name := stored.CompanyName
		if name == "" {
			name = "Unknown Company"
		}
		companies = append(companies, models.Company{
			ID:         stored.CompanyID,
			Name:       name,
			ReportDate: stored.ReportDate,
		})
	}

	s.reportCache.Set(ckCompanies, companies, DefaultCacheExpiration)
	return companies, nil
}

func (s *reportServiceImpl) CreateReport(ctx context.Context, report *models.NormalizedFinancialReport) (*models.NormalizedFinancialReport, error) {
	return s.submit(ctx, report, createFinancialReportsMutation, "createFinancialReports")
}

func (s *reportServiceImpl) UpdateReport(ctx context.Context, report *models.NormalizedFinancialReport) (*models.NormalizedFinancialReport, error) {
	return s.submit(ctx, report, updateFinancialReportsMutation, "updateFinancialReports")
}

func (s *reportServiceImpl) submit(ctx context.Context, report *models.NormalizedFinancialReport, mutation, root string) (*models.NormalizedFinancialReport, error) {
	input, err := normalizer.Denormalize(report)
	if err != nil {
		return nil, err
	}

	variables, err := inputVariables(input)
	if err != nil {
		return nil, err
	}

	var stored models.StoredReport
	if err := s.backend.Execute(ctx, mutation, map[string]any{"input": variables}, root, &stored); err != nil {
		return nil, fmt.Errorf("submitting report for company %s: %w", report.CompanyID, err)
	}

	s.invalidate(report.CompanyID, report.ReportDate)

	if stored.CompanyID == "" {
		// Some backends acknowledge without echoing the record.
		return report, nil
	}
	return normalizer.Normalize(normalizer.ParseStoredReport(stored))
}

func (s *reportServiceImpl) DeleteReport(ctx context.Context, companyID, reportDate string) error {
	input := map[string]any{"companyId": companyID, "reportDate": reportDate}
	if err := s.backend.Execute(ctx, deleteFinancialReportsMutation, map[string]any{"input": input}, "deleteFinancialReports", nil); err != nil {
		return fmt.Errorf("deleting report for company %s on %s: %w", companyID, reportDate, err)
	}
	s.invalidate(companyID, reportDate)
	return nil
}

// RatioSummary computes per-category statistics for one report.
func (s *reportServiceImpl) RatioSummary(ctx context.Context, companyID, reportDate string) ([]normalizer.CategorySummary, error) {
	report, err := s.GetReport(ctx, companyID, reportDate)
	if err != nil {
		return nil, err
	}
	return normalizer.Summarize(report.Ratios), nil
}

func (s *reportServiceImpl) invalidate(companyID, reportDate string) {
	s.reportCache.Delete(fmt.Sprintf(ckReport, companyID, reportDate))
	s.reportCache.Delete(ckCompanies)
	logger.L.Debug("Invalidated report caches", "companyId", companyID, "reportDate", reportDate)
}

// inputVariables flattens a submission payload into the variables map the
// backend schema expects, dropping empty optional fields.
func inputVariables(input models.ReportInput) (map[string]any, error) {
	encoded, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encoding report input: %w", err)
	}
	var variables map[string]any
	if err := json.Unmarshal(encoded, &variables); err != nil {
		return nil, fmt.Errorf("decoding report input: %w", err)
	}
	return variables, nil
}

func listFilterVariables(filter models.ListFilter) map[string]any {
	variables := map[string]any{}
	if filter.CompanyID != "" {
		variables["companyId"] = map[string]any{"eq": filter.CompanyID}
	}
	if filter.ReportStatus != "" {
		variables["reportStatus"] = map[string]any{"eq": filter.ReportStatus}
	}
	if filter.Industry != "" {
		variables["industry"] = map[string]any{"eq": filter.Industry}
	}
	return variables
}
