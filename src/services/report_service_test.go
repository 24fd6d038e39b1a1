package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RendaniXcode/moneypro/src/models"
	"github.com/RendaniXcode/moneypro/src/normalizer"
	"github.com/RendaniXcode/moneypro/src/services"
)

// fakeExecutor replays canned payloads per operation root and records every
// call for assertion.
type fakeExecutor struct {
	payloads map[string]any   // root -> payload to decode into out
	errs     map[string]error // root -> forced error
	calls    []fakeCall
}

type fakeCall struct {
	root      string
	variables map[string]any
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{payloads: map[string]any{}, errs: map[string]error{}}
}

func (f *fakeExecutor) Execute(ctx context.Context, query string, variables map[string]any, root string, out any) error {
	f.calls = append(f.calls, fakeCall{root: root, variables: variables})
	if err := f.errs[root]; err != nil {
		return err
	}
	payload, ok := f.payloads[root]
	if !ok || out == nil {
		return nil
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, out)
}

func (f *fakeExecutor) callCount(root string) int {
	n := 0
	for _, call := range f.calls {
		if call.root == root {
			n++
		}
	}
	return n
}

func newTestReportService(backend services.Executor) services.ReportService {
	return services.NewReportService(backend, cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval))
}

func storedFixture() models.StoredReport {
	return models.StoredReport{
		CompanyID:       "MULTICHOICE-001",
		ReportDate:      "2024-03-31",
		CompanyName:     "MultiChoice Group",
		CreditDecision:  "APPROVED",
		CreditScore:     "82",
		Industry:        "Media",
		LastUpdated:     "2024-04-01T10:00:00Z",
		ReportStatus:    "PUBLISHED",
		FinancialRatios: `{"liquidityRatios":{"currentratio":1.85,"quickratio":1.42,"cashratio":0.68}}`,
		Recommendations: `["Maintain current liquidity levels"]`,
	}
}

func TestGetReportNormalizesStoredRecord(t *testing.T) {
	backend := newFakeExecutor()
	backend.payloads["getFinancialReports"] = storedFixture()
	svc := newTestReportService(backend)

	report, err := svc.GetReport(context.Background(), "MULTICHOICE-001", "2024-03-31")
	require.NoError(t, err)

	assert.Equal(t, "MultiChoice Group", report.CompanyName)
	assert.Equal(t, 82, report.CreditScore)
	assert.Equal(t, []string{"Maintain current liquidity levels"}, report.Recommendations)

	// The stored record's lowercase ratio keys came back camelCased.
	var current, cash *models.RatioEntry
	for i := range report.Ratios {
		switch report.Ratios[i].Key {
		case "currentRatio":
			current = &report.Ratios[i]
		case "cashRatio":
			cash = &report.Ratios[i]
		}
	}
	require.NotNil(t, current)
	assert.Equal(t, 1.85, current.Value)
	assert.Equal(t, "Current Ratio", current.Name)
	require.NotNil(t, cash)
	assert.Equal(t, 0.68, cash.Value)

	require.Len(t, backend.calls, 1)
	assert.Equal(t, "MULTICHOICE-001", backend.calls[0].variables["companyId"])
}

func TestGetReportCachesResult(t *testing.T) {
	backend := newFakeExecutor()
	backend.payloads["getFinancialReports"] = storedFixture()
	svc := newTestReportService(backend)

	first, err := svc.GetReport(context.Background(), "MULTICHOICE-001", "2024-03-31")
	require.NoError(t, err)
	second, err := svc.GetReport(context.Background(), "MULTICHOICE-001", "2024-03-31")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, backend.callCount("getFinancialReports"))
}

func TestGetReportNotFound(t *testing.T) {
	backend := newFakeExecutor() // backend returns an empty record
	svc := newTestReportService(backend)

	_, err := svc.GetReport(context.Background(), "NOBODY-999", "2024-03-31")
	require.ErrorIs(t, err, services.ErrReportNotFound)
}

func TestGetReportBackendError(t *testing.T) {
	backend := newFakeExecutor()
	boom := errors.New("backend unreachable")
	backend.errs["getFinancialReports"] = boom
	svc := newTestReportService(backend)

	_, err := svc.GetReport(context.Background(), "MULTICHOICE-001", "2024-03-31")
	require.ErrorIs(t, err, boom)
}

func TestGetReportMalformedStoredRecord(t *testing.T) {
	stored := storedFixture()
	stored.ReportDate = ""
	backend := newFakeExecutor()
	backend.payloads["getFinancialReports"] = stored
	svc := newTestReportService(backend)

	_, err := svc.GetReport(context.Background(), "MULTICHOICE-001", "2024-03-31")
	require.ErrorIs(t, err, normalizer.ErrMalformedReport)
}

func TestListReportsVariables(t *testing.T) {
	backend := newFakeExecutor()
	backend.payloads["listFinancialReports"] = map[string]any{
		"items":     []models.StoredReport{storedFixture()},
		"nextToken": "token-2",
	}
	svc := newTestReportService(backend)

	page, err := svc.ListReports(context.Background(), models.ListFilter{ReportStatus: "PUBLISHED"}, 25, "token-1")
	require.NoError(t, err)

	require.Len(t, page.Items, 1)
	assert.Equal(t, "token-2", page.PageToken)

	require.Len(t, backend.calls, 1)
	variables := backend.calls[0].variables
	assert.Equal(t, 25, variables["limit"])
	assert.Equal(t, "token-1", variables["nextToken"])
	filter, ok := variables["filter"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"eq": "PUBLISHED"}, filter["reportStatus"])
}

func TestListReportsNoFilterOmitsVariables(t *testing.T) {
	backend := newFakeExecutor()
	svc := newTestReportService(backend)

	_, err := svc.ListReports(context.Background(), models.ListFilter{}, 0, "")
	require.NoError(t, err)

	variables := backend.calls[0].variables
	assert.NotContains(t, variables, "limit")
	assert.NotContains(t, variables, "nextToken")
	assert.NotContains(t, variables, "filter")
}

func TestListCompaniesPreservesOrderAndDefaultsName(t *testing.T) {
	backend := newFakeExecutor()
	backend.payloads["listFinancialReports"] = map[string]any{
		"items": []models.StoredReport{
			{CompanyID: "ALPHA-001", CompanyName: "Alpha Ltd", ReportDate: "2024-01-31"},
			{CompanyID: "BRAVO-002", ReportDate: "2024-02-29"},
			{CompanyID: "CHARLIE-003", CompanyName: "Charlie PLC", ReportDate: "2024-03-31"},
		},
	}
	svc := newTestReportService(backend)

	companies, err := svc.ListCompanies(context.Background())
	require.NoError(t, err)

	require.Len(t, companies, 3)
	assert.Equal(t, "ALPHA-001", companies[0].ID)
	assert.Equal(t, "BRAVO-002", companies[1].ID)
	assert.Equal(t, "CHARLIE-003", companies[2].ID)
	assert.Equal(t, "Unknown Company", companies[1].Name)

	// Second call is served from cache.
	_, err = svc.ListCompanies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, backend.callCount("listFinancialReports"))
}

func normalizedFixture(t *testing.T) *models.NormalizedFinancialReport {
	t.Helper()
	report, err := normalizer.Normalize(normalizer.ParseStoredReport(storedFixture()))
	require.NoError(t, err)
	return report
}

func TestCreateReportSubmitsInput(t *testing.T) {
	backend := newFakeExecutor()
	backend.payloads["createFinancialReports"] = storedFixture()
	svc := newTestReportService(backend)

	created, err := svc.CreateReport(context.Background(), normalizedFixture(t))
	require.NoError(t, err)
	assert.Equal(t, "MULTICHOICE-001", created.CompanyID)

	require.Len(t, backend.calls, 1)
	input, ok := backend.calls[0].variables["input"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "MULTICHOICE-001", input["companyId"])
	assert.Equal(t, "82", input["creditScore"])
	ratiosBlob, ok := input["financialRatios"].(string)
	require.True(t, ok)
	assert.Contains(t, ratiosBlob, "currentratio")
}

func TestCreateReportAcknowledgedWithoutEcho(t *testing.T) {
	backend := newFakeExecutor() // no payload: backend acknowledges silently
	svc := newTestReportService(backend)

	submitted := normalizedFixture(t)
	created, err := svc.CreateReport(context.Background(), submitted)
	require.NoError(t, err)
	assert.Same(t, submitted, created)
}

func TestUpdateReportInvalidatesCache(t *testing.T) {
	backend := newFakeExecutor()
	backend.payloads["getFinancialReports"] = storedFixture()
	backend.payloads["updateFinancialReports"] = storedFixture()
	svc := newTestReportService(backend)

	// Prime the report cache, then update and re-fetch.
	report, err := svc.GetReport(context.Background(), "MULTICHOICE-001", "2024-03-31")
	require.NoError(t, err)
	_, err = svc.UpdateReport(context.Background(), report)
	require.NoError(t, err)
	_, err = svc.GetReport(context.Background(), "MULTICHOICE-001", "2024-03-31")
	require.NoError(t, err)

	assert.Equal(t, 2, backend.callCount("getFinancialReports"), "update must drop the cached report")
}

func TestDeleteReportInvalidatesCompanies(t *testing.T) {
	backend := newFakeExecutor()
	backend.payloads["listFinancialReports"] = map[string]any{
		"items": []models.StoredReport{storedFixture()},
	}
	svc := newTestReportService(backend)

	_, err := svc.ListCompanies(context.Background())
	require.NoError(t, err)
	require.NoError(t, svc.DeleteReport(context.Background(), "MULTICHOICE-001", "2024-03-31"))
	_, err = svc.ListCompanies(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, backend.callCount("listFinancialReports"), "delete must drop the company cache")

	var deleted *fakeCall
	for i := range backend.calls {
		if backend.calls[i].root == "deleteFinancialReports" {
			deleted = &backend.calls[i]
		}
	}
	require.NotNil(t, deleted)
	input, ok := deleted.variables["input"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "MULTICHOICE-001", input["companyId"])
}

func TestRatioSummary(t *testing.T) {
	backend := newFakeExecutor()
	backend.payloads["getFinancialReports"] = storedFixture()
	svc := newTestReportService(backend)

	summaries, err := svc.RatioSummary(context.Background(), "MULTICHOICE-001", "2024-03-31")
	require.NoError(t, err)
	require.NotEmpty(t, summaries)

	assert.Equal(t, "Liquidity Ratios", summaries[0].Category)
	assert.Equal(t, 3, summaries[0].Count, "currentRatio, quickRatio and the present cashRatio")
	assert.Equal(t, 1.85, summaries[0].Max)
	assert.Equal(t, 0.68, summaries[0].Min)
}
