package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/RendaniXcode/moneypro/src/dynamo"
	"github.com/RendaniXcode/moneypro/src/graphql"
	"github.com/RendaniXcode/moneypro/src/logger"
	"github.com/RendaniXcode/moneypro/src/models"
	"github.com/RendaniXcode/moneypro/src/normalizer"
	"github.com/RendaniXcode/moneypro/src/services"
	"github.com/RendaniXcode/moneypro/src/utils"
)

type ReportHandler struct {
	reportService services.ReportService
}

func NewReportHandler(service services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: service}
}

func reportIdentity(r *http.Request) (string, string, error) {
	companyID := r.URL.Query().Get("companyId")
	reportDate := r.URL.Query().Get("reportDate")
	if companyID == "" || reportDate == "" {
		return "", "", fmt.Errorf("companyId and reportDate query parameters are required")
	}
	return companyID, reportDate, nil
}

// sendReportError maps the error taxonomy to HTTP statuses. Anything that
// would render an incomplete or misleading report blocks with an explicit
// error instead of partially rendering.
func sendReportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrReportNotFound):
		utils.SendJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, normalizer.ErrMalformedReport):
		utils.SendJSONError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, dynamo.ErrMalformedNumber), errors.Is(err, dynamo.ErrMalformedValue):
		utils.SendJSONError(w, fmt.Sprintf("Upstream report data is corrupt: %v", err), http.StatusBadGateway)
	case errors.Is(err, graphql.ErrBackend):
		utils.SendJSONError(w, "The report backend is unavailable. Please try again later.", http.StatusBadGateway)
	default:
		utils.SendJSONError(w, "An internal error occurred while handling the report.", http.StatusInternalServerError)
	}
}

// HandleGetReport returns one normalized report with ETag support.
func (h *ReportHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	companyID, reportDate, err := reportIdentity(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.reportService.GetReport(r.Context(), companyID, reportDate)
	if err != nil {
		logger.L.Warn("Failed to get report", "companyId", companyID, "reportDate", reportDate, "error", err)
		sendReportError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-cache, private")
	if etag, etagErr := utils.GenerateETag(report); etagErr == nil && etag != "" {
		quoted := fmt.Sprintf("%q", etag)
		w.Header().Set("ETag", quoted)
		for _, clientETag := range strings.Split(r.Header.Get("If-None-Match"), ",") {
			if strings.TrimSpace(clientETag) == quoted {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}

	utils.SendJSON(w, report, http.StatusOK)
}

// HandleListReports returns one page of stored reports.
func (h *ReportHandler) HandleListReports(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := 0
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			utils.SendJSONError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	filter := models.ListFilter{
		CompanyID:    query.Get("companyId"),
		ReportStatus: query.Get("reportStatus"),
		Industry:     query.Get("industry"),
	}

	page, err := h.reportService.ListReports(r.Context(), filter, limit, query.Get("pageToken"))
	if err != nil {
		logger.L.Warn("Failed to list reports", "error", err)
		sendReportError(w, err)
		return
	}
	if page.Items == nil {
		page.Items = []models.StoredReport{}
	}
	utils.SendJSON(w, page, http.StatusOK)
}

// HandleListCompanies returns the company picker rows.
func (h *ReportHandler) HandleListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.reportService.ListCompanies(r.Context())
	if err != nil {
		logger.L.Warn("Failed to list companies", "error", err)
		sendReportError(w, err)
		return
	}
	if companies == nil {
		companies = []models.Company{}
	}
	utils.SendJSON(w, companies, http.StatusOK)
}

// HandleRatioSummary returns per-category ratio statistics for one report.
func (h *ReportHandler) HandleRatioSummary(w http.ResponseWriter, r *http.Request) {
	companyID, reportDate, err := reportIdentity(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	summary, err := h.reportService.RatioSummary(r.Context(), companyID, reportDate)
	if err != nil {
		logger.L.Warn("Failed to compute ratio summary", "companyId", companyID, "reportDate", reportDate, "error", err)
		sendReportError(w, err)
		return
	}
	utils.SendJSON(w, summary, http.StatusOK)
}

func (h *ReportHandler) decodeReportBody(r *http.Request) (*models.NormalizedFinancialReport, error) {
	var report models.NormalizedFinancialReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("invalid report payload: %w", err)
	}
	return &report, nil
}

// HandleCreateReport submits a new report.
func (h *ReportHandler) HandleCreateReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.decodeReportBody(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.reportService.CreateReport(r.Context(), report)
	if err != nil {
		logger.L.Warn("Failed to create report", "companyId", report.CompanyID, "error", err)
		sendReportError(w, err)
		return
	}
	utils.SendJSON(w, created, http.StatusCreated)
}

// HandleUpdateReport submits changes to an existing report.
func (h *ReportHandler) HandleUpdateReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.decodeReportBody(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.reportService.UpdateReport(r.Context(), report)
	if err != nil {
		logger.L.Warn("Failed to update report", "companyId", report.CompanyID, "error", err)
		sendReportError(w, err)
		return
	}
	utils.SendJSON(w, updated, http.StatusOK)
}

// HandleDeleteReport removes a report.
func (h *ReportHandler) HandleDeleteReport(w http.ResponseWriter, r *http.Request) {
	companyID, reportDate, err := reportIdentity(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.reportService.DeleteReport(r.Context(), companyID, reportDate); err != nil {
		logger.L.Warn("Failed to delete report", "companyId", companyID, "reportDate", reportDate, "error", err)
		sendReportError(w, err)
		return
	}
	utils.SendJSON(w, map[string]bool{"success": true}, http.StatusOK)
}
