package models

import "github.com/RendaniXcode/moneypro/src/dynamo"

// RawFinancialReport is the wire shape of one report: a top-level tagged Map
// with scalar fields plus the three structured fields (financialRatios,
// performanceTrends, recommendations).
type RawFinancialReport struct {
	Root dynamo.Value
}

// Field names of the raw report's top-level map.
const (
	FieldCompanyID         = "companyId"
	FieldReportDate        = "reportDate"
	FieldCompanyName       = "companyName"
	FieldCreditDecision    = "creditDecision"
	FieldCreditScore       = "creditScore"
	FieldIndustry          = "industry"
	FieldLastUpdated       = "lastUpdated"
	FieldReportStatus      = "reportStatus"
	FieldFinancialRatios   = "financialRatios"
	FieldPerformanceTrends = "performanceTrends"
	FieldRecommendations   = "recommendations"
)

// RatioEntry is one flattened ratio row ready for display.
type RatioEntry struct {
	Name     string  `json:"name"`
	Key      string  `json:"key"`
	Value    float64 `json:"value"`
	Category string  `json:"category"`
}

// PerformanceTrend is one year of the revenue/profit/debt series.
type PerformanceTrend struct {
	Year    int     `json:"year"`
	Revenue float64 `json:"revenue"`
	Profit  float64 `json:"profit"`
	Debt    float64 `json:"debt"`
}

// NormalizedFinancialReport is the flat, typed application shape.
type NormalizedFinancialReport struct {
	CompanyID         string             `json:"companyId"`
	ReportDate        string             `json:"reportDate"`
	CompanyName       string             `json:"companyName"`
	CreditDecision    string             `json:"creditDecision"`
	CreditScore       int                `json:"creditScore"`
	Industry          string             `json:"industry"`
	LastUpdated       string             `json:"lastUpdated"`
	ReportStatus      string             `json:"reportStatus"`
	Ratios            []RatioEntry       `json:"ratios"`
	PerformanceTrends []PerformanceTrend `json:"performanceTrends"`
	Recommendations   []string           `json:"recommendations"`
}

// StoredReport is the flattened record the report backend returns: scalar
// fields as plain strings, compound fields as embedded serialized JSON
// documents rather than native structure.
type StoredReport struct {
	CompanyID         string `json:"companyId"`
	ReportDate        string `json:"reportDate"`
	CompanyName       string `json:"companyName,omitempty"`
	CreditDecision    string `json:"creditDecision,omitempty"`
	CreditScore       string `json:"creditScore,omitempty"`
	Industry          string `json:"industry,omitempty"`
	LastUpdated       string `json:"lastUpdated,omitempty"`
	ReportStatus      string `json:"reportStatus,omitempty"`
	FinancialRatios   string `json:"financialRatios,omitempty"`
	PerformanceTrends string `json:"performanceTrends,omitempty"`
	Recommendations   string `json:"recommendations,omitempty"`
}

// ReportInput is the submission payload for create and update operations.
// Same flattened layout as StoredReport; the ratio and trend substructures
// travel inside the FinancialRatios JSON blob.
type ReportInput struct {
	CompanyID       string `json:"companyId"`
	ReportDate      string `json:"reportDate"`
	CompanyName     string `json:"companyName,omitempty"`
	CreditDecision  string `json:"creditDecision,omitempty"`
	CreditScore     string `json:"creditScore,omitempty"`
	Industry        string `json:"industry,omitempty"`
	LastUpdated     string `json:"lastUpdated,omitempty"`
	ReportStatus    string `json:"reportStatus,omitempty"`
	FinancialRatios string `json:"financialRatios,omitempty"`
	Recommendations string `json:"recommendations,omitempty"`
}

// Company is the list-view row derived from stored reports.
type Company struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ReportDate string `json:"reportDate"`
}

// ReportPage is one page of a report listing.
type ReportPage struct {
	Items     []StoredReport `json:"items"`
	PageToken string         `json:"pageToken,omitempty"`
}

// ListFilter narrows a report listing.
type ListFilter struct {
	CompanyID    string `json:"companyId,omitempty"`
	ReportStatus string `json:"reportStatus,omitempty"`
	Industry     string `json:"industry,omitempty"`
}
