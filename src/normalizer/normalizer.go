package normalizer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/RendaniXcode/moneypro/src/dynamo"
	"github.com/RendaniXcode/moneypro/src/logger"
	"github.com/RendaniXcode/moneypro/src/models"
)

// ErrMalformedReport indicates a report missing a required identity field
// (companyId or reportDate). Everything else degrades to a default instead of
// failing the whole report.
var ErrMalformedReport = errors.New("malformed financial report")

func log() *slog.Logger {
	if logger.L != nil {
		return logger.L
	}
	return slog.Default()
}

// Normalize converts a raw tagged-value report into the flat application
// shape. Only a missing companyId or reportDate fails the report; optional
// scalars default, a malformed credit score degrades to 0, and unknown ratio
// keys are dropped.
func Normalize(raw models.RawFinancialReport) (*models.NormalizedFinancialReport, error) {
	root := raw.Root
	if root.Kind() != dynamo.KindMap {
		return nil, fmt.Errorf("%w: top-level value is not a map", ErrMalformedReport)
	}

	companyID := root.Field(models.FieldCompanyID).Str()
	if companyID == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedReport, models.FieldCompanyID)
	}
	reportDate := root.Field(models.FieldReportDate).Str()
	if reportDate == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedReport, models.FieldReportDate)
	}

	report := &models.NormalizedFinancialReport{
		CompanyID:      companyID,
		ReportDate:     reportDate,
		CompanyName:    stringOrDefault(root.Field(models.FieldCompanyName), "Unknown"),
		CreditDecision: stringOrDefault(root.Field(models.FieldCreditDecision), "PENDING"),
		CreditScore:    decodeCreditScore(companyID, root.Field(models.FieldCreditScore)),
		Industry:       stringOrDefault(root.Field(models.FieldIndustry), "Unknown"),
		LastUpdated:    stringOrDefault(root.Field(models.FieldLastUpdated), time.Now().UTC().Format(time.RFC3339)),
		ReportStatus:   stringOrDefault(root.Field(models.FieldReportStatus), "DRAFT"),
	}

	ratiosField := root.Field(models.FieldFinancialRatios)
	ratios, err := normalizeRatios(ratiosField)
	if err != nil {
		return nil, err
	}
	report.Ratios = ratios

	// Trends may arrive as a top-level field or nested inside the
	// financialRatios payload; top-level wins when both are present.
	trendsField := root.Field(models.FieldPerformanceTrends)
	if !trendsField.IsPresent() {
		trendsField = ratiosField.Field(models.FieldPerformanceTrends)
	}
	trends, err := normalizeTrends(trendsField)
	if err != nil {
		return nil, err
	}
	report.PerformanceTrends = trends

	report.Recommendations = normalizeRecommendations(root.Field(models.FieldRecommendations))

	return report, nil
}

func stringOrDefault(v dynamo.Value, fallback string) string {
	if s := v.Str(); s != "" {
		return s
	}
	return fallback
}

// decodeCreditScore is a deliberate leniency boundary: a malformed score must
// not block the rest of the report from rendering, so parse failures degrade
// to 0 with a log line instead of an error.
func decodeCreditScore(companyID string, v dynamo.Value) int {
	switch v.Kind() {
	case dynamo.KindNumber:
		score, err := v.Int()
		if err != nil {
			log().Warn("Malformed credit score, defaulting to 0", "companyId", companyID, "raw", v.Numeral())
			return 0
		}
		return score
	case dynamo.KindString:
		score, err := strconv.ParseFloat(v.Str(), 64)
		if err != nil {
			log().Warn("Malformed credit score, defaulting to 0", "companyId", companyID, "raw", v.Str())
			return 0
		}
		return int(score)
	default:
		return 0
	}
}

func normalizeRatios(ratiosField dynamo.Value) ([]models.RatioEntry, error) {
	entries := []models.RatioEntry{}
	for _, category := range RatioCategories {
		inner := ratiosField.Field(category)

		present := map[string]float64{}
		for wireKey, v := range inner.Fields() {
			if wireKey == models.FieldPerformanceTrends {
				continue // trend series embedded in the ratios payload
			}
			appKey, err := ToApplicationKey(category, wireKey)
			if err != nil {
				log().Debug("Dropping unknown ratio key", "category", category, "key", wireKey)
				continue
			}
			value, err := v.Float()
			if err != nil {
				return nil, fmt.Errorf("ratio %s.%s: %w", category, wireKey, err)
			}
			present[appKey] = value
		}

		display := CategoryDisplayName(category)
		for _, appKey := range knownRatioKeys[category] {
			entries = append(entries, models.RatioEntry{
				Name:     DisplayName(appKey),
				Key:      appKey,
				Value:    present[appKey], // known keys default to 0 when absent
				Category: display,
			})
		}
		for _, appKey := range optionalRatioKeys[category] {
			value, ok := present[appKey]
			if !ok {
				continue // optional keys are omitted, not zeroed
			}
			entries = append(entries, models.RatioEntry{
				Name:     DisplayName(appKey),
				Key:      appKey,
				Value:    value,
				Category: display,
			})
		}
	}
	return entries, nil
}

func normalizeTrends(trendsField dynamo.Value) ([]models.PerformanceTrend, error) {
	trends := []models.PerformanceTrend{}
	for i, item := range trendsField.Items() {
		var trend models.PerformanceTrend
		for name, v := range item.Fields() {
			value, err := v.Float()
			if err != nil {
				return nil, fmt.Errorf("performance trend %d field %s: %w", i, name, err)
			}
			switch name {
			case "year":
				trend.Year = int(value)
			case "revenue":
				trend.Revenue = value
			case "profit":
				trend.Profit = value
			case "debt":
				trend.Debt = value
			}
		}
		trends = append(trends, trend)
	}
	sort.SliceStable(trends, func(i, j int) bool { return trends[i].Year < trends[j].Year })
	return trends, nil
}

func normalizeRecommendations(recsField dynamo.Value) []string {
	recs := []string{}
	for _, item := range recsField.Items() {
		if s := item.Str(); s != "" {
			recs = append(recs, s)
		}
	}
	return recs
}

// Denormalize re-wraps a flat report into the submission payload: scalar
// fields as plain strings, the ratio categories re-nested under their
// lowercase wire keys and serialized (together with the trend series) as a
// JSON text blob, recommendations as a second blob. The backend schema
// stores these compound fields as embedded serialized documents.
func Denormalize(report *models.NormalizedFinancialReport) (models.ReportInput, error) {
	if report.CompanyID == "" || report.ReportDate == "" {
		return models.ReportInput{}, fmt.Errorf("%w: missing company identity", ErrMalformedReport)
	}

	ratiosDoc := map[string]any{}
	for _, entry := range report.Ratios {
		category, ok := categoryKeyForDisplay(entry.Category)
		if !ok {
			log().Debug("Dropping ratio with unknown category on submit", "category", entry.Category, "key", entry.Key)
			continue
		}
		wireKey, err := ToWireKey(category, entry.Key)
		if err != nil {
			log().Debug("Dropping unmapped ratio key on submit", "category", category, "key", entry.Key)
			continue
		}
		inner, _ := ratiosDoc[category].(map[string]any)
		if inner == nil {
			inner = map[string]any{}
			ratiosDoc[category] = inner
		}
		inner[wireKey] = json.Number(dynamo.FormatNumber(entry.Value))
	}
	if len(report.PerformanceTrends) > 0 {
		ratiosDoc[models.FieldPerformanceTrends] = report.PerformanceTrends
	}

	ratiosJSON, err := json.Marshal(ratiosDoc)
	if err != nil {
		return models.ReportInput{}, fmt.Errorf("serializing financial ratios: %w", err)
	}

	input := models.ReportInput{
		CompanyID:       report.CompanyID,
		ReportDate:      report.ReportDate,
		CompanyName:     report.CompanyName,
		CreditDecision:  report.CreditDecision,
		CreditScore:     strconv.Itoa(report.CreditScore),
		Industry:        report.Industry,
		LastUpdated:     report.LastUpdated,
		ReportStatus:    report.ReportStatus,
		FinancialRatios: string(ratiosJSON),
	}

	if len(report.Recommendations) > 0 {
		recsJSON, err := json.Marshal(report.Recommendations)
		if err != nil {
			return models.ReportInput{}, fmt.Errorf("serializing recommendations: %w", err)
		}
		input.Recommendations = string(recsJSON)
	}

	return input, nil
}

func categoryKeyForDisplay(display string) (string, bool) {
	for _, category := range RatioCategories {
		if CategoryDisplayName(category) == display {
			return category, true
		}
	}
	return "", false
}

// ParseStoredReport converts the backend's flattened record, whose compound
// fields are embedded JSON documents, into the tagged-value wire shape so
// both wire forms funnel through Normalize. Unparseable blobs are logged and
// left absent; Normalize then applies its defaults.
func ParseStoredReport(stored models.StoredReport) models.RawFinancialReport {
	fields := map[string]dynamo.Value{}

	setStr := func(name, value string) {
		if value != "" {
			fields[name] = dynamo.String(value)
		}
	}
	setStr(models.FieldCompanyID, stored.CompanyID)
	setStr(models.FieldReportDate, stored.ReportDate)
	setStr(models.FieldCompanyName, stored.CompanyName)
	setStr(models.FieldCreditDecision, stored.CreditDecision)
	setStr(models.FieldIndustry, stored.Industry)
	setStr(models.FieldLastUpdated, stored.LastUpdated)
	setStr(models.FieldReportStatus, stored.ReportStatus)

	if stored.CreditScore != "" {
		// The stored schema keeps the score as a string; carry it as a
		// numeral so Normalize applies its lenient parse.
		fields[models.FieldCreditScore] = dynamo.NumberString(stored.CreditScore)
	}

	if v, ok := decodeEmbeddedDoc(stored.CompanyID, models.FieldFinancialRatios, stored.FinancialRatios); ok {
		fields[models.FieldFinancialRatios] = v
	}
	if v, ok := decodeEmbeddedDoc(stored.CompanyID, models.FieldPerformanceTrends, stored.PerformanceTrends); ok {
		fields[models.FieldPerformanceTrends] = v
	}
	if v, ok := decodeEmbeddedDoc(stored.CompanyID, models.FieldRecommendations, stored.Recommendations); ok {
		fields[models.FieldRecommendations] = v
	}

	return models.RawFinancialReport{Root: dynamo.Map(fields)}
}

func decodeEmbeddedDoc(companyID, name, doc string) (dynamo.Value, bool) {
	if doc == "" {
		return dynamo.Value{}, false
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(doc)))
	dec.UseNumber() // keep numerals textually exact through re-encoding
	var native any
	if err := dec.Decode(&native); err != nil {
		log().Error("Failed to parse embedded report document", "companyId", companyID, "field", name, "error", err)
		return dynamo.Value{}, false
	}
	v, err := dynamo.Encode(native)
	if err != nil {
		log().Error("Failed to encode embedded report document", "companyId", companyID, "field", name, "error", err)
		return dynamo.Value{}, false
	}
	return v, true
}
