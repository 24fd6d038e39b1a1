package normalizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RendaniXcode/moneypro/src/dynamo"
	"github.com/RendaniXcode/moneypro/src/models"
	"github.com/RendaniXcode/moneypro/src/normalizer"
)

func baseRawReport(extra map[string]dynamo.Value) models.RawFinancialReport {
	fields := map[string]dynamo.Value{
		models.FieldCompanyID:  dynamo.String("MULTICHOICE-001"),
		models.FieldReportDate: dynamo.String("2024-03-31"),
	}
	for k, v := range extra {
		fields[k] = v
	}
	return models.RawFinancialReport{Root: dynamo.Map(fields)}
}

func ratioEntry(t *testing.T, report *models.NormalizedFinancialReport, key string) (models.RatioEntry, bool) {
	t.Helper()
	for _, entry := range report.Ratios {
		if entry.Key == key {
			return entry, true
		}
	}
	return models.RatioEntry{}, false
}

func TestNormalizeRequiresIdentity(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]dynamo.Value
	}{
		{"missing companyId", map[string]dynamo.Value{
			models.FieldReportDate: dynamo.String("2024-03-31"),
		}},
		{"missing reportDate", map[string]dynamo.Value{
			models.FieldCompanyID: dynamo.String("MULTICHOICE-001"),
		}},
		{"empty map", map[string]dynamo.Value{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := normalizer.Normalize(models.RawFinancialReport{Root: dynamo.Map(tt.fields)})
			require.ErrorIs(t, err, normalizer.ErrMalformedReport)
		})
	}

	t.Run("non-map root", func(t *testing.T) {
		_, err := normalizer.Normalize(models.RawFinancialReport{Root: dynamo.String("nope")})
		require.ErrorIs(t, err, normalizer.ErrMalformedReport)
	})
}

func TestNormalizeScalarDefaults(t *testing.T) {
	report, err := normalizer.Normalize(baseRawReport(nil))
	require.NoError(t, err)

	assert.Equal(t, "MULTICHOICE-001", report.CompanyID)
	assert.Equal(t, "2024-03-31", report.ReportDate)
	assert.Equal(t, "Unknown", report.CompanyName)
	assert.Equal(t, "PENDING", report.CreditDecision)
	assert.Equal(t, 0, report.CreditScore)
	assert.Equal(t, "Unknown", report.Industry)
	assert.Equal(t, "DRAFT", report.ReportStatus)
	assert.NotEmpty(t, report.LastUpdated)
	assert.Empty(t, report.PerformanceTrends)
	assert.NotNil(t, report.Recommendations)
	assert.Empty(t, report.Recommendations)
}

func TestNormalizeCreditScore(t *testing.T) {
	tests := []struct {
		name  string
		value dynamo.Value
		want  int
	}{
		{"numeric tag", dynamo.NumberString("82"), 82},
		{"string tag", dynamo.String("82"), 82},
		{"decimal truncated", dynamo.NumberString("82.7"), 82},
		{"malformed numeral degrades to zero", dynamo.NumberString("eighty-two"), 0},
		{"malformed string degrades to zero", dynamo.String("n/a"), 0},
		{"absent", dynamo.Value{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := baseRawReport(map[string]dynamo.Value{
				models.FieldCreditScore: tt.value,
			})
			report, err := normalizer.Normalize(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, report.CreditScore)
		})
	}
}

func TestNormalizeRatioCategories(t *testing.T) {
	raw := baseRawReport(map[string]dynamo.Value{
		models.FieldFinancialRatios: dynamo.Map(map[string]dynamo.Value{
			"liquidityRatios": dynamo.Map(map[string]dynamo.Value{
				"currentratio": dynamo.NumberString("1.85"),
				"quickratio":   dynamo.NumberString("1.42"),
			}),
		}),
	})
	report, err := normalizer.Normalize(raw)
	require.NoError(t, err)

	current, ok := ratioEntry(t, report, "currentRatio")
	require.True(t, ok)
	assert.Equal(t, "Current Ratio", current.Name)
	assert.Equal(t, 1.85, current.Value)
	assert.Equal(t, "Liquidity Ratios", current.Category)

	quick, ok := ratioEntry(t, report, "quickRatio")
	require.True(t, ok)
	assert.Equal(t, 1.42, quick.Value)

	// Known keys of categories that never arrived still appear, zeroed.
	pe, ok := ratioEntry(t, report, "priceToEarnings")
	require.True(t, ok)
	assert.Equal(t, 0.0, pe.Value)
	assert.Equal(t, "Market Value Ratios", pe.Category)

	// Optional keys that never arrived are omitted entirely.
	_, ok = ratioEntry(t, report, "cashRatio")
	assert.False(t, ok)
	_, ok = ratioEntry(t, report, "dividendYield")
	assert.False(t, ok)
}

func TestNormalizeOptionalRatioPresent(t *testing.T) {
	raw := baseRawReport(map[string]dynamo.Value{
		models.FieldFinancialRatios: dynamo.Map(map[string]dynamo.Value{
			"liquidityRatios": dynamo.Map(map[string]dynamo.Value{
				"cashratio": dynamo.NumberString("0.68"),
			}),
		}),
	})
	report, err := normalizer.Normalize(raw)
	require.NoError(t, err)

	cash, ok := ratioEntry(t, report, "cashRatio")
	require.True(t, ok)
	assert.Equal(t, 0.68, cash.Value)
	assert.Equal(t, "Liquidity Ratios", cash.Category)
}

func TestNormalizeDropsUnknownRatioKeys(t *testing.T) {
	raw := baseRawReport(map[string]dynamo.Value{
		models.FieldFinancialRatios: dynamo.Map(map[string]dynamo.Value{
			"liquidityRatios": dynamo.Map(map[string]dynamo.Value{
				"currentratio":    dynamo.NumberString("1.85"),
				"futuristicratio": dynamo.NumberString("9.99"),
			}),
		}),
	})
	report, err := normalizer.Normalize(raw)
	require.NoError(t, err)

	for _, entry := range report.Ratios {
		assert.NotEqual(t, "futuristicratio", entry.Key)
	}
	current, ok := ratioEntry(t, report, "currentRatio")
	require.True(t, ok)
	assert.Equal(t, 1.85, current.Value)
}

func TestNormalizeMalformedRatioValueFails(t *testing.T) {
	raw := baseRawReport(map[string]dynamo.Value{
		models.FieldFinancialRatios: dynamo.Map(map[string]dynamo.Value{
			"liquidityRatios": dynamo.Map(map[string]dynamo.Value{
				"currentratio": dynamo.NumberString("not-a-number"),
			}),
		}),
	})
	_, err := normalizer.Normalize(raw)
	require.ErrorIs(t, err, dynamo.ErrMalformedNumber)
}

func trendValue(year int, revenue, profit, debt string) dynamo.Value {
	return dynamo.Map(map[string]dynamo.Value{
		"year":    dynamo.Number(float64(year)),
		"revenue": dynamo.NumberString(revenue),
		"profit":  dynamo.NumberString(profit),
		"debt":    dynamo.NumberString(debt),
	})
}

func TestNormalizeTrendsSortedByYear(t *testing.T) {
	raw := baseRawReport(map[string]dynamo.Value{
		models.FieldPerformanceTrends: dynamo.List(
			trendValue(2023, "320", "45", "120"),
			trendValue(2021, "280", "30", "140"),
			trendValue(2022, "300", "38", "130"),
		),
	})
	report, err := normalizer.Normalize(raw)
	require.NoError(t, err)

	require.Len(t, report.PerformanceTrends, 3)
	assert.Equal(t, 2021, report.PerformanceTrends[0].Year)
	assert.Equal(t, 2022, report.PerformanceTrends[1].Year)
	assert.Equal(t, 2023, report.PerformanceTrends[2].Year)
	assert.Equal(t, 280.0, report.PerformanceTrends[0].Revenue)
	assert.Equal(t, 38.0, report.PerformanceTrends[1].Profit)
	assert.Equal(t, 120.0, report.PerformanceTrends[2].Debt)
}

func TestNormalizeTrendsNestedInRatios(t *testing.T) {
	raw := baseRawReport(map[string]dynamo.Value{
		models.FieldFinancialRatios: dynamo.Map(map[string]dynamo.Value{
			"liquidityRatios": dynamo.Map(map[string]dynamo.Value{
				"currentratio": dynamo.NumberString("1.85"),
			}),
			models.FieldPerformanceTrends: dynamo.List(
				trendValue(2022, "300", "38", "130"),
			),
		}),
	})
	report, err := normalizer.Normalize(raw)
	require.NoError(t, err)

	require.Len(t, report.PerformanceTrends, 1)
	assert.Equal(t, 2022, report.PerformanceTrends[0].Year)

	// The embedded series must not leak into the ratio entries.
	for _, entry := range report.Ratios {
		assert.NotEqual(t, models.FieldPerformanceTrends, entry.Key)
	}
}

func TestNormalizeTopLevelTrendsWin(t *testing.T) {
	raw := baseRawReport(map[string]dynamo.Value{
		models.FieldPerformanceTrends: dynamo.List(
			trendValue(2023, "320", "45", "120"),
		),
		models.FieldFinancialRatios: dynamo.Map(map[string]dynamo.Value{
			models.FieldPerformanceTrends: dynamo.List(
				trendValue(2020, "250", "20", "160"),
			),
		}),
	})
	report, err := normalizer.Normalize(raw)
	require.NoError(t, err)

	require.Len(t, report.PerformanceTrends, 1)
	assert.Equal(t, 2023, report.PerformanceTrends[0].Year)
}

func TestNormalizeRecommendations(t *testing.T) {
	raw := baseRawReport(map[string]dynamo.Value{
		models.FieldRecommendations: dynamo.List(
			dynamo.String("Reduce short-term debt"),
			dynamo.String(""),
			dynamo.String("Improve inventory turnover"),
		),
	})
	report, err := normalizer.Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"Reduce short-term debt", "Improve inventory turnover"}, report.Recommendations)
}

func TestDenormalizeRequiresIdentity(t *testing.T) {
	_, err := normalizer.Denormalize(&models.NormalizedFinancialReport{ReportDate: "2024-03-31"})
	require.ErrorIs(t, err, normalizer.ErrMalformedReport)
}

func TestRoundTripThroughStoredRecord(t *testing.T) {
	raw := baseRawReport(map[string]dynamo.Value{
		models.FieldCompanyName:    dynamo.String("MultiChoice Group"),
		models.FieldCreditDecision: dynamo.String("APPROVED"),
		models.FieldCreditScore:    dynamo.NumberString("82"),
		models.FieldIndustry:       dynamo.String("Media"),
		models.FieldLastUpdated:    dynamo.String("2024-04-01T10:00:00Z"),
		models.FieldReportStatus:   dynamo.String("PUBLISHED"),
		models.FieldFinancialRatios: dynamo.Map(map[string]dynamo.Value{
			"liquidityRatios": dynamo.Map(map[string]dynamo.Value{
				"currentratio": dynamo.NumberString("1.85"),
				"quickratio":   dynamo.NumberString("1.42"),
				"cashratio":    dynamo.NumberString("0.68"),
			}),
			"profitabilityRatios": dynamo.Map(map[string]dynamo.Value{
				"grossprofitmargin": dynamo.NumberString("42.5"),
			}),
		}),
		models.FieldPerformanceTrends: dynamo.List(
			trendValue(2022, "300", "38", "130"),
			trendValue(2023, "320", "45", "120"),
		),
		models.FieldRecommendations: dynamo.List(
			dynamo.String("Maintain current liquidity levels"),
		),
	})

	first, err := normalizer.Normalize(raw)
	require.NoError(t, err)

	input, err := normalizer.Denormalize(first)
	require.NoError(t, err)
	assert.Equal(t, "82", input.CreditScore)
	assert.NotEmpty(t, input.FinancialRatios)
	assert.NotEmpty(t, input.Recommendations)

	// The backend echoes a submission back as the flattened stored record.
	stored := models.StoredReport{
		CompanyID:       input.CompanyID,
		ReportDate:      input.ReportDate,
		CompanyName:     input.CompanyName,
		CreditDecision:  input.CreditDecision,
		CreditScore:     input.CreditScore,
		Industry:        input.Industry,
		LastUpdated:     input.LastUpdated,
		ReportStatus:    input.ReportStatus,
		FinancialRatios: input.FinancialRatios,
		Recommendations: input.Recommendations,
	}
	second, err := normalizer.Normalize(normalizer.ParseStoredReport(stored))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestParseStoredReportBadBlobDegrades(t *testing.T) {
	stored := models.StoredReport{
		CompanyID:       "MULTICHOICE-001",
		ReportDate:      "2024-03-31",
		FinancialRatios: "{not json",
	}
	report, err := normalizer.Normalize(normalizer.ParseStoredReport(stored))
	require.NoError(t, err)

	// Every ratio falls back to the known-key defaults.
	for _, entry := range report.Ratios {
		assert.Equal(t, 0.0, entry.Value)
	}
}
