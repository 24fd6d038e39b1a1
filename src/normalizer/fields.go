// Package normalizer converts between the report backend's wire
// representations of a financial report and the flat application model,
// including the ratio field-name correction: stored reports carry
// lowercase-concatenated ratio keys (e.g. "currentratio") where the
// application uses camelCase ("currentRatio").
package normalizer

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrUnknownRatioKey indicates a wire key with no entry in the per-category
// table. Upstream schemas evolve, so callers drop these silently.
var ErrUnknownRatioKey = errors.New("unknown ratio key")

// RatioCategories lists the five fixed ratio categories in display order.
var RatioCategories = []string{
	"liquidityRatios",
	"profitabilityRatios",
	"solvencyRatios",
	"efficiencyRatios",
	"marketValueRatios",
}

// knownRatioKeys are the keys every report is expected to carry per
// category; a missing known key normalizes to value 0.
var knownRatioKeys = map[string][]string{
	"liquidityRatios":     {"currentRatio", "quickRatio"},
	"profitabilityRatios": {"grossProfitMargin", "operatingProfitMargin", "returnOnAssets"},
	"solvencyRatios":      {"debtToEquityRatio", "interestCoverageRatio"},
	"efficiencyRatios":    {"assetTurnoverRatio", "inventoryTurnover"},
	"marketValueRatios":   {"priceToEarnings"},
}

// optionalRatioKeys may or may not be present per category; a missing
// optional key is omitted from the normalized output, not zeroed.
var optionalRatioKeys = map[string][]string{
	"liquidityRatios":     {"cashRatio"},
	"profitabilityRatios": {"returnOnEquity"},
	"solvencyRatios":      {"debtServiceCoverageRatio"},
	"efficiencyRatios":    {"payablesTurnoverRatio"},
	"marketValueRatios":   {"dividendYield"},
}

// wireToApp is the per-category lookup from lowercase-concatenated wire keys
// to camelCase application keys. The table is category-scoped: the same
// suffix appears across categories with different prefixes, so categories
// must never be merged for lookups.
var wireToApp = buildWireTables()

func buildWireTables() map[string]map[string]string {
	tables := make(map[string]map[string]string, len(RatioCategories))
	for _, category := range RatioCategories {
		table := make(map[string]string)
		for _, appKey := range knownRatioKeys[category] {
			table[strings.ToLower(appKey)] = appKey
		}
		for _, appKey := range optionalRatioKeys[category] {
			table[strings.ToLower(appKey)] = appKey
		}
		tables[category] = table
	}
	return tables
}

// ToApplicationKey translates a wire ratio key into the application's
// camelCase key for the given category. Keys already in application form are
// accepted as-is: the tagged-value path delivers camelCase while stored
// records deliver lowercase.
func ToApplicationKey(category, wireKey string) (string, error) {
	table, ok := wireToApp[category]
	if !ok {
		return "", fmt.Errorf("%w: unknown category %q", ErrUnknownRatioKey, category)
	}
	appKey, ok := table[strings.ToLower(wireKey)]
	if !ok {
		return "", fmt.Errorf("%w: %q in category %q", ErrUnknownRatioKey, wireKey, category)
	}
	return appKey, nil
}

// ToWireKey translates an application ratio key into the wire form used for
// submission. Only used when denormalizing.
func ToWireKey(category, appKey string) (string, error) {
	table, ok := wireToApp[category]
	if !ok {
		return "", fmt.Errorf("%w: unknown category %q", ErrUnknownRatioKey, category)
	}
	lower := strings.ToLower(appKey)
	if _, ok := table[lower]; !ok {
		return "", fmt.Errorf("%w: %q in category %q", ErrUnknownRatioKey, appKey, category)
	}
	return lower, nil
}

// IsOptionalKey reports whether an application key is one of the optional
// keys for its category.
func IsOptionalKey(category, appKey string) bool {
	for _, key := range optionalRatioKeys[category] {
		if key == appKey {
			return true
		}
	}
	return false
}

// DisplayName derives a human-readable label from a camelCase key by
// inserting a space before each internal capital and capitalizing the first
// letter: "currentRatio" becomes "Current Ratio".
func DisplayName(appKey string) string {
	if appKey == "" {
		return ""
	}
	var b strings.Builder
	for i, r := range appKey {
		if i == 0 {
			b.WriteRune(unicode.ToUpper(r))
			continue
		}
		if unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CategoryDisplayName derives the display name of a category key:
// "liquidityRatios" becomes "Liquidity Ratios".
func CategoryDisplayName(category string) string {
	return DisplayName(category)
}
