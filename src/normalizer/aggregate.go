package normalizer

import "github.com/RendaniXcode/moneypro/src/models"

// CategoryGroup is one ratio category with its entries, in display order.
type CategoryGroup struct {
	Category string              `json:"category"`
	Entries  []models.RatioEntry `json:"entries"`
}

// CategorySummary carries the summary statistics for one category.
type CategorySummary struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// GroupByCategory buckets flattened ratios by category, preserving the fixed
// category order. Categories with no entries are omitted.
func GroupByCategory(ratios []models.RatioEntry) []CategoryGroup {
	byCategory := map[string][]models.RatioEntry{}
	for _, entry := range ratios {
		byCategory[entry.Category] = append(byCategory[entry.Category], entry)
	}

	groups := []CategoryGroup{}
	for _, category := range RatioCategories {
		display := CategoryDisplayName(category)
		entries, ok := byCategory[display]
		if !ok {
			continue
		}
		groups = append(groups, CategoryGroup{Category: display, Entries: entries})
	}
	return groups
}

// Summarize computes per-category statistics over flattened ratios, in the
// fixed category order.
func Summarize(ratios []models.RatioEntry) []CategorySummary {
	summaries := []CategorySummary{}
	for _, group := range GroupByCategory(ratios) {
		summary := CategorySummary{Category: group.Category, Count: len(group.Entries)}
		for i, entry := range group.Entries {
			summary.Mean += entry.Value
			if i == 0 || entry.Value < summary.Min {
				summary.Min = entry.Value
			}
			if i == 0 || entry.Value > summary.Max {
				summary.Max = entry.Value
			}
		}
		if summary.Count > 0 {
			summary.Mean /= float64(summary.Count)
		}
		summaries = append(summaries, summary)
	}
	return summaries
}
