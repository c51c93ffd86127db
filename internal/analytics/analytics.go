// Package analytics computes click statistics over an in-memory snapshot of
// links and their click events. Nothing in this package touches the store.
//
// The package is organized into focused files:
//   - attribution.go: landing page buttons and consolidated history
//   - windows.go: time-windowed counts and click series
//   - rollups.go: top-N breakdowns by referrer, device, browser, region, country
//   - region.go: region resolution with freeform location fallback
//   - summary.go: per-link statistics and the dashboard rollup
package analytics

import (
	"math"
	"sort"

	"linkbio/internal/links"
)

// MetricCountResult represents a generic key-count pair with its share of the total
type MetricCountResult struct {
	Name       string `json:"name"`
	Count      int64  `json:"count"`
	Percentage int    `json:"percentage"`
}

// Percentage returns round(count/total*100), or 0 for an empty total.
func Percentage(count, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(total) * 100))
}

// countBy groups events by key. Results are ordered by count descending; ties
// keep the order in which keys were first seen.
func countBy(events []links.ClickEvent, key func(links.ClickEvent) string) []MetricCountResult {
	if len(events) == 0 {
		return []MetricCountResult{}
	}

	index := make(map[string]int)
	results := make([]MetricCountResult, 0)
	for _, event := range events {
		name := key(event)
		i, ok := index[name]
		if !ok {
			i = len(results)
			index[name] = i
			results = append(results, MetricCountResult{Name: name})
		}
		results[i].Count++
	}

	return withPercentages(results, int64(len(events)))
}

func withPercentages(results []MetricCountResult, total int64) []MetricCountResult {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Count > results[j].Count
	})
	for i := range results {
		results[i].Percentage = Percentage(results[i].Count, total)
	}
	return results
}

// Limit truncates results to at most n entries; n <= 0 keeps everything.
func Limit(results []MetricCountResult, n int) []MetricCountResult {
	if n <= 0 || len(results) <= n {
		return results
	}
	return results[:n]
}
