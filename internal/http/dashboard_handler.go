package http

import (
	"sort"
	"strings"

	"github.com/karloscodes/cartridge"
	"github.com/pariz/gountries"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"linkbio/internal/analytics"
	"linkbio/internal/links"
)

var countries = gountries.New()

// DashboardAction returns the overview across all links.
func (h *Handlers) DashboardAction(ctx *cartridge.Context) error {
	tf, err := h.parseTimeFrame(ctx)
	if err != nil {
		return badRequest(ctx, err.Error())
	}

	state := links.NewState(ctx.DB())
	if err := state.Refresh(); err != nil {
		return respondError(ctx, err)
	}

	dashboard := analytics.BuildDashboard(state.Links(), h.now(), tf, ctx.QueryInt("limit", defaultTopLimit))
	dashboard.Breakdown = displayBreakdown(dashboard.Breakdown)
	return ctx.JSON(dashboard)
}

// displayBreakdown turns stored values into the names shown to users.
func displayBreakdown(b analytics.Breakdown) analytics.Breakdown {
	b.Referrers = mergeByName(convertReferrerStats(b.Referrers))
	b.Countries = mergeByName(convertCountryStats(b.Countries))
	b.Devices = mergeByName(convertDeviceStats(b.Devices))
	b.Browsers = mergeByName(convertBrowserStats(b.Browsers))
	b.OS = mergeByName(convertOSStats(b.OS))
	return b
}

// mergeByName folds rows that converted to the same display name, so "US" and
// "United States" count as one country. Rows stay ordered by count.
func mergeByName(items []analytics.MetricCountResult) []analytics.MetricCountResult {
	index := make(map[string]int, len(items))
	result := make([]analytics.MetricCountResult, 0, len(items))
	for _, item := range items {
		if i, ok := index[item.Name]; ok {
			result[i].Count += item.Count
			result[i].Percentage += item.Percentage
			continue
		}
		index[item.Name] = len(result)
		result = append(result, item)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})
	return result
}

// convertCountryStats expands ISO alpha-2 codes into country names; names
// are kept as stored.
func convertCountryStats(items []analytics.MetricCountResult) []analytics.MetricCountResult {
	if len(items) == 0 {
		return []analytics.MetricCountResult{}
	}

	caser := cases.Upper(language.AmericanEnglish)
	result := make([]analytics.MetricCountResult, len(items))
	for i, item := range items {
		if len(item.Name) == 2 {
			if country, err := countries.FindCountryByAlpha(caser.String(item.Name)); err == nil {
				item.Name = country.Name.Common
			}
		}
		result[i] = item
	}
	return result
}

func convertDeviceStats(items []analytics.MetricCountResult) []analytics.MetricCountResult {
	caser := cases.Title(language.AmericanEnglish)

	if len(items) == 0 {
		return []analytics.MetricCountResult{}
	}

	result := make([]analytics.MetricCountResult, len(items))
	for i, item := range items {
		// iPad and iPhone keep their own casing
		if !strings.HasPrefix(item.Name, "iP") {
			item.Name = caser.String(item.Name)
		}
		result[i] = item
	}
	return result
}

// convertReferrerStats converts referrer statistics, handling internal constants
func convertReferrerStats(items []analytics.MetricCountResult) []analytics.MetricCountResult {
	if len(items) == 0 {
		return []analytics.MetricCountResult{}
	}

	result := make([]analytics.MetricCountResult, len(items))
	for i, item := range items {
		// Convert the internal constant to a human-readable format
		if item.Name == links.DirectReferrer {
			item.Name = "Direct / Unknown"
		}
		result[i] = item
	}
	return result
}

func convertOSStats(items []analytics.MetricCountResult) []analytics.MetricCountResult {
	caser := cases.Title(language.AmericanEnglish)

	if len(items) == 0 {
		return []analytics.MetricCountResult{}
	}

	result := make([]analytics.MetricCountResult, len(items))
	for i, item := range items {
		// Special handling for iOS and macOS to maintain correct capitalization
		switch strings.ToLower(strings.TrimSpace(item.Name)) {
		case "ios", "iphone os":
			item.Name = "iOS"
		case "ipados":
			item.Name = "iPadOS"
		case "macos", "mac os", "mac os x", "darwin":
			item.Name = "macOS"
		case "chrome os", "chromeos":
			item.Name = "Chrome OS"
		default:
			item.Name = caser.String(item.Name)
		}
		result[i] = item
	}
	return result
}

func convertBrowserStats(items []analytics.MetricCountResult) []analytics.MetricCountResult {
	caser := cases.Title(language.AmericanEnglish)

	if len(items) == 0 {
		return []analytics.MetricCountResult{}
	}

	result := make([]analytics.MetricCountResult, len(items))
	for i, item := range items {
		item.Name = caser.String(item.Name)
		result[i] = item
	}
	return result
}
