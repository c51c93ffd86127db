package analytics

import (
	"strings"

	"linkbio/internal/links"
	"linkbio/internal/pkg/referrers"
)

// TopReferrers groups clicks by their raw referrer.
func TopReferrers(events []links.ClickEvent) []MetricCountResult {
	return countBy(events, func(e links.ClickEvent) string {
		return valueOr(e.Referrer, links.DirectReferrer)
	})
}

// ReferrerSources groups clicks by the friendly name of the referring site,
// so "https://l.instagram.com/..." and "instagram.com" count together.
func ReferrerSources(events []links.ClickEvent) []MetricCountResult {
	return countBy(events, func(e links.ClickEvent) string {
		return referrers.Source(e.Referrer)
	})
}

// TopDevices groups clicks by device class.
func TopDevices(events []links.ClickEvent) []MetricCountResult {
	return countBy(events, func(e links.ClickEvent) string {
		return valueOr(e.Device, "Desktop")
	})
}

// TopBrowsers groups clicks by browser.
func TopBrowsers(events []links.ClickEvent) []MetricCountResult {
	return countBy(events, func(e links.ClickEvent) string {
		return valueOr(e.Browser, "Unknown")
	})
}

// TopOperatingSystems groups clicks by operating system.
func TopOperatingSystems(events []links.ClickEvent) []MetricCountResult {
	return countBy(events, func(e links.ClickEvent) string {
		return valueOr(e.OS, "Unknown")
	})
}

// TopRegions groups clicks by region, see RegionOf.
func TopRegions(events []links.ClickEvent) []MetricCountResult {
	return countBy(events, func(e links.ClickEvent) string {
		return RegionOf(e).Name()
	})
}

// TopCountries groups clicks by country.
func TopCountries(events []links.ClickEvent) []MetricCountResult {
	return countBy(events, func(e links.ClickEvent) string {
		return valueOr(e.Country, "Unknown")
	})
}

// TopButtons groups consolidated landing page clicks by button; clicks on the
// page itself are reported under the landing page title.
func TopButtons(history []links.ClickEvent, landingTitle string) []MetricCountResult {
	return countBy(history, func(e links.ClickEvent) string {
		return valueOr(e.ButtonName, landingTitle)
	})
}

func valueOr(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
