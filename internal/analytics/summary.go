package analytics

import (
	"time"

	"linkbio/internal/links"
	"linkbio/internal/timeframe"
)

// LinkSummary is one row of the links table.
type LinkSummary struct {
	ID                uint           `json:"id"`
	Slug              string         `json:"slug"`
	Title             string         `json:"title"`
	Destination       string         `json:"destination"`
	LinkType          links.LinkType `json:"link_type"`
	ParentLandingPage string         `json:"parent_landing_page,omitempty"`
	Clicks            int64          `json:"clicks"`
	Windows           WindowCounts   `json:"windows"`
	LastClickAt       *time.Time     `json:"last_click_at,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// Summarize returns one row per link, in snapshot order.
func Summarize(all []links.Link, now time.Time) []LinkSummary {
	rows := make([]LinkSummary, len(all))
	for i, link := range all {
		rows[i] = summarize(link, now)
	}
	return rows
}

func summarize(link links.Link, now time.Time) LinkSummary {
	row := LinkSummary{
		ID:                link.ID,
		Slug:              link.Slug,
		Title:             link.Title,
		Destination:       link.Destination(),
		LinkType:          link.ButtonType,
		ParentLandingPage: link.ParentLandingPage,
		Clicks:            int64(len(link.ClickHistory)),
		Windows:           CountWindows(link.ClickHistory, now),
		CreatedAt:         link.CreatedAt,
	}
	if last := latest(link.ClickHistory); !last.IsZero() {
		row.LastClickAt = &last
	}
	return row
}

func latest(events []links.ClickEvent) time.Time {
	var last time.Time
	for _, event := range events {
		if event.Timestamp.After(last) {
			last = event.Timestamp
		}
	}
	return last
}

// Breakdown bundles the top-N rollups of a set of events.
type Breakdown struct {
	Referrers []MetricCountResult `json:"referrers"`
	Sources   []MetricCountResult `json:"sources"`
	Devices   []MetricCountResult `json:"devices"`
	Browsers  []MetricCountResult `json:"browsers"`
	OS        []MetricCountResult `json:"operating_systems"`
	Regions   []MetricCountResult `json:"regions"`
	Countries []MetricCountResult `json:"countries"`
}

// BreakdownOf computes every rollup, each truncated to limit entries.
func BreakdownOf(events []links.ClickEvent, limit int) Breakdown {
	return Breakdown{
		Referrers: Limit(TopReferrers(events), limit),
		Sources:   Limit(ReferrerSources(events), limit),
		Devices:   Limit(TopDevices(events), limit),
		Browsers:  Limit(TopBrowsers(events), limit),
		OS:        Limit(TopOperatingSystems(events), limit),
		Regions:   Limit(TopRegions(events), limit),
		Countries: Limit(TopCountries(events), limit),
	}
}

// LinkStats is the detail view of one link. For a landing page the history
// and every rollup cover the page and all of its buttons.
type LinkStats struct {
	Summary     LinkSummary          `json:"summary"`
	Buttons     []LinkSummary        `json:"buttons,omitempty"`
	ButtonShare []MetricCountResult  `json:"button_share,omitempty"`
	TotalClicks int64                `json:"total_clicks"`
	Windows     WindowCounts         `json:"windows"`
	Breakdown   Breakdown            `json:"breakdown"`
	Series      []timeframe.DateStat `json:"series"`
	History     []links.ClickEvent   `json:"history"`
}

// StatsFor builds the detail view of link over the snapshot all.
func StatsFor(link links.Link, all []links.Link, now time.Time, tf *timeframe.TimeFrame, limit int) LinkStats {
	history := link.ClickHistory
	stats := LinkStats{Summary: summarize(link, now)}

	if link.IsLanding() {
		history = ConsolidatedHistory(link, all)
		buttons := ButtonsForLanding(link, all)
		stats.Buttons = Summarize(buttons, now)
		stats.ButtonShare = TopButtons(history, link.Title)
	} else {
		history = append([]links.ClickEvent(nil), history...)
		sortNewestFirst(history)
	}

	stats.History = history
	stats.TotalClicks = int64(len(history))
	stats.Windows = CountWindows(history, now)
	stats.Breakdown = BreakdownOf(history, limit)
	stats.Series = ClickSeries(history, tf)
	return stats
}

// Dashboard is the overview across all links.
type Dashboard struct {
	TotalLinks  int                  `json:"total_links"`
	TotalClicks int64                `json:"total_clicks"`
	Windows     WindowCounts         `json:"windows"`
	TopLinks    []MetricCountResult  `json:"top_links"`
	Breakdown   Breakdown            `json:"breakdown"`
	Series      []timeframe.DateStat `json:"series"`
	Links       []LinkSummary        `json:"links"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// BuildDashboard aggregates the whole snapshot relative to now.
func BuildDashboard(all []links.Link, now time.Time, tf *timeframe.TimeFrame, limit int) Dashboard {
	events := EventsOf(all)

	return Dashboard{
		TotalLinks:  len(all),
		TotalClicks: int64(len(events)),
		Windows:     CountWindows(events, now),
		TopLinks:    Limit(TopLinks(all), limit),
		Breakdown:   BreakdownOf(events, limit),
		Series:      ClickSeries(events, tf),
		Links:       Summarize(all, now),
		GeneratedAt: now,
	}
}

// TopLinks ranks links by their click count; links without clicks are left out.
func TopLinks(all []links.Link) []MetricCountResult {
	var total int64
	results := make([]MetricCountResult, 0, len(all))
	for _, link := range all {
		count := int64(len(link.ClickHistory))
		if count == 0 {
			continue
		}
		total += count
		results = append(results, MetricCountResult{Name: link.Slug, Count: count})
	}
	if total == 0 {
		return []MetricCountResult{}
	}
	return withPercentages(results, total)
}
