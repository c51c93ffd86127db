package analytics

import (
	"time"

	"linkbio/internal/links"
	"linkbio/internal/timeframe"
)

const (
	Window24h = 24 * time.Hour
	Window7d  = 7 * 24 * time.Hour
)

// WindowCounts holds the time-windowed click counts of a link or a set of links.
type WindowCounts struct {
	Last24h int `json:"last_24h"`
	Last7d  int `json:"last_7d"`
	Total   int `json:"total"`
}

// CountSince counts events strictly after now-window.
func CountSince(events []links.ClickEvent, now time.Time, window time.Duration) int {
	cutoff := now.Add(-window)
	count := 0
	for _, event := range events {
		if event.Timestamp.After(cutoff) {
			count++
		}
	}
	return count
}

// CountWindows computes the 24h and 7d counts relative to now.
func CountWindows(events []links.ClickEvent, now time.Time) WindowCounts {
	return WindowCounts{
		Last24h: CountSince(events, now, Window24h),
		Last7d:  CountSince(events, now, Window7d),
		Total:   len(events),
	}
}

// ClickSeries buckets events over the time frame.
func ClickSeries(events []links.ClickEvent, tf *timeframe.TimeFrame) []timeframe.DateStat {
	timestamps := make([]time.Time, len(events))
	for i, event := range events {
		timestamps[i] = event.Timestamp
	}
	return tf.Series(timestamps)
}
