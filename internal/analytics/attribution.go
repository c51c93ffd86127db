package analytics

import (
	"sort"

	"linkbio/internal/links"
)

// ButtonsForLanding returns the buttons of a landing page in snapshot order,
// using the same ownership rule as the click reset (links.Link.BelongsTo).
func ButtonsForLanding(landing links.Link, all []links.Link) []links.Link {
	if !landing.IsLanding() {
		return nil
	}

	buttons := make([]links.Link, 0)
	for _, link := range all {
		if link.BelongsTo(landing) {
			buttons = append(buttons, link)
		}
	}
	return buttons
}

// ConsolidatedHistory merges the landing page's own clicks with the clicks of
// all its buttons, newest first. Button clicks carry the button title.
func ConsolidatedHistory(landing links.Link, all []links.Link) []links.ClickEvent {
	history := make([]links.ClickEvent, 0, len(landing.ClickHistory))
	for _, event := range landing.ClickHistory {
		event.ButtonName = ""
		history = append(history, event)
	}

	for _, button := range ButtonsForLanding(landing, all) {
		name := button.Title
		if name == "" {
			name = button.Slug
		}
		for _, event := range button.ClickHistory {
			event.ButtonName = name
			history = append(history, event)
		}
	}

	sortNewestFirst(history)
	return history
}

func sortNewestFirst(events []links.ClickEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
}

// EventsOf flattens the click history of every link, newest first.
func EventsOf(all []links.Link) []links.ClickEvent {
	var events []links.ClickEvent
	for _, link := range all {
		events = append(events, link.ClickHistory...)
	}
	sortNewestFirst(events)
	return events
}
