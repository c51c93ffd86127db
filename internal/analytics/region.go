package analytics

import (
	"strings"

	"linkbio/internal/links"
)

// UnknownRegion buckets clicks whose region cannot be determined.
const UnknownRegion = "Unknown"

// RegionValue is either a ResolvedRegion or a FallbackRegion.
type RegionValue interface {
	Name() string
	isRegionValue()
}

// ResolvedRegion comes from the structured region field of an event.
type ResolvedRegion struct {
	Region string
}

func (r ResolvedRegion) Name() string { return r.Region }
func (ResolvedRegion) isRegionValue() {}

// FallbackRegion is parsed from the freeform "City, Region, Country" location.
type FallbackRegion struct {
	ParsedFrom string
}

// Name returns the second comma separated component, or UnknownRegion.
func (f FallbackRegion) Name() string {
	parts := strings.Split(f.ParsedFrom, ",")
	if len(parts) < 2 {
		return UnknownRegion
	}
	if region := strings.TrimSpace(parts[1]); region != "" {
		return region
	}
	return UnknownRegion
}

func (FallbackRegion) isRegionValue() {}

// RegionOf resolves the region of an event.
func RegionOf(event links.ClickEvent) RegionValue {
	if region := strings.TrimSpace(event.Region); region != "" {
		return ResolvedRegion{Region: region}
	}
	return FallbackRegion{ParsedFrom: event.Location}
}
