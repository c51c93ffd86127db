// Package geoip resolves visitor IP addresses to a coarse location.
package geoip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"linkbio/internal/config"
)

// Location is the result of a lookup. "Unknown" is an explicit value.
type Location struct {
	Country   string `json:"country"`
	Region    string `json:"region"`
	City      string `json:"city"`
	StateCode string `json:"stateCode"`
}

// Fallback is used whenever a lookup fails for any reason.
var Fallback = Location{
	Country:   "India",
	Region:    "Unknown",
	City:      "Unknown",
	StateCode: "UN",
}

// ErrInvalidIP is returned for empty or malformed addresses.
var ErrInvalidIP = errors.New("invalid ip address")

// LookupError reports an upstream lookup that did not produce a location.
type LookupError struct {
	Provider string
	IP       string
	Reason   string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s lookup failed for %s: %s", e.Provider, e.IP, e.Reason)
}

// Locator resolves an IP address. Implementations make a single attempt.
type Locator interface {
	Locate(ctx context.Context, ip string) (Location, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context, ip string) (Location, error)

func (f LocatorFunc) Locate(ctx context.Context, ip string) (Location, error) {
	return f(ctx, ip)
}

// NoopLocator never resolves anything.
type NoopLocator struct{}

func (NoopLocator) Locate(_ context.Context, ip string) (Location, error) {
	return Location{}, &LookupError{Provider: "none", IP: ip, Reason: "geolocation disabled"}
}

// LocateOrFallback runs one lookup and substitutes Fallback on any failure.
// The second return value reports whether the lookup succeeded.
func LocateOrFallback(ctx context.Context, locator Locator, logger *slog.Logger, ip string) (Location, bool) {
	if locator == nil {
		return Fallback, false
	}

	loc, err := locator.Locate(ctx, ip)
	if err != nil {
		logger.Debug("Geolocation failed, using fallback",
			slog.String("ip", ip),
			slog.Any("error", err))
		return Fallback, false
	}
	return loc.normalized(), true
}

func (l Location) normalized() Location {
	if strings.TrimSpace(l.Region) == "" {
		l.Region = "Unknown"
	}
	if strings.TrimSpace(l.City) == "" {
		l.City = "Unknown"
	}
	return l
}

func parseIP(ip string) (net.IP, error) {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return nil, ErrInvalidIP
	}
	return parsed, nil
}

// NewLocator builds the locator selected by configuration. A MaxMind database
// that cannot be opened degrades to NoopLocator so tracking keeps working.
func NewLocator(cfg *config.Config, logger *slog.Logger) Locator {
	switch cfg.GeoProvider {
	case config.GeoProviderMaxMind:
		locator, err := OpenMaxMind(cfg.GeoDBPath, logger)
		if err != nil {
			logger.Warn("GeoLite2 database unavailable - geolocation disabled",
				slog.String("path", cfg.GeoDBPath),
				slog.Any("error", err))
			return NoopLocator{}
		}
		return locator
	case config.GeoProviderHTTP:
		logger.Info("Using HTTP geolocation", slog.String("url", cfg.GeoLookupURL))
		return NewHTTPLocator(cfg.GeoLookupURL, cfg.GetGeoTimeout())
	default:
		return NoopLocator{}
	}
}
