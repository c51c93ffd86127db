package geoip

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/oschwald/geoip2-golang"
	"github.com/pariz/gountries"
)

var (
	countries     *gountries.Query
	countriesOnce sync.Once
)

// countryName maps an ISO alpha-2 code to its common English name.
func countryName(isoCode string) string {
	if isoCode == "" {
		return ""
	}
	countriesOnce.Do(func() {
		countries = gountries.New()
	})
	country, err := countries.FindCountryByAlpha(isoCode)
	if err != nil {
		return isoCode
	}
	return country.Name.Common
}

// CountryName is exported for display code that only has an ISO code.
func CountryName(isoCode string) string {
	return countryName(isoCode)
}

// MaxMindLocator reads a local GeoLite2 City database.
type MaxMindLocator struct {
	path   string
	logger *slog.Logger

	mu sync.RWMutex
	db *geoip2.Reader
}

// OpenMaxMind opens the database at path.
func OpenMaxMind(path string, logger *slog.Logger) (*MaxMindLocator, error) {
	l := &MaxMindLocator{path: path, logger: logger}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload reopens the database from disk, e.g. after a download.
func (l *MaxMindLocator) Reload() error {
	if l.path == "" {
		return fmt.Errorf("geoip database path not configured")
	}

	fileInfo, err := os.Stat(l.path)
	if err != nil {
		return fmt.Errorf("geoip database not available: %w", err)
	}

	db, err := geoip2.Open(l.path)
	if err != nil {
		return fmt.Errorf("failed to open geoip database: %w", err)
	}

	l.mu.Lock()
	previous := l.db
	l.db = db
	l.mu.Unlock()

	if previous != nil {
		previous.Close()
	}

	l.logger.Info("GeoLite2 database loaded",
		slog.String("path", l.path),
		slog.Int64("size_bytes", fileInfo.Size()))
	return nil
}

func (l *MaxMindLocator) Locate(_ context.Context, ip string) (Location, error) {
	parsed, err := parseIP(ip)
	if err != nil {
		return Location{}, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.db == nil {
		return Location{}, &LookupError{Provider: "maxmind", IP: ip, Reason: "database closed"}
	}

	record, err := l.db.City(parsed)
	if err != nil {
		return Location{}, &LookupError{Provider: "maxmind", IP: ip, Reason: err.Error()}
	}

	country := record.Country.Names["en"]
	if country == "" {
		country = countryName(record.Country.IsoCode)
	}
	if country == "" {
		return Location{}, &LookupError{Provider: "maxmind", IP: ip, Reason: "address not in database"}
	}

	loc := Location{
		Country: country,
		City:    record.City.Names["en"],
	}
	if len(record.Subdivisions) > 0 {
		loc.Region = record.Subdivisions[0].Names["en"]
		loc.StateCode = record.Subdivisions[0].IsoCode
	}
	return loc, nil
}

// Close releases the database.
func (l *MaxMindLocator) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}
