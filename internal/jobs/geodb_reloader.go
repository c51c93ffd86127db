package jobs

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Reloader reopens an on-disk geolocation database; *geoip.MaxMindLocator
// implements it.
type Reloader interface {
	Reload() error
}

// GeoDBReloadJob reloads the GeoLite2 database when the file on disk changes,
// e.g. after an external geoipupdate run.
type GeoDBReloadJob struct {
	path     string
	reloader Reloader
	logger   *slog.Logger

	mu       sync.Mutex
	modified time.Time
}

// NewGeoDBReloadJob watches path. The current modification time is taken as
// already loaded.
func NewGeoDBReloadJob(path string, reloader Reloader, logger *slog.Logger) *GeoDBReloadJob {
	j := &GeoDBReloadJob{
		path:     path,
		reloader: reloader,
		logger:   logger,
	}
	if info, err := os.Stat(path); err == nil {
		j.modified = info.ModTime()
	}
	return j
}

// Run reloads the database if its modification time moved.
func (j *GeoDBReloadJob) Run() error {
	info, err := os.Stat(j.path)
	if err != nil {
		j.logger.Debug("GeoLite2 database not present, skipping reload", slog.String("path", j.path))
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if !info.ModTime().After(j.modified) {
		return nil
	}

	j.logger.Info("GeoLite2 database changed on disk, reloading",
		slog.String("path", j.path),
		slog.Time("modified", info.ModTime()))

	if err := j.reloader.Reload(); err != nil {
		return fmt.Errorf("failed to reload GeoLite2 database: %w", err)
	}
	j.modified = info.ModTime()
	return nil
}
