package clicks

import (
	"log/slog"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"linkbio/internal/config"
)

// NewTrackingLogger returns a JSON logger writing to a rotated file inside the
// logs directory, or nil when no tracking log file is configured.
func NewTrackingLogger(cfg *config.Config) *slog.Logger {
	if cfg.TrackingLogFile == "" {
		return nil
	}

	filename := cfg.TrackingLogFile
	if !filepath.IsAbs(filename) {
		filename = filepath.Join(cfg.GetLogDirectory(), filename)
	}

	writer := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    cfg.GetLogMaxSizeMB(),
		MaxBackups: cfg.GetLogMaxBackups(),
		MaxAge:     cfg.GetLogMaxAgeDays(),
		Compress:   true,
	}

	return slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
