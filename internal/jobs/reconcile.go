package jobs

import (
	"log/slog"

	"github.com/karloscodes/cartridge"

	"linkbio/internal/links"
)

// ReconcileJob rewrites link click counters that drifted from their event rows.
type ReconcileJob struct {
	dbManager cartridge.DBManager
	logger    *slog.Logger
}

func NewReconcileJob(dbManager cartridge.DBManager, logger *slog.Logger) *ReconcileJob {
	return &ReconcileJob{
		dbManager: dbManager,
		logger:    logger,
	}
}

// Run recomputes every drifted counter from click_events.
func (j *ReconcileJob) Run() error {
	j.logger.Debug("Starting click counter reconciliation")

	corrected, err := links.ReconcileClickCounts(j.dbManager.GetConnection(), j.logger)
	if err != nil {
		j.logger.Error("Failed to reconcile click counters", slog.Any("error", err))
		return err
	}

	if corrected > 0 {
		j.logger.Warn("Click counters corrected", slog.Int64("links", corrected))
	} else {
		j.logger.Debug("Click counters consistent")
	}
	return nil
}
