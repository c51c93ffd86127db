package jobs

import (
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"

	"linkbio/internal/links"
)

const orphanBatchSize = 1000

// CleanupJob removes click events whose link no longer exists. The store
// deletes events together with their link; orphans only come from writes
// that bypassed it.
type CleanupJob struct {
	dbManager cartridge.DBManager
	logger    *slog.Logger
	pause     time.Duration
}

func NewCleanupJob(dbManager cartridge.DBManager, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		dbManager: dbManager,
		logger:    logger,
		pause:     100 * time.Millisecond,
	}
}

const orphanCondition = "link_id NOT IN (SELECT id FROM links)"

// Run deletes orphaned click events in batches.
func (j *CleanupJob) Run() error {
	db := j.dbManager.GetConnection()

	var countToDelete int64
	if err := db.Model(&links.ClickEvent{}).Where(orphanCondition).Count(&countToDelete).Error; err != nil {
		j.logger.Error("Failed to count orphaned click events", slog.Any("error", err))
		return err
	}

	if countToDelete == 0 {
		j.logger.Debug("No orphaned click events to clean up")
		return nil
	}

	// Delete in batches to avoid locking the database for too long
	totalDeleted := int64(0)
	for {
		result := db.Exec(
			"DELETE FROM click_events WHERE id IN (SELECT id FROM click_events WHERE "+orphanCondition+" LIMIT ?)",
			orphanBatchSize,
		)
		if result.Error != nil {
			j.logger.Error("Failed to delete orphaned click events",
				slog.Any("error", result.Error),
				slog.Int64("deleted_so_far", totalDeleted))
			return result.Error
		}

		totalDeleted += result.RowsAffected
		if result.RowsAffected < orphanBatchSize {
			break
		}
		time.Sleep(j.pause)
	}

	j.logger.Info("Cleaned up orphaned click events", slog.Int64("deleted_count", totalDeleted))
	return nil
}
