package links

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

const clickCountSubquery = "(SELECT COUNT(*) FROM click_events WHERE click_events.link_id = links.id)"

// InsertClick writes event on tx and recomputes the owning link's counter from
// its event rows, so concurrent clicks never lose an update.
func InsertClick(tx *gorm.DB, event *ClickEvent) error {
	if event.Referrer == "" {
		event.Referrer = DirectReferrer
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if err := tx.Create(event).Error; err != nil {
		return fmt.Errorf("failed to insert click event: %w", err)
	}

	result := tx.Model(&Link{}).
		Where("id = ?", event.LinkID).
		Update("clicks", gorm.Expr(clickCountSubquery))
	if result.Error != nil {
		return fmt.Errorf("failed to update click count: %w", result.Error)
	}
	return nil
}

// AddClick persists a click event in its own write transaction.
func AddClick(db *gorm.DB, logger *slog.Logger, event *ClickEvent) error {
	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return InsertClick(tx, event)
	})
}

// CountClicks counts the stored events of a link.
func CountClicks(db *gorm.DB, linkID uint) (int64, error) {
	var count int64
	if err := db.Model(&ClickEvent{}).Where("link_id = ?", linkID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count clicks for link %d: %w", linkID, err)
	}
	return count, nil
}

// ResetClicks deletes the click events of every id, keeping the links.
// Each id is reset atomically on its own; failures are collected in *ResetError.
func ResetClicks(db *gorm.DB, logger *slog.Logger, ids []uint) error {
	failed := make(map[uint]error)
	for _, id := range ids {
		if err := resetClickSet(db, logger, []uint{id}); err != nil {
			logger.Error("Failed to reset clicks", slog.Uint64("link_id", uint64(id)), slog.Any("error", err))
			failed[id] = err
		}
	}
	if len(failed) > 0 {
		return &ResetError{Failed: failed}
	}
	return nil
}

// ResetClicksForLink zeroes a link and, for a landing page, all of its buttons
// in a single transaction. It returns the ids that were reset.
func ResetClicksForLink(db *gorm.DB, logger *slog.Logger, id uint) ([]uint, error) {
	var target Link
	if err := db.First(&target, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &LinkNotFoundError{ID: id}
		}
		return nil, fmt.Errorf("failed to get link %d: %w", id, err)
	}

	ids := []uint{target.ID}
	if target.IsLanding() {
		var candidates []Link
		if err := db.Where("id <> ?", target.ID).Find(&candidates).Error; err != nil {
			return nil, fmt.Errorf("failed to load landing page buttons: %w", err)
		}
		ids = ResetScope(target, candidates)
	}

	if err := resetClickSet(db, logger, ids); err != nil {
		return nil, err
	}

	logger.Info("Clicks reset",
		slog.String("slug", target.Slug),
		slog.Int("links", len(ids)))
	return ids, nil
}

// ResetScope returns the ids affected by resetting target: the link itself and,
// when it is a landing page, every link that BelongsTo it.
func ResetScope(target Link, all []Link) []uint {
	ids := []uint{target.ID}
	if !target.IsLanding() {
		return ids
	}

	for _, link := range all {
		if link.BelongsTo(target) {
			ids = append(ids, link.ID)
		}
	}
	return ids
}

func resetClickSet(db *gorm.DB, logger *slog.Logger, ids []uint) error {
	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		for _, chunk := range chunkIDs(ids) {
			if err := tx.Where("link_id IN ?", chunk).Delete(&ClickEvent{}).Error; err != nil {
				return fmt.Errorf("failed to delete click events: %w", err)
			}
			if err := tx.Model(&Link{}).Where("id IN ?", chunk).Update("clicks", 0).Error; err != nil {
				return fmt.Errorf("failed to zero click counters: %w", err)
			}
		}
		return nil
	})
}

// ReconcileClickCounts rewrites every counter that drifted from its event rows
// and returns how many links were corrected.
func ReconcileClickCounts(db *gorm.DB, logger *slog.Logger) (int64, error) {
	var corrected int64
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		result := tx.Exec(
			"UPDATE links SET clicks = " + clickCountSubquery + " WHERE clicks <> " + clickCountSubquery,
		)
		if result.Error != nil {
			return fmt.Errorf("failed to reconcile click counts: %w", result.Error)
		}
		corrected = result.RowsAffected
		return nil
	})
	return corrected, err
}
