package links

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

const generatedSlugAttempts = 3

// CreateLink validates the input and persists a new link.
// A taken slug yields *DuplicateSlugError and no row is written.
func CreateLink(db *gorm.DB, logger *slog.Logger, input CreateLinkInput) (*Link, error) {
	input = input.normalized()
	if err := validateCreateInput(&input); err != nil {
		return nil, err
	}

	attempts := 1
	if input.CustomSlug == "" {
		attempts = generatedSlugAttempts
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		link := &Link{
			Slug:              GenerateSlug(input.Title, input.CustomSlug),
			Title:             input.Title,
			RedirectURL:       input.Destination,
			ButtonType:        input.LinkType,
			ParentLandingPage: input.ParentSlug,
			UTM:               input.UTM,
			CreatedAt:         time.Now().UTC(),
		}

		lastErr = insertLink(db, logger, link)
		if lastErr == nil {
			link.ClickHistory = []ClickEvent{}
			logger.Info("Link created",
				slog.Uint64("id", uint64(link.ID)),
				slog.String("slug", link.Slug),
				slog.String("type", string(link.ButtonType)))
			return link, nil
		}

		var dup *DuplicateSlugError
		if !errors.As(lastErr, &dup) {
			return nil, lastErr
		}
		logger.Debug("Slug collision", slog.String("slug", link.Slug), slog.Int("attempt", attempt+1))
	}
	return nil, lastErr
}

func validateCreateInput(input *CreateLinkInput) error {
	if !input.LinkType.IsValid() {
		return &ValidationError{Field: "link_type", Value: string(input.LinkType), Reason: "unknown link type"}
	}
	if input.CustomSlug != "" {
		if err := ValidateCustomSlug(input.CustomSlug); err != nil {
			return err
		}
	}
	if input.ParentSlug != "" && !input.LinkType.IsButton() {
		return &ValidationError{Field: "parent_slug", Value: input.ParentSlug, Reason: "only buttons belong to a landing page"}
	}

	if input.LinkType == LinkTypeLanding {
		input.Destination = LandingDestination
		return nil
	}
	return ValidateDestination(input.Destination)
}

// ValidateDestination requires an absolute http(s) URL.
func ValidateDestination(destination string) error {
	if destination == "" {
		return &ValidationError{Field: "destination", Value: destination, Reason: "required"}
	}
	parsed, err := url.ParseRequestURI(destination)
	if err != nil || parsed.Host == "" {
		return &ValidationError{Field: "destination", Value: destination, Reason: "must be an absolute URL"}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &ValidationError{Field: "destination", Value: destination, Reason: "scheme must be http or https"}
	}
	return nil
}

func insertLink(db *gorm.DB, logger *slog.Logger, link *Link) error {
	// Domain errors are carried out of the write closure so retries inside
	// PerformWrite cannot wrap them.
	var domainErr error
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		domainErr = nil

		if link.ParentLandingPage != "" {
			var parent Link
			if err := tx.Where("slug = ?", link.ParentLandingPage).First(&parent).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					domainErr = &ValidationError{Field: "parent_slug", Value: link.ParentLandingPage, Reason: "no such landing page"}
					return nil
				}
				return fmt.Errorf("failed to look up parent landing page: %w", err)
			}
			if !parent.IsLanding() {
				domainErr = &ValidationError{Field: "parent_slug", Value: link.ParentLandingPage, Reason: "not a landing page"}
				return nil
			}
		}

		var count int64
		if err := tx.Model(&Link{}).Where("slug = ?", link.Slug).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check slug availability: %w", err)
		}
		if count > 0 {
			domainErr = NewDuplicateSlugError(link.Slug)
			return nil
		}

		if err := tx.Omit("ClickHistory").Create(link).Error; err != nil {
			if isUniqueViolation(err) {
				domainErr = NewDuplicateSlugError(link.Slug)
				return nil
			}
			return fmt.Errorf("failed to insert link: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return domainErr
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ListLinks returns all links newest first with their click history attached.
// Clicks is taken from the event rows, not the stored counter.
func ListLinks(db *gorm.DB) ([]Link, error) {
	var all []Link
	if err := db.Order("created_at DESC, id DESC").Find(&all).Error; err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	if len(all) == 0 {
		return []Link{}, nil
	}

	ids := make([]uint, len(all))
	for i, link := range all {
		ids[i] = link.ID
	}

	history, err := clickHistoryFor(db, ids)
	if err != nil {
		return nil, err
	}
	for i := range all {
		attachHistory(&all[i], history[all[i].ID])
	}
	return all, nil
}

// idChunkSize keeps "IN ?" lists well under SQLite's bound variable limit.
var idChunkSize = 500

func chunkIDs(ids []uint) [][]uint {
	chunks := make([][]uint, 0, len(ids)/idChunkSize+1)
	for start := 0; start < len(ids); start += idChunkSize {
		end := min(start+idChunkSize, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// clickHistoryFor loads events newest first per link. Each link's events come
// from a single chunk, so per-link ordering survives the split.
func clickHistoryFor(db *gorm.DB, ids []uint) (map[uint][]ClickEvent, error) {
	byLink := make(map[uint][]ClickEvent, len(ids))
	for _, chunk := range chunkIDs(ids) {
		var events []ClickEvent
		if err := db.Where("link_id IN ?", chunk).Order("timestamp DESC, id DESC").Find(&events).Error; err != nil {
			return nil, fmt.Errorf("failed to load click events: %w", err)
		}
		for _, event := range events {
			byLink[event.LinkID] = append(byLink[event.LinkID], event)
		}
	}
	return byLink, nil
}

func attachHistory(link *Link, history []ClickEvent) {
	if history == nil {
		history = []ClickEvent{}
	}
	link.ClickHistory = history
	link.Clicks = int64(len(history))
}

// GetLink loads a link by id with its click history.
func GetLink(db *gorm.DB, id uint) (*Link, error) {
	var link Link
	if err := db.First(&link, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &LinkNotFoundError{ID: id}
		}
		return nil, fmt.Errorf("failed to get link %d: %w", id, err)
	}

	history, err := clickHistoryFor(db, []uint{link.ID})
	if err != nil {
		return nil, err
	}
	attachHistory(&link, history[link.ID])
	return &link, nil
}

// FindBySlug resolves a slug with an exact match. History is not loaded.
func FindBySlug(db *gorm.DB, slug string) (*Link, error) {
	var link Link
	if err := db.Where("slug = ?", slug).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &LinkNotFoundError{Slug: slug}
		}
		return nil, fmt.Errorf("failed to find link %q: %w", slug, err)
	}
	return &link, nil
}

// DeleteLink removes a link and all of its click events in one transaction.
func DeleteLink(db *gorm.DB, logger *slog.Logger, id uint) error {
	var notFound bool
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		notFound = false

		var count int64
		if err := tx.Model(&Link{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to look up link: %w", err)
		}
		if count == 0 {
			notFound = true
			return nil
		}

		if err := tx.Where("link_id = ?", id).Delete(&ClickEvent{}).Error; err != nil {
			return fmt.Errorf("failed to delete click events: %w", err)
		}
		if err := tx.Delete(&Link{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete link: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if notFound {
		return &LinkNotFoundError{ID: id}
	}

	logger.Info("Link deleted", slog.Uint64("id", uint64(id)))
	return nil
}

// UpdateRedirectURL changes the destination of a non-landing link.
func UpdateRedirectURL(db *gorm.DB, logger *slog.Logger, id uint, destination string) error {
	destination = strings.TrimSpace(destination)
	if err := ValidateDestination(destination); err != nil {
		return err
	}

	var notFound bool
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		result := tx.Model(&Link{}).
			Where("id = ? AND button_type <> ?", id, LinkTypeLanding).
			Update("redirect_url", destination)
		if result.Error != nil {
			return fmt.Errorf("failed to update redirect url: %w", result.Error)
		}
		notFound = result.RowsAffected == 0
		return nil
	})
	if err != nil {
		return err
	}
	if notFound {
		return &LinkNotFoundError{ID: id}
	}
	return nil
}

// UpdateRedirectURLByTitle points every link with the given title at destination.
// It runs on the caller's transaction and returns the number of updated links.
func UpdateRedirectURLByTitle(tx *gorm.DB, title, destination string) (int64, error) {
	result := tx.Model(&Link{}).
		Where("title = ? AND button_type <> ?", title, LinkTypeLanding).
		Update("redirect_url", destination)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update links titled %q: %w", title, result.Error)
	}
	return result.RowsAffected, nil
}
