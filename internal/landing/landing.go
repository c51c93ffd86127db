// Package landing manages the public landing page: its settings, the catalog of
// well-known buttons and the data needed to render it.
package landing

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/karloscodes/cartridge/sqlite"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"linkbio/internal/analytics"
	"linkbio/internal/links"
	"linkbio/internal/settings"
)

//go:embed buttons.yml
var catalogFiles embed.FS

// CatalogButton is a button every landing page starts with.
type CatalogButton struct {
	Title       string         `yaml:"title"`
	Suffix      string         `yaml:"suffix"`
	Type        links.LinkType `yaml:"type"`
	Destination string         `yaml:"destination"`
}

// Catalog is the ordered list of well-known buttons.
type Catalog struct {
	Buttons []CatalogButton `yaml:"buttons"`
}

// LoadCatalog parses the embedded button catalog.
func LoadCatalog() (Catalog, error) {
	var catalog Catalog
	data, err := catalogFiles.ReadFile("buttons.yml")
	if err != nil {
		return catalog, err
	}
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return catalog, fmt.Errorf("error parsing buttons.yml: %w", err)
	}
	for _, button := range catalog.Buttons {
		if !button.Type.IsButton() {
			return catalog, fmt.Errorf("catalog button %q has invalid type %q", button.Title, button.Type)
		}
	}
	return catalog, nil
}

// ButtonSetting is the configured destination of a button, keyed by title.
type ButtonSetting struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Settings is the editable landing page configuration.
type Settings struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Slug        string          `json:"slug"`
	Buttons     []ButtonSetting `json:"buttons"`
}

// Load reads the landing settings. Buttons come in catalog order followed by
// any other configured titles in alphabetical order; unset catalog buttons
// report their catalog destination.
func Load(db *gorm.DB, defaultSlug string) (Settings, error) {
	defaults := settings.Defaults(defaultSlug)
	var s Settings
	var err error

	if s.Title, err = settings.GetSettingOr(db, settings.KeyLandingTitle, defaults[settings.KeyLandingTitle]); err != nil {
		return s, err
	}
	if s.Description, err = settings.GetSettingOr(db, settings.KeyLandingDescription, defaults[settings.KeyLandingDescription]); err != nil {
		return s, err
	}
	if s.Slug, err = settings.GetSettingOr(db, settings.KeyLandingSlug, defaultSlug); err != nil {
		return s, err
	}

	configured, err := settings.GetSettingsWithPrefix(db, settings.ButtonKeyPrefix)
	if err != nil {
		return s, err
	}

	catalog, err := LoadCatalog()
	if err != nil {
		return s, err
	}

	s.Buttons = make([]ButtonSetting, 0, len(catalog.Buttons)+len(configured))
	for _, button := range catalog.Buttons {
		url := button.Destination
		if value, ok := configured[button.Title]; ok {
			url = value
			delete(configured, button.Title)
		}
		s.Buttons = append(s.Buttons, ButtonSetting{Title: button.Title, URL: url})
	}

	extra := make([]string, 0, len(configured))
	for title := range configured {
		extra = append(extra, title)
	}
	sort.Strings(extra)
	for _, title := range extra {
		s.Buttons = append(s.Buttons, ButtonSetting{Title: title, URL: configured[title]})
	}
	return s, nil
}

func (s *Settings) normalize() error {
	s.Title = strings.TrimSpace(s.Title)
	s.Description = strings.TrimSpace(s.Description)
	s.Slug = strings.TrimSpace(s.Slug)

	if s.Title == "" {
		return &links.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if err := links.ValidateCustomSlug(s.Slug); err != nil {
		return err
	}

	seen := make(map[string]bool, len(s.Buttons))
	for i := range s.Buttons {
		button := &s.Buttons[i]
		button.Title = strings.TrimSpace(button.Title)
		button.URL = strings.TrimSpace(button.URL)
		if button.Title == "" {
			return &links.ValidationError{Field: "buttons", Reason: "button title must not be empty"}
		}
		if seen[button.Title] {
			return &links.ValidationError{Field: "buttons", Value: button.Title, Reason: "duplicate button title"}
		}
		seen[button.Title] = true
		if err := links.ValidateDestination(button.URL); err != nil {
			return err
		}
	}
	return nil
}

// Save stores the settings and points every link titled like a button at the
// button's new destination, all in one transaction. It returns how many links
// were updated.
func Save(db *gorm.DB, logger *slog.Logger, s Settings) (int64, error) {
	if err := s.normalize(); err != nil {
		return 0, err
	}

	var updated int64
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		updated = 0
		values := map[string]string{
			settings.KeyLandingTitle:       s.Title,
			settings.KeyLandingDescription: s.Description,
			settings.KeyLandingSlug:        s.Slug,
		}
		for key, value := range values {
			if err := settings.SetSettingTx(tx, key, value); err != nil {
				return err
			}
		}

		for _, button := range s.Buttons {
			if err := settings.SetSettingTx(tx, settings.ButtonKeyPrefix+button.Title, button.URL); err != nil {
				return err
			}
			n, err := links.UpdateRedirectURLByTitle(tx, button.Title, button.URL)
			if err != nil {
				return err
			}
			updated += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Info("Landing settings saved",
		slog.String("slug", s.Slug),
		slog.Int("buttons", len(s.Buttons)),
		slog.Int64("links_updated", updated))
	return updated, nil
}

// EnsureLandingPage creates the landing link for slug and its catalog buttons
// when they do not exist yet. Existing links are left untouched.
func EnsureLandingPage(db *gorm.DB, logger *slog.Logger, slug, title string) (*links.Link, error) {
	landing, err := links.FindBySlug(db, slug)
	var notFound *links.LinkNotFoundError
	switch {
	case errors.As(err, &notFound):
		landing, err = links.CreateLink(db, logger, links.CreateLinkInput{
			Title:      title,
			CustomSlug: slug,
			LinkType:   links.LinkTypeLanding,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create landing page %q: %w", slug, err)
		}
	case err != nil:
		return nil, err
	case !landing.IsLanding():
		return nil, &links.ValidationError{Field: "slug", Value: slug, Reason: "already used by a non-landing link"}
	}

	catalog, err := LoadCatalog()
	if err != nil {
		return nil, err
	}
	configured, err := settings.GetSettingsWithPrefix(db, settings.ButtonKeyPrefix)
	if err != nil {
		return nil, err
	}

	for _, button := range catalog.Buttons {
		buttonSlug := slug + "-" + button.Suffix
		if _, err := links.FindBySlug(db, buttonSlug); err == nil {
			continue
		} else if !errors.As(err, &notFound) {
			return nil, err
		}

		destination := button.Destination
		if value, ok := configured[button.Title]; ok {
			destination = value
		}
		_, err := links.CreateLink(db, logger, links.CreateLinkInput{
			Destination: destination,
			Title:       button.Title,
			CustomSlug:  buttonSlug,
			LinkType:    button.Type,
			ParentSlug:  slug,
		})
		var dup *links.DuplicateSlugError
		if err != nil && !errors.As(err, &dup) {
			return nil, fmt.Errorf("failed to create button %q: %w", button.Title, err)
		}
	}
	return landing, nil
}

// PageButton is one rendered outbound button.
type PageButton struct {
	Title string
	Slug  string
	Type  links.LinkType
	Href  string
}

// Page is everything the public landing page template needs.
type Page struct {
	Slug        string
	Title       string
	Description string
	Buttons     []PageButton
}

// LoadPage builds the page for the landing link addressed by slug. Buttons
// link to their short URL so every visit is recorded.
func LoadPage(db *gorm.DB, slug, defaultSlug string) (*Page, error) {
	landing, err := links.FindBySlug(db, slug)
	if err != nil {
		return nil, err
	}
	if !landing.IsLanding() {
		return nil, &links.LinkNotFoundError{Slug: slug}
	}

	var all []links.Link
	if err := db.Order("id ASC").Find(&all).Error; err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	cfg, err := Load(db, defaultSlug)
	if err != nil {
		return nil, err
	}

	page := &Page{Slug: landing.Slug, Title: landing.Title}
	if landing.Slug == cfg.Slug {
		page.Title = cfg.Title
		page.Description = cfg.Description
	}
	if page.Title == "" {
		page.Title = landing.Slug
	}

	for _, button := range analytics.ButtonsForLanding(*landing, all) {
		title := button.Title
		if title == "" {
			title = button.Slug
		}
		page.Buttons = append(page.Buttons, PageButton{
			Title: title,
			Slug:  button.Slug,
			Type:  button.ButtonType,
			Href:  "/r/" + button.Slug,
		})
	}
	return page, nil
}
