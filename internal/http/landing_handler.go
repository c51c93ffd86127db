package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"linkbio/internal/landing"
	"linkbio/internal/links"
	"linkbio/internal/settings"
	"linkbio/web"
)

// LandingHomeAction renders the configured landing page at /.
func (h *Handlers) LandingHomeAction(ctx *cartridge.Context) error {
	slug, err := settings.GetSettingOr(ctx.DB(), settings.KeyLandingSlug, h.Config.DefaultLandingSlug)
	if err != nil {
		ctx.Logger.Error("Failed to read landing slug", slog.Any("error", err))
		slug = h.Config.DefaultLandingSlug
	}
	return h.renderLanding(ctx, slug)
}

// LandingPageAction renders the landing page /l/:slug.
func (h *Handlers) LandingPageAction(ctx *cartridge.Context) error {
	return h.renderLanding(ctx, ctx.Params("slug"))
}

func (h *Handlers) renderLanding(ctx *cartridge.Context, slug string) error {
	page, err := landing.LoadPage(ctx.DB(), slug, h.Config.DefaultLandingSlug)
	if err != nil {
		var notFound *links.LinkNotFoundError
		if errors.As(err, &notFound) {
			return h.renderNotFound(ctx, slug)
		}
		ctx.Logger.Error("Failed to load landing page", slog.String("slug", slug), slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).SendString("Internal Server Error")
	}

	return h.renderPage(ctx, http.StatusOK, web.TemplateLanding, pageData{
		PageTitle: page.Title,
		Page:      page,
	})
}

// LandingSettingsAction returns the editable landing configuration.
func (h *Handlers) LandingSettingsAction(ctx *cartridge.Context) error {
	s, err := landing.Load(ctx.DB(), h.Config.DefaultLandingSlug)
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(s)
}

// LandingSettingsUpdateAction saves the landing configuration, repoints
// matching buttons and makes sure the configured landing page exists.
func (h *Handlers) LandingSettingsUpdateAction(ctx *cartridge.Context) error {
	var input landing.Settings
	if err := ctx.BodyParser(&input); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	db := ctx.DB()
	updated, err := landing.Save(db, ctx.Logger, input)
	if err != nil {
		return respondError(ctx, err)
	}

	saved, err := landing.Load(db, h.Config.DefaultLandingSlug)
	if err != nil {
		return respondError(ctx, err)
	}

	if _, err := landing.EnsureLandingPage(db, ctx.Logger, saved.Slug, saved.Title); err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(fiber.Map{
		"settings":      saved,
		"links_updated": updated,
	})
}
