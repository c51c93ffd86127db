package http

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"linkbio/internal/pkg/clientip"
	"linkbio/internal/redirect"
	"linkbio/web"
)

// RedirectAction resolves /r/:code. Known codes are tracked in the background
// and either redirected immediately or shown a countdown page; unknown codes
// get the not found page.
func (h *Handlers) RedirectAction(ctx *cartridge.Context) error {
	code := ctx.Params("code")

	res := h.Resolver.Resolve(ctx.UserContext(), redirect.Request{
		Code:      code,
		Referrer:  ctx.Get(fiber.HeaderReferer),
		UserAgent: ctx.Get(fiber.HeaderUserAgent),
		IPAddress: clientip.FromRequest(ctx.Ctx),
	})

	if !res.Found() {
		ctx.Logger.Debug("Short code not found", slog.String("code", code))
		return h.renderNotFound(ctx, res.Code)
	}

	destination, err := res.Navigate()
	if err != nil {
		ctx.Logger.Error("Failed to navigate", slog.String("code", code), slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).SendString("Internal Server Error")
	}

	countdown := res.CountdownSeconds()
	if countdown == 0 {
		return ctx.Redirect(destination, fiber.StatusFound)
	}

	return h.renderPage(ctx, http.StatusOK, web.TemplateRedirect, pageData{
		PageTitle:      "Redirecting…",
		RefreshURL:     destination,
		RefreshSeconds: countdown,
		Destination:    destination,
		Countdown:      countdown,
	})
}
