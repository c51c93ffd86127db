// Package http holds the admin API, public page and redirect handlers.
package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"linkbio/internal/config"
	"linkbio/internal/landing"
	"linkbio/internal/pkg/metrics"
	"linkbio/internal/redirect"
	"linkbio/web"
)

const defaultTopLimit = 10

// Handlers carries the dependencies shared by request handlers.
type Handlers struct {
	Config   *config.Config
	Resolver *redirect.Resolver
	Renderer *web.Renderer
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// pageData is the binding of every public HTML page.
type pageData struct {
	PageTitle      string
	RefreshURL     string
	RefreshSeconds int
	Page           *landing.Page
	Destination    string
	Countdown      int
	Code           string
}

func (h *Handlers) renderPage(ctx *cartridge.Context, status int, name string, data pageData) error {
	var out bytes.Buffer
	if err := h.Renderer.Render(&out, name, data); err != nil {
		ctx.Logger.Error("Failed to render page", slog.String("template", name), slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).SendString("Internal Server Error")
	}
	ctx.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return ctx.Status(status).Send(out.Bytes())
}

func (h *Handlers) renderNotFound(ctx *cartridge.Context, code string) error {
	return h.renderPage(ctx, http.StatusNotFound, web.TemplateNotFound, pageData{
		PageTitle: "Link not found",
		Code:      code,
	})
}
