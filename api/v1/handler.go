package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"linkbio/internal/clicks"
	"linkbio/internal/pkg/clientip"
)

const msgClickAccepted = "Click accepted"

// TrackClickParams is the body of a click tracking request.
type TrackClickParams struct {
	Slug     string `json:"slug"`
	Referrer string `json:"referrer"`
}

// ClickRecorder records clicks without blocking the request.
type ClickRecorder interface {
	RecordAsync(input clicks.RecordInput)
}

// TrackClickAction accepts a click for a slug. The response is always 202:
// unknown slugs and malformed bodies are logged and dropped.
func TrackClickAction(recorder ClickRecorder) func(*cartridge.Context) error {
	return func(ctx *cartridge.Context) error {
		var params TrackClickParams
		if err := ctx.BodyParser(&params); err != nil {
			ctx.Logger.Debug("Failed to parse click request", slog.Any("error", err))
			return accepted(ctx)
		}

		track(ctx, recorder, params)
		return accepted(ctx)
	}
}

// TrackClickBeaconAction handles clicks sent via navigator.sendBeacon, which
// always posts the JSON body as text/plain.
func TrackClickBeaconAction(recorder ClickRecorder) func(*cartridge.Context) error {
	return func(ctx *cartridge.Context) error {
		var params TrackClickParams
		if err := json.Unmarshal(ctx.Body(), &params); err != nil {
			ctx.Logger.Debug("Failed to parse beacon request", slog.Any("error", err))
			return ctx.SendStatus(http.StatusAccepted)
		}

		track(ctx, recorder, params)
		return ctx.SendStatus(http.StatusAccepted)
	}
}

func track(ctx *cartridge.Context, recorder ClickRecorder, params TrackClickParams) {
	slug := strings.TrimSpace(params.Slug)
	if slug == "" {
		ctx.Logger.Debug("Click request without slug")
		return
	}
	if recorder == nil {
		return
	}

	referrer := params.Referrer
	if referrer == "" {
		referrer = ctx.Get(fiber.HeaderReferer)
	}

	userAgent := ctx.Get(fiber.HeaderUserAgent)
	if forwardedUA := ctx.Get("X-Forwarded-User-Agent"); forwardedUA != "" {
		userAgent = forwardedUA
	}

	recorder.RecordAsync(clicks.RecordInput{
		Slug:      slug,
		Referrer:  referrer,
		UserAgent: userAgent,
		IPAddress: clientip.FromRequest(ctx.Ctx),
	})
}

func accepted(ctx *cartridge.Context) error {
	return ctx.Status(http.StatusAccepted).JSON(fiber.Map{
		"message": msgClickAccepted,
		"status":  http.StatusAccepted,
	})
}
