package http

import (
	"log/slog"
	"net/http"

	"github.com/karloscodes/cartridge"
)

// MetricsAction exposes the Prometheus counters in the text format.
func (h *Handlers) MetricsAction(ctx *cartridge.Context) error {
	if h.Metrics == nil {
		return ctx.SendStatus(http.StatusNotFound)
	}

	body, err := h.Metrics.Gather()
	if err != nil {
		ctx.Logger.Error("Failed to gather metrics", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).SendString("Failed to gather metrics")
	}

	ctx.Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	return ctx.SendString(body)
}
