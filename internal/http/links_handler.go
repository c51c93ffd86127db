package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"linkbio/internal/analytics"
	"linkbio/internal/links"
	"linkbio/internal/timeframe"
)

type linkResponse struct {
	*links.Link
	Destination string `json:"destination"`
	ShortURL    string `json:"short_url"`
}

type linkRowResponse struct {
	analytics.LinkSummary
	ShortURL string `json:"short_url"`
}

type updateLinkParams struct {
	Destination string `json:"destination"`
}

type resetParams struct {
	IDs []uint `json:"ids"`
}

func (h *Handlers) linkResponse(link *links.Link) linkResponse {
	return linkResponse{
		Link:        link,
		Destination: link.Destination(),
		ShortURL:    h.Config.ShortURL(link.Slug),
	}
}

func linkID(ctx *cartridge.Context) (uint, bool) {
	id, err := ctx.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

// LinksIndexAction lists every link, newest first, with its click windows.
func (h *Handlers) LinksIndexAction(ctx *cartridge.Context) error {
	all, err := links.ListLinks(ctx.DB())
	if err != nil {
		return respondError(ctx, err)
	}

	rows := analytics.Summarize(all, h.now())
	resp := make([]linkRowResponse, len(rows))
	for i, row := range rows {
		resp[i] = linkRowResponse{LinkSummary: row, ShortURL: h.Config.ShortURL(row.Slug)}
	}
	return ctx.JSON(fiber.Map{"links": resp})
}

// LinkCreateAction creates a link and returns it with its public short URL.
func (h *Handlers) LinkCreateAction(ctx *cartridge.Context) error {
	var input links.CreateLinkInput
	if err := ctx.BodyParser(&input); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	link, err := links.CreateLink(ctx.DB(), ctx.Logger, input)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.Status(http.StatusCreated).JSON(h.linkResponse(link))
}

// LinkShowAction returns one link with its click history.
func (h *Handlers) LinkShowAction(ctx *cartridge.Context) error {
	id, ok := linkID(ctx)
	if !ok {
		return badRequest(ctx, "Invalid link ID")
	}

	link, err := links.GetLink(ctx.DB(), id)
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(h.linkResponse(link))
}

// LinkUpdateAction changes the destination of a link.
func (h *Handlers) LinkUpdateAction(ctx *cartridge.Context) error {
	id, ok := linkID(ctx)
	if !ok {
		return badRequest(ctx, "Invalid link ID")
	}

	var params updateLinkParams
	if err := ctx.BodyParser(&params); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	db := ctx.DB()
	if err := links.UpdateRedirectURL(db, ctx.Logger, id, params.Destination); err != nil {
		return respondError(ctx, err)
	}

	link, err := links.GetLink(db, id)
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(h.linkResponse(link))
}

// LinkDeleteAction removes a link and its click events.
func (h *Handlers) LinkDeleteAction(ctx *cartridge.Context) error {
	id, ok := linkID(ctx)
	if !ok {
		return badRequest(ctx, "Invalid link ID")
	}

	if err := links.DeleteLink(ctx.DB(), ctx.Logger, id); err != nil {
		return respondError(ctx, err)
	}
	return ctx.SendStatus(http.StatusNoContent)
}

// LinkResetAction clears the clicks of a link; for a landing page its
// buttons are cleared too.
func (h *Handlers) LinkResetAction(ctx *cartridge.Context) error {
	id, ok := linkID(ctx)
	if !ok {
		return badRequest(ctx, "Invalid link ID")
	}

	ids, err := links.ResetClicksForLink(ctx.DB(), ctx.Logger, id)
	if err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"reset_ids": ids})
}

// LinksBulkResetAction clears the clicks of several links independently.
func (h *Handlers) LinksBulkResetAction(ctx *cartridge.Context) error {
	var params resetParams
	if err := ctx.BodyParser(&params); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	if len(params.IDs) == 0 {
		return badRequest(ctx, "No link IDs given")
	}

	if err := links.ResetClicks(ctx.DB(), ctx.Logger, params.IDs); err != nil {
		return respondError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"reset_ids": params.IDs})
}

// LinkStatsAction returns the detail statistics of a link over the requested
// time frame. Landing pages report their consolidated history.
func (h *Handlers) LinkStatsAction(ctx *cartridge.Context) error {
	id, ok := linkID(ctx)
	if !ok {
		return badRequest(ctx, "Invalid link ID")
	}

	tf, err := h.parseTimeFrame(ctx)
	if err != nil {
		return badRequest(ctx, err.Error())
	}

	state := links.NewState(ctx.DB())
	if err := state.Refresh(); err != nil {
		return respondError(ctx, err)
	}

	link, found := state.FindByID(id)
	if !found {
		return respondError(ctx, &links.LinkNotFoundError{ID: id})
	}

	stats := analytics.StatsFor(link, state.Links(), h.now(), tf, ctx.QueryInt("limit", defaultTopLimit))
	stats.Breakdown = displayBreakdown(stats.Breakdown)
	return ctx.JSON(stats)
}

func (h *Handlers) parseTimeFrame(ctx *cartridge.Context) (*timeframe.TimeFrame, error) {
	return timeframe.NewParser(h.now).Parse(timeframe.ParserParams{
		FromDate: ctx.Query("from"),
		ToDate:   ctx.Query("to"),
		Tz:       ctx.Query("tz"),
		Bucket:   ctx.Query("bucket"),
	})
}
