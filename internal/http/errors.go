package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"linkbio/internal/links"
)

// Error codes returned in JSON error bodies
const (
	CodeDuplicateSlug    = "DUPLICATE_SLUG"
	CodeValidationError  = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodePartialFailure   = "PARTIAL_FAILURE"
	CodePersistenceError = "PERSISTENCE_ERROR"
	CodeInvalidRequest   = "INVALID_REQUEST"
)

// respondError maps store errors to their HTTP status and JSON body.
func respondError(ctx *cartridge.Context, err error) error {
	var duplicate *links.DuplicateSlugError
	if errors.As(err, &duplicate) {
		return ctx.Status(http.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
			"code":  CodeDuplicateSlug,
			"slug":  duplicate.Slug,
		})
	}

	var validation *links.ValidationError
	if errors.As(err, &validation) {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
			"code":  CodeValidationError,
			"field": validation.Field,
		})
	}

	var notFound *links.LinkNotFoundError
	if errors.As(err, &notFound) {
		return ctx.Status(http.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
			"code":  CodeNotFound,
		})
	}

	var reset *links.ResetError
	if errors.As(err, &reset) {
		ctx.Logger.Error("Click reset partially failed", slog.Any("failed_ids", reset.FailedIDs()))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error":      err.Error(),
			"code":       CodePartialFailure,
			"failed_ids": reset.FailedIDs(),
		})
	}

	ctx.Logger.Error("Request failed", slog.String("path", ctx.Path()), slog.Any("error", err))
	return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{
		"error": "Failed to access the link store",
		"code":  CodePersistenceError,
	})
}

func badRequest(ctx *cartridge.Context, message string) error {
	return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
		"error": message,
		"code":  CodeInvalidRequest,
	})
}
