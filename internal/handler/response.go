package handler

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"go-stock-ledger/internal/apperror"
	"go-stock-ledger/pkg/logger"
)

// respondError renders err as {"error", "code", "details"} with the matching status.
func respondError(c *fiber.Ctx, err error) error {
	status := apperror.HTTPStatus(err)
	body := fiber.Map{"error": err.Error(), "code": apperror.KindOf(err)}
	if appErr, ok := apperror.As(err); ok {
		body["error"] = appErr.Message
		if len(appErr.Details) > 0 {
			body["details"] = appErr.Details
		}
	}
	if status >= fiber.StatusInternalServerError {
		logger.L().Errorw("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		body["error"] = "Internal Server Error"
	}
	return c.Status(status).JSON(body)
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperror.Validation("Invalid JSON")
	}
	return nil
}

// param reads a path parameter, undoing percent-encoding ("P001%7CB1").
func param(c *fiber.Ctx, name string) string {
	raw := c.Params(name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
