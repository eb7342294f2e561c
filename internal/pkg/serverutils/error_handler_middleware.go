package serverutils

import (
	"errors"

	"sheetpulse/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware maps a handler's returned error onto an HTTP status
// using the apperr taxonomy, so handlers never need to pick a status code
// themselves.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
		}

		status := fiber.StatusInternalServerError
		switch apperr.KindOf(err) {
		case apperr.KindValidation:
			status = fiber.StatusBadRequest
		case apperr.KindNotFound:
			status = fiber.StatusNotFound
		case apperr.KindRateLimited:
			status = fiber.StatusTooManyRequests
		case apperr.KindExternalUnavailable:
			status = fiber.StatusServiceUnavailable
		case apperr.KindToolError:
			status = fiber.StatusBadGateway
		case apperr.KindFatal:
			status = fiber.StatusInternalServerError
		}

		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
}
