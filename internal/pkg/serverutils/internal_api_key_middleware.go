package serverutils

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

// InternalAPIKeyMiddleware guards the trigger-sync endpoint the queue
// producer (cron, sheet webhook relay) calls. The comparison is
// constant-time so response timing can't be used to brute-force the key.
func InternalAPIKeyMiddleware(expectedKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		provided := c.Get("X-Internal-API-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(expectedKey)) != 1 {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid internal api key")
		}
		return c.Next()
	}
}
