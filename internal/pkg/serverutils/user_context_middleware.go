package serverutils

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userIDLocalsKey = "user_id"

// UserContextMiddleware reads the caller's identity off X-User-Id. Real JWT
// verification is the out-of-scope auth layer's job; this middleware is the
// boundary this system actually owns, the same way the teacher's handlers
// never re-derive a user ID themselves but trust whatever upstream auth
// middleware already put in fiber.Ctx locals.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get("X-User-Id")
		userID, err := uuid.Parse(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "missing or invalid X-User-Id header")
		}
		c.Locals(userIDLocalsKey, userID)
		return c.Next()
	}
}

// UserID reads the identity UserContextMiddleware stored for this request.
func UserID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(userIDLocalsKey).(uuid.UUID)
	return id
}
