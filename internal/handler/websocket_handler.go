package handler

import (
	"sheetpulse/internal/apperr"
	"sheetpulse/internal/websocket"

	"github.com/gofiber/fiber/v2"
	gofiberws "github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// WebSocketHandler upgrades a connection and hands it to the hub, the same
// split the teacher's notification surface used: the handler owns the HTTP
// upgrade and identity extraction, the hub owns delivery.
type WebSocketHandler struct {
	hub *websocket.Hub
}

func NewWebSocketHandler(hub *websocket.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

func (h *WebSocketHandler) RegisterRoutes(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if gofiberws.IsWebSocketUpgrade(c) {
			userID, err := uuid.Parse(c.Query("user_id"))
			if err != nil {
				return apperr.New(apperr.KindValidation, "missing or invalid user_id query param")
			}
			c.Locals("ws_user_id", userID)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws", gofiberws.New(func(conn *gofiberws.Conn) {
		userID, _ := conn.Locals("ws_user_id").(uuid.UUID)
		websocket.ServeWs(h.hub, conn, userID)
	}))
}
