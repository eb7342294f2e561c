package notifier

import (
	"sheetpulse/internal/websocket"

	"github.com/google/uuid"
)

// LocalNotifier emits directly to the websocket Hub's locally-registered
// clients. Used by the API process, which is the only process holding live
// connections.
type LocalNotifier struct {
	hub *websocket.Hub
}

func NewLocalNotifier(hub *websocket.Hub) *LocalNotifier {
	return &LocalNotifier{hub: hub}
}

func (n *LocalNotifier) EmitToUser(userID uuid.UUID, event string, data interface{}) {
	n.hub.Send(userID, websocket.Event{Event: event, Data: data})
}

func (n *LocalNotifier) EmitToRoom(room string, event string, data interface{}) {
	if userID, ok := userIDFromRoom(room); ok {
		n.EmitToUser(userID, event, data)
	}
}

func (n *LocalNotifier) Broadcast(event string, data interface{}) {
	n.hub.Broadcast(websocket.Event{Event: event, Data: data})
}
