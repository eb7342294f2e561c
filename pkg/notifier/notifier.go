package notifier

import (
	"strings"

	"github.com/google/uuid"
)

// Event is the envelope delivered to clients over the websocket connection;
// Event names are bit-exact contract strings (e.g. "sheet:sync:completed").
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Notifier is the single cross-process notification capability. Both the API
// process (which owns live websocket connections) and the worker process
// (which has none) implement it, so callers never need to know which
// process they are running in.
type Notifier interface {
	EmitToUser(userID uuid.UUID, event string, data interface{})
	// EmitToRoom targets a named room. Every room is "user:{id}" today, so
	// this parses that convention and delegates to EmitToUser.
	EmitToRoom(room string, event string, data interface{})
	Broadcast(event string, data interface{})
}

const userRoomPrefix = "user:"

// userIDFromRoom parses the "user:{id}" room-naming convention.
func userIDFromRoom(room string) (uuid.UUID, bool) {
	id, ok := strings.CutPrefix(room, userRoomPrefix)
	if !ok {
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}
