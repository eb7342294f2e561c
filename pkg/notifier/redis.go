package notifier

import (
	"context"
	"encoding/json"

	"sheetpulse/internal/pkg/logger"
	"sheetpulse/internal/websocket"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisNotifier is the writer-only backend used by worker processes, which
// hold no live websocket connections of their own. It publishes onto the
// same cluster channel the API process's Hub subscribes to, so delivery is
// indistinguishable to the client from a local emit.
type RedisNotifier struct {
	rdb    *redis.Client
	logger logger.ILogger
}

func NewRedisNotifier(rdb *redis.Client, log logger.ILogger) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, logger: log}
}

func (n *RedisNotifier) EmitToUser(userID uuid.UUID, event string, data interface{}) {
	n.publish(userID.String(), event, data)
}

func (n *RedisNotifier) EmitToRoom(room string, event string, data interface{}) {
	if userID, ok := userIDFromRoom(room); ok {
		n.EmitToUser(userID, event, data)
	}
}

func (n *RedisNotifier) Broadcast(event string, data interface{}) {
	n.publish("*", event, data)
}

func (n *RedisNotifier) publish(targetUserID, event string, data interface{}) {
	message, err := json.Marshal(websocket.Event{Event: event, Data: data})
	if err != nil {
		n.logger.Warn("RedisNotifier", "failed to marshal event", map[string]interface{}{"error": err.Error()})
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"target_user_id": targetUserID,
		"message":        json.RawMessage(message),
	})
	if err != nil {
		n.logger.Warn("RedisNotifier", "failed to marshal envelope", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := n.rdb.Publish(context.Background(), websocket.ClusterChannel, payload).Err(); err != nil {
		n.logger.Warn("RedisNotifier", "failed to publish", map[string]interface{}{"error": err.Error(), "event": event})
	}
}
