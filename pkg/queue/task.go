package queue

import (
	"time"

	"github.com/google/uuid"
)

// SyncTask is the transient payload carried on the durable sync queue.
type SyncTask struct {
	ConnectionId uuid.UUID `json:"connection_id"`
	UserId       uuid.UUID `json:"user_id"`
	QueuedAt     time.Time `json:"queued_at"`
	RetryCount   int       `json:"retry_count"`
}

const MaxRetries = 3
