package entity

import (
	"time"

	"github.com/google/uuid"
)

// SheetRow is the normalized document for a single source row, keyed by
// (connection_id, row_number). Document holds the mapped system fields;
// RawRow holds the original cell strings in sheet order.
type SheetRow struct {
	Id           uuid.UUID
	ConnectionId uuid.UUID
	RowNumber    int
	Document     map[string]interface{}
	RawRow       []string
	SyncedAt     time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
