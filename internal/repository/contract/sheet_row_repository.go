package contract

import (
	"context"

	"sheetpulse/internal/entity"

	"github.com/google/uuid"
)

type SheetRowRepository interface {
	// UpsertBatch inserts or updates rows keyed by (connection_id, row_number).
	UpsertBatch(ctx context.Context, rows []*entity.SheetRow) error
	FindByConnection(ctx context.Context, connectionId uuid.UUID, limit, offset int) ([]*entity.SheetRow, error)
	// FindDocuments returns the raw mapped documents for a set of connections, for pipeline execution.
	FindDocuments(ctx context.Context, connectionIds []uuid.UUID) ([]map[string]interface{}, error)
	DeleteByConnectionId(ctx context.Context, connectionId uuid.UUID) error
}
