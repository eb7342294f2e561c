package contract

import (
	"context"

	"sheetpulse/internal/entity"

	"github.com/google/uuid"
)

type SyncStateRepository interface {
	// FindByConnectionId returns nil, nil if no state exists yet for the connection.
	FindByConnectionId(ctx context.Context, connectionId uuid.UUID) (*entity.SyncState, error)
	Upsert(ctx context.Context, state *entity.SyncState) error
	DeleteByConnectionId(ctx context.Context, connectionId uuid.UUID) error
}
