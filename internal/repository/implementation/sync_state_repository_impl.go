package implementation

import (
	"context"
	"errors"

	"sheetpulse/internal/entity"
	"sheetpulse/internal/mapper"
	"sheetpulse/internal/model"
	"sheetpulse/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SyncStateRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SyncStateMapper
}

func NewSyncStateRepository(db *gorm.DB) contract.SyncStateRepository {
	return &SyncStateRepositoryImpl{
		db:     db,
		mapper: mapper.NewSyncStateMapper(),
	}
}

func (r *SyncStateRepositoryImpl) FindByConnectionId(ctx context.Context, connectionId uuid.UUID) (*entity.SyncState, error) {
	var m model.SyncState
	err := r.db.WithContext(ctx).Where("connection_id = ?", connectionId).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

// Upsert creates the state row on first sync attempt or overwrites the existing
// singleton row for the connection, matching the spec's "lazily created" invariant.
func (r *SyncStateRepositoryImpl) Upsert(ctx context.Context, state *entity.SyncState) error {
	m := r.mapper.ToModel(state)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "connection_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"last_synced_row", "last_sync_time", "status", "last_error_text", "total_rows_synced", "updated_at",
		}),
	}).Create(m).Error
	if err != nil {
		return err
	}
	*state = *r.mapper.ToEntity(m)
	return nil
}

// DeleteByConnectionId hard-deletes the connection's sync state, part of the
// cascade a connection delete performs before removing the connection row itself.
func (r *SyncStateRepositoryImpl) DeleteByConnectionId(ctx context.Context, connectionId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("connection_id = ?", connectionId).Delete(&model.SyncState{}).Error
}
