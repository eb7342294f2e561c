package mapper

import (
	"sheetpulse/internal/entity"
	"sheetpulse/internal/model"
)

type SyncStateMapper struct{}

func NewSyncStateMapper() *SyncStateMapper {
	return &SyncStateMapper{}
}

func (m *SyncStateMapper) ToEntity(s *model.SyncState) *entity.SyncState {
	if s == nil {
		return nil
	}
	return &entity.SyncState{
		Id:              s.Id,
		ConnectionId:    s.ConnectionId,
		LastSyncedRow:   s.LastSyncedRow,
		LastSyncTime:    s.LastSyncTime,
		Status:          entity.SyncStatus(s.Status),
		LastErrorText:   s.LastErrorText,
		TotalRowsSynced: s.TotalRowsSynced,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func (m *SyncStateMapper) ToModel(s *entity.SyncState) *model.SyncState {
	if s == nil {
		return nil
	}
	return &model.SyncState{
		Id:              s.Id,
		ConnectionId:    s.ConnectionId,
		LastSyncedRow:   s.LastSyncedRow,
		LastSyncTime:    s.LastSyncTime,
		Status:          string(s.Status),
		LastErrorText:   s.LastErrorText,
		TotalRowsSynced: s.TotalRowsSynced,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}
