package entity

import (
	"time"

	"github.com/google/uuid"
)

type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSyncing SyncStatus = "syncing"
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusFailed  SyncStatus = "failed"
)

type SyncState struct {
	Id              uuid.UUID
	ConnectionId    uuid.UUID
	LastSyncedRow   int
	LastSyncTime    *time.Time
	Status          SyncStatus
	LastErrorText   string
	TotalRowsSynced int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
