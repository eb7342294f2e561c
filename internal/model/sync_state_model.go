package model

import (
	"time"

	"github.com/google/uuid"
)

type SyncState struct {
	Id              uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConnectionId    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex"`
	LastSyncedRow   int        `gorm:"not null;default:0"`
	LastSyncTime    *time.Time `gorm:"type:timestamptz"`
	Status          string     `gorm:"type:text;not null;default:'pending'"`
	LastErrorText   string     `gorm:"type:text"`
	TotalRowsSynced int        `gorm:"not null;default:0"`
	CreatedAt       time.Time  `gorm:"autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime"`
}

func (SyncState) TableName() string {
	return "sync_states"
}
