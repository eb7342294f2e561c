package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SheetRow struct {
	Id           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConnectionId uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_connection_row"`
	RowNumber    int            `gorm:"not null;uniqueIndex:idx_connection_row"`
	Document     datatypes.JSON `gorm:"type:jsonb;not null"`
	RawRow       datatypes.JSON `gorm:"type:jsonb;not null"`
	SyncedAt     time.Time      `gorm:"type:timestamptz;not null"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
}

func (SheetRow) TableName() string {
	return "sheet_rows"
}
