package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Connection carries no DeletedAt: unlike conversations and messages, a
// deleted connection and its synced data are gone for good, per the cascade
// ConnectionHandler.Delete performs.
type Connection struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId         uuid.UUID      `gorm:"type:uuid;not null;index"`
	SheetId        string         `gorm:"type:text;not null"`
	SheetTabName   string         `gorm:"type:text;not null"`
	SheetType      string         `gorm:"type:text;not null;index"`
	ColumnMappings datatypes.JSON `gorm:"type:jsonb;not null"`
	HeaderRow      int            `gorm:"not null;default:1"`
	DataStartRow   int            `gorm:"not null;default:2"`
	SyncEnabled    bool           `gorm:"not null;default:true"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime"`
}

func (Connection) TableName() string {
	return "connections"
}
