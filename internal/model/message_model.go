package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Message struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConversationId uuid.UUID      `gorm:"type:uuid;not null;index"`
	Role           string         `gorm:"type:text;not null"`
	Content        string         `gorm:"type:text;not null"`
	Attachments    datatypes.JSON `gorm:"type:jsonb"`
	Metadata       datatypes.JSON `gorm:"type:jsonb"`
	IsComplete     bool           `gorm:"not null;default:true"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (Message) TableName() string {
	return "messages"
}
