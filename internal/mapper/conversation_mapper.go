package mapper

import (
	"encoding/json"
	"time"

	"sheetpulse/internal/entity"
	"sheetpulse/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ConversationMapper struct{}

func NewConversationMapper() *ConversationMapper {
	return &ConversationMapper{}
}

func (m *ConversationMapper) ToEntity(c *model.Conversation) *entity.Conversation {
	if c == nil {
		return nil
	}

	var deletedAt *time.Time
	if c.DeletedAt.Valid {
		t := c.DeletedAt.Time
		deletedAt = &t
	}

	return &entity.Conversation{
		Id:            c.Id,
		UserId:        c.UserId,
		Title:         c.Title,
		Status:        entity.ConversationStatus(c.Status),
		MessageCount:  c.MessageCount,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
		DeletedAt:     deletedAt,
		IsDeleted:     c.DeletedAt.Valid,
	}
}

func (m *ConversationMapper) ToModel(c *entity.Conversation) *model.Conversation {
	if c == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if c.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *c.DeletedAt, Valid: true}
	} else if c.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	return &model.Conversation{
		Id:            c.Id,
		UserId:        c.UserId,
		Title:         c.Title,
		Status:        string(c.Status),
		MessageCount:  c.MessageCount,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
		DeletedAt:     deletedAt,
	}
}

func (m *ConversationMapper) ToEntities(cs []*model.Conversation) []*entity.Conversation {
	out := make([]*entity.Conversation, len(cs))
	for i, c := range cs {
		out[i] = m.ToEntity(c)
	}
	return out
}

func (m *ConversationMapper) MessageToEntity(msg *model.Message) *entity.Message {
	if msg == nil {
		return nil
	}

	var deletedAt *time.Time
	if msg.DeletedAt.Valid {
		t := msg.DeletedAt.Time
		deletedAt = &t
	}

	var attachments []string
	_ = json.Unmarshal(msg.Attachments, &attachments)

	var metadata entity.MessageMetadata
	_ = json.Unmarshal(msg.Metadata, &metadata)

	return &entity.Message{
		Id:             msg.Id,
		ConversationId: msg.ConversationId,
		Role:           entity.MessageRole(msg.Role),
		Content:        msg.Content,
		Attachments:    attachments,
		Metadata:       metadata,
		IsComplete:     msg.IsComplete,
		CreatedAt:      msg.CreatedAt,
		DeletedAt:      deletedAt,
		IsDeleted:      msg.DeletedAt.Valid,
	}
}

func (m *ConversationMapper) MessageToModel(msg *entity.Message) *model.Message {
	if msg == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if msg.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *msg.DeletedAt, Valid: true}
	} else if msg.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	attachmentsJSON, _ := json.Marshal(msg.Attachments)
	metadataJSON, _ := json.Marshal(msg.Metadata)

	return &model.Message{
		Id:             msg.Id,
		ConversationId: msg.ConversationId,
		Role:           string(msg.Role),
		Content:        msg.Content,
		Attachments:    datatypes.JSON(attachmentsJSON),
		Metadata:       datatypes.JSON(metadataJSON),
		IsComplete:     msg.IsComplete,
		CreatedAt:      msg.CreatedAt,
		DeletedAt:      deletedAt,
	}
}

func (m *ConversationMapper) MessagesToEntities(msgs []*model.Message) []*entity.Message {
	out := make([]*entity.Message, len(msgs))
	for i, msg := range msgs {
		out[i] = m.MessageToEntity(msg)
	}
	return out
}
