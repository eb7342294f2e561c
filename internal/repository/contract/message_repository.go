package contract

import (
	"context"

	"sheetpulse/internal/entity"
	"sheetpulse/internal/repository/specification"

	"github.com/google/uuid"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *entity.Message) error
	Update(ctx context.Context, msg *entity.Message) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Message, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error)
	FindByConversationId(ctx context.Context, conversationId uuid.UUID, limit int) ([]*entity.Message, error)
}
