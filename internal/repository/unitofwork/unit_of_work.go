package unitofwork

import (
	"context"

	"sheetpulse/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ConnectionRepository() contract.ConnectionRepository
	SyncStateRepository() contract.SyncStateRepository
	SheetRowRepository() contract.SheetRowRepository
	ConversationRepository() contract.ConversationRepository
	MessageRepository() contract.MessageRepository
}
