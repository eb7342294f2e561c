package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"sheetpulse/internal/repository/unitofwork"
	"sheetpulse/pkg/database"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormConnection_WiresRepositories(t *testing.T) {
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("no .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err)

	factory := unitofwork.NewRepositoryFactory(gormDB)
	uow := factory.NewUnitOfWork(context.Background())

	assert.NotNil(t, uow.ConnectionRepository())
	assert.NotNil(t, uow.SyncStateRepository())
	assert.NotNil(t, uow.SheetRowRepository())
	assert.NotNil(t, uow.ConversationRepository())
	assert.NotNil(t, uow.MessageRepository())

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	assert.NoError(t, sqlDB.Ping())
}
