package bootstrap

import (
	"context"
	"log"
	"time"

	"sheetpulse/internal/config"
	"sheetpulse/internal/handler"
	"sheetpulse/internal/pkg/logger"
	"sheetpulse/internal/repository/unitofwork"
	"sheetpulse/internal/websocket"
	"sheetpulse/pkg/analytics"
	"sheetpulse/pkg/cache"
	"sheetpulse/pkg/chatworkflow"
	"sheetpulse/pkg/crawler"
	"sheetpulse/pkg/docstore"
	"sheetpulse/pkg/llm/factory"
	"sheetpulse/pkg/notifier"
	"sheetpulse/pkg/queue"
	"sheetpulse/pkg/ratelimiter"
	"sheetpulse/pkg/sheets"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// core is the set of dependencies both the API and worker process need,
// built once and then specialized with the notifier backend each process
// actually owns: LocalNotifier for the API (which holds live websocket
// connections) and RedisNotifier for the worker (which has none and would
// otherwise double-deliver events through the API's own Redis subscription
// if it used a local hub too).
type core struct {
	logger          logger.ILogger
	uowFactory      unitofwork.RepositoryFactory
	redis           *redis.Client
	queue           *queue.SyncQueue
	limiter         *ratelimiter.SheetsRateLimiter
	sheetsClient    *sheets.Client
	cache           *cache.AnalyticsCache
	analyticsEngine *analytics.Engine
}

func newCore(db *gorm.DB, cfg *config.Config) *core {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	uowFactory := unitofwork.NewRepositoryFactory(db)
	uow := uowFactory.NewUnitOfWork(context.Background())

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisURL})

	syncQueue, err := queue.Connect(cfg.Queue.NatsURL, cfg.Queue.StreamName, cfg.Queue.SubjectPrefix)
	if err != nil {
		log.Fatalf("connecting to sync queue: %v", err)
	}

	sheetsClient, err := sheets.NewClient(context.Background(), cfg.Sheets.CredentialsFile)
	if err != nil {
		log.Fatalf("connecting to sheets client: %v", err)
	}

	limiter := ratelimiter.NewSheetsRateLimiter(cfg.Limiter.SafetyFactor)
	analyticsCache := cache.New(rdb, time.Duration(cfg.Cache.TTLSecond)*time.Second, sysLogger)
	store := docstore.NewStore(uow.SheetRowRepository())
	engine := analytics.NewEngine(uow.ConnectionRepository(), store, analyticsCache)

	return &core{
		logger:          sysLogger,
		uowFactory:      uowFactory,
		redis:           rdb,
		queue:           syncQueue,
		limiter:         limiter,
		sheetsClient:    sheetsClient,
		cache:           analyticsCache,
		analyticsEngine: engine,
	}
}

func (c *core) newCrawler(notif notifier.Notifier) *crawler.Service {
	uow := c.uowFactory.NewUnitOfWork(context.Background())
	return crawler.NewService(
		c.sheetsClient,
		uow.ConnectionRepository(),
		uow.SyncStateRepository(),
		uow.SheetRowRepository(),
		notif,
		c.cache,
		c.logger,
	)
}

// APIContainer holds everything the HTTP server needs: the request
// handlers, the websocket hub and its local notifier, and the chat
// workflow that drives the agent over the caller's own connections.
type APIContainer struct {
	Logger     logger.ILogger
	UowFactory unitofwork.RepositoryFactory
	WebSocketHub *websocket.Hub

	ConnectionHandler *handler.ConnectionHandler
	ChatHandler       *handler.ChatHandler
	AnalyticsHandler  *handler.AnalyticsHandler
	WebSocketHandler  *handler.WebSocketHandler
	InternalHandler   *handler.InternalHandler
}

func NewAPIContainer(db *gorm.DB, cfg *config.Config) *APIContainer {
	c := newCore(db, cfg)

	wsHub := websocket.NewHub(c.redis, logger.NewIsolatedLogger(cfg.App.LogFilePath))
	go wsHub.Run()
	localNotifier := notifier.NewLocalNotifier(wsHub)

	crawlerSvc := c.newCrawler(localNotifier)

	llmProvider, err := factory.NewLLMProvider(cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.BaseURL, cfg.LLM.APIKey)
	if err != nil {
		log.Fatalf("constructing LLM provider: %v", err)
	}
	workflow := chatworkflow.New(llmProvider, localNotifier)

	return &APIContainer{
		Logger:       c.logger,
		UowFactory:   c.uowFactory,
		WebSocketHub: wsHub,

		ConnectionHandler: handler.NewConnectionHandler(c.uowFactory, crawlerSvc, c.queue),
		ChatHandler:       handler.NewChatHandler(c.uowFactory, workflow),
		AnalyticsHandler:  handler.NewAnalyticsHandler(c.uowFactory, c.analyticsEngine),
		WebSocketHandler:  handler.NewWebSocketHandler(wsHub),
		InternalHandler:   handler.NewInternalHandler(c.queue),
	}
}

// WorkerContainer holds everything the sync worker process needs: the
// queue consumer, the rate limiter it spends tokens against, and a
// Redis-publishing notifier since the worker holds no live connections of
// its own to deliver to directly.
type WorkerContainer struct {
	Logger logger.ILogger
	Worker *queue.Worker
}

func NewWorkerContainer(db *gorm.DB, cfg *config.Config) *WorkerContainer {
	c := newCore(db, cfg)

	redisNotifier := notifier.NewRedisNotifier(c.redis, c.logger)
	crawlerSvc := c.newCrawler(redisNotifier)

	worker := queue.NewWorker(c.queue, "sheet-sync-worker", crawlerSvc, c.limiter, redisNotifier, c.logger)

	return &WorkerContainer{
		Logger: c.logger,
		Worker: worker,
	}
}
