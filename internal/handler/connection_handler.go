package handler

import (
	"strconv"

	"sheetpulse/internal/apperr"
	"sheetpulse/internal/entity"
	"sheetpulse/internal/pkg/serverutils"
	"sheetpulse/internal/repository/specification"
	"sheetpulse/internal/repository/unitofwork"
	"sheetpulse/pkg/crawler"
	"sheetpulse/pkg/queue"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ConnectionHandler is the thin CRUD surface over a caller's sheet
// connections, plus the two actions a connection-setup UI needs that are
// not plain CRUD: preview and trigger-sync.
type ConnectionHandler struct {
	uowFactory unitofwork.RepositoryFactory
	crawler    *crawler.Service
	queue      *queue.SyncQueue
}

func NewConnectionHandler(uowFactory unitofwork.RepositoryFactory, crawlerSvc *crawler.Service, q *queue.SyncQueue) *ConnectionHandler {
	return &ConnectionHandler{uowFactory: uowFactory, crawler: crawlerSvc, queue: q}
}

func (h *ConnectionHandler) RegisterRoutes(router fiber.Router) {
	g := router.Group("/connections", serverutils.UserContextMiddleware())
	g.Get("/", h.List)
	g.Post("/", h.Create)
	g.Get("/:id", h.Get)
	g.Put("/:id", h.Update)
	g.Delete("/:id", h.Delete)
	g.Get("/:id/preview", h.Preview)
	g.Post("/:id/sync", h.TriggerSync)
}

type connectionRequest struct {
	SheetId        string                 `json:"sheet_id" validate:"required"`
	SheetTabName   string                 `json:"sheet_tab_name" validate:"required"`
	SheetType      entity.SheetType       `json:"sheet_type" validate:"required,oneof=orders order_items customers products"`
	ColumnMappings []entity.ColumnMapping `json:"column_mappings" validate:"required,min=1,dive"`
	HeaderRow      int                    `json:"header_row" validate:"required,min=1"`
	DataStartRow   int                    `json:"data_start_row" validate:"required,min=1"`
	SyncEnabled    bool                   `json:"sync_enabled"`
}

func (h *ConnectionHandler) List(c *fiber.Ctx) error {
	uow := h.uowFactory.NewUnitOfWork(c.Context())
	conns, err := uow.ConnectionRepository().FindAll(c.Context(), byOwner(c))
	if err != nil {
		return err
	}
	return c.JSON(conns)
}

func (h *ConnectionHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid connection id")
	}
	uow := h.uowFactory.NewUnitOfWork(c.Context())
	conn, err := uow.ConnectionRepository().FindOne(c.Context(), specification.ByID{ID: id}, byOwner(c))
	if err != nil {
		return err
	}
	if conn == nil {
		return apperr.New(apperr.KindNotFound, "connection not found")
	}
	return c.JSON(conn)
}

func (h *ConnectionHandler) Create(c *fiber.Ctx) error {
	var req connectionRequest
	if err := serverutils.BindAndValidate(c, &req); err != nil {
		return err
	}
	conn := &entity.Connection{
		Id:             uuid.New(),
		UserId:         serverutils.UserID(c),
		SheetId:        req.SheetId,
		SheetTabName:   req.SheetTabName,
		SheetType:      req.SheetType,
		ColumnMappings: req.ColumnMappings,
		HeaderRow:      req.HeaderRow,
		DataStartRow:   req.DataStartRow,
		SyncEnabled:    req.SyncEnabled,
	}
	uow := h.uowFactory.NewUnitOfWork(c.Context())
	if err := uow.ConnectionRepository().Create(c.Context(), conn); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(conn)
}

func (h *ConnectionHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid connection id")
	}
	var req connectionRequest
	if err := serverutils.BindAndValidate(c, &req); err != nil {
		return err
	}

	uow := h.uowFactory.NewUnitOfWork(c.Context())
	conn, err := uow.ConnectionRepository().FindOne(c.Context(), specification.ByID{ID: id}, byOwner(c))
	if err != nil {
		return err
	}
	if conn == nil {
		return apperr.New(apperr.KindNotFound, "connection not found")
	}

	conn.SheetTabName = req.SheetTabName
	conn.ColumnMappings = req.ColumnMappings
	conn.HeaderRow = req.HeaderRow
	conn.DataStartRow = req.DataStartRow
	conn.SyncEnabled = req.SyncEnabled

	if err := uow.ConnectionRepository().Update(c.Context(), conn); err != nil {
		return err
	}
	return c.JSON(conn)
}

// Delete hard-deletes a connection and cascades to its sync state and synced
// rows within one transaction, matching the original's delete_by_connection_id
// calls preceding the connection delete itself.
func (h *ConnectionHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid connection id")
	}
	uow := h.uowFactory.NewUnitOfWork(c.Context())
	conn, err := uow.ConnectionRepository().FindOne(c.Context(), specification.ByID{ID: id}, byOwner(c))
	if err != nil {
		return err
	}
	if conn == nil {
		return apperr.New(apperr.KindNotFound, "connection not found")
	}

	if err := uow.Begin(c.Context()); err != nil {
		return err
	}
	if err := uow.SheetRowRepository().DeleteByConnectionId(c.Context(), id); err != nil {
		_ = uow.Rollback()
		return err
	}
	if err := uow.SyncStateRepository().DeleteByConnectionId(c.Context(), id); err != nil {
		_ = uow.Rollback()
		return err
	}
	if err := uow.ConnectionRepository().Delete(c.Context(), id); err != nil {
		_ = uow.Rollback()
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ConnectionHandler) Preview(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid connection id")
	}
	uow := h.uowFactory.NewUnitOfWork(c.Context())
	conn, err := uow.ConnectionRepository().FindOne(c.Context(), specification.ByID{ID: id}, byOwner(c))
	if err != nil {
		return err
	}
	if conn == nil {
		return apperr.New(apperr.KindNotFound, "connection not found")
	}
	numRows, _ := strconv.Atoi(c.Query("rows", "20"))
	preview, err := h.crawler.PreviewSheet(c.Context(), id, numRows)
	if err != nil {
		return err
	}
	return c.JSON(preview)
}

// TriggerSync enqueues an on-demand sync rather than running it inline, so
// the request returns immediately and the worker's rate limiter governs the
// actual call to the Sheets API.
func (h *ConnectionHandler) TriggerSync(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.New(apperr.KindValidation, "invalid connection id")
	}
	uow := h.uowFactory.NewUnitOfWork(c.Context())
	conn, err := uow.ConnectionRepository().FindOne(c.Context(), specification.ByID{ID: id}, byOwner(c))
	if err != nil {
		return err
	}
	if conn == nil {
		return apperr.New(apperr.KindNotFound, "connection not found")
	}
	task := queue.SyncTask{ConnectionId: id, UserId: serverutils.UserID(c)}
	if err := h.queue.Enqueue(c.Context(), task); err != nil {
		return apperr.Wrap(apperr.KindFatal, "enqueueing sync task", err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}

func byOwner(c *fiber.Ctx) specification.Specification {
	return specification.ByUserId{UserId: serverutils.UserID(c)}
}
