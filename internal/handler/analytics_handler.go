package handler

import (
	"strconv"

	"sheetpulse/internal/apperr"
	"sheetpulse/internal/pkg/serverutils"
	"sheetpulse/internal/repository/specification"
	"sheetpulse/internal/repository/unitofwork"
	"sheetpulse/pkg/analytics"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// AnalyticsHandler exposes the dashboard's read-only aggregate queries over
// one connection at a time, gated by the same ownership check every other
// per-connection route applies.
type AnalyticsHandler struct {
	uowFactory unitofwork.RepositoryFactory
	engine     *analytics.Engine
}

func NewAnalyticsHandler(uowFactory unitofwork.RepositoryFactory, engine *analytics.Engine) *AnalyticsHandler {
	return &AnalyticsHandler{uowFactory: uowFactory, engine: engine}
}

func (h *AnalyticsHandler) RegisterRoutes(router fiber.Router) {
	g := router.Group("/connections/:id/analytics", serverutils.UserContextMiddleware())
	g.Get("/summary", h.Summary)
	g.Get("/timeseries", h.TimeSeries)
	g.Get("/distribution", h.Distribution)
	g.Get("/top", h.Top)
	g.Get("/data", h.Data)
}

func (h *AnalyticsHandler) connectionID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, apperr.New(apperr.KindValidation, "invalid connection id")
	}
	uow := h.uowFactory.NewUnitOfWork(c.Context())
	conn, err := uow.ConnectionRepository().FindOne(c.Context(), specification.ByID{ID: id}, specification.ByUserId{UserId: serverutils.UserID(c)})
	if err != nil {
		return uuid.Nil, err
	}
	if conn == nil {
		return uuid.Nil, apperr.New(apperr.KindNotFound, "connection not found")
	}
	return id, nil
}

func (h *AnalyticsHandler) Summary(c *fiber.Ctx) error {
	id, err := h.connectionID(c)
	if err != nil {
		return err
	}
	result, err := h.engine.GetSummary(c.Context(), id, c.Query("date_from"), c.Query("date_to"))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *AnalyticsHandler) TimeSeries(c *fiber.Ctx) error {
	id, err := h.connectionID(c)
	if err != nil {
		return err
	}
	result, err := h.engine.GetTimeSeries(c.Context(), id, c.Query("date_from"), c.Query("date_to"), c.Query("granularity", "day"), c.Query("metrics", "both"))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *AnalyticsHandler) Distribution(c *fiber.Ctx) error {
	id, err := h.connectionID(c)
	if err != nil {
		return err
	}
	result, err := h.engine.GetDistribution(c.Context(), id, c.Query("field"), c.Query("date_from"), c.Query("date_to"))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *AnalyticsHandler) Top(c *fiber.Ctx) error {
	id, err := h.connectionID(c)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	result, err := h.engine.GetTop(c.Context(), id, c.Query("field"), limit, c.Query("metric", "count"), c.Query("date_from"), c.Query("date_to"))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *AnalyticsHandler) Data(c *fiber.Ctx) error {
	id, err := h.connectionID(c)
	if err != nil {
		return err
	}
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "20"))
	result, err := h.engine.GetData(c.Context(), id, page, pageSize, c.Query("search"), c.Query("sort_by"), c.Query("sort_order", "desc"), c.Query("date_from"), c.Query("date_to"))
	if err != nil {
		return err
	}
	return c.JSON(result)
}
