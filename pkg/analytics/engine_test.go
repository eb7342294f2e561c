package analytics

import (
	"context"
	"testing"

	"sheetpulse/internal/apperr"
	"sheetpulse/internal/entity"
	"sheetpulse/internal/pkg/logger"
	"sheetpulse/internal/repository/specification"
	"sheetpulse/pkg/cache"
	"sheetpulse/pkg/docstore"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConnectionRepository struct {
	byID map[uuid.UUID]*entity.Connection
}

func (f *fakeConnectionRepository) Create(ctx context.Context, conn *entity.Connection) error { return nil }
func (f *fakeConnectionRepository) Update(ctx context.Context, conn *entity.Connection) error { return nil }
func (f *fakeConnectionRepository) Delete(ctx context.Context, id uuid.UUID) error            { return nil }
func (f *fakeConnectionRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(f.byID)), nil
}
func (f *fakeConnectionRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Connection, error) {
	var out []*entity.Connection
	for _, c := range f.byID {
		out = append(out, c)
	}
	return out, nil
}
func (f *fakeConnectionRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Connection, error) {
	for _, spec := range specs {
		if byID, ok := spec.(specification.ByID); ok {
			return f.byID[byID.ID], nil
		}
	}
	return nil, nil
}

type fakeSheetRowRepository struct {
	docs map[uuid.UUID][]map[string]interface{}
}

func (f *fakeSheetRowRepository) UpsertBatch(ctx context.Context, rows []*entity.SheetRow) error {
	return nil
}
func (f *fakeSheetRowRepository) FindByConnection(ctx context.Context, connectionId uuid.UUID, limit, offset int) ([]*entity.SheetRow, error) {
	return nil, nil
}
func (f *fakeSheetRowRepository) FindDocuments(ctx context.Context, connectionIds []uuid.UUID) ([]map[string]interface{}, error) {
	var out []map[string]interface{}
	for _, id := range connectionIds {
		out = append(out, f.docs[id]...)
	}
	return out, nil
}
func (f *fakeSheetRowRepository) DeleteByConnectionId(ctx context.Context, connectionId uuid.UUID) error {
	return nil
}

// newTestEngine wires a real Store and a real AnalyticsCache pointed at an
// unreachable redis address; every cache call degrades to a miss exactly
// the way an outage would in production, so the engine is exercised on its
// compute path without a live redis dependency.
func newTestEngine(t *testing.T, conns *fakeConnectionRepository, rows *fakeSheetRowRepository) *Engine {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	log := logger.NewIsolatedLogger(t.TempDir() + "/test.log")
	c := cache.New(rdb, 0, log)
	store := docstore.NewStore(rows)
	return NewEngine(conns, store, c)
}

func ordersConnection(id uuid.UUID) *entity.Connection {
	return &entity.Connection{Id: id, SheetType: entity.SheetTypeOrders}
}

func TestEngine_GetSummary_ComputesFromDocuments(t *testing.T) {
	connID := uuid.New()
	conns := &fakeConnectionRepository{byID: map[uuid.UUID]*entity.Connection{connID: ordersConnection(connID)}}
	rows := &fakeSheetRowRepository{docs: map[uuid.UUID][]map[string]interface{}{
		connID: {
			{"order_date": "2024-01-01", "total_amount": "100"},
			{"order_date": "2024-01-02", "total_amount": "50"},
		},
	}}
	engine := newTestEngine(t, conns, rows)

	out, err := engine.GetSummary(context.Background(), connID, "", "")
	require.NoError(t, err)
	assert.EqualValues(t, 2, out["total_count"])
	assert.EqualValues(t, 150, out["total_amount"])
}

func TestEngine_GetSummary_UnknownConnectionIsNotFound(t *testing.T) {
	conns := &fakeConnectionRepository{byID: map[uuid.UUID]*entity.Connection{}}
	rows := &fakeSheetRowRepository{docs: map[uuid.UUID][]map[string]interface{}{}}
	engine := newTestEngine(t, conns, rows)

	_, err := engine.GetSummary(context.Background(), uuid.New(), "", "")
	require.Error(t, err)
}

func TestEngine_GetSummary_RejectsInvertedDateRange(t *testing.T) {
	connID := uuid.New()
	conns := &fakeConnectionRepository{byID: map[uuid.UUID]*entity.Connection{connID: ordersConnection(connID)}}
	rows := &fakeSheetRowRepository{docs: map[uuid.UUID][]map[string]interface{}{}}
	engine := newTestEngine(t, conns, rows)

	_, err := engine.GetSummary(context.Background(), connID, "2024-02-01", "2024-01-01")
	require.Error(t, err)
}

func TestEngine_GetTimeSeries_BucketsByGranularity(t *testing.T) {
	connID := uuid.New()
	conns := &fakeConnectionRepository{byID: map[uuid.UUID]*entity.Connection{connID: ordersConnection(connID)}}
	rows := &fakeSheetRowRepository{docs: map[uuid.UUID][]map[string]interface{}{
		connID: {
			{"order_date": "2024-01-01", "total_amount": 10.0},
			{"order_date": "2024-01-01", "total_amount": 5.0},
			{"order_date": "2024-01-02", "total_amount": 20.0},
		},
	}}
	engine := newTestEngine(t, conns, rows)

	out, err := engine.GetTimeSeries(context.Background(), connID, "2024-01-01", "2024-01-31", "day", "both")
	require.NoError(t, err)
	data := out["data"].([]map[string]interface{})
	require.Len(t, data, 2)
	assert.Equal(t, "2024-01-01", data[0]["date"])
	assert.Equal(t, 2, data[0]["count"])
	assert.InDelta(t, 15.0, data[0]["total_amount"], 0.001)
}

func TestEngine_GetTimeSeries_RequiresDateRange(t *testing.T) {
	connID := uuid.New()
	conns := &fakeConnectionRepository{byID: map[uuid.UUID]*entity.Connection{connID: ordersConnection(connID)}}
	rows := &fakeSheetRowRepository{docs: map[uuid.UUID][]map[string]interface{}{}}
	engine := newTestEngine(t, conns, rows)

	_, err := engine.GetTimeSeries(context.Background(), connID, "", "", "day", "count")
	require.Error(t, err)
}

func TestEngine_GetTimeSeries_UnsupportedSheetType(t *testing.T) {
	connID := uuid.New()
	conns := &fakeConnectionRepository{byID: map[uuid.UUID]*entity.Connection{connID: {Id: connID, SheetType: entity.SheetTypeCustomers}}}
	rows := &fakeSheetRowRepository{docs: map[uuid.UUID][]map[string]interface{}{}}
	engine := newTestEngine(t, conns, rows)

	_, err := engine.GetTimeSeries(context.Background(), connID, "2024-01-01", "2024-01-31", "day", "count")
	require.Error(t, err)
}

func TestEngine_GetDistribution_RejectsUnsupportedField(t *testing.T) {
	connID := uuid.New()
	conns := &fakeConnectionRepository{byID: map[uuid.UUID]*entity.Connection{connID: ordersConnection(connID)}}
	rows := &fakeSheetRowRepository{docs: map[uuid.UUID][]map[string]interface{}{}}
	engine := newTestEngine(t, conns, rows)

	_, err := engine.GetDistribution(context.Background(), connID, "customer_id", "", "")
	require.Error(t, err)
}

func TestEngine_GetDistribution_ComputesPercentageOfTotal(t *testing.T) {
	connID := uuid.New()
	conns := &fakeConnectionRepository{byID: map[uuid.UUID]*entity.Connection{connID: ordersConnection(connID)}}
	rows := &fakeSheetRowRepository{docs: map[uuid.UUID][]map[string]interface{}{
		connID: {
			{"order_date": "2024-01-01", "platform": "shopee"},
			{"order_date": "2024-01-02", "platform": "shopee"},
			{"order_date": "2024-01-03", "platform": "lazada"},
		},
	}}
	engine := newTestEngine(t, conns, rows)

	out, err := engine.GetDistribution(context.Background(), connID, "platform", "", "")
	require.NoError(t, err)
	data := out["data"].([]docstore.Document)
	require.Len(t, data, 2)
	assert.Equal(t, "shopee", data[0]["value"])
	assert.InDelta(t, 66.7, data[0]["percentage"].(float64), 0.1)
}

func TestEngine_GetTop_RejectsOutOfRangeLimit(t *testing.T) {
	connID := uuid.New()
	conns := &fakeConnectionRepository{byID: map[uuid.UUID]*entity.Connection{connID: ordersConnection(connID)}}
	rows := &fakeSheetRowRepository{docs: map[uuid.UUID][]map[string]interface{}{
		connID: {{"order_date": "2024-01-01", "platform": "shopee", "total_amount": 10.0}},
	}}
	engine := newTestEngine(t, conns, rows)

	_, err := engine.GetTop(context.Background(), connID, "platform", 99, "count", "", "")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = engine.GetTop(context.Background(), connID, "platform", 0, "count", "", "")
	require.Error(t, err)
}

func TestEngine_GetTop_RejectsUnsupportedField(t *testing.T) {
	connID := uuid.New()
	conns := &fakeConnectionRepository{byID: map[uuid.UUID]*entity.Connection{connID: ordersConnection(connID)}}
	rows := &fakeSheetRowRepository{docs: map[uuid.UUID][]map[string]interface{}{}}
	engine := newTestEngine(t, conns, rows)

	_, err := engine.GetTop(context.Background(), connID, "customer_id", 10, "count", "", "")
	require.Error(t, err)
}

func TestEngine_GetData_PaginatesAndSorts(t *testing.T) {
	connID := uuid.New()
	conns := &fakeConnectionRepository{byID: map[uuid.UUID]*entity.Connection{connID: ordersConnection(connID)}}
	rows := &fakeSheetRowRepository{docs: map[uuid.UUID][]map[string]interface{}{
		connID: {
			{"order_id": "A", "order_date": "2024-01-01", "total_amount": 30.0},
			{"order_id": "B", "order_date": "2024-01-02", "total_amount": 10.0},
			{"order_id": "C", "order_date": "2024-01-03", "total_amount": 20.0},
		},
	}}
	engine := newTestEngine(t, conns, rows)

	out, err := engine.GetData(context.Background(), connID, 1, 2, "", "total_amount", "asc", "", "")
	require.NoError(t, err)
	assert.EqualValues(t, 3, out["total"])
	assert.EqualValues(t, 2, out["total_pages"])
	docs := out["data"].([]docstore.Document)
	require.Len(t, docs, 2)
	assert.Equal(t, "B", docs[0]["order_id"])
	assert.Equal(t, "C", docs[1]["order_id"])
}

func TestEngine_GetData_RejectsOutOfRangePageSize(t *testing.T) {
	connID := uuid.New()
	conns := &fakeConnectionRepository{byID: map[uuid.UUID]*entity.Connection{connID: ordersConnection(connID)}}
	rows := &fakeSheetRowRepository{docs: map[uuid.UUID][]map[string]interface{}{
		connID: {{"order_id": "A", "order_date": "2024-01-01", "total_amount": 30.0}},
	}}
	engine := newTestEngine(t, conns, rows)

	_, err := engine.GetData(context.Background(), connID, 1, 500, "", "", "", "", "")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = engine.GetData(context.Background(), connID, 1, 0, "", "", "", "", "")
	require.Error(t, err)
}

func TestEngine_GetData_RejectsUnsortableField(t *testing.T) {
	connID := uuid.New()
	conns := &fakeConnectionRepository{byID: map[uuid.UUID]*entity.Connection{connID: ordersConnection(connID)}}
	rows := &fakeSheetRowRepository{docs: map[uuid.UUID][]map[string]interface{}{}}
	engine := newTestEngine(t, conns, rows)

	_, err := engine.GetData(context.Background(), connID, 1, 20, "", "not_a_field", "asc", "", "")
	require.Error(t, err)
}

func TestEngine_GetData_SearchFiltersRows(t *testing.T) {
	connID := uuid.New()
	conns := &fakeConnectionRepository{byID: map[uuid.UUID]*entity.Connection{connID: ordersConnection(connID)}}
	rows := &fakeSheetRowRepository{docs: map[uuid.UUID][]map[string]interface{}{
		connID: {
			{"order_id": "SHOPEE-1", "order_date": "2024-01-01", "platform": "shopee"},
			{"order_id": "LAZADA-1", "order_date": "2024-01-02", "platform": "lazada"},
		},
	}}
	engine := newTestEngine(t, conns, rows)

	out, err := engine.GetData(context.Background(), connID, 1, 20, "shopee", "", "", "", "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, out["total"])
}
