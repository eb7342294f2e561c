package tools

import (
	"context"
	"encoding/json"
	"testing"

	"sheetpulse/internal/entity"
	"sheetpulse/pkg/docstore"
	"sheetpulse/pkg/pipeline"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSheetRowRepository struct {
	docs []map[string]interface{}
}

func (f *fakeSheetRowRepository) UpsertBatch(ctx context.Context, rows []*entity.SheetRow) error {
	return nil
}

func (f *fakeSheetRowRepository) FindByConnection(ctx context.Context, connectionId uuid.UUID, limit, offset int) ([]*entity.SheetRow, error) {
	return nil, nil
}

func (f *fakeSheetRowRepository) FindDocuments(ctx context.Context, connectionIds []uuid.UUID) ([]map[string]interface{}, error) {
	return f.docs, nil
}

func (f *fakeSheetRowRepository) DeleteByConnectionId(ctx context.Context, connectionId uuid.UUID) error {
	return nil
}

func newTestToolset(docs []map[string]interface{}) (*Toolset, *entity.Connection) {
	connID := uuid.New()
	conn := &entity.Connection{
		Id:           connID,
		SheetTabName: "orders",
		SheetType:    entity.SheetTypeOrders,
		ColumnMappings: []entity.ColumnMapping{
			{SystemField: "customer", DataType: "string"},
			{SystemField: "total", DataType: "number"},
		},
	}
	store := docstore.NewStore(&fakeSheetRowRepository{docs: docs})
	return NewToolset([]*entity.Connection{conn}, store, pipeline.NewValidator()), conn
}

func sampleToolDocs(connID uuid.UUID) []map[string]interface{} {
	return []map[string]interface{}{
		{"connection_id": connID.String(), "customer": "alice", "total": 100.0, "order_date": "2026-01-05"},
		{"connection_id": connID.String(), "customer": "bob", "total": 50.0, "order_date": "2026-01-10"},
		{"connection_id": connID.String(), "customer": "alice", "total": 25.0, "order_date": "2026-02-01"},
	}
}

func TestToolset_GetDataSchema(t *testing.T) {
	toolset, _ := newTestToolset(nil)
	out := toolset.GetDataSchema(context.Background(), "orders")

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	conns := parsed["connections"].([]interface{})
	require.Len(t, conns, 1)
}

func TestToolset_GetDataSchema_UnknownConnection(t *testing.T) {
	toolset, _ := newTestToolset(nil)
	out := toolset.GetDataSchema(context.Background(), "does-not-exist")

	var parsed map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Contains(t, parsed["error"], "no connection named")
}

func TestToolset_AggregateData_Sum(t *testing.T) {
	toolset, _ := newTestToolset(sampleToolDocs(uuid.New()))

	out := toolset.AggregateData(context.Background(), AggregateArgs{
		ConnectionName: "orders",
		Operation:      "sum",
		Field:          "total",
	})

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	results := parsed["results"].([]interface{})
	require.Len(t, results, 1)
	row := results[0].(map[string]interface{})
	assert.Equal(t, 175.0, row["value"])
}

func TestToolset_GetTopItems_GroupBy(t *testing.T) {
	toolset, _ := newTestToolset(sampleToolDocs(uuid.New()))

	out := toolset.GetTopItems(context.Background(), TopArgs{
		ConnectionName: "orders",
		SortField:      "total",
		GroupBy:        "customer",
		AggregateField: "total",
		Limit:          5,
	})

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	results := parsed["results"].([]interface{})
	require.Len(t, results, 2)
	top := results[0].(map[string]interface{})
	assert.Equal(t, "alice", top["_id"])
	assert.Equal(t, 125.0, top["value"])
}

func TestToolset_ComparePeriods(t *testing.T) {
	toolset, _ := newTestToolset(sampleToolDocs(uuid.New()))

	out := toolset.ComparePeriods(context.Background(), CompareArgs{
		ConnectionName: "orders",
		Operation:      "sum",
		Field:          "total",
		DateField:      "order_date",
		Period1From:    "2026-01-01",
		Period1To:      "2026-01-31",
		Period2From:    "2026-02-01",
		Period2To:      "2026-02-28",
	})

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, 150.0, parsed["period1_value"])
	assert.Equal(t, 25.0, parsed["period2_value"])
	assert.Equal(t, -125.0, parsed["difference"])
}

func TestToolset_ExecuteAggregation_RejectsBlockedStage(t *testing.T) {
	toolset, _ := newTestToolset(nil)

	out := toolset.ExecuteAggregation(context.Background(), CustomAggregationArgs{
		ConnectionName: "orders",
		Pipeline:       `[{"$out": "somewhere"}]`,
	})

	var parsed map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Contains(t, parsed["error"], "not allowed")
}

func TestToolset_ExecuteAggregation_Valid(t *testing.T) {
	toolset, _ := newTestToolset(sampleToolDocs(uuid.New()))

	out := toolset.ExecuteAggregation(context.Background(), CustomAggregationArgs{
		ConnectionName: "orders",
		Pipeline:       `[{"$match": {"customer": "alice"}}, {"$count": "n"}]`,
		Description:    "count alice's orders",
	})

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	results := parsed["results"].([]interface{})
	require.Len(t, results, 1)
	row := results[0].(map[string]interface{})
	assert.Equal(t, float64(2), row["n"])
}
