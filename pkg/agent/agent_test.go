package agent

import (
	"context"
	"testing"

	"sheetpulse/internal/entity"
	"sheetpulse/pkg/docstore"
	"sheetpulse/pkg/llm"
	"sheetpulse/pkg/pipeline"
	"sheetpulse/pkg/tools"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSheetRowRepository satisfies contract.SheetRowRepository with a fixed
// in-memory row set, the same fake toolset_test.go uses.
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

func newTestAgent(t *testing.T, provider llm.LLMProvider) *Agent {
	connID := uuid.New()
	conn := &entity.Connection{
		Id:           connID,
		SheetTabName: "orders",
		SheetType:    entity.SheetTypeOrders,
		ColumnMappings: []entity.ColumnMapping{
			{SystemField: "customer", SheetColumn: "A", DataType: "string"},
			{SystemField: "total", SheetColumn: "B", DataType: "number"},
		},
	}
	repo := &fakeSheetRowRepository{docs: []map[string]interface{}{
		{"connection_id": connID.String(), "customer": "alice", "total": 100.0},
		{"connection_id": connID.String(), "customer": "bob", "total": 50.0},
	}}
	store := docstore.NewStore(repo)
	toolset := tools.NewToolset([]*entity.Connection{conn}, store, pipeline.NewValidator())
	return NewAgent(provider, toolset, []*entity.Connection{conn})
}

// scriptedProvider replays a fixed sequence of ChatResult values, one per
// ChatWithTools call, so the loop's branching can be tested without a real
// model backend.
type scriptedProvider struct {
	turns []llm.ChatResult
	calls int
}

func (s *scriptedProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return "", nil
}

func (s *scriptedProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return "", nil
}

func (s *scriptedProvider) ChatWithTools(ctx context.Context, history []llm.Message, toolsIn []llm.ToolSchema, options ...llm.Option) (llm.ChatResult, error) {
	turn := s.turns[s.calls]
	s.calls++
	return turn, nil
}

func TestAgent_Run_FinalAnswerWithoutToolCalls(t *testing.T) {
	provider := &scriptedProvider{turns: []llm.ChatResult{
		{Text: "You have 2 orders."},
	}}
	a := newTestAgent(t, provider)

	result, err := a.Run(context.Background(), []llm.Message{{Role: "user", Content: "How many orders do I have?"}})

	require.NoError(t, err)
	assert.Equal(t, "You have 2 orders.", result.Text)
	assert.Empty(t, result.Trace)
}

func TestAgent_Run_OneToolCallThenAnswer(t *testing.T) {
	provider := &scriptedProvider{turns: []llm.ChatResult{
		{
			ToolCalls: []llm.ToolCall{
				{ID: "call_0", Name: "aggregate_data", Args: map[string]interface{}{
					"connection_name": "orders",
					"operation":       "sum",
					"field":           "total",
				}},
			},
		},
		{Text: "Total revenue is 150."},
	}}
	a := newTestAgent(t, provider)

	result, err := a.Run(context.Background(), []llm.Message{{Role: "user", Content: "What's my total revenue?"}})

	require.NoError(t, err)
	assert.Equal(t, "Total revenue is 150.", result.Text)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, "aggregate_data", result.Trace[0].ToolName)
	assert.False(t, result.Trace[0].Failed)
}

func TestAgent_Run_ThreeConsecutiveFailuresSurfacesVietnameseError(t *testing.T) {
	badCall := llm.ChatResult{
		ToolCalls: []llm.ToolCall{
			{ID: "call_0", Name: "aggregate_data", Args: map[string]interface{}{
				"connection_name": "does-not-exist",
				"operation":       "sum",
				"field":           "total",
			}},
		},
	}
	provider := &scriptedProvider{turns: []llm.ChatResult{badCall, badCall, badCall}}
	a := newTestAgent(t, provider)

	result, err := a.Run(context.Background(), []llm.Message{{Role: "user", Content: "revenue for acme"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Xin lỗi")
	require.Len(t, result.Trace, 3)
	for _, tr := range result.Trace {
		assert.True(t, tr.Failed)
	}
}

func TestAgent_Run_IterationCapFallsBackToVietnameseText(t *testing.T) {
	loopingCall := llm.ChatResult{
		ToolCalls: []llm.ToolCall{
			{ID: "call_0", Name: "get_data_schema", Args: map[string]interface{}{}},
		},
	}
	turns := make([]llm.ChatResult, DefaultMaxIterations)
	for i := range turns {
		turns[i] = loopingCall
	}
	provider := &scriptedProvider{turns: turns}
	a := newTestAgent(t, provider)

	result, err := a.Run(context.Background(), []llm.Message{{Role: "user", Content: "tell me everything"}})

	require.NoError(t, err)
	assert.Contains(t, result.Text, "Xin lỗi")
	assert.Len(t, result.Trace, DefaultMaxIterations)
}

func TestAgent_Run_UnknownToolCountsAsFailure(t *testing.T) {
	badCall := llm.ChatResult{
		ToolCalls: []llm.ToolCall{{ID: "call_0", Name: "delete_everything", Args: nil}},
	}
	provider := &scriptedProvider{turns: []llm.ChatResult{badCall, badCall, badCall}}
	a := newTestAgent(t, provider)

	_, err := a.Run(context.Background(), []llm.Message{{Role: "user", Content: "do something unsafe"}})

	require.Error(t, err)
}
