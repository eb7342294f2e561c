package chatworkflow

import (
	"context"
	"strings"
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

// scriptedProvider answers Chat based on which system prompt it was given,
// so a single fake can stand in for the classifier, chat, clarify, and
// formatter calls within one test without tracking call order.
type scriptedProvider struct {
	byPromptSubstring map[string]string
	toolTurns         []llm.ChatResult
	toolCalls         int
}

func (s *scriptedProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	if len(history) > 0 && history[0].Role == "system" {
		for substr, reply := range s.byPromptSubstring {
			if strings.Contains(history[0].Content, substr) {
				return reply, nil
			}
		}
	}
	return "", nil
}

func (s *scriptedProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return "", nil
}

func (s *scriptedProvider) ChatWithTools(ctx context.Context, history []llm.Message, toolsIn []llm.ToolSchema, options ...llm.Option) (llm.ChatResult, error) {
	turn := s.toolTurns[s.toolCalls]
	s.toolCalls++
	return turn, nil
}

type recordedEvent struct {
	userID uuid.UUID
	event  string
	data   interface{}
}

type fakeNotifier struct {
	events []recordedEvent
}

func (f *fakeNotifier) EmitToUser(userID uuid.UUID, event string, data interface{}) {
	f.events = append(f.events, recordedEvent{userID: userID, event: event, data: data})
}

func (f *fakeNotifier) EmitToRoom(room string, event string, data interface{}) {}

func (f *fakeNotifier) Broadcast(event string, data interface{}) {}

func (f *fakeNotifier) eventNames() []string {
	names := make([]string, len(f.events))
	for i, e := range f.events {
		names[i] = e.event
	}
	return names
}

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

func TestWorkflow_Run_ChatIntent(t *testing.T) {
	provider := &scriptedProvider{byPromptSubstring: map[string]string{
		"classify":     "chat",
		"friendly":     "Chào bạn! Tôi có thể giúp gì về dữ liệu kinh doanh của bạn?",
		"Format kết":   "Chào bạn! Tôi có thể giúp gì về dữ liệu kinh doanh của bạn?",
	}}
	notify := &fakeNotifier{}
	wf := New(provider, notify)

	out, err := wf.Run(context.Background(), Input{
		UserID:         uuid.New(),
		ConversationID: uuid.New(),
		UserMessage:    "Hello",
	})

	require.NoError(t, err)
	assert.Equal(t, IntentChat, out.Intent)
	assert.NotEmpty(t, out.Response)
	assert.Contains(t, notify.eventNames(), EventMessageStarted)
}

func TestWorkflow_Run_UnclearIntentFallsBackToClarify(t *testing.T) {
	provider := &scriptedProvider{byPromptSubstring: map[string]string{
		"You classify": "not-a-real-intent",
	}}
	notify := &fakeNotifier{}
	wf := New(provider, notify)

	out, err := wf.Run(context.Background(), Input{
		UserID:         uuid.New(),
		ConversationID: uuid.New(),
		UserMessage:    "that one",
	})

	require.NoError(t, err)
	assert.Equal(t, IntentUnclear, out.Intent)
	assert.Contains(t, out.Response, fallbackClarifyText)
}

func TestWorkflow_Run_DataQueryWithoutConnectionsSkipsAgent(t *testing.T) {
	provider := &scriptedProvider{byPromptSubstring: map[string]string{
		"classify": "data_query",
	}}
	notify := &fakeNotifier{}
	wf := New(provider, notify)

	out, err := wf.Run(context.Background(), Input{
		UserID:         uuid.New(),
		ConversationID: uuid.New(),
		UserMessage:    "what's my revenue?",
	})

	require.NoError(t, err)
	assert.Equal(t, IntentDataQuery, out.Intent)
	assert.Contains(t, out.Response, "chưa có dữ liệu")
}

func TestWorkflow_Run_DataQueryStreamsToolEvents(t *testing.T) {
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
	repo := &fakeSheetRowRepository{docs: []map[string]interface{}{
		{"connection_id": connID.String(), "customer": "alice", "total": 100.0},
	}}
	toolset := tools.NewToolset([]*entity.Connection{conn}, docstore.NewStore(repo), pipeline.NewValidator())

	provider := &scriptedProvider{
		byPromptSubstring: map[string]string{"classify": "data_query"},
		toolTurns: []llm.ChatResult{
			{ToolCalls: []llm.ToolCall{
				{ID: "call_0", Name: "aggregate_data", Args: map[string]interface{}{
					"connection_name": "orders", "operation": "sum", "field": "total",
				}},
			}},
			{Text: "Total is 100."},
		},
	}
	notify := &fakeNotifier{}
	wf := New(provider, notify)

	out, err := wf.Run(context.Background(), Input{
		UserID:         uuid.New(),
		ConversationID: uuid.New(),
		UserMessage:    "what's my revenue?",
		Connections:    []*entity.Connection{conn},
		Toolset:        toolset,
	})

	require.NoError(t, err)
	require.Len(t, out.ToolCalls, 1)
	assert.Equal(t, "aggregate_data", out.ToolCalls[0].ToolName)
	assert.Contains(t, notify.eventNames(), EventMessageToolStart)
	assert.Contains(t, notify.eventNames(), EventMessageToolEnd)
}
