package chatworkflow

import (
	"context"
	"fmt"
	"strings"

	"sheetpulse/internal/apperr"
	"sheetpulse/internal/entity"
	"sheetpulse/pkg/agent"
	"sheetpulse/pkg/llm"
	"sheetpulse/pkg/notifier"
	"sheetpulse/pkg/tools"

	"github.com/google/uuid"
)

// Event names are bit-exact for client compatibility; never rename one
// without a corresponding frontend change.
const (
	EventMessageStarted   = "chat:message:started"
	EventMessageToken     = "chat:message:token"
	EventMessageToolStart = "chat:message:tool_start"
	EventMessageToolEnd   = "chat:message:tool_end"
	EventMessageCompleted = "chat:message:completed"
	EventMessageFailed    = "chat:message:failed"
)

const maxHistoryMessages = 5

// Input is everything one chat turn needs. Connections and Toolset are nil
// when the caller has no data sources yet; the data_agent branch handles
// that explicitly instead of constructing an agent with nothing to query.
type Input struct {
	UserID         uuid.UUID
	ConversationID uuid.UUID
	History        []llm.Message
	UserMessage    string
	Connections    []*entity.Connection
	Toolset        *tools.Toolset
}

// Output is the turn's result: the text to persist as the assistant
// message, the intent it was routed on, the tool-call trace for clients
// that want to render it, and the sequence of states the turn passed
// through.
type Output struct {
	Intent      Intent
	Response    string
	ToolCalls   []ToolCallRecord
	Transitions []Transition
}

// Workflow classifies intent and routes to a chat, clarify, or data-agent
// branch, then formats the branch's raw text for the user. Construct one
// per process; Run is safe to call concurrently for different requests
// since all per-request state lives in Input/the returned Output.
type Workflow struct {
	provider llm.LLMProvider
	notify   notifier.Notifier
}

func New(provider llm.LLMProvider, notify notifier.Notifier) *Workflow {
	return &Workflow{provider: provider, notify: notify}
}

// Run drives one turn end to end. It emits chat:message:started immediately
// and chat:message:token/tool_start/tool_end as the chosen branch produces
// them; it does not emit a terminal event — the caller persists the
// assistant message first and then emits chat:message:completed or
// chat:message:failed itself, so the "persisted before completed" ordering
// in the spec holds without this package knowing about storage.
func (w *Workflow) Run(ctx context.Context, in Input) (Output, error) {
	w.notify.EmitToUser(in.UserID, EventMessageStarted, map[string]interface{}{
		"conversation_id": in.ConversationID,
	})

	transitions := []Transition{{From: StateDone, To: StateClassifying}}

	intent, err := w.classifyIntent(ctx, in)
	if err != nil {
		intent = IntentUnclear
	}

	var (
		rawResponse string
		toolCalls   []ToolCallRecord
		branchState State
	)

	switch intent {
	case IntentDataQuery:
		branchState = StateAgentThinking
		transitions = append(transitions, Transition{From: StateClassifying, To: branchState})
		rawResponse, toolCalls, err = w.runDataAgent(ctx, in)
	case IntentChat:
		branchState = StateChatting
		transitions = append(transitions, Transition{From: StateClassifying, To: branchState})
		rawResponse, err = w.runChat(ctx, in)
	default:
		branchState = StateClarifying
		transitions = append(transitions, Transition{From: StateClassifying, To: branchState})
		rawResponse, err = w.runClarify(ctx, in)
	}

	if err != nil {
		transitions = append(transitions, Transition{From: branchState, To: StateFailed})
		return Output{Intent: intent, ToolCalls: toolCalls, Transitions: transitions}, err
	}

	transitions = append(transitions, Transition{From: branchState, To: StateFormatting})
	final := w.formatResponse(ctx, in, rawResponse)
	transitions = append(transitions, Transition{From: StateFormatting, To: StateDone})

	return Output{Intent: intent, Response: final, ToolCalls: toolCalls, Transitions: transitions}, nil
}

func (w *Workflow) classifyIntent(ctx context.Context, in Input) (Intent, error) {
	messages := []llm.Message{{Role: "system", Content: intentClassifierPrompt}}
	messages = append(messages, recentHistory(in.History, maxHistoryMessages)...)
	messages = append(messages, llm.Message{Role: "user", Content: in.UserMessage})

	text, err := w.provider.Chat(ctx, messages, llm.WithTemperature(0))
	if err != nil {
		return IntentUnclear, apperr.Wrap(apperr.KindExternalUnavailable, "intent classification failed", err)
	}

	switch strings.TrimSpace(strings.ToLower(text)) {
	case string(IntentDataQuery):
		return IntentDataQuery, nil
	case string(IntentChat):
		return IntentChat, nil
	default:
		return IntentUnclear, nil
	}
}

func (w *Workflow) runChat(ctx context.Context, in Input) (string, error) {
	messages := []llm.Message{{Role: "system", Content: chatNodePrompt}}
	messages = append(messages, recentHistory(in.History, maxHistoryMessages)...)
	messages = append(messages, llm.Message{Role: "user", Content: in.UserMessage})

	text, err := w.provider.Chat(ctx, messages, llm.WithTemperature(0.7))
	if err != nil {
		return "", apperr.Wrap(apperr.KindExternalUnavailable, "chat node failed", err)
	}
	w.emitToken(in, text)
	return text, nil
}

func (w *Workflow) runClarify(ctx context.Context, in Input) (string, error) {
	messages := []llm.Message{{Role: "system", Content: clarifyNodePrompt}}
	messages = append(messages, recentHistory(in.History, maxHistoryMessages)...)
	messages = append(messages, llm.Message{Role: "user", Content: in.UserMessage})

	text, err := w.provider.Chat(ctx, messages, llm.WithTemperature(0.7))
	if err != nil || strings.TrimSpace(text) == "" {
		return fallbackClarifyText, nil
	}
	w.emitToken(in, text)
	return text, nil
}

const fallbackClarifyText = "Tôi chưa hiểu rõ câu hỏi của bạn. Bạn có thể hỏi về:\n" +
	"- Tổng doanh thu, số đơn hàng\n" +
	"- Top sản phẩm bán chạy\n" +
	"- So sánh doanh thu giữa các kỳ\n" +
	"- Phân tích theo nền tảng bán hàng"

func (w *Workflow) runDataAgent(ctx context.Context, in Input) (string, []ToolCallRecord, error) {
	if len(in.Connections) == 0 || in.Toolset == nil {
		return "Bạn chưa có dữ liệu nào được đồng bộ. Hãy kết nối một Google Sheet trước khi đặt câu hỏi về dữ liệu.", nil, nil
	}

	a := agent.NewAgent(w.provider, in.Toolset, in.Connections)

	var records []ToolCallRecord
	a.OnToolStart = func(call llm.ToolCall) {
		record := ToolCallRecord{ToolName: call.Name, ToolCallID: call.ID, Arguments: call.Args}
		records = append(records, record)
		w.notify.EmitToUser(in.UserID, EventMessageToolStart, map[string]interface{}{
			"conversation_id": in.ConversationID,
			"tool_name":       call.Name,
			"tool_call_id":    call.ID,
			"arguments":       call.Args,
		})
	}
	a.OnToolEnd = func(call llm.ToolCall, result string, failed bool) {
		for i := range records {
			if records[i].ToolCallID == call.ID {
				records[i].Result = result
				if failed {
					records[i].Error = result
				}
				break
			}
		}
		w.notify.EmitToUser(in.UserID, EventMessageToolEnd, map[string]interface{}{
			"conversation_id": in.ConversationID,
			"tool_call_id":    call.ID,
			"result":          result,
		})
	}

	messages := recentHistory(in.History, 10)
	messages = append(messages, llm.Message{Role: "user", Content: in.UserMessage})

	result, err := a.Run(ctx, messages)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindToolError {
			return err.Error(), records, nil
		}
		return "", records, err
	}
	return result.Text, records, nil
}

func (w *Workflow) formatResponse(ctx context.Context, in Input, raw string) string {
	if raw == "" {
		return "Xin lỗi, tôi không thể xử lý yêu cầu của bạn. Vui lòng thử lại."
	}

	messages := []llm.Message{
		{Role: "system", Content: responseFormatterPrompt},
		{Role: "user", Content: fmt.Sprintf("Câu hỏi của người dùng: %s\n\nKết quả cần format:\n%s\n\nHãy format kết quả trên theo quy tắc đã cho.", in.UserMessage, raw)},
	}

	final, err := w.provider.Chat(ctx, messages, llm.WithTemperature(0.3))
	if err != nil || strings.TrimSpace(final) == "" {
		return raw
	}
	w.emitToken(in, final)
	return final
}

// EmitCompleted is the caller's signal, after it has persisted the
// assistant message, that the turn is done. Run itself never emits this —
// see its doc comment for why.
func (w *Workflow) EmitCompleted(userID, conversationID, messageID uuid.UUID, content string) {
	w.notify.EmitToUser(userID, EventMessageCompleted, map[string]interface{}{
		"conversation_id": conversationID,
		"message_id":      messageID,
		"content":         content,
	})
}

// EmitFailed is the caller's signal that the turn could not be completed,
// whatever the cause — branch error, formatter error, or a persistence
// failure the caller detected after Run returned successfully.
func (w *Workflow) EmitFailed(userID, conversationID uuid.UUID, reason string) {
	w.notify.EmitToUser(userID, EventMessageFailed, map[string]interface{}{
		"conversation_id": conversationID,
		"error":           reason,
	})
}

func (w *Workflow) emitToken(in Input, text string) {
	if text == "" {
		return
	}
	w.notify.EmitToUser(in.UserID, EventMessageToken, map[string]interface{}{
		"conversation_id": in.ConversationID,
		"token":           text,
	})
}

// recentHistory returns the last n messages, oldest first, the same window
// every node in the source graph caps its own context to.
func recentHistory(history []llm.Message, n int) []llm.Message {
	if len(history) <= n {
		out := make([]llm.Message, len(history))
		copy(out, history)
		return out
	}
	out := make([]llm.Message, n)
	copy(out, history[len(history)-n:])
	return out
}
