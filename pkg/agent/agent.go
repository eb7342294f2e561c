// Package agent implements the bounded ReAct loop the chat workflow's
// data_agent node drives: a model call that either answers or requests tool
// calls, tool dispatch against a caller-scoped Toolset, and tool-result
// feedback until a final answer, the iteration cap, or repeated tool
// failure ends the turn.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"sheetpulse/internal/apperr"
	"sheetpulse/internal/entity"
	"sheetpulse/pkg/llm"
	"sheetpulse/pkg/tools"
)

const (
	// DefaultMaxIterations bounds the number of model turns in one Run call.
	DefaultMaxIterations = 10

	maxConsecutiveToolFailures = 3
)

// ToolTrace records one tool call and its result, kept only for streaming
// the agent's reasoning steps to the client — never replayed into history.
type ToolTrace struct {
	ToolName string                 `json:"tool_name"`
	Args     map[string]interface{} `json:"args"`
	Result   string                 `json:"result"`
	Failed   bool                   `json:"failed"`
}

// Result is what one Run call produces: the model's final text plus the
// ordered trace of tool calls it took to get there.
type Result struct {
	Text  string
	Trace []ToolTrace
}

// Agent binds a model provider to one caller's toolset and schema-aware
// system prompt. Construct a fresh Agent per chat request, the same way
// create_data_agent binds tools to one user's connections.
type Agent struct {
	provider      llm.LLMProvider
	toolset       *tools.Toolset
	schemas       []llm.ToolSchema
	systemPrompt  string
	maxIterations int

	// OnToolStart and OnToolEnd, when set, fire around every dispatched
	// tool call so a caller (the chat workflow) can stream tool events
	// without the agent loop knowing anything about notifiers.
	OnToolStart func(call llm.ToolCall)
	OnToolEnd   func(call llm.ToolCall, result string, failed bool)
}

func NewAgent(provider llm.LLMProvider, toolset *tools.Toolset, connections []*entity.Connection) *Agent {
	return &Agent{
		provider:      provider,
		toolset:       toolset,
		schemas:       toolSchemas(),
		systemPrompt:  buildSystemPrompt(connections),
		maxIterations: DefaultMaxIterations,
	}
}

// Run drives the bounded loop over history (the conversation so far, not
// including the system prompt). It returns an error in three cases: three
// consecutive turns with a failed tool call (apperr.KindToolError), a failed
// model call (apperr.KindExternalUnavailable), or a cancelled caller context
// (ctx.Err(), returned as is); an exhausted iteration cap instead falls back to a
// best-effort Vietnamese text answer, matching the spec's treatment of it
// as a normal termination mode rather than a failure.
func (a *Agent) Run(ctx context.Context, history []llm.Message) (Result, error) {
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: "system", Content: a.systemPrompt})
	messages = append(messages, history...)

	var trace []ToolTrace
	consecutiveFailures := 0

	for i := 0; i < a.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return Result{Trace: trace}, err
		}

		turn, err := a.provider.ChatWithTools(ctx, messages, a.schemas)
		if err != nil {
			return Result{Trace: trace}, apperr.Wrap(apperr.KindExternalUnavailable, "model call failed", err)
		}

		if len(turn.ToolCalls) == 0 {
			return Result{Text: turn.Text, Trace: trace}, nil
		}

		messages = append(messages, llm.Message{Role: "assistant", Content: turn.Text, ToolCalls: turn.ToolCalls})

		anyFailure := false
		for _, call := range turn.ToolCalls {
			if a.OnToolStart != nil {
				a.OnToolStart(call)
			}
			raw, failed := a.dispatch(ctx, call)
			if a.OnToolEnd != nil {
				a.OnToolEnd(call, raw, failed)
			}
			trace = append(trace, ToolTrace{ToolName: call.Name, Args: call.Args, Result: raw, Failed: failed})
			messages = append(messages, llm.Message{Role: "tool", Content: raw, ToolCallID: call.ID, Name: call.Name})
			if failed {
				anyFailure = true
			}
		}

		if anyFailure {
			consecutiveFailures++
		} else {
			consecutiveFailures = 0
		}
		if consecutiveFailures >= maxConsecutiveToolFailures {
			return Result{Trace: trace}, apperr.New(apperr.KindToolError,
				"Xin lỗi, tôi gặp lỗi liên tục khi truy vấn dữ liệu của bạn nên không thể hoàn thành yêu cầu này. Vui lòng thử lại hoặc diễn đạt câu hỏi theo cách khác.")
		}
	}

	return Result{
		Text:  "Xin lỗi, câu hỏi này cần nhiều bước hơn mức tôi được phép thực hiện. Bạn có thể hỏi cụ thể hơn được không?",
		Trace: trace,
	}, nil
}

// dispatch runs one tool call and reports whether the toolset's uniform
// {"error": ...} fallback shape was returned, so the caller can count
// consecutive failures without string-matching the result body.
func (a *Agent) dispatch(ctx context.Context, call llm.ToolCall) (string, bool) {
	var raw string
	switch call.Name {
	case "get_data_schema":
		var args struct {
			ConnectionName string `json:"connection_name"`
		}
		if err := decodeArgs(call.Args, &args); err != nil {
			return toolArgsError(err), true
		}
		raw = a.toolset.GetDataSchema(ctx, args.ConnectionName)
	case "aggregate_data":
		var args tools.AggregateArgs
		if err := decodeArgs(call.Args, &args); err != nil {
			return toolArgsError(err), true
		}
		raw = a.toolset.AggregateData(ctx, args)
	case "get_top_items":
		var args tools.TopArgs
		if err := decodeArgs(call.Args, &args); err != nil {
			return toolArgsError(err), true
		}
		raw = a.toolset.GetTopItems(ctx, args)
	case "compare_periods":
		var args tools.CompareArgs
		if err := decodeArgs(call.Args, &args); err != nil {
			return toolArgsError(err), true
		}
		raw = a.toolset.ComparePeriods(ctx, args)
	case "execute_aggregation":
		var args tools.CustomAggregationArgs
		if err := decodeArgs(call.Args, &args); err != nil {
			return toolArgsError(err), true
		}
		raw = a.toolset.ExecuteAggregation(ctx, args)
	default:
		return toolArgsError(fmt.Errorf("unknown tool %q", call.Name)), true
	}
	return raw, isToolError(raw)
}

// decodeArgs round-trips a tool call's loosely-typed argument map into a
// concrete struct via JSON, since every provider hands back map[string]any.
func decodeArgs(args map[string]interface{}, dst interface{}) error {
	b, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

func toolArgsError(err error) string {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(b)
}

// isToolError reports whether a tool's JSON result is the uniform
// {"error": "..."} fallback shape rather than a successful payload.
func isToolError(raw string) bool {
	var probe struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return false
	}
	return probe.Error != ""
}
