// Package chatworkflow drives one chat turn through intent classification,
// a chat/clarify/data-agent branch, and response formatting, emitting
// streaming events to the caller's notifier along the way. It is the
// explicit state machine the framework-driven graph in the source system
// renders with a graph library: the same states, reified as Go constants
// and a linear Go function instead of a compiled node graph.
package chatworkflow

// State names one step of a chat turn. Transitions are driven by intent
// classification output and tool results, never by a fixed linear order.
type State string

const (
	StateClassifying      State = "classifying"
	StateChatting         State = "chatting"
	StateClarifying       State = "clarifying"
	StateAgentThinking    State = "agent_thinking"
	StateAgentCallingTool State = "agent_calling_tool"
	StateFormatting       State = "formatting"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// Intent is the single classification the workflow routes on.
type Intent string

const (
	IntentDataQuery Intent = "data_query"
	IntentChat      Intent = "chat"
	IntentUnclear   Intent = "unclear"
)

// Transition records one state change, kept for tracing a turn's path
// through the machine the same way the tool-call trace records the
// ReAct loop's steps.
type Transition struct {
	From State `json:"from"`
	To   State `json:"to"`
}

// ToolCallRecord mirrors the source's ToolCallRecord: one tool invocation
// captured for streaming, independent of the agent package's own trace
// type so a workflow-level concern (did we stream it yet) never leaks into
// the agent's.
type ToolCallRecord struct {
	ToolName   string                 `json:"tool_name"`
	ToolCallID string                 `json:"tool_call_id"`
	Arguments  map[string]interface{} `json:"arguments"`
	Result     string                 `json:"result,omitempty"`
	Error      string                 `json:"error,omitempty"`
}
