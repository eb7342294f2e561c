package entity

import (
	"time"

	"github.com/google/uuid"
)

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
	MessageRoleTool      MessageRole = "tool"
)

type ToolCallRecord struct {
	ToolCallId string                 `json:"tool_call_id"`
	Name       string                 `json:"name"`
	Args       map[string]interface{} `json:"args"`
	Result     string                 `json:"result,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

type MessageMetadata struct {
	Model       string           `json:"model,omitempty"`
	TokenUsage  int              `json:"token_usage,omitempty"`
	LatencyMs   int64            `json:"latency_ms,omitempty"`
	ToolCalls   []ToolCallRecord `json:"tool_calls,omitempty"`
}

type Message struct {
	Id             uuid.UUID
	ConversationId uuid.UUID
	Role           MessageRole
	Content        string
	Attachments    []string
	Metadata       MessageMetadata
	IsComplete     bool
	CreatedAt      time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}
