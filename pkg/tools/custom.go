package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"sheetpulse/pkg/docstore"

	"github.com/google/uuid"
)

// CustomAggregationArgs mirrors create_execute_aggregation_tool: the model
// supplies a raw JSON pipeline plus a human-readable description of intent,
// which is ignored by execution but kept for tool-call tracing.
type CustomAggregationArgs struct {
	ConnectionName string `json:"connection_name"`
	Pipeline       string `json:"pipeline"`
	Description    string `json:"description,omitempty"`
}

// ExecuteAggregation validates and runs an agent-authored pipeline. The
// validator enforces the allowed-stage set, the 1000-row cap, and $lookup
// tenant isolation before anything touches the store.
func (t *Toolset) ExecuteAggregation(ctx context.Context, args CustomAggregationArgs) string {
	conn, err := t.resolveConnection(args.ConnectionName)
	if err != nil {
		return errorResult(err)
	}

	var rawStages []map[string]interface{}
	if err := json.Unmarshal([]byte(args.Pipeline), &rawStages); err != nil {
		return errorResult(fmt.Errorf("pipeline must be a JSON array of stage objects: %w", err))
	}
	stages := make([]docstore.Stage, len(rawStages))
	for i, s := range rawStages {
		stages[i] = docstore.Stage(s)
	}

	sanitized, err := t.validator.Validate(stages, t.userConnectionIDStrings())
	if err != nil {
		return errorResult(err)
	}

	results, err := t.store.Aggregate(ctx, []uuid.UUID{conn.Id}, sanitized, nil)
	if err != nil {
		return errorResult(err)
	}
	return successResult(map[string]interface{}{"results": results})
}
