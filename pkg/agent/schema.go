package agent

import (
	"fmt"
	"strings"

	"sheetpulse/internal/entity"
	"sheetpulse/pkg/llm"
)

// dataAgentSystemPromptTemplate mirrors DATA_AGENT_SYSTEM_PROMPT: a fixed
// instruction block plus the caller's own schema dropped in at construction
// time, so the model never has to guess at connection names or fields.
const dataAgentSystemPromptTemplate = `You are a data analyst assistant for an e-commerce seller. You answer
questions about the seller's own orders, order items, customers, and
products by calling the tools available to you — never by guessing numbers.

Rules:
- Always resolve a connection by its exact name as given in the schema below.
- Call get_data_schema first if you are unsure which fields a connection has.
- Prefer aggregate_data, get_top_items, or compare_periods for common
  questions; fall back to execute_aggregation only when those cannot express
  the question.
- If a tool call fails, read the error and adjust the arguments; do not repeat
  the exact same call.
- Answer in the same language the user asked in, with concrete numbers from
  the tool results, never from memory.

Available data connections:
%s`

// formatSchemaContext renders one line per connection plus its fields, the
// same shape format_schema_context builds for the system prompt.
func formatSchemaContext(connections []*entity.Connection) string {
	if len(connections) == 0 {
		return "(no data connections are configured for this user)"
	}
	var b strings.Builder
	for _, conn := range connections {
		fmt.Fprintf(&b, "- %s (sheet_type: %s): ", conn.SheetTabName, conn.SheetType)
		names := make([]string, len(conn.ColumnMappings))
		for i, m := range conn.ColumnMappings {
			names[i] = fmt.Sprintf("%s (%s)", m.SystemField, m.DataType)
		}
		b.WriteString(strings.Join(names, ", "))
		b.WriteString("\n")
	}
	return b.String()
}

func buildSystemPrompt(connections []*entity.Connection) string {
	return fmt.Sprintf(dataAgentSystemPromptTemplate, formatSchemaContext(connections))
}

// toolSchemas describes the five data-query tools in the JSON-schema shape
// the model needs to construct valid arguments, mirroring the tools.py
// factories' individual argument schemas.
func toolSchemas() []llm.ToolSchema {
	return []llm.ToolSchema{
		{
			Name:        "get_data_schema",
			Description: "Return the fields (and a few sample values) available on one or all of the caller's data connections. Call this first when unsure what fields exist.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"connection_name": map[string]interface{}{
						"type":        "string",
						"description": "Exact connection name to inspect, or omit for every connection.",
					},
				},
			},
		},
		{
			Name:        "aggregate_data",
			Description: "Run a single sum/count/avg/min/max aggregation over a connection's rows, optionally grouped and filtered.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"connection_name": map[string]interface{}{"type": "string"},
					"operation":       map[string]interface{}{"type": "string", "enum": []string{"sum", "count", "avg", "min", "max"}},
					"field":           map[string]interface{}{"type": "string", "description": "Required for every operation except count."},
					"group_by":        map[string]interface{}{"type": "string"},
					"filters":         map[string]interface{}{"type": "object", "description": "Exact-match field filters."},
					"date_field":      map[string]interface{}{"type": "string"},
					"date_from":       map[string]interface{}{"type": "string", "description": "ISO date, inclusive."},
					"date_to":         map[string]interface{}{"type": "string", "description": "ISO date, inclusive."},
				},
				"required": []string{"connection_name", "operation"},
			},
		},
		{
			Name:        "get_top_items",
			Description: "Return the top N rows (or grouped buckets) sorted by a field, e.g. top customers by spend or best-selling products.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"connection_name": map[string]interface{}{"type": "string"},
					"sort_field":      map[string]interface{}{"type": "string"},
					"sort_order":      map[string]interface{}{"type": "string", "enum": []string{"asc", "desc"}},
					"limit":           map[string]interface{}{"type": "integer", "description": "Defaults to 10, capped at 100."},
					"group_by":        map[string]interface{}{"type": "string"},
					"aggregate_field": map[string]interface{}{"type": "string", "description": "Summed per group when group_by is set; otherwise groups are counted."},
					"filters":         map[string]interface{}{"type": "object"},
				},
				"required": []string{"connection_name", "sort_field"},
			},
		},
		{
			Name:        "compare_periods",
			Description: "Run the same aggregation over two date ranges and return both values, their difference, and percentage change.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"connection_name": map[string]interface{}{"type": "string"},
					"operation":       map[string]interface{}{"type": "string", "enum": []string{"sum", "count", "avg", "min", "max"}},
					"field":           map[string]interface{}{"type": "string"},
					"date_field":      map[string]interface{}{"type": "string"},
					"period1_from":    map[string]interface{}{"type": "string"},
					"period1_to":      map[string]interface{}{"type": "string"},
					"period2_from":    map[string]interface{}{"type": "string"},
					"period2_to":      map[string]interface{}{"type": "string"},
					"group_by":        map[string]interface{}{"type": "string"},
				},
				"required": []string{"connection_name", "operation", "date_field", "period1_from", "period1_to", "period2_from", "period2_to"},
			},
		},
		{
			Name:        "execute_aggregation",
			Description: "Run a custom aggregation pipeline when the other tools cannot express the question. The pipeline is validated before it runs.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"connection_name": map[string]interface{}{"type": "string"},
					"pipeline":        map[string]interface{}{"type": "string", "description": "JSON array of aggregation stage objects, e.g. [{\"$match\": {...}}, {\"$group\": {...}}]."},
					"description":     map[string]interface{}{"type": "string", "description": "What the pipeline computes, for tracing."},
				},
				"required": []string{"connection_name", "pipeline"},
			},
		},
	}
}
