package tools

import (
	"context"
	"fmt"

	"sheetpulse/pkg/docstore"

	"github.com/google/uuid"
)

// TopArgs mirrors create_get_top_items_tool's argument shape.
type TopArgs struct {
	ConnectionName string                 `json:"connection_name"`
	SortField      string                 `json:"sort_field"`
	SortOrder      string                 `json:"sort_order,omitempty"`
	Limit          int                    `json:"limit"`
	GroupBy        string                 `json:"group_by,omitempty"`
	AggregateField string                 `json:"aggregate_field,omitempty"`
	Filters        map[string]interface{} `json:"filters,omitempty"`
}

// GetTopItems returns up to limit rows (or grouped buckets) sorted by
// sort_field/aggregate_field.
func (t *Toolset) GetTopItems(ctx context.Context, args TopArgs) string {
	conn, err := t.resolveConnection(args.ConnectionName)
	if err != nil {
		return errorResult(err)
	}
	if args.SortField == "" {
		return errorResult(fmt.Errorf("sort_field is required"))
	}
	if args.Limit <= 0 {
		args.Limit = 10
	}
	if args.Limit > 100 {
		args.Limit = 100
	}
	direction := -1
	if args.SortOrder == "asc" {
		direction = 1
	}

	matchCond := map[string]interface{}{}
	for k, v := range args.Filters {
		matchCond[k] = v
	}

	var pipelineStages []docstore.Stage
	if args.GroupBy != "" {
		group := map[string]interface{}{"_id": "$" + args.GroupBy}
		sortField := args.SortField
		if args.AggregateField != "" {
			group["value"] = map[string]interface{}{"$sum": "$" + args.AggregateField}
			sortField = "value"
		} else {
			group["value"] = map[string]interface{}{"$count": map[string]interface{}{}}
			sortField = "value"
		}
		pipelineStages = []docstore.Stage{
			{"$match": matchCond},
			{"$group": group},
			{"$sort": map[string]interface{}{sortField: direction}},
			{"$limit": args.Limit},
		}
	} else {
		pipelineStages = []docstore.Stage{
			{"$match": matchCond},
			{"$sort": map[string]interface{}{args.SortField: direction}},
			{"$limit": args.Limit},
		}
	}

	sanitized, err := t.validator.Validate(pipelineStages, t.userConnectionIDStrings())
	if err != nil {
		return errorResult(err)
	}

	results, err := t.store.Aggregate(ctx, []uuid.UUID{conn.Id}, sanitized, nil)
	if err != nil {
		return errorResult(err)
	}
	return successResult(map[string]interface{}{"results": results})
}
