package tools

import (
	"context"
	"fmt"

	"sheetpulse/pkg/docstore"

	"github.com/google/uuid"
)

var aggregateAccumulators = map[string]string{
	"sum":   "$sum",
	"avg":   "$avg",
	"min":   "$min",
	"max":   "$max",
	"count": "$count",
}

// AggregateArgs mirrors the Python tool's flat keyword-argument shape so the
// model can be prompted with the same field names across both stacks.
type AggregateArgs struct {
	ConnectionName string                 `json:"connection_name"`
	Operation      string                 `json:"operation"`
	Field          string                 `json:"field,omitempty"`
	GroupBy        string                 `json:"group_by,omitempty"`
	Filters        map[string]interface{} `json:"filters,omitempty"`
	DateField      string                 `json:"date_field,omitempty"`
	DateFrom       string                 `json:"date_from,omitempty"`
	DateTo         string                 `json:"date_to,omitempty"`
}

// AggregateData runs a single sum/count/avg/min/max aggregation, optionally
// grouped and filtered, over one connection's documents.
func (t *Toolset) AggregateData(ctx context.Context, args AggregateArgs) string {
	conn, err := t.resolveConnection(args.ConnectionName)
	if err != nil {
		return errorResult(err)
	}

	accOp, ok := aggregateAccumulators[args.Operation]
	if !ok {
		return errorResult(fmt.Errorf("unsupported operation %q: must be one of sum, count, avg, min, max", args.Operation))
	}
	if accOp != "$count" && args.Field == "" {
		return errorResult(fmt.Errorf("operation %q requires a field", args.Operation))
	}

	pipelineStages, err := buildAggregatePipeline(args.GroupBy, accOp, args.Field, args.Filters, args.DateField, args.DateFrom, args.DateTo)
	if err != nil {
		return errorResult(err)
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

func buildAggregatePipeline(groupBy, accOp, field string, filters map[string]interface{}, dateField, dateFrom, dateTo string) ([]docstore.Stage, error) {
	matchCond := map[string]interface{}{}
	for k, v := range filters {
		matchCond[k] = v
	}
	if dateField != "" && (dateFrom != "" || dateTo != "") {
		rangeCond := map[string]interface{}{}
		if dateFrom != "" {
			rangeCond["$gte"] = dateFrom
		}
		if dateTo != "" {
			rangeCond["$lte"] = dateTo
		}
		matchCond[dateField] = rangeCond
	}

	groupID := interface{}(nil)
	if groupBy != "" {
		groupID = "$" + groupBy
	}

	group := map[string]interface{}{"_id": groupID}
	if accOp == "$count" {
		group["value"] = map[string]interface{}{"$count": map[string]interface{}{}}
	} else {
		group["value"] = map[string]interface{}{accOp: "$" + field}
	}

	return []docstore.Stage{
		{"$match": matchCond},
		{"$group": group},
		{"$sort": map[string]interface{}{"value": -1}},
	}, nil
}
