package tools

import (
	"context"
	"fmt"

	"sheetpulse/internal/entity"
	"sheetpulse/pkg/docstore"

	"github.com/google/uuid"
)

// CompareArgs mirrors create_compare_periods_tool's argument shape.
type CompareArgs struct {
	ConnectionName string `json:"connection_name"`
	Operation      string `json:"operation"`
	Field          string `json:"field,omitempty"`
	DateField      string `json:"date_field"`
	Period1From    string `json:"period1_from"`
	Period1To      string `json:"period1_to"`
	Period2From    string `json:"period2_from"`
	Period2To      string `json:"period2_to"`
	GroupBy        string `json:"group_by,omitempty"`
}

// ComparePeriods runs the same aggregation over two independent date ranges
// and returns their values plus the delta between them, per the fixed
// percentage_change = (p2 - p1) / p1 * 100 contract (null when p1 is zero).
func (t *Toolset) ComparePeriods(ctx context.Context, args CompareArgs) string {
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
	if args.DateField == "" {
		return errorResult(fmt.Errorf("date_field is required"))
	}

	period1, err := t.runPeriodRange(ctx, conn, accOp, args.GroupBy, args.Field, args.DateField, args.Period1From, args.Period1To)
	if err != nil {
		return errorResult(err)
	}
	period2, err := t.runPeriodRange(ctx, conn, accOp, args.GroupBy, args.Field, args.DateField, args.Period2From, args.Period2To)
	if err != nil {
		return errorResult(err)
	}

	difference := period2 - period1
	var percentageChange interface{}
	if period1 != 0 {
		percentageChange = (period2 - period1) / period1 * 100
	}

	return successResult(map[string]interface{}{
		"period1_value":     period1,
		"period2_value":     period2,
		"difference":        difference,
		"percentage_change": percentageChange,
	})
}

func (t *Toolset) runPeriodRange(ctx context.Context, conn *entity.Connection, accOp, groupBy, field, dateField, from, to string) (float64, error) {
	pipelineStages, err := buildAggregatePipeline(groupBy, accOp, field, nil, dateField, from, to)
	if err != nil {
		return 0, err
	}
	sanitized, err := t.validator.Validate(pipelineStages, t.userConnectionIDStrings())
	if err != nil {
		return 0, err
	}
	results, err := t.store.Aggregate(ctx, []uuid.UUID{conn.Id}, sanitized, nil)
	if err != nil {
		return 0, err
	}
	return sumValueField(results), nil
}

func sumValueField(docs []docstore.Document) float64 {
	total := 0.0
	for _, d := range docs {
		switch v := d["value"].(type) {
		case float64:
			total += v
		case int:
			total += float64(v)
		}
	}
	return total
}
