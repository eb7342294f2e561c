package analytics

import (
	"sheetpulse/internal/entity"
	"sheetpulse/pkg/docstore"
)

// Strategy supplies the sheet-type-specific pipelines and field allowlists
// the engine needs to answer summary/time-series/distribution/top/data
// queries without hardcoding per-type branches at the call site.
type Strategy interface {
	SheetType() entity.SheetType

	SummaryPipeline(dateFrom, dateTo string) []docstore.Stage
	SearchableFields() []string
	SortableFields() []string

	SupportsTimeSeries() bool
	SupportsDistribution() bool
	DistributionFields() []string
	SupportsTop() bool
	TopFields() []string
	DateField() string
}

func matchStage(dateField, dateFrom, dateTo string, extra map[string]interface{}) docstore.Stage {
	match := map[string]interface{}{}
	for k, v := range extra {
		match[k] = v
	}
	if dateField != "" && (dateFrom != "" || dateTo != "") {
		rangeCond := map[string]interface{}{}
		if dateFrom != "" {
			rangeCond["$gte"] = dateFrom
		}
		if dateTo != "" {
			rangeCond["$lte"] = dateTo
		}
		match[dateField] = rangeCond
	}
	return docstore.Stage{"$match": match}
}

func StrategyFor(sheetType entity.SheetType) Strategy {
	switch sheetType {
	case entity.SheetTypeOrders:
		return &OrdersStrategy{}
	case entity.SheetTypeOrderItems:
		return &OrderItemsStrategy{}
	case entity.SheetTypeCustomers:
		return &CustomersStrategy{}
	case entity.SheetTypeProducts:
		return &ProductsStrategy{}
	default:
		return &OrdersStrategy{}
	}
}
