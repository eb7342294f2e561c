package analytics

import (
	"sheetpulse/internal/entity"
	"sheetpulse/pkg/docstore"
)

type OrdersStrategy struct{}

func (s *OrdersStrategy) SheetType() entity.SheetType { return entity.SheetTypeOrders }

func (s *OrdersStrategy) SummaryPipeline(dateFrom, dateTo string) []docstore.Stage {
	return []docstore.Stage{
		matchStage("order_date", dateFrom, dateTo, nil),
		{"$group": map[string]interface{}{
			"_id":          nil,
			"total_count":  map[string]interface{}{"$sum": 1},
			"total_amount": map[string]interface{}{"$sum": map[string]interface{}{"$toDouble": "$total_amount"}},
			"avg_amount":   map[string]interface{}{"$avg": map[string]interface{}{"$toDouble": "$total_amount"}},
		}},
	}
}

func (s *OrdersStrategy) SearchableFields() []string {
	return []string{"order_id", "platform", "order_status", "customer_id"}
}

func (s *OrdersStrategy) SortableFields() []string {
	return []string{"order_id", "platform", "order_status", "order_date", "subtotal", "total_amount"}
}

func (s *OrdersStrategy) SupportsTimeSeries() bool   { return true }
func (s *OrdersStrategy) SupportsDistribution() bool { return true }
func (s *OrdersStrategy) DistributionFields() []string {
	return []string{"platform", "order_status"}
}
func (s *OrdersStrategy) SupportsTop() bool    { return true }
func (s *OrdersStrategy) TopFields() []string  { return []string{"platform"} }
func (s *OrdersStrategy) DateField() string    { return "order_date" }

// DistributionPipeline buckets a field's values and reports each bucket's
// share of the whole, matching the percentage-of-total shape the UI expects.
func (s *OrdersStrategy) DistributionPipeline(field, dateFrom, dateTo string) []docstore.Stage {
	return []docstore.Stage{
		matchStage(s.DateField(), dateFrom, dateTo, nil),
		{"$group": map[string]interface{}{
			"_id":   "$" + field,
			"count": map[string]interface{}{"$sum": 1},
		}},
		{"$group": map[string]interface{}{
			"_id":   nil,
			"items": map[string]interface{}{"$push": map[string]interface{}{"value": "$_id", "count": "$count"}},
			"total": map[string]interface{}{"$sum": "$count"},
		}},
		{"$unwind": "$items"},
		{"$project": map[string]interface{}{
			"_id":   0,
			"value": "$items.value",
			"count": "$items.count",
			"percentage": map[string]interface{}{"$round": []interface{}{
				map[string]interface{}{"$multiply": []interface{}{
					map[string]interface{}{"$divide": []interface{}{"$items.count", "$total"}}, 100,
				}},
				1,
			}},
		}},
		{"$sort": map[string]interface{}{"count": -1}},
	}
}

// TopPipeline ranks distinct values of field by count or total_amount.
func (s *OrdersStrategy) TopPipeline(field string, limit int, metric, dateFrom, dateTo string) []docstore.Stage {
	sortField := "count"
	if metric == "amount" {
		sortField = "total_amount"
	}
	return []docstore.Stage{
		matchStage(s.DateField(), dateFrom, dateTo, nil),
		{"$group": map[string]interface{}{
			"_id":          "$" + field,
			"count":        map[string]interface{}{"$sum": 1},
			"total_amount": map[string]interface{}{"$sum": map[string]interface{}{"$toDouble": "$total_amount"}},
		}},
		{"$sort": map[string]interface{}{sortField: -1}},
		{"$limit": limit},
		{"$project": map[string]interface{}{"_id": 0, "value": "$_id", "count": 1, "total_amount": 1}},
	}
}
