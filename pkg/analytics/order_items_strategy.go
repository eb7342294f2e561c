package analytics

import (
	"sheetpulse/internal/entity"
	"sheetpulse/pkg/docstore"
)

type OrderItemsStrategy struct{}

func (s *OrderItemsStrategy) SheetType() entity.SheetType { return entity.SheetTypeOrderItems }

// SummaryPipeline ignores date filters entirely: order items carry no date field.
func (s *OrderItemsStrategy) SummaryPipeline(dateFrom, dateTo string) []docstore.Stage {
	return []docstore.Stage{
		{"$match": map[string]interface{}{}},
		{"$group": map[string]interface{}{
			"_id":              nil,
			"total_quantity":   map[string]interface{}{"$sum": map[string]interface{}{"$toDouble": "$quantity"}},
			"total_line_total": map[string]interface{}{"$sum": map[string]interface{}{"$toDouble": "$line_total"}},
			"unique_products":  map[string]interface{}{"$addToSet": "$product_id"},
		}},
		{"$project": map[string]interface{}{
			"_id":              0,
			"total_quantity":   1,
			"total_line_total": 1,
			"unique_products":  map[string]interface{}{"$size": "$unique_products"},
		}},
	}
}

func (s *OrderItemsStrategy) SearchableFields() []string {
	return []string{"order_item_id", "order_id", "product_id", "product_name"}
}

func (s *OrderItemsStrategy) SortableFields() []string {
	return []string{"order_item_id", "order_id", "product_id", "product_name", "quantity", "unit_price", "final_price", "line_total"}
}

func (s *OrderItemsStrategy) SupportsTimeSeries() bool     { return false }
func (s *OrderItemsStrategy) SupportsDistribution() bool   { return false }
func (s *OrderItemsStrategy) DistributionFields() []string { return nil }
func (s *OrderItemsStrategy) SupportsTop() bool            { return true }
func (s *OrderItemsStrategy) TopFields() []string          { return []string{"product_name"} }
func (s *OrderItemsStrategy) DateField() string             { return "" }

func (s *OrderItemsStrategy) TopPipeline(field string, limit int, metric, dateFrom, dateTo string) []docstore.Stage {
	sortField := "count"
	if metric == "quantity" {
		sortField = "total_quantity"
	}
	return []docstore.Stage{
		{"$match": map[string]interface{}{}},
		{"$group": map[string]interface{}{
			"_id":            "$" + field,
			"count":          map[string]interface{}{"$sum": 1},
			"total_quantity": map[string]interface{}{"$sum": map[string]interface{}{"$toDouble": "$quantity"}},
		}},
		{"$sort": map[string]interface{}{sortField: -1}},
		{"$limit": limit},
		{"$project": map[string]interface{}{"_id": 0, "value": "$_id", "count": 1, "total_quantity": 1}},
	}
}
