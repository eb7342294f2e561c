package analytics

import (
	"sheetpulse/internal/entity"
	"sheetpulse/pkg/docstore"
)

// CustomersStrategy and ProductsStrategy are count-only sheet types: neither
// supports time series, distribution, or top-N, matching the source data's
// lack of a natural date or amount axis.

type CustomersStrategy struct{}

func (s *CustomersStrategy) SheetType() entity.SheetType { return entity.SheetTypeCustomers }
func (s *CustomersStrategy) SummaryPipeline(dateFrom, dateTo string) []docstore.Stage {
	return []docstore.Stage{
		{"$match": map[string]interface{}{}},
		{"$count": "total_count"},
	}
}
func (s *CustomersStrategy) SearchableFields() []string   { return []string{"customer_id", "customer_name", "phone"} }
func (s *CustomersStrategy) SortableFields() []string     { return []string{"customer_id", "customer_name", "phone"} }
func (s *CustomersStrategy) SupportsTimeSeries() bool     { return false }
func (s *CustomersStrategy) SupportsDistribution() bool   { return false }
func (s *CustomersStrategy) DistributionFields() []string { return nil }
func (s *CustomersStrategy) SupportsTop() bool            { return false }
func (s *CustomersStrategy) TopFields() []string          { return nil }
func (s *CustomersStrategy) DateField() string            { return "" }

type ProductsStrategy struct{}

func (s *ProductsStrategy) SheetType() entity.SheetType { return entity.SheetTypeProducts }
func (s *ProductsStrategy) SummaryPipeline(dateFrom, dateTo string) []docstore.Stage {
	return []docstore.Stage{
		{"$match": map[string]interface{}{}},
		{"$count": "total_count"},
	}
}
func (s *ProductsStrategy) SearchableFields() []string   { return []string{"product_id", "product_name"} }
func (s *ProductsStrategy) SortableFields() []string     { return []string{"product_id", "product_name"} }
func (s *ProductsStrategy) SupportsTimeSeries() bool     { return false }
func (s *ProductsStrategy) SupportsDistribution() bool   { return false }
func (s *ProductsStrategy) DistributionFields() []string { return nil }
func (s *ProductsStrategy) SupportsTop() bool            { return false }
func (s *ProductsStrategy) TopFields() []string          { return nil }
func (s *ProductsStrategy) DateField() string            { return "" }
