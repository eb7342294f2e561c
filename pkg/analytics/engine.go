package analytics

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"sheetpulse/internal/apperr"
	"sheetpulse/internal/repository/contract"
	"sheetpulse/internal/repository/specification"
	"sheetpulse/pkg/cache"
	"sheetpulse/pkg/docstore"

	"github.com/google/uuid"
)

// Engine computes analytics for a connection's synced sheet, caching every
// aggregate result (summary, time series, distribution, top) under a key
// derived from the connection, operation, and query parameters so identical
// requests never recompute. GetData is not cached.
type Engine struct {
	connections contract.ConnectionRepository
	store       *docstore.Store
	cache       *cache.AnalyticsCache
}

func NewEngine(connections contract.ConnectionRepository, store *docstore.Store, c *cache.AnalyticsCache) *Engine {
	return &Engine{connections: connections, store: store, cache: c}
}

func (e *Engine) resolve(ctx context.Context, connectionID uuid.UUID) (Strategy, error) {
	conn, err := e.connections.FindOne(ctx, specification.ByID{ID: connectionID})
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, apperr.New(apperr.KindNotFound, "connection not found")
	}
	return StrategyFor(conn.SheetType), nil
}

func fingerprint(params map[string]interface{}) string {
	raw, _ := json.Marshal(params)
	sum := md5.Sum(raw)
	return hex.EncodeToString(sum[:])[:8]
}

func (e *Engine) cached(ctx context.Context, connectionID uuid.UUID, operation string, params map[string]interface{}, dest interface{}, compute func() (interface{}, error)) error {
	key := cache.Key(connectionID.String(), operation, fingerprint(params))
	if e.cache.Get(ctx, key, dest) {
		return nil
	}
	result, err := compute()
	if err != nil {
		return err
	}
	// A freshly computed map is handed back with its Go types intact; only
	// a cache hit carries JSON-decoded values.
	if m, ok := result.(map[string]interface{}); ok {
		if p, ok := dest.(*map[string]interface{}); ok {
			*p = m
			e.cache.Set(ctx, key, result)
			return nil
		}
	}
	raw, _ := json.Marshal(result)
	if err := json.Unmarshal(raw, dest); err != nil {
		return err
	}
	e.cache.Set(ctx, key, result)
	return nil
}

// GetSummary returns the sheet-type-specific aggregate metrics for a connection.
func (e *Engine) GetSummary(ctx context.Context, connectionID uuid.UUID, dateFrom, dateTo string) (map[string]interface{}, error) {
	strategy, err := e.resolve(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if dateFrom != "" && dateTo != "" && dateFrom > dateTo {
		return nil, apperr.New(apperr.KindValidation, "date_from must be before date_to")
	}

	var out map[string]interface{}
	err = e.cached(ctx, connectionID, "summary", map[string]interface{}{"date_from": dateFrom, "date_to": dateTo}, &out, func() (interface{}, error) {
		pipeline := strategy.SummaryPipeline(dateFrom, dateTo)
		results, err := e.store.Aggregate(ctx, []uuid.UUID{connectionID}, pipeline, nil)
		if err != nil {
			return nil, err
		}
		return defaultSummary(strategy, results), nil
	})
	return out, err
}

func defaultSummary(strategy Strategy, results []docstore.Document) map[string]interface{} {
	switch strategy.SheetType() {
	case "orders":
		if len(results) == 0 {
			return map[string]interface{}{"total_count": 0, "total_amount": 0.0, "avg_amount": 0.0}
		}
		r := results[0]
		return map[string]interface{}{
			"total_count":  orZero(r["total_count"]),
			"total_amount": orZero(r["total_amount"]),
			"avg_amount":   orZero(r["avg_amount"]),
		}
	case "order_items":
		if len(results) == 0 {
			return map[string]interface{}{"total_quantity": 0, "total_line_total": 0.0, "unique_products": 0}
		}
		r := results[0]
		return map[string]interface{}{
			"total_quantity":   orZero(r["total_quantity"]),
			"total_line_total": orZero(r["total_line_total"]),
			"unique_products":  orZero(r["unique_products"]),
		}
	default:
		if len(results) == 0 {
			return map[string]interface{}{"total_count": 0}
		}
		return map[string]interface{}{"total_count": orZero(results[0]["total_count"])}
	}
}

func orZero(v interface{}) interface{} {
	if v == nil {
		return 0
	}
	return v
}

// GetTimeSeries buckets orders by day/week/month/year, computed in Go rather
// than via a pipeline date operator since the pipeline interpreter has no
// $dateToString stage.
func (e *Engine) GetTimeSeries(ctx context.Context, connectionID uuid.UUID, dateFrom, dateTo, granularity, metrics string) (map[string]interface{}, error) {
	strategy, err := e.resolve(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if !strategy.SupportsTimeSeries() {
		return nil, apperr.New(apperr.KindValidation, fmt.Sprintf("time series not supported for sheet type %q", strategy.SheetType()))
	}
	if dateFrom == "" || dateTo == "" {
		return nil, apperr.New(apperr.KindValidation, "date_from and date_to are required")
	}
	if dateFrom > dateTo {
		return nil, apperr.New(apperr.KindValidation, "date_from must be before date_to")
	}

	var out map[string]interface{}
	err = e.cached(ctx, connectionID, "time-series", map[string]interface{}{
		"date_from": dateFrom, "date_to": dateTo, "granularity": granularity, "metrics": metrics,
	}, &out, func() (interface{}, error) {
		docs, err := e.store.Aggregate(ctx, []uuid.UUID{connectionID}, []docstore.Stage{
			matchStage(strategy.DateField(), dateFrom, dateTo, nil),
		}, nil)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"granularity": granularity,
			"data":        bucketByDate(docs, strategy.DateField(), granularity, metrics),
		}, nil
	})
	return out, err
}

func bucketByDate(docs []docstore.Document, dateField, granularity, metrics string) []map[string]interface{} {
	type bucket struct {
		count  int
		amount float64
	}
	buckets := make(map[string]*bucket)
	var order []string

	for _, d := range docs {
		t := parseDate(d[dateField])
		if t.IsZero() {
			continue
		}
		key := truncateToGranularity(t, granularity)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
			order = append(order, key)
		}
		b.count++
		if amt, ok := d["total_amount"].(float64); ok {
			b.amount += amt
		}
	}

	sort.Strings(order)
	out := make([]map[string]interface{}, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		row := map[string]interface{}{"date": key}
		if metrics == "count" || metrics == "both" {
			row["count"] = b.count
		}
		if metrics == "amount" || metrics == "both" {
			row["total_amount"] = b.amount
		}
		out = append(out, row)
	}
	return out
}

func truncateToGranularity(t time.Time, granularity string) string {
	switch granularity {
	case "week":
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case "month":
		return t.Format("2006-01")
	case "year":
		return t.Format("2006")
	default:
		return t.Format("2006-01-02")
	}
}

func parseDate(v interface{}) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// GetDistribution buckets a field's values and their share of the total,
// supported only for the orders strategy.
func (e *Engine) GetDistribution(ctx context.Context, connectionID uuid.UUID, field, dateFrom, dateTo string) (map[string]interface{}, error) {
	strategy, err := e.resolve(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if !strategy.SupportsDistribution() {
		return nil, apperr.New(apperr.KindValidation, fmt.Sprintf("distribution not supported for sheet type %q", strategy.SheetType()))
	}
	if !contains(strategy.DistributionFields(), field) {
		return nil, apperr.New(apperr.KindValidation, fmt.Sprintf("field %q not supported for this sheet type", field))
	}

	orders, ok := strategy.(*OrdersStrategy)
	if !ok {
		return map[string]interface{}{"field": field, "data": []interface{}{}}, nil
	}

	var out map[string]interface{}
	err = e.cached(ctx, connectionID, "distribution", map[string]interface{}{"field": field, "date_from": dateFrom, "date_to": dateTo}, &out, func() (interface{}, error) {
		pipeline := orders.DistributionPipeline(field, dateFrom, dateTo)
		results, err := e.store.Aggregate(ctx, []uuid.UUID{connectionID}, pipeline, nil)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"field": field, "data": results}, nil
	})
	return out, err
}

// GetTop ranks values of field by count or amount, supported for orders and order_items.
func (e *Engine) GetTop(ctx context.Context, connectionID uuid.UUID, field string, limit int, metric, dateFrom, dateTo string) (map[string]interface{}, error) {
	strategy, err := e.resolve(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if !strategy.SupportsTop() {
		return nil, apperr.New(apperr.KindValidation, fmt.Sprintf("top not supported for sheet type %q", strategy.SheetType()))
	}
	if !contains(strategy.TopFields(), field) {
		return nil, apperr.New(apperr.KindValidation, fmt.Sprintf("field %q not supported for this sheet type", field))
	}
	if limit < 1 || limit > 50 {
		return nil, apperr.New(apperr.KindValidation, "limit must be between 1 and 50")
	}

	var out map[string]interface{}
	err = e.cached(ctx, connectionID, "top", map[string]interface{}{
		"field": field, "limit": limit, "metric": metric, "date_from": dateFrom, "date_to": dateTo,
	}, &out, func() (interface{}, error) {
		var pipeline []docstore.Stage
		switch st := strategy.(type) {
		case *OrdersStrategy:
			pipeline = st.TopPipeline(field, limit, metric, dateFrom, dateTo)
		case *OrderItemsStrategy:
			pipeline = st.TopPipeline(field, limit, metric, dateFrom, dateTo)
		default:
			return map[string]interface{}{"field": field, "metric": metric, "data": []interface{}{}}, nil
		}
		results, err := e.store.Aggregate(ctx, []uuid.UUID{connectionID}, pipeline, nil)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"field": field, "metric": metric, "data": results}, nil
	})
	return out, err
}

// GetData returns a paginated, searchable, sortable window over a
// connection's raw synced documents. Never cached: the data grid needs
// immediate consistency after a sync, unlike the aggregate endpoints.
func (e *Engine) GetData(ctx context.Context, connectionID uuid.UUID, page, pageSize int, search, sortBy, sortOrder, dateFrom, dateTo string) (map[string]interface{}, error) {
	strategy, err := e.resolve(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if sortBy != "" && !contains(strategy.SortableFields(), sortBy) {
		return nil, apperr.New(apperr.KindValidation, fmt.Sprintf("field %q not supported for sorting", sortBy))
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		return nil, apperr.New(apperr.KindValidation, "page_size must be between 1 and 100")
	}

	pipeline := []docstore.Stage{matchStage(strategy.DateField(), dateFrom, dateTo, nil)}
	if search != "" {
		pipeline = append(pipeline, docstore.Stage{"$match": searchCondition(strategy.SearchableFields(), search)})
	}

	docs, err := e.store.Aggregate(ctx, []uuid.UUID{connectionID}, pipeline, nil)
	if err != nil {
		return nil, err
	}

	total := len(docs)
	if sortBy != "" {
		dir := -1
		if sortOrder == "asc" {
			dir = 1
		}
		docs, _ = docstore.NewExecutor(nil).Run(docs, []docstore.Stage{{"$sort": map[string]interface{}{sortBy: dir}}})
	}

	skip := (page - 1) * pageSize
	if skip > len(docs) {
		skip = len(docs)
	}
	end := skip + pageSize
	if end > len(docs) {
		end = len(docs)
	}
	pageDocs := docs[skip:end]

	totalPages := 0
	if total > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	}

	return map[string]interface{}{
		"data":        pageDocs,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": totalPages,
	}, nil
}

func searchCondition(fields []string, search string) map[string]interface{} {
	var or []interface{}
	for _, f := range fields {
		or = append(or, map[string]interface{}{f: map[string]interface{}{"$contains": search}})
	}
	if len(or) == 0 {
		return map[string]interface{}{}
	}
	return map[string]interface{}{"$or": or}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
