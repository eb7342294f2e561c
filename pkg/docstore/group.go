package docstore

import "fmt"

type groupAccumulator struct {
	op   string
	expr interface{}
}

// group implements the $group stage: buckets documents by the "_id"
// expression, then folds each bucket through its named accumulators.
func (e *Executor) group(docs []Document, spec map[string]interface{}) ([]Document, error) {
	idExpr, hasID := spec["_id"]
	if !hasID {
		return nil, fmt.Errorf("$group requires an _id expression")
	}

	accumulators := make(map[string]groupAccumulator)
	for field, rule := range spec {
		if field == "_id" {
			continue
		}
		accSpec, ok := rule.(map[string]interface{})
		if !ok || len(accSpec) != 1 {
			return nil, fmt.Errorf("$group field %q must name exactly one accumulator", field)
		}
		for op, expr := range accSpec {
			accumulators[field] = groupAccumulator{op: op, expr: expr}
		}
	}

	type bucket struct {
		id   interface{}
		rows []Document
	}
	order := make([]interface{}, 0)
	buckets := make(map[interface{}][]Document)

	for _, d := range docs {
		key := groupKey(evalExpression(d, idExpr))
		if _, seen := buckets[key]; !seen {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], d)
	}

	out := make([]Document, 0, len(order))
	for _, key := range order {
		rows := buckets[key]
		result := Document{"_id": key}
		for field, acc := range accumulators {
			result[field] = applyAccumulator(acc, rows)
		}
		out = append(out, result)
	}
	return out, nil
}

// groupKey normalizes a grouping key so equal documents hash identically,
// since Go maps can't key on maps/slices directly.
func groupKey(v interface{}) interface{} {
	switch k := v.(type) {
	case Document:
		return fmt.Sprintf("%v", map[string]interface{}(k))
	case map[string]interface{}:
		return fmt.Sprintf("%v", k)
	default:
		return k
	}
}

func applyAccumulator(acc groupAccumulator, rows []Document) interface{} {
	switch acc.op {
	case "$sum":
		total := 0.0
		for _, d := range rows {
			total += toFloat(evalExpression(d, acc.expr))
		}
		return total
	case "$avg":
		if len(rows) == 0 {
			return 0.0
		}
		total := 0.0
		for _, d := range rows {
			total += toFloat(evalExpression(d, acc.expr))
		}
		return total / float64(len(rows))
	case "$min":
		var min interface{}
		for _, d := range rows {
			v := evalExpression(d, acc.expr)
			if min == nil || compareValues(v, min) < 0 {
				min = v
			}
		}
		return min
	case "$max":
		var max interface{}
		for _, d := range rows {
			v := evalExpression(d, acc.expr)
			if max == nil || compareValues(v, max) > 0 {
				max = v
			}
		}
		return max
	case "$push":
		out := make([]interface{}, 0, len(rows))
		for _, d := range rows {
			out = append(out, evalExpression(d, acc.expr))
		}
		return out
	case "$addToSet":
		seen := make(map[interface{}]bool)
		var out []interface{}
		for _, d := range rows {
			v := evalExpression(d, acc.expr)
			k := groupKey(v)
			if !seen[k] {
				seen[k] = true
				out = append(out, v)
			}
		}
		if out == nil {
			out = []interface{}{}
		}
		return out
	case "$count":
		return len(rows)
	case "$first":
		if len(rows) == 0 {
			return nil
		}
		return evalExpression(rows[0], acc.expr)
	case "$last":
		if len(rows) == 0 {
			return nil
		}
		return evalExpression(rows[len(rows)-1], acc.expr)
	default:
		return nil
	}
}
