package docstore

import (
	"fmt"
	"strconv"
	"strings"
)

func fieldPath(expr interface{}) (string, bool) {
	s, ok := expr.(string)
	if !ok || len(s) == 0 || s[0] != '$' {
		return "", false
	}
	return s[1:], true
}

func resolveValue(d Document, expr interface{}) interface{} {
	if path, ok := fieldPath(expr); ok {
		return lookupPath(d, path)
	}
	return expr
}

func lookupPath(d Document, path string) interface{} {
	parts := strings.Split(path, ".")
	var cur interface{} = d
	for _, p := range parts {
		m, ok := cur.(Document)
		if !ok {
			mm, ok2 := cur.(map[string]interface{})
			if !ok2 {
				return nil
			}
			m = Document(mm)
		}
		cur = m[p]
	}
	return cur
}

// evalCondition evaluates a $match-style condition document against d.
func evalCondition(d Document, cond map[string]interface{}) bool {
	for key, val := range cond {
		switch key {
		case "$and":
			arr, _ := val.([]interface{})
			for _, sub := range arr {
				subCond, ok := sub.(map[string]interface{})
				if !ok || !evalCondition(d, subCond) {
					return false
				}
			}
		case "$or":
			arr, _ := val.([]interface{})
			any := false
			for _, sub := range arr {
				subCond, ok := sub.(map[string]interface{})
				if ok && evalCondition(d, subCond) {
					any = true
					break
				}
			}
			if !any {
				return false
			}
		default:
			fieldVal := d[key]
			if !evalFieldCondition(fieldVal, val) {
				return false
			}
		}
	}
	return true
}

func evalFieldCondition(fieldVal interface{}, cond interface{}) bool {
	ops, ok := cond.(map[string]interface{})
	if !ok {
		return compareValues(fieldVal, cond) == 0
	}
	for op, arg := range ops {
		switch op {
		case "$eq":
			if compareValues(fieldVal, arg) != 0 {
				return false
			}
		case "$ne":
			if compareValues(fieldVal, arg) == 0 {
				return false
			}
		case "$gt":
			if compareValues(fieldVal, arg) <= 0 {
				return false
			}
		case "$gte":
			if compareValues(fieldVal, arg) < 0 {
				return false
			}
		case "$lt":
			if compareValues(fieldVal, arg) >= 0 {
				return false
			}
		case "$lte":
			if compareValues(fieldVal, arg) > 0 {
				return false
			}
		case "$in":
			arr, _ := arg.([]interface{})
			found := false
			for _, item := range arr {
				if compareValues(fieldVal, item) == 0 {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case "$nin":
			arr, _ := arg.([]interface{})
			for _, item := range arr {
				if compareValues(fieldVal, item) == 0 {
					return false
				}
			}
		case "$contains":
			needle, _ := arg.(string)
			haystack := fmt.Sprintf("%v", fieldVal)
			if !strings.Contains(strings.ToLower(haystack), strings.ToLower(needle)) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// evalExpression evaluates a $project/$addFields/$group accumulator-free
// expression: a field reference ("$field"), a literal, or a single-key
// operator object such as {"$sum": ["$a", "$b"]}.
func evalExpression(d Document, expr interface{}) interface{} {
	switch v := expr.(type) {
	case string:
		if path, ok := fieldPath(v); ok {
			return lookupPath(d, path)
		}
		return v
	case map[string]interface{}:
		if len(v) == 1 {
			for op, arg := range v {
				if strings.HasPrefix(op, "$") {
					return evalOperator(d, op, arg)
				}
			}
		}
		obj := make(map[string]interface{}, len(v))
		for k, sub := range v {
			obj[k] = evalExpression(d, sub)
		}
		return obj
	default:
		return v
	}
}

func evalOperator(d Document, op string, arg interface{}) interface{} {
	args, isArr := arg.([]interface{})
	resolved := func(i int) interface{} {
		if !isArr || i >= len(args) {
			return nil
		}
		return evalExpression(d, args[i])
	}
	switch op {
	case "$sum":
		if isArr {
			total := 0.0
			for i := range args {
				total += toFloat(resolved(i))
			}
			return total
		}
		return toFloat(evalExpression(d, arg))
	case "$subtract":
		return toFloat(resolved(0)) - toFloat(resolved(1))
	case "$multiply":
		total := 1.0
		for i := range args {
			total *= toFloat(resolved(i))
		}
		return total
	case "$divide":
		denom := toFloat(resolved(1))
		if denom == 0 {
			return 0.0
		}
		return toFloat(resolved(0)) / denom
	case "$concat":
		var sb strings.Builder
		for i := range args {
			sb.WriteString(fmt.Sprintf("%v", resolved(i)))
		}
		return sb.String()
	case "$toDouble":
		v := evalExpression(d, arg)
		if s, ok := v.(string); ok {
			f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
			return f
		}
		return toFloat(v)
	case "$size":
		v := evalExpression(d, arg)
		if arr, ok := v.([]interface{}); ok {
			return len(arr)
		}
		return 0
	case "$round":
		places := 0
		val := 0.0
		if isArr && len(args) >= 1 {
			val = toFloat(resolved(0))
		}
		if isArr && len(args) >= 2 {
			p, _ := toInt(resolved(1))
			places = p
		}
		return roundTo(val, places)
	default:
		return nil
	}
}

func roundTo(v float64, places int) float64 {
	mult := 1.0
	for i := 0; i < places; i++ {
		mult *= 10
	}
	if places < 0 {
		return v
	}
	return float64(int64(v*mult+0.5)) / mult
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	default:
		return 0, false
	}
}

// compareValues orders two arbitrary scalar values. Mismatched or
// unorderable types compare as equal, matching the permissive coercion
// the rest of the pipeline uses.
func compareValues(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if af, aok := asNumber(a); aok {
		if bf, bok := asNumber(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs)
	}
	return 0
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
