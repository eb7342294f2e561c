package docstore

import (
	"fmt"
	"sort"
)

// LookupSource resolves the documents backing a $lookup's "from" collection,
// by connection id — the document store's one "collection" concept.
type LookupSource func(connectionID string) []Document

// Executor interprets a Mongo-style aggregation pipeline over an in-memory
// slice of documents. It exists so the rest of the system can keep the
// aggregation-pipeline contract (§4.4/§4.6 of the spec) while the actual
// storage underneath is Postgres/JSONB rather than a document database.
type Executor struct {
	lookup LookupSource
}

func NewExecutor(lookup LookupSource) *Executor {
	return &Executor{lookup: lookup}
}

func (e *Executor) Run(docs []Document, pipeline []Stage) ([]Document, error) {
	current := docs
	for i, stage := range pipeline {
		if len(stage) != 1 {
			return nil, fmt.Errorf("stage %d: must have exactly one operator", i)
		}
		for op, arg := range stage {
			var err error
			current, err = e.runStage(current, op, arg)
			if err != nil {
				return nil, fmt.Errorf("stage %d (%s): %w", i, op, err)
			}
		}
	}
	return current, nil
}

func (e *Executor) runStage(docs []Document, op string, arg interface{}) ([]Document, error) {
	switch op {
	case "$match":
		cond, ok := arg.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("$match requires an object")
		}
		return e.match(docs, cond), nil
	case "$sort":
		spec, ok := arg.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("$sort requires an object")
		}
		return e.sort(docs, spec), nil
	case "$limit":
		n, ok := toInt(arg)
		if !ok {
			return nil, fmt.Errorf("$limit requires a number")
		}
		if n < len(docs) {
			return docs[:n], nil
		}
		return docs, nil
	case "$skip":
		n, ok := toInt(arg)
		if !ok {
			return nil, fmt.Errorf("$skip requires a number")
		}
		if n >= len(docs) {
			return []Document{}, nil
		}
		return docs[n:], nil
	case "$project":
		spec, ok := arg.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("$project requires an object")
		}
		return e.project(docs, spec), nil
	case "$addFields":
		spec, ok := arg.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("$addFields requires an object")
		}
		return e.addFields(docs, spec), nil
	case "$group":
		spec, ok := arg.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("$group requires an object")
		}
		return e.group(docs, spec)
	case "$unwind":
		field, ok := arg.(string)
		if !ok {
			return nil, fmt.Errorf("$unwind requires a field path string")
		}
		return e.unwind(docs, field), nil
	case "$count":
		field, ok := arg.(string)
		if !ok {
			return nil, fmt.Errorf("$count requires a field name")
		}
		return []Document{{field: len(docs)}}, nil
	case "$lookup":
		spec, ok := arg.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("$lookup requires an object")
		}
		return e.lookupStage(docs, spec)
	default:
		return nil, fmt.Errorf("unsupported stage operator %q", op)
	}
}

func (e *Executor) match(docs []Document, cond map[string]interface{}) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if evalCondition(d, cond) {
			out = append(out, d)
		}
	}
	return out
}

func (e *Executor) sort(docs []Document, spec map[string]interface{}) []Document {
	out := make([]Document, len(docs))
	copy(out, docs)

	type key struct {
		field string
		desc  bool
	}
	var keys []key
	for field, dir := range spec {
		d, _ := toInt(dir)
		keys = append(keys, key{field: field, desc: d < 0})
	}

	sort.SliceStable(out, func(i, j int) bool {
		for _, k := range keys {
			cmp := compareValues(out[i][k.field], out[j][k.field])
			if cmp == 0 {
				continue
			}
			if k.desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return out
}

func (e *Executor) project(docs []Document, spec map[string]interface{}) []Document {
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = e.projectOne(d, spec)
	}
	return out
}

func (e *Executor) projectOne(d Document, spec map[string]interface{}) Document {
	result := make(Document)
	for field, rule := range spec {
		switch v := rule.(type) {
		case bool:
			if v {
				result[field] = d[field]
			}
		case float64, int:
			n, _ := toInt(rule)
			if n != 0 {
				result[field] = d[field]
			}
		default:
			result[field] = evalExpression(d, rule)
		}
	}
	return result
}

func (e *Executor) addFields(docs []Document, spec map[string]interface{}) []Document {
	out := make([]Document, len(docs))
	for i, d := range docs {
		nd := cloneDoc(d)
		for field, expr := range spec {
			nd[field] = evalExpression(d, expr)
		}
		out[i] = nd
	}
	return out
}

func (e *Executor) unwind(docs []Document, field string) []Document {
	path := field
	if len(path) > 0 && path[0] == '$' {
		path = path[1:]
	}
	var out []Document
	for _, d := range docs {
		arr, ok := d[path].([]interface{})
		if !ok {
			continue
		}
		for _, item := range arr {
			nd := cloneDoc(d)
			nd[path] = item
			out = append(out, nd)
		}
	}
	return out
}

func (e *Executor) lookupStage(docs []Document, spec map[string]interface{}) ([]Document, error) {
	from, _ := spec["from"].(string)
	localField, _ := spec["localField"].(string)
	foreignField, _ := spec["foreignField"].(string)
	as, _ := spec["as"].(string)
	if from == "" || localField == "" || foreignField == "" || as == "" {
		return nil, fmt.Errorf("$lookup requires from, localField, foreignField, as")
	}
	if e.lookup == nil {
		return nil, fmt.Errorf("$lookup is not supported in this context")
	}
	foreignDocs := e.lookup(from)

	out := make([]Document, len(docs))
	for i, d := range docs {
		nd := cloneDoc(d)
		var matches []interface{}
		for _, fd := range foreignDocs {
			if compareValues(d[localField], fd[foreignField]) == 0 {
				matches = append(matches, fd)
			}
		}
		if matches == nil {
			matches = []interface{}{}
		}
		nd[as] = matches
		out[i] = nd
	}
	return out, nil
}
