package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"sheetpulse/internal/apperr"
	"sheetpulse/pkg/docstore"
)

var allowedStages = map[string]bool{
	"$match": true, "$group": true, "$sort": true, "$limit": true,
	"$project": true, "$lookup": true, "$unwind": true, "$count": true,
	"$skip": true, "$addFields": true,
}

var blockedStages = map[string]bool{
	"$out": true, "$merge": true, "$delete": true, "$createIndex": true,
	"$dropIndex": true, "$collStats": true, "$indexStats": true, "$planCacheStats": true,
}

const maxLimit = 1000

// Validator sanitizes an agent-proposed aggregation pipeline before it ever
// reaches the document store: only a known-safe stage set is allowed, every
// $lookup target must belong to the calling user, and every pipeline is
// forced to carry a result cap.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate returns a sanitized copy of pipeline, or a validation apperr if
// it references a disallowed stage or an out-of-tenant $lookup target.
func (v *Validator) Validate(pipelineStages []docstore.Stage, userConnectionIDs []string) ([]docstore.Stage, error) {
	if len(pipelineStages) == 0 {
		return nil, apperr.New(apperr.KindValidation, "pipeline cannot be empty")
	}

	sanitized := make([]docstore.Stage, 0, len(pipelineStages)+1)
	hasLimit := false

	for _, stage := range pipelineStages {
		if len(stage) != 1 {
			return nil, apperr.New(apperr.KindValidation, "each pipeline stage must have exactly one operator")
		}

		var stageName string
		for k := range stage {
			stageName = k
		}

		if blockedStages[stageName] {
			return nil, apperr.New(apperr.KindValidation, fmt.Sprintf("stage %q is not allowed for security reasons", stageName))
		}
		if !allowedStages[stageName] {
			return nil, apperr.New(apperr.KindValidation, fmt.Sprintf("stage %q is not supported. allowed stages: %s", stageName, allowedStageNames()))
		}

		if name, found := findBlockedOperator(stage[stageName]); found {
			return nil, apperr.New(apperr.KindValidation, fmt.Sprintf("operator %q is not allowed for security reasons", name))
		}

		if stageName == "$lookup" {
			if err := v.validateLookup(stage["$lookup"], userConnectionIDs); err != nil {
				return nil, err
			}
		}

		if stageName == "$limit" {
			hasLimit = true
			limitValue, ok := toPositiveInt(stage["$limit"])
			if !ok {
				return nil, apperr.New(apperr.KindValidation, "$limit must be a positive integer")
			}
			if limitValue > maxLimit {
				stage = docstore.Stage{"$limit": maxLimit}
			}
		}

		sanitized = append(sanitized, stage)
	}

	if !hasLimit {
		sanitized = append(sanitized, docstore.Stage{"$limit": maxLimit})
	}

	return sanitized, nil
}

// validateLookup enforces tenant isolation: a $lookup's "from" names a
// connection id directly in this store's model, so it must belong to the
// calling user's own connections.
func (v *Validator) validateLookup(lookupConfig interface{}, userConnectionIDs []string) error {
	cfg, ok := lookupConfig.(map[string]interface{})
	if !ok {
		return apperr.New(apperr.KindValidation, "$lookup configuration must be an object")
	}
	from, ok := cfg["from"].(string)
	if !ok || from == "" {
		return apperr.New(apperr.KindValidation, "$lookup must specify a 'from' collection")
	}
	if !containsString(userConnectionIDs, from) {
		return apperr.New(apperr.KindValidation, "access denied: $lookup target does not belong to user")
	}
	return nil
}

// ValidateConnectionOwnership checks a connection id is one of the user's own.
func (v *Validator) ValidateConnectionOwnership(connectionID string, userConnectionIDs []string) error {
	if !containsString(userConnectionIDs, connectionID) {
		return apperr.New(apperr.KindValidation, "access denied: connection does not belong to user")
	}
	return nil
}

// findBlockedOperator walks a stage's body looking for a blocked operator
// key at any nesting depth — a $group accumulator or $project expression
// can embed arbitrary sub-objects, so checking only the top-level stage
// operator would let $out/$merge/$delete slip through buried inside one.
func findBlockedOperator(value interface{}) (string, bool) {
	switch v := value.(type) {
	case docstore.Stage:
		return findBlockedOperator(map[string]interface{}(v))
	case map[string]interface{}:
		for k, sub := range v {
			if blockedStages[k] {
				return k, true
			}
			if name, found := findBlockedOperator(sub); found {
				return name, found
			}
		}
	case []interface{}:
		for _, item := range v {
			if name, found := findBlockedOperator(item); found {
				return name, found
			}
		}
	}
	return "", false
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func toPositiveInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, n >= 1
	case int64:
		return int(n), n >= 1
	case float64:
		return int(n), n >= 1
	default:
		return 0, false
	}
}

func allowedStageNames() string {
	names := make([]string, 0, len(allowedStages))
	for k := range allowedStages {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
