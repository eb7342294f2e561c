package pipeline

import (
	"testing"

	"sheetpulse/internal/apperr"
	"sheetpulse/pkg/docstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Validate_RejectsBlockedStage(t *testing.T) {
	v := NewValidator()
	_, err := v.Validate([]docstore.Stage{{"$merge": map[string]interface{}{}}}, nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestValidator_Validate_RejectsBlockedOperatorNestedInAllowedStage(t *testing.T) {
	v := NewValidator()
	_, err := v.Validate([]docstore.Stage{{
		"$group": map[string]interface{}{
			"_id":   "$status",
			"total": map[string]interface{}{"$out": "evil_collection"},
		},
	}}, nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestValidator_Validate_RejectsUnknownStage(t *testing.T) {
	v := NewValidator()
	_, err := v.Validate([]docstore.Stage{{"$graphLookup": map[string]interface{}{}}}, nil)
	require.Error(t, err)
}

func TestValidator_Validate_RejectsEmptyPipeline(t *testing.T) {
	v := NewValidator()
	_, err := v.Validate(nil, nil)
	require.Error(t, err)
}

func TestValidator_Validate_AppendsDefaultLimitWhenMissing(t *testing.T) {
	v := NewValidator()
	sanitized, err := v.Validate([]docstore.Stage{{"$match": map[string]interface{}{"status": "paid"}}}, nil)
	require.NoError(t, err)
	require.Len(t, sanitized, 2)
	assert.Equal(t, docstore.Stage{"$limit": maxLimit}, sanitized[1])
}

func TestValidator_Validate_CapsOversizedLimit(t *testing.T) {
	v := NewValidator()
	sanitized, err := v.Validate([]docstore.Stage{{"$limit": 50000}}, nil)
	require.NoError(t, err)
	assert.Equal(t, docstore.Stage{"$limit": maxLimit}, sanitized[0])
}

func TestValidator_Validate_RejectsNonPositiveLimit(t *testing.T) {
	v := NewValidator()
	_, err := v.Validate([]docstore.Stage{{"$limit": 0}}, nil)
	require.Error(t, err)
}

func TestValidator_Validate_LookupMustTargetOwnConnection(t *testing.T) {
	v := NewValidator()
	owned := []string{"conn-a", "conn-b"}

	_, err := v.Validate([]docstore.Stage{{"$lookup": map[string]interface{}{"from": "conn-a", "as": "joined"}}}, owned)
	assert.NoError(t, err)

	_, err = v.Validate([]docstore.Stage{{"$lookup": map[string]interface{}{"from": "conn-z", "as": "joined"}}}, owned)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestValidator_ValidateConnectionOwnership(t *testing.T) {
	v := NewValidator()
	owned := []string{"conn-a"}

	assert.NoError(t, v.ValidateConnectionOwnership("conn-a", owned))
	assert.Error(t, v.ValidateConnectionOwnership("conn-b", owned))
}
