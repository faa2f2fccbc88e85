package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func TestValidateHappyPath(t *testing.T) {
	schema := Schema{
		"query": {Kind: KindString, Required: true},
		"limit": {Kind: KindNumber, Default: float64(10)},
		"exact": {Kind: KindBoolean},
	}

	sanitized, errs := schema.Validate(map[string]any{
		"query": "golang",
		"exact": true,
	})

	require.Empty(t, errs)
	assert.Equal(t, "golang", sanitized["query"])
	assert.Equal(t, float64(10), sanitized["limit"], "default applied for absent field")
	assert.Equal(t, true, sanitized["exact"])
}

func TestValidateMissingRequired(t *testing.T) {
	schema := Schema{"query": {Kind: KindString, Required: true}}

	_, errs := schema.Validate(map[string]any{})

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `field "query"`)
	assert.Contains(t, errs[0], "required field is missing")
}

func TestValidateTypeMismatch(t *testing.T) {
	schema := Schema{
		"count":   {Kind: KindNumber},
		"enabled": {Kind: KindBoolean},
		"name":    {Kind: KindString},
	}

	_, errs := schema.Validate(map[string]any{
		"count":   "three",
		"enabled": 1,
		"name":    false,
	})

	// Errors come back in sorted field order.
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], `field "count"`)
	assert.Contains(t, errs[1], `field "enabled"`)
	assert.Contains(t, errs[2], `field "name"`)
}

func TestValidateNumberNormalizationAndBounds(t *testing.T) {
	schema := Schema{
		"count": {Kind: KindNumber, Min: floatPtr(1), Max: floatPtr(100)},
	}

	sanitized, errs := schema.Validate(map[string]any{"count": 42})
	require.Empty(t, errs)
	assert.Equal(t, float64(42), sanitized["count"], "integers normalize to float64")

	_, errs = schema.Validate(map[string]any{"count": 0})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "below minimum")

	_, errs = schema.Validate(map[string]any{"count": 101})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "exceeds maximum")
}

func TestValidateStringConstraints(t *testing.T) {
	schema := Schema{
		"mode": {Kind: KindString, Enum: []string{"fast", "thorough"}},
		"name": {Kind: KindString, MinLen: intPtr(2), MaxLen: intPtr(5)},
	}

	_, errs := schema.Validate(map[string]any{"mode": "slow"})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "is not one of")

	_, errs = schema.Validate(map[string]any{"name": "x"})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "below minimum")

	sanitized, errs := schema.Validate(map[string]any{"mode": "fast", "name": "abc"})
	require.Empty(t, errs)
	assert.Equal(t, "fast", sanitized["mode"])
}

func TestValidateUnknownKeysDropped(t *testing.T) {
	schema := Schema{"query": {Kind: KindString}}

	sanitized, errs := schema.Validate(map[string]any{
		"query":      "ok",
		"unexpected": "dropped",
	})

	require.Empty(t, errs)
	assert.NotContains(t, sanitized, "unexpected")
}

func TestValidateArrayItems(t *testing.T) {
	schema := Schema{
		"tags": {Kind: KindArray, Items: &ParamSpec{Kind: KindString}},
	}

	sanitized, errs := schema.Validate(map[string]any{"tags": []any{"a", "b"}})
	require.Empty(t, errs)
	assert.Equal(t, []any{"a", "b"}, sanitized["tags"])

	_, errs = schema.Validate(map[string]any{"tags": []any{"a", 1}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `field "tags[1]"`)
}

func TestValidateNestedObject(t *testing.T) {
	schema := Schema{
		"filter": {
			Kind: KindObject,
			Properties: map[string]*ParamSpec{
				"field": {Kind: KindString, Required: true},
				"limit": {Kind: KindNumber, Default: float64(5)},
			},
		},
	}

	sanitized, errs := schema.Validate(map[string]any{
		"filter": map[string]any{"field": "status"},
	})
	require.Empty(t, errs)
	filter := sanitized["filter"].(map[string]any)
	assert.Equal(t, "status", filter["field"])
	assert.Equal(t, float64(5), filter["limit"])

	_, errs = schema.Validate(map[string]any{"filter": map[string]any{}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `field "filter.field"`)
}

func TestJSONSchema(t *testing.T) {
	schema := Schema{
		"query": {Kind: KindString, Description: "search query", Required: true},
		"limit": {Kind: KindNumber, Min: floatPtr(1), Default: float64(10)},
	}

	js := schema.JSONSchema()

	assert.Equal(t, "object", js["type"])
	assert.Equal(t, []string{"query"}, js["required"])

	properties := js["properties"].(map[string]any)
	query := properties["query"].(map[string]any)
	assert.Equal(t, "string", query["type"])
	assert.Equal(t, "search query", query["description"])

	limit := properties["limit"].(map[string]any)
	assert.Equal(t, float64(1), limit["minimum"])
	assert.Equal(t, float64(10), limit["default"])
}
