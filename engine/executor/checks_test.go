package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/apiflow/apiflow/engine/workflow"
)

func TestRunChecks(t *testing.T) {
	data := map[string]any{
		"email": "someone@example.com",
		"items": []any{"a", "b"},
		"count": float64(2),
		"meta":  map[string]any{"note": ""},
	}

	t.Run("Should pass when every check holds", func(t *testing.T) {
		result := runChecks(data, []workflow.Validation{
			{Target: "input", Field: "email", Check: "not_null", Critical: true},
			{Target: "input", Field: "email", Check: "regex", Value: `@`, Critical: true},
			{Target: "input", Field: "items", Check: "min_length", Value: "2", Critical: true},
			{Target: "input", Field: "count", Check: "type", Value: "number", Critical: true},
		}, "input")
		assert.Empty(t, result.errors)
		assert.Empty(t, result.warnings)
	})

	t.Run("Should route critical failures to errors", func(t *testing.T) {
		result := runChecks(data, []workflow.Validation{
			{Target: "input", Field: "missing", Check: "not_null", Critical: true},
		}, "input")
		assert.Len(t, result.errors, 1)
		assert.Empty(t, result.warnings)
	})

	t.Run("Should route non-critical failures to warnings", func(t *testing.T) {
		result := runChecks(data, []workflow.Validation{
			{Target: "output", Field: "meta.note", Check: "not_empty"},
		}, "output")
		assert.Empty(t, result.errors)
		assert.Len(t, result.warnings, 1)
	})

	t.Run("Should prefer the configured message", func(t *testing.T) {
		result := runChecks(data, []workflow.Validation{
			{Target: "input", Field: "missing", Check: "not_null", Message: "missing is required", Critical: true},
		}, "input")
		assert.Equal(t, []string{"missing is required"}, result.errors)
	})

	t.Run("Should skip checks for the other target", func(t *testing.T) {
		result := runChecks(data, []workflow.Validation{
			{Target: "output", Field: "missing", Check: "not_null", Critical: true},
		}, "input")
		assert.Empty(t, result.errors)
	})

	t.Run("Should treat an unresolvable field as null", func(t *testing.T) {
		result := runChecks(data, []workflow.Validation{
			{Target: "input", Field: "items.9", Check: "not_null", Critical: true},
		}, "input")
		assert.Len(t, result.errors, 1)
	})

	t.Run("Should fail type checks with the observed type", func(t *testing.T) {
		result := runChecks(data, []workflow.Validation{
			{Target: "input", Field: "email", Check: "type", Value: "number", Critical: true},
		}, "input")
		assert.Len(t, result.errors, 1)
		assert.Contains(t, result.errors[0], "expected number")
	})

	t.Run("Should report unknown checks and bad parameters", func(t *testing.T) {
		result := runChecks(data, []workflow.Validation{
			{Target: "input", Field: "email", Check: "palindrome", Critical: true},
			{Target: "input", Field: "email", Check: "min_length", Value: "many", Critical: true},
			{Target: "input", Field: "email", Check: "regex", Value: "(", Critical: true},
		}, "input")
		assert.Len(t, result.errors, 3)
	})
}
