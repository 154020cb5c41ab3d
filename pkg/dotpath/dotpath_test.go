package dotpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraverse(t *testing.T) {
	root := map[string]any{
		"user": map[string]any{
			"name": "ada",
			"tags": []any{"admin", "ops"},
		},
		"orders": []any{
			map[string]any{"id": float64(1)},
			map[string]any{"id": float64(2)},
		},
		"count": float64(3),
	}

	t.Run("Should look up nested mapping keys", func(t *testing.T) {
		value, err := Traverse(root, "user.name")
		require.NoError(t, err)
		assert.Equal(t, "ada", value)
	})

	t.Run("Should index sequences with numeric segments", func(t *testing.T) {
		value, err := Traverse(root, "orders.1.id")
		require.NoError(t, err)
		assert.Equal(t, float64(2), value)
	})

	t.Run("Should return the root for mixed nesting", func(t *testing.T) {
		value, err := Traverse(root, "user.tags.0")
		require.NoError(t, err)
		assert.Equal(t, "admin", value)
	})

	t.Run("Should fail on a missing key", func(t *testing.T) {
		_, err := Traverse(root, "user.email")
		require.Error(t, err)
		var pathErr *Error
		require.ErrorAs(t, err, &pathErr)
		assert.Equal(t, "user.email", pathErr.Path)
		assert.Equal(t, "email", pathErr.Segment)
	})

	t.Run("Should fail on a non-numeric sequence index", func(t *testing.T) {
		_, err := Traverse(root, "orders.first")
		var pathErr *Error
		require.ErrorAs(t, err, &pathErr)
		assert.Equal(t, "first", pathErr.Segment)
	})

	t.Run("Should reject signed and padded index forms", func(t *testing.T) {
		_, err := Traverse(root, "orders.-1")
		require.Error(t, err)
		_, err = Traverse(root, "orders.+1")
		require.Error(t, err)
	})

	t.Run("Should treat an index beyond the int range as out of range", func(t *testing.T) {
		_, err := Traverse(root, "orders.9999999999999999999")
		var pathErr *Error
		require.ErrorAs(t, err, &pathErr)
		assert.Equal(t, "9999999999999999999", pathErr.Segment)
		assert.Contains(t, pathErr.Reason, "out of range")
	})

	t.Run("Should fail on an out-of-range index", func(t *testing.T) {
		_, err := Traverse(root, "orders.2")
		var pathErr *Error
		require.ErrorAs(t, err, &pathErr)
		assert.Contains(t, pathErr.Reason, "out of range")
	})

	t.Run("Should fail when traversing into a scalar", func(t *testing.T) {
		_, err := Traverse(root, "count.value")
		var pathErr *Error
		require.ErrorAs(t, err, &pathErr)
		assert.Equal(t, "value", pathErr.Segment)
	})

	t.Run("Should return the root itself for a single segment", func(t *testing.T) {
		value, err := Traverse(root, "count")
		require.NoError(t, err)
		assert.Equal(t, float64(3), value)
	})
}
