package tplengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	values := map[string]any{
		"email": "a@b",
		"lines": []any{
			map[string]any{"sku": float64(1)},
			map[string]any{"sku": float64(2)},
		},
		"limit":   float64(10),
		"active":  true,
		"comment": nil,
	}

	t.Run("Should preserve the value type for an exact-match placeholder", func(t *testing.T) {
		rendered, err := Render("{{lines}}", values, true)
		require.NoError(t, err)
		assert.Equal(t, values["lines"], rendered)
	})

	t.Run("Should permit null values in exact matches", func(t *testing.T) {
		rendered, err := Render("{{comment}}", values, true)
		require.NoError(t, err)
		assert.Nil(t, rendered)
	})

	t.Run("Should interpolate embedded placeholders as strings", func(t *testing.T) {
		rendered, err := Render("limit is {{limit}} for {{email}}", values, true)
		require.NoError(t, err)
		assert.Equal(t, "limit is 10 for a@b", rendered)
	})

	t.Run("Should serialize sequences as compact JSON when embedded", func(t *testing.T) {
		rendered, err := Render("items: {{lines}}", values, true)
		require.NoError(t, err)
		assert.Equal(t, `items: [{"sku":1},{"sku":2}]`, rendered)
	})

	t.Run("Should render nested mapping templates recursively", func(t *testing.T) {
		template := map[string]any{
			"customer": map[string]any{"email": "{{email}}"},
			"items":    "{{lines}}",
			"flags":    []any{"{{active}}", "static"},
		}
		rendered, err := Render(template, values, true)
		require.NoError(t, err)
		result := rendered.(map[string]any)
		assert.Equal(t, map[string]any{"email": "a@b"}, result["customer"])
		assert.Equal(t, values["lines"], result["items"])
		assert.Equal(t, []any{true, "static"}, result["flags"])
	})

	t.Run("Should pass scalars and placeholder-free strings through", func(t *testing.T) {
		rendered, err := Render(float64(42), values, true)
		require.NoError(t, err)
		assert.Equal(t, float64(42), rendered)

		rendered, err = Render("plain text", values, true)
		require.NoError(t, err)
		assert.Equal(t, "plain text", rendered)
	})

	t.Run("Should fail strict rendering on a missing key with its path", func(t *testing.T) {
		template := map[string]any{"order": map[string]any{"id": "{{order_id}}"}}
		_, err := Render(template, values, true)
		require.Error(t, err)
		var missing *MissingKeyError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "order_id", missing.Key)
		assert.Equal(t, "$.order.id", missing.Path)
	})

	t.Run("Should keep unknown placeholders verbatim when non-strict", func(t *testing.T) {
		rendered, err := Render("{{unknown}}", values, false)
		require.NoError(t, err)
		assert.Equal(t, "{{unknown}}", rendered)

		rendered, err = Render("hello {{unknown}}", values, false)
		require.NoError(t, err)
		assert.Equal(t, "hello {{unknown}}", rendered)
	})

	t.Run("Should not treat padded placeholders as exact matches", func(t *testing.T) {
		rendered, err := Render(" {{limit}}", values, true)
		require.NoError(t, err)
		assert.Equal(t, " 10", rendered)
	})
}

func TestExtractKeys(t *testing.T) {
	t.Run("Should collect placeholder names from nested templates", func(t *testing.T) {
		template := map[string]any{
			"a": "{{one}}",
			"b": []any{"x {{two}} y", map[string]any{"c": "{{one}}"}},
			"d": float64(1),
		}
		assert.Equal(t, []string{"one", "two"}, ExtractKeys(template))
	})

	t.Run("Should return an empty set for placeholder-free templates", func(t *testing.T) {
		assert.Empty(t, ExtractKeys(map[string]any{"a": "plain"}))
	})
}
