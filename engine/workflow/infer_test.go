package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStepRef(t *testing.T) {
	t.Run("Should split a step reference into ID and path", func(t *testing.T) {
		stepID, path, ok := ParseStepRef("step_1.data.items.0")
		require.True(t, ok)
		assert.Equal(t, "step_1", stepID)
		assert.Equal(t, "data.items.0", path)
	})

	t.Run("Should not treat input references as step references", func(t *testing.T) {
		_, _, ok := ParseStepRef("$input.user.email")
		assert.False(t, ok)
	})

	t.Run("Should not match dotless literals", func(t *testing.T) {
		_, _, ok := ParseStepRef("plain-value")
		assert.False(t, ok)
	})

	t.Run("Should not match strings starting with a dot", func(t *testing.T) {
		_, _, ok := ParseStepRef(".hidden")
		assert.False(t, ok)
	})

	t.Run("Should not match identifiers with illegal characters", func(t *testing.T) {
		_, _, ok := ParseStepRef("step-1.value")
		assert.False(t, ok)
	})
}

func TestInferEdges(t *testing.T) {
	t.Run("Should infer an edge for every step reference in a diamond", func(t *testing.T) {
		wf := &Config{
			Steps: []Step{
				{ID: "step_1", ToolID: "t"},
				{ID: "step_2", ToolID: "t", InputMapping: map[string]string{"a": "step_1.id"}},
				{ID: "step_3", ToolID: "t", InputMapping: map[string]string{"a": "step_1.id"}},
				{ID: "step_4", ToolID: "t", InputMapping: map[string]string{
					"left":  "step_2.value",
					"right": "step_3.value",
				}},
			},
		}
		edges := InferEdges(wf)
		assert.Equal(t, []Edge{
			{FromStepID: "step_1", ToStepID: "step_2"},
			{FromStepID: "step_1", ToStepID: "step_3"},
			{FromStepID: "step_2", ToStepID: "step_4"},
			{FromStepID: "step_3", ToStepID: "step_4"},
		}, edges)
	})

	t.Run("Should keep explicit edges first and never duplicate them", func(t *testing.T) {
		wf := &Config{
			Steps: []Step{
				{ID: "a", ToolID: "t"},
				{ID: "b", ToolID: "t", InputMapping: map[string]string{"x": "a.value"}},
			},
			Edges: []Edge{{FromStepID: "a", ToStepID: "b"}},
		}
		edges := InferEdges(wf)
		assert.Equal(t, []Edge{{FromStepID: "a", ToStepID: "b"}}, edges)
	})

	t.Run("Should be idempotent", func(t *testing.T) {
		wf := &Config{
			Steps: []Step{
				{ID: "a", ToolID: "t"},
				{ID: "b", ToolID: "t", InputMapping: map[string]string{"x": "a.value"}},
			},
		}
		wf.Edges = InferEdges(wf)
		assert.Equal(t, wf.Edges, InferEdges(wf))
	})

	t.Run("Should ignore references to unknown steps and self-references", func(t *testing.T) {
		wf := &Config{
			Steps: []Step{
				{ID: "a", ToolID: "t", InputMapping: map[string]string{
					"x": "ghost.value",
					"y": "a.value",
					"z": "$input.email",
				}},
			},
		}
		assert.Empty(t, InferEdges(wf))
	})
}
