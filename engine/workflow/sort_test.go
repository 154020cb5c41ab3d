package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSort(t *testing.T) {
	t.Run("Should order a diamond deterministically", func(t *testing.T) {
		wf := &Config{
			Steps: []Step{
				{ID: "step_4"},
				{ID: "step_2"},
				{ID: "step_3"},
				{ID: "step_1"},
			},
			Edges: []Edge{
				{FromStepID: "step_1", ToStepID: "step_2"},
				{FromStepID: "step_1", ToStepID: "step_3"},
				{FromStepID: "step_2", ToStepID: "step_4"},
				{FromStepID: "step_3", ToStepID: "step_4"},
			},
		}
		order, err := Sort(wf)
		require.NoError(t, err)
		assert.Equal(t, []string{"step_1", "step_2", "step_3", "step_4"}, order)
	})

	t.Run("Should break ties by step ID", func(t *testing.T) {
		wf := &Config{
			Steps: []Step{{ID: "zebra"}, {ID: "mango"}, {ID: "apple"}},
		}
		order, err := Sort(wf)
		require.NoError(t, err)
		assert.Equal(t, []string{"apple", "mango", "zebra"}, order)
	})

	t.Run("Should handle an empty workflow", func(t *testing.T) {
		order, err := Sort(&Config{})
		require.NoError(t, err)
		assert.Empty(t, order)
	})

	t.Run("Should report an internal error when a cycle slipped through", func(t *testing.T) {
		wf := &Config{
			Steps: []Step{{ID: "a"}, {ID: "b"}},
			Edges: []Edge{
				{FromStepID: "a", ToStepID: "b"},
				{FromStepID: "b", ToStepID: "a"},
			},
		}
		_, err := Sort(wf)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "internal error")
	})
}
