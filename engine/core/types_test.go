package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTypeIsTerminal(t *testing.T) {
	t.Run("Should be terminal for SUCCESS, FAILED, and SKIPPED", func(t *testing.T) {
		for _, status := range []StatusType{StatusSuccess, StatusFailed, StatusSkipped} {
			assert.True(t, status.IsTerminal(), status.String())
		}
	})

	t.Run("Should not be terminal for PENDING and RUNNING", func(t *testing.T) {
		for _, status := range []StatusType{StatusPending, StatusRunning} {
			assert.False(t, status.IsTerminal(), status.String())
		}
	})
}
