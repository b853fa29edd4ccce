package driven

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatchStatus_IsTerminal(t *testing.T) {
	transient := []BatchStatus{BatchCreated, BatchSubmitted, BatchPolling}
	for _, s := range transient {
		assert.False(t, s.IsTerminal(), string(s))
	}

	terminal := []BatchStatus{BatchCompleted, BatchFailed, BatchExpired, BatchCancelled, BatchTimedOut}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), string(s))
	}
}
