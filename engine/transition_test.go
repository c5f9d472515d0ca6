package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/approval-engine/engine"
)

func TestTransition_LegalEdges(t *testing.T) {
	// GIVEN: The documented lifecycle graph
	// WHEN: Checking each legal edge
	// THEN: All are permitted

	legal := []struct{ from, to engine.Status }{
		{engine.StatusPendingApproval, engine.StatusAutoApproved},
		{engine.StatusPendingApproval, engine.StatusPending},
		{engine.StatusPendingApproval, engine.StatusDenied},
		{engine.StatusPending, engine.StatusApproved},
		{engine.StatusPending, engine.StatusDenied},
	}

	for _, edge := range legal {
		assert.NoError(t, engine.Transition("req-1", edge.from, edge.to),
			"%s -> %s should be legal", edge.from, edge.to)
	}
}

func TestTransition_TerminalStatesAreFinal(t *testing.T) {
	// GIVEN: A request in a terminal state
	// WHEN: Attempting any further transition
	// THEN: InvalidTransitionError

	terminals := []engine.Status{
		engine.StatusAutoApproved,
		engine.StatusApproved,
		engine.StatusDenied,
	}
	targets := []engine.Status{
		engine.StatusPendingApproval,
		engine.StatusPending,
		engine.StatusApproved,
		engine.StatusDenied,
	}

	for _, from := range terminals {
		assert.True(t, from.IsTerminal())
		for _, to := range targets {
			err := engine.Transition("req-1", from, to)
			assert.ErrorIs(t, err, engine.ErrInvalidTransition,
				"%s -> %s should be rejected", from, to)
		}
	}
}

func TestTransition_NoShortcutToApproved(t *testing.T) {
	// GIVEN: A freshly submitted request
	// WHEN: Jumping straight to the human-approved state
	// THEN: Rejected; approval requires going through pending

	err := engine.Transition("req-1", engine.StatusPendingApproval, engine.StatusApproved)

	var transErr *engine.InvalidTransitionError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, engine.RequestID("req-1"), transErr.RequestID)
	assert.Equal(t, engine.StatusPendingApproval, transErr.From)
	assert.Equal(t, engine.StatusApproved, transErr.To)
}

func TestTransition_PendingCannotReturnToInitial(t *testing.T) {
	// GIVEN: A request escalated to pending
	// WHEN: Attempting to move it back to pending_approval
	// THEN: Rejected

	err := engine.Transition("req-1", engine.StatusPending, engine.StatusPendingApproval)
	assert.ErrorIs(t, err, engine.ErrInvalidTransition)
}
