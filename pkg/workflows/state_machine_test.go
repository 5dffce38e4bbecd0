package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectStateMachine(t *testing.T) {
	sm := NewProjectStateMachine()

	assert.True(t, sm.CanTransition("Registered", "CollectingEvidence"))
	assert.True(t, sm.CanTransition("Registered", "PendingVerification"))
	assert.True(t, sm.CanTransition("CollectingEvidence", "PendingVerification"))
	assert.True(t, sm.CanTransition("PendingVerification", "Certified"))

	assert.False(t, sm.CanTransition("Certified", "Registered"))
	assert.False(t, sm.CanTransition("Certified", "CollectingEvidence"))
	assert.False(t, sm.CanTransition("CollectingEvidence", "Registered"))
	assert.False(t, sm.CanTransition("unknown", "Certified"))

	assert.True(t, sm.IsTerminal("Certified"))
	assert.False(t, sm.IsTerminal("Registered"))
}

func TestProofStateMachine(t *testing.T) {
	sm := NewProofStateMachine()

	assert.True(t, sm.CanTransition("Pending", "Verified"))
	assert.True(t, sm.CanTransition("Pending", "Rejected"))

	// Decisions are one-way.
	assert.False(t, sm.CanTransition("Verified", "Rejected"))
	assert.False(t, sm.CanTransition("Rejected", "Verified"))
	assert.False(t, sm.CanTransition("Verified", "Pending"))

	assert.ElementsMatch(t, []string{"Verified", "Rejected"}, sm.GetAllowedTransitions("Pending"))
	assert.Empty(t, sm.GetAllowedTransitions("Verified"))
}
