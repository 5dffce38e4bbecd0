package workflows

// StateMachine enforces legal status transitions.
type StateMachine struct {
	allowedTransitions map[string][]string
}

// NewStateMachine creates a state machine from an explicit transition table.
func NewStateMachine(transitions map[string][]string) *StateMachine {
	return &StateMachine{allowedTransitions: transitions}
}

// NewProjectStateMachine covers the project certification lifecycle.
// Certification performs PendingVerification -> Certified inside one atomic
// step, so Registered and CollectingEvidence may both move to
// PendingVerification directly.
func NewProjectStateMachine() *StateMachine {
	return NewStateMachine(map[string][]string{
		"Registered":          {"CollectingEvidence", "PendingVerification"},
		"CollectingEvidence":  {"PendingVerification"},
		"PendingVerification": {"Certified"},
		"Certified":           {},
	})
}

// NewProofStateMachine covers proof decisions. Verified and Rejected are
// terminal; a decision never reverts.
func NewProofStateMachine() *StateMachine {
	return NewStateMachine(map[string][]string{
		"Pending":  {"Verified", "Rejected"},
		"Verified": {},
		"Rejected": {},
	})
}

// CanTransition checks if a status transition is allowed.
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible from state.
func (sm *StateMachine) IsTerminal(state string) bool {
	return len(sm.allowedTransitions[state]) == 0
}

// GetAllowedTransitions returns the allowed next statuses for a given status.
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []string{}
	}
	return allowed
}
