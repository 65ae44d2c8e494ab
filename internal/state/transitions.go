package state

// entryStates start a new flow and are reachable from any state.
var entryStates = map[State]bool{
	StateIdle:             true,
	StateChoosingLanguage: true,
	StateAwaitingCurrency: true,
	StateAdminCardDetails: true,
	StateAdminSupportText: true,
}

// validTransitions contains the permitted in-flow transitions in the FSM.
var validTransitions = map[State][]State{
	StateAwaitingCurrency: {
		StateAwaitingAmount,
		StateAwaitingProof,
	},
	StateAwaitingAmount: {
		StateAwaitingProof,
	},
	StateAdminCardDetails: {
		StateAdminCardCurrency,
	},
	StateAdminCardCurrency: {
		StateAdminCardConfirm,
	},
	StateAdminSupportText: {
		StateAdminSupportConfirm,
	},
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
func IsTransitionAllowed(from, to State) bool {
	if entryStates[to] {
		return true
	}

	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}

	for _, state := range allowed {
		if state == to {
			return true
		}
	}

	return false
}
