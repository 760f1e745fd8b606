package interpose

// State represents a hook's position in its lifecycle.
type State string

const (
	// StatePrepared is the initial state: the hook is constructed but
	// has not mutated any table yet.
	StatePrepared State = "prepared"

	// StateInterposed means the table is mutated and the substitute is
	// active.
	StateInterposed State = "interposed"

	// StateReverted means the table has been restored to the captured
	// original. A reverted hook may be applied again.
	StateReverted State = "reverted"
)

// validStates contains all states a hook can report.
var validStates = map[State]bool{
	StatePrepared:   true,
	StateInterposed: true,
	StateReverted:   true,
}

// IsValidState returns true if s is a known hook state.
func IsValidState(s State) bool {
	return validStates[s]
}
