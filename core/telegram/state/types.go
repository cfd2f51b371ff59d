package state

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// String implements fmt.Stringer.
func (s State) String() string {
	if s == "" {
		return string(StateIdle)
	}
	return string(s)
}
