package session

import "fmt"

// State is the pipeline state of a session.
type State int

const (
	// Idle means no wheel geometry is known yet.
	Idle State = iota
	// Tracking means the wheel is known and samples are accumulating.
	Tracking
	// Predicting means the last cycle produced a prediction.
	Predicting
	// Stopped is terminal.
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Tracking:
		return "tracking"
	case Predicting:
		return "predicting"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(b []byte) error {
	for _, st := range []State{Idle, Tracking, Predicting, Stopped} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("session: unknown state %q", b)
}
