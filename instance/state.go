package instance

import "fmt"

// State is the lifecycle state of an instance.
type State int

const (
	// Idle means constructed but not started.
	Idle State = iota
	// Running means the instance is processing messages in its current round.
	Running
	// Decided is terminal: the instance agreed on a value.
	Decided
	// Cancelled is terminal: the instance stopped without deciding.
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Decided:
		return "decided"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
