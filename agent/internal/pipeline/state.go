package pipeline

import "fmt"

// State is a step of the cycle state machine.
type State int

const (
	StateIdle State = iota
	StateCollecting
	StateMapping
	StatePushing
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	case StateMapping:
		return "mapping"
	case StatePushing:
		return "pushing"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome is the externally observable result of a cycle.
type Outcome int

const (
	// Success means every source and the push succeeded.
	Success Outcome = iota
	// PartialSuccess means some sources failed but the rest was delivered.
	PartialSuccess
	// Failure means the push failed, every source failed, or the cycle
	// timed out.
	Failure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case PartialSuccess:
		return "partial_success"
	case Failure:
		return "failure"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ExitCode is the process exit status for o.
func (o Outcome) ExitCode() int {
	if o == Failure {
		return 1
	}
	return 0
}
