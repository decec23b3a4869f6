package supervisor

import (
	"fmt"

	"solana-token-watch/internal/domain"
)

// SignalKind classifies the first terminal signal from an epoch's tasks.
type SignalKind int

const (
	// SignalOutcome carries a terminal outcome from the evaluator.
	SignalOutcome SignalKind = iota
	// SignalRestart is the queue watcher requesting a restart.
	SignalRestart
	// SignalFailure is an unexpected failure from any task.
	SignalFailure
)

// Signal is the explicit result sum type reported by epoch tasks over
// the completion channel; no control-flow errors are thrown across
// task boundaries.
type Signal struct {
	Kind    SignalKind
	Outcome *domain.Outcome // set for SignalOutcome
	Task    string          // reporting task name
	Err     error           // set for SignalFailure
}

// String renders the signal for logs.
func (s Signal) String() string {
	switch s.Kind {
	case SignalOutcome:
		return fmt.Sprintf("outcome(%s)", s.Outcome.Reason)
	case SignalRestart:
		return "restart-requested"
	case SignalFailure:
		return fmt.Sprintf("failure(%s: %v)", s.Task, s.Err)
	}
	return "unknown"
}
