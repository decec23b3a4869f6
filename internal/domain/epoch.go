package domain

import "time"

// EpochStatus represents the lifecycle state of a monitoring epoch.
type EpochStatus string

const (
	StatusAwaitingBaseline  EpochStatus = "AWAITING_BASELINE"
	StatusAwaitingBuySignal EpochStatus = "AWAITING_BUY_SIGNAL"
	StatusHolding           EpochStatus = "HOLDING"
	StatusClosed            EpochStatus = "CLOSED"
)

// String returns the string representation of EpochStatus.
func (s EpochStatus) String() string {
	return string(s)
}

// Epoch is one complete monitoring attempt for a single target, from
// selection to terminal outcome. Owned exclusively by the supervisor and
// mutated only by the lifecycle evaluator; it is replaced wholesale when
// the epoch ends, never patched across targets.
type Epoch struct {
	Target    TokenTarget
	StartTime time.Time

	// Baseline is the first observed price; set at most once per epoch.
	Baseline *float64

	// BuySignalDetected transitions false -> true at most once.
	BuySignalDetected bool
	BuyPrice          *float64

	// StagnationTimerStart marks when price first fell below the
	// stagnation threshold. Cleared whenever price recovers.
	StagnationTimerStart *time.Time

	Status EpochStatus
}

// NewEpoch constructs a fresh epoch for a target with all baselines and
// timers cleared.
func NewEpoch(target TokenTarget, startTime time.Time) *Epoch {
	return &Epoch{
		Target:    target,
		StartTime: startTime,
		Status:    StatusAwaitingBaseline,
	}
}
