package domain

import "time"

// CloseReason is the terminal reason an epoch closed.
type CloseReason string

const (
	ReasonTakeProfit         CloseReason = "TAKE_PROFIT"
	ReasonStopLoss           CloseReason = "STOP_LOSS"
	ReasonStagnation         CloseReason = "STAGNATION"
	ReasonNoBuySignalTimeout CloseReason = "NO_BUY_SIGNAL_TIMEOUT"
	ReasonStagnationNoData   CloseReason = "STAGNATION_NO_DATA"
	ReasonInternalError      CloseReason = "INTERNAL_ERROR"
)

// String returns the string representation of CloseReason.
func (r CloseReason) String() string {
	return string(r)
}

// IsValid checks if the reason is a known close reason.
func (r CloseReason) IsValid() bool {
	switch r {
	case ReasonTakeProfit, ReasonStopLoss, ReasonStagnation,
		ReasonNoBuySignalTimeout, ReasonStagnationNoData, ReasonInternalError:
		return true
	}
	return false
}

// Outcome is the terminal result of one epoch. It is appended to the
// outcome stores and used to remove the target from the queue.
type Outcome struct {
	Target    TokenTarget
	Reason    CloseReason
	BuyPrice  *float64 // set when a buy signal was detected
	SellPrice *float64 // last price at close, when one was available
	Timestamp time.Time
}
