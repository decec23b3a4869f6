package domain

import "time"

// TradeSide represents the direction of a streamed trade event.
type TradeSide string

const (
	SideBuy     TradeSide = "buy"
	SideSell    TradeSide = "sell"
	SideUnknown TradeSide = ""
)

// TradeSample is one parsed trade event from the streaming feed.
// Written only by the price feed, read only by the lifecycle evaluator.
type TradeSample struct {
	TokenAmount float64   // token units traded
	SolAmount   float64   // SOL paid/received
	Side        TradeSide // buy | sell
	Wallet      string    // wallet identifier from the feed
	ObservedAt  time.Time // local receive time
}

// SolPerToken returns the SOL price per token implied by this sample,
// or false when the token amount is not a usable denominator.
func (s TradeSample) SolPerToken() (float64, bool) {
	if s.TokenAmount <= 0 {
		return 0, false
	}
	return s.SolAmount / s.TokenAmount, true
}
