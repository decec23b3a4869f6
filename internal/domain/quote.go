package domain

import "time"

// QuoteSource identifies where a price quote came from.
type QuoteSource string

const (
	QuoteSourceFeed   QuoteSource = "FEED"
	QuoteSourceOracle QuoteSource = "ORACLE"
)

// PriceQuote is an ephemeral per-tick price observation. Derived fresh
// each tick, never persisted.
type PriceQuote struct {
	Value      float64     // USD price per token
	Source     QuoteSource // FEED | ORACLE
	ObservedAt time.Time
}
