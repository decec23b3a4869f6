package lifecycle

import (
	"fmt"
	"time"
)

// Config holds the decision thresholds and timing for one epoch.
// Ratios are multiples of the reference price: a buy signal fires when
// price exceeds baseline*BuySignalRatio, take profit when price reaches
// buyPrice*TakeProfitRatio, and so on.
type Config struct {
	BuySignalRatio  float64 // threshold over baseline for the buy signal
	TakeProfitRatio float64 // threshold over buy price to take profit
	StopLossRatio   float64 // threshold under buy price to stop loss
	StagnationRatio float64 // threshold under baseline that starts the stagnation timer

	NoBuySignalTimeout time.Duration // close if no buy signal this long after epoch start
	StagnationTimeout  time.Duration // close if price stays depressed this long

	TickInterval   time.Duration // evaluation cadence
	OracleCooldown time.Duration // minimum gap between fallback oracle calls
}

// DefaultConfig returns the standard threshold configuration.
func DefaultConfig() Config {
	return Config{
		BuySignalRatio:     1.01,
		TakeProfitRatio:    1.10,
		StopLossRatio:      0.95,
		StagnationRatio:    0.80,
		NoBuySignalTimeout: 180 * time.Second,
		StagnationTimeout:  180 * time.Second,
		TickInterval:       1 * time.Second,
		OracleCooldown:     1 * time.Second,
	}
}

// Validate rejects configurations that would make the state machine
// degenerate. Overlapping take-profit and stop-loss bands are allowed;
// take profit wins the tie-break.
func (c Config) Validate() error {
	if c.BuySignalRatio <= 1.0 {
		return fmt.Errorf("buy signal ratio must exceed 1.0, got %v", c.BuySignalRatio)
	}
	if c.TakeProfitRatio <= 1.0 {
		return fmt.Errorf("take profit ratio must exceed 1.0, got %v", c.TakeProfitRatio)
	}
	if c.StopLossRatio <= 0 || c.StopLossRatio >= 1.0 {
		return fmt.Errorf("stop loss ratio must be in (0, 1), got %v", c.StopLossRatio)
	}
	if c.StagnationRatio <= 0 || c.StagnationRatio >= 1.0 {
		return fmt.Errorf("stagnation ratio must be in (0, 1), got %v", c.StagnationRatio)
	}
	if c.NoBuySignalTimeout <= 0 || c.StagnationTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %v", c.TickInterval)
	}
	return nil
}
