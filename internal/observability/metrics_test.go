package observability

import "testing"

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	// Every recording method must be callable on a nil Metrics so
	// components can run without an observability stack wired in.
	var m *Metrics
	m.TradeReceived()
	m.TradeDropped()
	m.FeedReconnect()
	m.OracleQuery(true)
	m.OracleQuery(false)
	m.EpochStarted()
	m.Outcome("TAKE_PROFIT")
	m.RestartSignaled()
	m.TaskFailure("feed")
	m.LockAcquired()
	m.SetCurrentPrice(1.5)
	m.SetBaselinePrice(1.0)
	m.SetSolUsdRate(155)
}
