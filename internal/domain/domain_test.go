package domain

import (
	"testing"
	"time"
)

func TestCloseReason_IsValid(t *testing.T) {
	valid := []CloseReason{
		ReasonTakeProfit, ReasonStopLoss, ReasonStagnation,
		ReasonNoBuySignalTimeout, ReasonStagnationNoData, ReasonInternalError,
	}
	for _, r := range valid {
		if !r.IsValid() {
			t.Errorf("IsValid(%s) = false, want true", r)
		}
	}
	for _, r := range []CloseReason{"", "BOGUS", "take_profit"} {
		if r.IsValid() {
			t.Errorf("IsValid(%q) = true, want false", r)
		}
	}
}

func TestTradeSample_SolPerToken(t *testing.T) {
	tests := []struct {
		name   string
		sample TradeSample
		want   float64
		ok     bool
	}{
		{"normal", TradeSample{TokenAmount: 1000, SolAmount: 2}, 0.002, true},
		{"zero tokens", TradeSample{TokenAmount: 0, SolAmount: 2}, 0, false},
		{"negative tokens", TradeSample{TokenAmount: -5, SolAmount: 2}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.sample.SolPerToken()
			if got != tt.want || ok != tt.ok {
				t.Fatalf("SolPerToken() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestTokenTarget_Name(t *testing.T) {
	named := TokenTarget{Address: "mintA", DisplayName: "Tok"}
	if named.Name() != "Tok" {
		t.Fatalf("Name() = %q, want display name", named.Name())
	}
	unnamed := TokenTarget{Address: "mintA"}
	if unnamed.Name() != "mintA" {
		t.Fatalf("Name() = %q, want address fallback", unnamed.Name())
	}
}

func TestNewEpoch(t *testing.T) {
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ep := NewEpoch(TokenTarget{Address: "mintA"}, start)

	if ep.Status != StatusAwaitingBaseline {
		t.Fatalf("Status = %s, want AWAITING_BASELINE", ep.Status)
	}
	if !ep.StartTime.Equal(start) {
		t.Fatalf("StartTime = %v, want %v", ep.StartTime, start)
	}
	if ep.Baseline != nil || ep.BuyPrice != nil || ep.BuySignalDetected || ep.StagnationTimerStart != nil {
		t.Fatal("expected a fresh epoch with no lifecycle state")
	}
}
