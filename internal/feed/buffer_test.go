package feed

import (
	"testing"

	"solana-token-watch/internal/domain"
)

func sampleAt(n int) domain.TradeSample {
	return domain.TradeSample{TokenAmount: float64(n), SolAmount: 1}
}

func TestBuffer_Empty(t *testing.T) {
	b := NewBuffer(4)
	if _, ok := b.Latest(); ok {
		t.Fatal("expected no latest sample in an empty buffer")
	}
	if b.Len() != 0 {
		t.Fatalf("expected empty buffer, len %d", b.Len())
	}
	if got := b.Snapshot(); len(got) != 0 {
		t.Fatalf("expected empty snapshot, got %d samples", len(got))
	}
}

func TestBuffer_LatestTracksNewest(t *testing.T) {
	b := NewBuffer(4)
	for i := 1; i <= 3; i++ {
		b.Append(sampleAt(i))
		latest, ok := b.Latest()
		if !ok || latest.TokenAmount != float64(i) {
			t.Fatalf("after %d appends, latest = %v ok=%v", i, latest.TokenAmount, ok)
		}
	}
	if b.Len() != 3 {
		t.Fatalf("expected len 3, got %d", b.Len())
	}
}

func TestBuffer_EvictsOldestWhenFull(t *testing.T) {
	b := NewBuffer(3)
	for i := 1; i <= 5; i++ {
		b.Append(sampleAt(i))
	}

	if b.Len() != 3 {
		t.Fatalf("expected len capped at 3, got %d", b.Len())
	}

	snap := b.Snapshot()
	want := []float64{3, 4, 5}
	for i, w := range want {
		if snap[i].TokenAmount != w {
			t.Fatalf("snapshot[%d] = %v, want %v (full: %v)", i, snap[i].TokenAmount, w, snap)
		}
	}

	latest, _ := b.Latest()
	if latest.TokenAmount != 5 {
		t.Fatalf("latest = %v, want 5", latest.TokenAmount)
	}
}

func TestBuffer_DefaultCapacity(t *testing.T) {
	b := NewBuffer(0)
	for i := 0; i < DefaultBufferCapacity+10; i++ {
		b.Append(sampleAt(i))
	}
	if b.Len() != DefaultBufferCapacity {
		t.Fatalf("expected default capacity %d, got %d", DefaultBufferCapacity, b.Len())
	}
}
