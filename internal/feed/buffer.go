package feed

import (
	"sync"

	"solana-token-watch/internal/domain"
)

// DefaultBufferCapacity bounds the trade sample buffer per epoch.
const DefaultBufferCapacity = 100

// Buffer is a bounded ring of trade samples. The feed appends, the
// evaluator reads the newest sample; oldest samples are evicted first.
type Buffer struct {
	mu       sync.RWMutex
	samples  []domain.TradeSample
	start    int // index of oldest sample
	count    int
	capacity int
}

// NewBuffer creates a ring buffer with the given capacity (default 100).
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &Buffer{
		samples:  make([]domain.TradeSample, capacity),
		capacity: capacity,
	}
}

// Append adds a sample, evicting the oldest when full.
func (b *Buffer) Append(s domain.TradeSample) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := (b.start + b.count) % b.capacity
	b.samples[idx] = s
	if b.count < b.capacity {
		b.count++
	} else {
		b.start = (b.start + 1) % b.capacity
	}
}

// Latest returns the most recent sample, if any.
func (b *Buffer) Latest() (domain.TradeSample, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 {
		return domain.TradeSample{}, false
	}
	idx := (b.start + b.count - 1) % b.capacity
	return b.samples[idx], true
}

// Len returns the number of buffered samples.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Snapshot returns buffered samples oldest first.
func (b *Buffer) Snapshot() []domain.TradeSample {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]domain.TradeSample, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.samples[(b.start+i)%b.capacity]
	}
	return out
}
