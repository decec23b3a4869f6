package memory

import (
	"context"
	"sync"

	"solana-token-watch/internal/domain"
	"solana-token-watch/internal/storage"
)

// TradeSampleStore is an in-memory implementation of storage.TradeSampleStore.
type TradeSampleStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.TradeSample // keyed by mint address
}

// NewTradeSampleStore creates a new in-memory trade sample store.
func NewTradeSampleStore() *TradeSampleStore {
	return &TradeSampleStore{
		data: make(map[string][]*domain.TradeSample),
	}
}

// Compile-time interface check.
var _ storage.TradeSampleStore = (*TradeSampleStore)(nil)

// Archive stores one sample for a mint address.
func (s *TradeSampleStore) Archive(_ context.Context, mint string, sample *domain.TradeSample) error {
	if mint == "" || sample == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *sample
	s.data[mint] = append(s.data[mint], &copy)
	return nil
}

// GetByMint returns all archived samples for a mint, oldest first.
func (s *TradeSampleStore) GetByMint(_ context.Context, mint string) ([]*domain.TradeSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	samples := s.data[mint]
	result := make([]*domain.TradeSample, len(samples))
	for i, sm := range samples {
		copy := *sm
		result[i] = &copy
	}
	return result, nil
}
