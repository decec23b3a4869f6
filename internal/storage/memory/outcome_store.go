package memory

import (
	"context"
	"sync"

	"solana-token-watch/internal/domain"
	"solana-token-watch/internal/storage"
)

// OutcomeStore is an in-memory implementation of storage.OutcomeStore.
type OutcomeStore struct {
	mu   sync.RWMutex
	data []*domain.Outcome
}

// NewOutcomeStore creates a new in-memory outcome store.
func NewOutcomeStore() *OutcomeStore {
	return &OutcomeStore{}
}

// Compile-time interface checks.
var (
	_ storage.OutcomeStore  = (*OutcomeStore)(nil)
	_ storage.OutcomeLister = (*OutcomeStore)(nil)
)

// Append adds an outcome record.
func (s *OutcomeStore) Append(_ context.Context, o *domain.Outcome) error {
	if err := storage.ValidateOutcome(o); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *o
	s.data = append(s.data, &copy)
	return nil
}

// List returns all outcomes in insertion order.
func (s *OutcomeStore) List(_ context.Context) ([]*domain.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Outcome, len(s.data))
	for i, o := range s.data {
		copy := *o
		result[i] = &copy
	}
	return result, nil
}
