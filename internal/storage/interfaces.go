package storage

import (
	"context"

	"solana-token-watch/internal/domain"
)

// OutcomeStore persists terminal epoch outcomes.
type OutcomeStore interface {
	// Append adds an outcome record. Outcomes are append-only.
	Append(ctx context.Context, o *domain.Outcome) error
}

// OutcomeLister is implemented by stores that can read outcomes back.
type OutcomeLister interface {
	// List returns all outcomes in insertion order.
	List(ctx context.Context) ([]*domain.Outcome, error)
}

// TradeSampleStore archives trade samples observed by the price feed.
// Archival is best-effort; callers log and continue on error.
type TradeSampleStore interface {
	// Archive stores one sample for a mint address.
	Archive(ctx context.Context, mint string, s *domain.TradeSample) error
}

// MultiOutcomeStore fans an outcome out to several stores. A failure in
// one store does not stop the others; the first error is returned.
type MultiOutcomeStore []OutcomeStore

// Append writes the outcome to every underlying store.
func (m MultiOutcomeStore) Append(ctx context.Context, o *domain.Outcome) error {
	var firstErr error
	for _, s := range m {
		if err := s.Append(ctx, o); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ValidateOutcome checks an outcome at the storage boundary.
func ValidateOutcome(o *domain.Outcome) error {
	if o == nil || o.Target.Address == "" || !o.Reason.IsValid() {
		return ErrInvalidInput
	}
	if o.Timestamp.IsZero() {
		return ErrInvalidInput
	}
	return nil
}
