package postgres

import (
	"context"
	"fmt"

	"solana-token-watch/internal/domain"
	"solana-token-watch/internal/storage"
)

// OutcomeStore implements storage.OutcomeStore using PostgreSQL.
type OutcomeStore struct {
	pool *Pool
}

// NewOutcomeStore creates a new OutcomeStore.
func NewOutcomeStore(pool *Pool) *OutcomeStore {
	return &OutcomeStore{pool: pool}
}

// Compile-time interface checks.
var (
	_ storage.OutcomeStore  = (*OutcomeStore)(nil)
	_ storage.OutcomeLister = (*OutcomeStore)(nil)
)

// EnsureSchema creates the epoch_outcomes table if it does not exist.
func (s *OutcomeStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS epoch_outcomes (
			id           BIGSERIAL PRIMARY KEY,
			closed_at    TIMESTAMPTZ NOT NULL,
			token_name   TEXT NOT NULL,
			mint_address TEXT NOT NULL,
			reason       TEXT NOT NULL,
			buy_price    DOUBLE PRECISION,
			sell_price   DOUBLE PRECISION
		)
	`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create epoch_outcomes table: %w", err)
	}
	return nil
}

// Append adds an outcome record.
func (s *OutcomeStore) Append(ctx context.Context, o *domain.Outcome) error {
	if err := storage.ValidateOutcome(o); err != nil {
		return err
	}

	query := `
		INSERT INTO epoch_outcomes (
			closed_at, token_name, mint_address, reason, buy_price, sell_price
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.pool.Exec(ctx, query,
		o.Timestamp, o.Target.Name(), o.Target.Address,
		o.Reason.String(), o.BuyPrice, o.SellPrice,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert epoch outcome: %w", err)
	}
	return nil
}

// List returns all outcomes in insertion order.
func (s *OutcomeStore) List(ctx context.Context) ([]*domain.Outcome, error) {
	query := `
		SELECT closed_at, token_name, mint_address, reason, buy_price, sell_price
		FROM epoch_outcomes
		ORDER BY id ASC
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query epoch outcomes: %w", err)
	}
	defer rows.Close()

	var result []*domain.Outcome
	for rows.Next() {
		o := &domain.Outcome{}
		var name string
		var reason string
		if err := rows.Scan(&o.Timestamp, &name, &o.Target.Address, &reason, &o.BuyPrice, &o.SellPrice); err != nil {
			return nil, fmt.Errorf("scan epoch outcome: %w", err)
		}
		o.Target.DisplayName = name
		o.Reason = domain.CloseReason(reason)
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate epoch outcomes: %w", err)
	}
	return result, nil
}
