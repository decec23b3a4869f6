package clickhouse

import (
	"context"
	"fmt"

	"solana-token-watch/internal/domain"
	"solana-token-watch/internal/storage"
)

// TradeSampleStore archives feed trade samples into ClickHouse.
// MergeTree does not enforce uniqueness; the archive is append-only and
// duplicates from feed reconnects are tolerated.
type TradeSampleStore struct {
	conn *Conn
}

// NewTradeSampleStore creates a new TradeSampleStore.
func NewTradeSampleStore(conn *Conn) *TradeSampleStore {
	return &TradeSampleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TradeSampleStore = (*TradeSampleStore)(nil)

// EnsureSchema creates the trade_samples table if it does not exist.
func (s *TradeSampleStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS trade_samples (
			mint         String,
			observed_at  DateTime64(3),
			token_amount Float64,
			sol_amount   Float64,
			side         LowCardinality(String),
			wallet       String
		) ENGINE = MergeTree()
		ORDER BY (mint, observed_at)
	`
	if err := s.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("create trade_samples table: %w", err)
	}
	return nil
}

// Archive stores one sample for a mint address.
func (s *TradeSampleStore) Archive(ctx context.Context, mint string, sample *domain.TradeSample) error {
	if mint == "" || sample == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trade_samples (
			mint, observed_at, token_amount, sol_amount, side, wallet
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	err := s.conn.Exec(ctx, query,
		mint, sample.ObservedAt, sample.TokenAmount, sample.SolAmount,
		string(sample.Side), sample.Wallet,
	)
	if err != nil {
		return fmt.Errorf("insert trade sample: %w", err)
	}
	return nil
}
