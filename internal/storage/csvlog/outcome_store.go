// Package csvlog appends epoch outcomes to a trades CSV file.
package csvlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"solana-token-watch/internal/domain"
	"solana-token-watch/internal/storage"
)

var header = []string{"timestamp", "token_name", "mint_address", "reason", "buy_price", "sell_price"}

// OutcomeStore appends outcome rows to a CSV file, writing the header
// when the file does not exist yet.
type OutcomeStore struct {
	mu   sync.Mutex
	path string
}

// NewOutcomeStore creates a CSV outcome store writing to path.
func NewOutcomeStore(path string) *OutcomeStore {
	return &OutcomeStore{path: path}
}

// Compile-time interface check.
var _ storage.OutcomeStore = (*OutcomeStore)(nil)

// Append adds one row to the trades CSV.
func (s *OutcomeStore) Append(_ context.Context, o *domain.Outcome) error {
	if err := storage.ValidateOutcome(o); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, statErr := os.Stat(s.path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open trades csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write trades csv header: %w", err)
		}
	}

	row := []string{
		o.Timestamp.Format("2006-01-02 15:04:05"),
		o.Target.Name(),
		o.Target.Address,
		o.Reason.String(),
		formatPrice(o.BuyPrice),
		formatPrice(o.SellPrice),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write trades csv row: %w", err)
	}

	w.Flush()
	return w.Error()
}

// formatPrice renders an optional price at 9 decimal places, or empty.
func formatPrice(p *float64) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%.9f", *p)
}
