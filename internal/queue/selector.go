// Package queue reads and maintains the shared token candidate queue.
// The queue is a CSV file written by the scanner process; this engine
// consumes only the Address, Name, and cluster-sell price impact columns.
package queue

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"solana-token-watch/internal/domain"
)

// DefaultImpactThreshold is the maximum cluster-sell price impact
// percentage a row may carry and still be eligible (exclusive bound).
const DefaultImpactThreshold = 65.0

// Column names consumed from the queue CSV. The impact column appears
// with and without a trailing underscore in scanner output.
const (
	colAddress   = "Address"
	colName      = "Name"
	colImpact    = "Price_Impact_Cluster_Sell_Percent"
	colImpactAlt = "Price_Impact_Cluster_Sell_Percent_"
)

// mintByteLen is the decoded length of a Solana public key.
const mintByteLen = 32

// Selector resolves the current eligible target from the queue file.
type Selector struct {
	path            string
	impactThreshold float64
	log             logrus.FieldLogger
}

// NewSelector creates a Selector for the queue CSV at path.
func NewSelector(path string, impactThreshold float64, log logrus.FieldLogger) *Selector {
	if impactThreshold <= 0 {
		impactThreshold = DefaultImpactThreshold
	}
	return &Selector{path: path, impactThreshold: impactThreshold, log: log}
}

// Select returns the last eligible row in the queue, or nil when the
// queue is missing, empty, malformed, or holds no eligible row. Queue
// read failures are "no target", never an error.
func (s *Selector) Select() *domain.TokenTarget {
	f, err := os.Open(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.WithError(err).Warnf("queue: cannot open %s", s.path)
		}
		return nil
	}
	defer f.Close()

	rows, headers, err := readAll(f)
	if err != nil {
		s.log.WithError(err).Warnf("queue: cannot parse %s", s.path)
		return nil
	}
	if !contains(headers, colAddress) {
		if len(headers) > 0 {
			s.log.Warnf("queue: %s missing %q header, found %v", s.path, colAddress, headers)
		}
		return nil
	}

	var target *domain.TokenTarget
	for _, row := range rows {
		addr := strings.TrimSpace(row[colAddress])
		if addr == "" {
			continue
		}
		if !ValidAddress(addr) {
			s.log.Warnf("queue: skipping row with invalid mint address %q", addr)
			continue
		}

		impact, ok := s.parseImpact(row)
		if !ok {
			s.log.Warnf("queue: skipping %s, unparseable price impact %q", addr, impactField(row))
			continue
		}
		if impact >= s.impactThreshold {
			continue
		}

		name := strings.TrimSpace(row[colName])
		if name == "" {
			name = addr
		}
		target = &domain.TokenTarget{Address: addr, DisplayName: name}
	}
	return target
}

// Remove rewrites the queue file without any rows matching the address.
// Returns false when the address was not present.
func (s *Selector) Remove(address string) (bool, error) {
	if address == "" {
		return false, fmt.Errorf("queue: no address provided for removal")
	}

	f, err := os.Open(s.path)
	if err != nil {
		return false, fmt.Errorf("queue: open %s: %w", s.path, err)
	}
	rows, headers, err := readAll(f)
	f.Close()
	if err != nil {
		return false, fmt.Errorf("queue: parse %s: %w", s.path, err)
	}
	if !contains(headers, colAddress) {
		return false, fmt.Errorf("queue: %s missing %q header", s.path, colAddress)
	}

	kept := make([]map[string]string, 0, len(rows))
	removed := false
	for _, row := range rows {
		if strings.TrimSpace(row[colAddress]) == address {
			removed = true
			continue
		}
		kept = append(kept, row)
	}
	if !removed {
		return false, nil
	}

	out, err := os.Create(s.path)
	if err != nil {
		return false, fmt.Errorf("queue: rewrite %s: %w", s.path, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write(headers); err != nil {
		return false, fmt.Errorf("queue: write header: %w", err)
	}
	for _, row := range kept {
		record := make([]string, len(headers))
		for i, h := range headers {
			record[i] = row[h]
		}
		if err := w.Write(record); err != nil {
			return false, fmt.Errorf("queue: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return false, fmt.Errorf("queue: flush %s: %w", s.path, err)
	}

	s.log.Infof("queue: removed %s from %s", address, s.path)
	return true, nil
}

// ValidAddress reports whether addr base58-decodes to a 32-byte key.
func ValidAddress(addr string) bool {
	decoded, err := base58.Decode(addr)
	if err != nil {
		return false
	}
	return len(decoded) == mintByteLen
}

// readAll reads the CSV into header-keyed rows with trimmed headers.
func readAll(r io.Reader) ([]map[string]string, []string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, nil
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(record) {
				row[h] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, headers, nil
}

// parseImpact extracts the price impact for a row. Rows without an
// impact value are treated as above the configured threshold
// (excluded); rows with a non-numeric value are unparseable.
func (s *Selector) parseImpact(row map[string]string) (float64, bool) {
	raw := impactField(row)
	if raw == "" {
		return s.impactThreshold + 1, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func impactField(row map[string]string) string {
	if v, ok := row[colImpact]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(row[colImpactAlt])
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
