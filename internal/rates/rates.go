// Package rates owns the exchange-rate table used to estimate a local
// price for an extracted product. The table is a flat JSON object mapping
// currency code (or symbol) to the conversion factor into the local
// currency, read wholesale on each use and rewritten wholesale on each
// edit so admin changes take effect immediately.
package rates

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pricescout/internal/config"
	"pricescout/internal/types"
)

// DefaultRates seeds the table when the file is missing.
var DefaultRates = map[string]float64{
	"USD": 82,
	"EUR": 90,
	"GBP": 115,
	"CNY": 12.5,
}

// synonyms maps currency symbols onto the code whose rate they share.
var synonyms = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"元": "CNY",
}

// Store reads and writes the rate file.
type Store struct {
	path           string
	commissionRate float64
	commissionMin  float64
	mu             sync.Mutex
	logger         *slog.Logger
}

// NewStore creates a Store, seeding the rate file with defaults when it
// does not exist yet.
func NewStore(cfg *config.RatesConfig, logger *slog.Logger) (*Store, error) {
	s := &Store{
		path:           cfg.Path,
		commissionRate: cfg.CommissionRate,
		commissionMin:  cfg.CommissionMin,
		logger:         logger.With("component", "rates_store"),
	}
	if _, err := os.Stat(cfg.Path); os.IsNotExist(err) {
		if err := s.write(DefaultRates); err != nil {
			return nil, err
		}
		s.logger.Info("rate file seeded with defaults", "path", cfg.Path)
	}
	return s, nil
}

// Load returns the rate table with symbol synonyms applied. A missing or
// unreadable file falls back to the defaults rather than failing — a
// conversion must always have rates to work with.
func (s *Store) Load() map[string]float64 {
	raw, err := s.Raw()
	if err != nil {
		s.logger.Warn("rate file unreadable, using defaults", "error", err)
		raw = copyTable(DefaultRates)
	}
	for sym, code := range synonyms {
		if rate, ok := raw[code]; ok {
			raw[sym] = rate
		}
	}
	return raw
}

// Raw returns exactly what the file holds, without synonyms.
func (s *Store) Raw() (map[string]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &types.RatesError{Path: s.path, Err: err}
	}
	var table map[string]float64
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, &types.RatesError{Path: s.path, Err: err}
	}
	return table, nil
}

// SetRate updates one currency's rate and rewrites the file.
func (s *Store) SetRate(code string, rate float64) error {
	if rate <= 0 {
		return types.ErrInvalidRate
	}
	code = normalizeCurrency(code)
	if code == "" {
		return fmt.Errorf("empty currency code")
	}

	table, err := s.Raw()
	if err != nil {
		// Start over from defaults if the file was lost or corrupted.
		s.logger.Warn("rate file unreadable on edit, reseeding", "error", err)
		table = copyTable(DefaultRates)
	}
	table[code] = rate

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(table); err != nil {
		return err
	}
	s.logger.Info("rate updated", "currency", code, "rate", rate)
	return nil
}

// ModTime reports when the file was last rewritten, for staleness checks.
func (s *Store) ModTime() (time.Time, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return time.Time{}, &types.RatesError{Path: s.path, Err: err}
	}
	return info.ModTime(), nil
}

// write rewrites the whole file atomically (tmp + rename).
func (s *Store) write(table map[string]float64) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &types.RatesError{Path: s.path, Err: err}
	}

	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return &types.RatesError{Path: s.path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".rates-*")
	if err != nil {
		return &types.RatesError{Path: s.path, Err: err}
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &types.RatesError{Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return &types.RatesError{Path: s.path, Err: err}
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return &types.RatesError{Path: s.path, Err: err}
	}
	return nil
}

// normalizeCurrency upper-cases a code and resolves symbols to codes.
func normalizeCurrency(cur string) string {
	cur = strings.TrimSpace(cur)
	if code, ok := synonyms[cur]; ok {
		return code
	}
	return strings.ToUpper(cur)
}

func copyTable(src map[string]float64) map[string]float64 {
	dst := make(map[string]float64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
