package domain

import (
	"fmt"
	"strings"
	"time"
)

// PairKey builds the directed pair identifier "FROM_TO".
func PairKey(from, to string) string {
	return from + "_" + to
}

// SplitPairKey is the inverse of PairKey.
func SplitPairKey(key string) (from, to string, ok bool) {
	from, to, ok = strings.Cut(key, "_")
	if !ok || from == "" || to == "" {
		return "", "", false
	}
	return from, to, true
}

// PairRate is one cached rate with its provenance.
type PairRate struct {
	Rate      float64   `json:"rate"`
	UpdatedAt time.Time `json:"updated_at"`
	Source    string    `json:"source"`
}

// RateSnapshot is the merged view of every source's latest rates.
// Only one direction of a pair is stored; the reverse is derived on read.
type RateSnapshot struct {
	Pairs       map[string]PairRate `json:"pairs"`
	LastRefresh time.Time           `json:"last_refresh"`
}

// NewRateSnapshot returns an empty, never-refreshed snapshot.
func NewRateSnapshot() *RateSnapshot {
	return &RateSnapshot{Pairs: make(map[string]PairRate)}
}

// Lookup resolves from->to: 1 for identical codes, else the stored pair,
// else the inverse of the stored reverse pair.
func (s *RateSnapshot) Lookup(from, to string) (PairRate, bool) {
	if from == to {
		return PairRate{Rate: 1, UpdatedAt: s.LastRefresh}, true
	}
	if pr, ok := s.Pairs[PairKey(from, to)]; ok && pr.Rate > 0 {
		return pr, true
	}
	if pr, ok := s.Pairs[PairKey(to, from)]; ok && pr.Rate > 0 {
		pr.Rate = 1 / pr.Rate
		return pr, true
	}
	return PairRate{}, false
}

// IsStale reports whether the snapshot is older than ttl at now. A snapshot
// that was never refreshed is always stale.
func (s *RateSnapshot) IsStale(now time.Time, ttl time.Duration) bool {
	if s.LastRefresh.IsZero() {
		return true
	}
	return now.After(s.LastRefresh.Add(ttl))
}

// Merge overwrites the given pairs, stamping them with source and at, and
// advances LastRefresh. Non-positive rates are skipped.
func (s *RateSnapshot) Merge(rates map[string]float64, source string, at time.Time) {
	if s.Pairs == nil {
		s.Pairs = make(map[string]PairRate)
	}
	for key, rate := range rates {
		if rate <= 0 {
			continue
		}
		s.Pairs[key] = PairRate{Rate: rate, UpdatedAt: at, Source: source}
	}
	s.LastRefresh = at
}

// RateHistoryRecord is one append-only audit entry of a fetched rate.
type RateHistoryRecord struct {
	ID           string    `json:"id"`
	FromCurrency string    `json:"from_currency"`
	ToCurrency   string    `json:"to_currency"`
	Rate         float64   `json:"rate"`
	Timestamp    time.Time `json:"timestamp"`
	Source       string    `json:"source"`
}

// NewRateHistoryRecord builds a record with the id FROM_TO_<RFC3339Nano>.
func NewRateHistoryRecord(from, to string, rate float64, source string, at time.Time) RateHistoryRecord {
	at = at.UTC()
	return RateHistoryRecord{
		ID:           fmt.Sprintf("%s_%s", PairKey(from, to), at.Format(time.RFC3339Nano)),
		FromCurrency: from,
		ToCurrency:   to,
		Rate:         rate,
		Timestamp:    at,
		Source:       source,
	}
}

// UpdateResult is the outcome of one source during an update run.
type UpdateResult struct {
	SourceName string        `json:"source_name"`
	RatesCount int           `json:"rates_count"`
	Duration   time.Duration `json:"-"`
}

func (r UpdateResult) DurationMS() int64 {
	return r.Duration.Milliseconds()
}
