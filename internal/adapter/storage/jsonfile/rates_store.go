package jsonfile

import (
	"context"

	"valutatrade-hub/internal/core/domain"
)

// SnapshotStore implements ports.RateSnapshotStore on rates.json.
type SnapshotStore struct {
	store *Store
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(store *Store) *SnapshotStore {
	return &SnapshotStore{store: store}
}

// Load returns the stored snapshot, or an empty never-refreshed one.
func (s *SnapshotStore) Load(_ context.Context) (*domain.RateSnapshot, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	snap := domain.NewRateSnapshot()
	if _, err := s.store.read(ratesFile, snap); err != nil {
		return nil, err
	}
	if snap.Pairs == nil {
		snap.Pairs = make(map[string]domain.PairRate)
	}
	return snap, nil
}

// Save replaces rates.json.
func (s *SnapshotStore) Save(_ context.Context, snapshot *domain.RateSnapshot) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	return s.store.write(ratesFile, snapshot)
}

// HistoryRepo implements ports.RateHistoryRepository on exchange_rates.json.
type HistoryRepo struct {
	store *Store
}

// NewHistoryRepo creates a new HistoryRepo.
func NewHistoryRepo(store *Store) *HistoryRepo {
	return &HistoryRepo{store: store}
}

// Append adds records to the end of the log.
func (r *HistoryRepo) Append(_ context.Context, records []domain.RateHistoryRecord) error {
	if len(records) == 0 {
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var history []domain.RateHistoryRecord
	if _, err := r.store.read(historyFile, &history); err != nil {
		return err
	}
	return r.store.write(historyFile, append(history, records...))
}

// ListByPair returns records for from->to, newest first.
func (r *HistoryRepo) ListByPair(_ context.Context, from, to string, limit int) ([]domain.RateHistoryRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var history []domain.RateHistoryRecord
	if _, err := r.store.read(historyFile, &history); err != nil {
		return nil, err
	}

	var out []domain.RateHistoryRecord
	for i := len(history) - 1; i >= 0; i-- {
		rec := history[i]
		if rec.FromCurrency != from || rec.ToCurrency != to {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
