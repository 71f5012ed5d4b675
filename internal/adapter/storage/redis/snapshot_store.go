package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"valutatrade-hub/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

const snapshotKey = "rates:snapshot"

// SnapshotStore implements ports.RateSnapshotStore as a single JSON value.
// The key has no TTL: expiry is the staleness gate's job, not the cache's.
type SnapshotStore struct {
	client *goredis.Client
	key    string
}

// NewSnapshotStore creates a Redis-backed snapshot store.
func NewSnapshotStore(client *goredis.Client) *SnapshotStore {
	return &SnapshotStore{client: client, key: snapshotKey}
}

// Load returns the stored snapshot, or an empty never-refreshed one.
func (s *SnapshotStore) Load(ctx context.Context) (*domain.RateSnapshot, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.NewRateSnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis snapshot get: %w", err)
	}

	snap := domain.NewRateSnapshot()
	if err := json.Unmarshal(raw, snap); err != nil {
		return nil, fmt.Errorf("decoding rate snapshot: %w", err)
	}
	if snap.Pairs == nil {
		snap.Pairs = make(map[string]domain.PairRate)
	}
	return snap, nil
}

// Save overwrites the stored snapshot.
func (s *SnapshotStore) Save(ctx context.Context, snapshot *domain.RateSnapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encoding rate snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis snapshot set: %w", err)
	}
	return nil
}
