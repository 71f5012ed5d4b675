package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"valutatrade-hub/internal/core/domain"
	"valutatrade-hub/internal/core/ports"
	"valutatrade-hub/pkg/apperror"
)

const staleCacheReason = "rates cache is stale, run update-rates"

// RateServiceImpl implements ports.RateService on top of the cached snapshot.
// Every rate read used for pricing goes through the same staleness gate.
type RateServiceImpl struct {
	registry  ports.CurrencyRegistry
	snapshots ports.RateSnapshotStore
	history   ports.RateHistoryRepository
	ttl       time.Duration
	now       func() time.Time
}

// NewRateService creates a new RateServiceImpl.
func NewRateService(
	registry ports.CurrencyRegistry,
	snapshots ports.RateSnapshotStore,
	history ports.RateHistoryRepository,
	ttl time.Duration,
) *RateServiceImpl {
	return &RateServiceImpl{
		registry:  registry,
		snapshots: snapshots,
		history:   history,
		ttl:       ttl,
		now:       time.Now,
	}
}

// GetRate resolves from->to and its reverse.
func (s *RateServiceImpl) GetRate(ctx context.Context, from, to string) (*ports.RateQuote, error) {
	fromCur, toCur, err := s.resolvePair(from, to)
	if err != nil {
		return nil, err
	}

	pr, err := s.lookup(ctx, fromCur.Code, toCur.Code)
	if err != nil {
		return nil, err
	}

	return &ports.RateQuote{
		From:        fromCur.Code,
		To:          toCur.Code,
		Rate:        pr.Rate,
		ReverseRate: 1 / pr.Rate,
		UpdatedAt:   pr.UpdatedAt,
		Source:      pr.Source,
	}, nil
}

// PairRate returns only the from->to rate. Settlement uses it.
func (s *RateServiceImpl) PairRate(ctx context.Context, from, to string) (float64, error) {
	fromCur, toCur, err := s.resolvePair(from, to)
	if err != nil {
		return 0, err
	}
	pr, err := s.lookup(ctx, fromCur.Code, toCur.Code)
	if err != nil {
		return 0, err
	}
	return pr.Rate, nil
}

// ListRates returns the stored pairs, optionally restricted to pairs touching
// filter.Currency and to the filter.Top highest rates. Without Top the pairs
// are ordered by key.
func (s *RateServiceImpl) ListRates(ctx context.Context, filter ports.RateFilter) (*ports.RateListing, error) {
	snapshot, err := s.snapshots.Load(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load rate snapshot: %w", err))
	}
	if len(snapshot.Pairs) == 0 {
		return nil, apperror.ErrRateNotFound("*")
	}

	code := strings.ToUpper(strings.TrimSpace(filter.Currency))
	entries := make([]ports.RateEntry, 0, len(snapshot.Pairs))
	for key, pr := range snapshot.Pairs {
		if code != "" {
			from, to, ok := domain.SplitPairKey(key)
			if !ok || (from != code && to != code) {
				continue
			}
		}
		entries = append(entries, ports.RateEntry{Pair: key, Rate: pr.Rate, UpdatedAt: pr.UpdatedAt, Source: pr.Source})
	}
	if len(entries) == 0 {
		return nil, apperror.ErrRateNotFound(code)
	}

	if filter.Top > 0 {
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Rate != entries[j].Rate {
				return entries[i].Rate > entries[j].Rate
			}
			return entries[i].Pair < entries[j].Pair
		})
		if len(entries) > filter.Top {
			entries = entries[:filter.Top]
		}
	} else {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Pair < entries[j].Pair })
	}

	return &ports.RateListing{
		Rates:       entries,
		LastRefresh: snapshot.LastRefresh,
		Stale:       snapshot.IsStale(s.now(), s.ttl),
	}, nil
}

// History returns the recorded rates of the stored direction of a pair, newest first.
func (s *RateServiceImpl) History(ctx context.Context, from, to string, limit int) ([]domain.RateHistoryRecord, error) {
	fromCur, toCur, err := s.resolvePair(from, to)
	if err != nil {
		return nil, err
	}
	records, err := s.history.ListByPair(ctx, fromCur.Code, toCur.Code, limit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list rate history: %w", err))
	}
	return records, nil
}

func (s *RateServiceImpl) resolvePair(from, to string) (domain.Currency, domain.Currency, error) {
	fromCur, err := s.registry.Get(from)
	if err != nil {
		return domain.Currency{}, domain.Currency{}, err
	}
	toCur, err := s.registry.Get(to)
	if err != nil {
		return domain.Currency{}, domain.Currency{}, err
	}
	return fromCur, toCur, nil
}

// lookup applies the staleness gate, then resolves the pair directly or via its reverse.
func (s *RateServiceImpl) lookup(ctx context.Context, from, to string) (domain.PairRate, error) {
	if from == to {
		return domain.PairRate{Rate: 1, UpdatedAt: s.now().UTC()}, nil
	}

	snapshot, err := s.snapshots.Load(ctx)
	if err != nil {
		return domain.PairRate{}, apperror.InternalError(fmt.Errorf("load rate snapshot: %w", err))
	}
	if snapshot.IsStale(s.now(), s.ttl) {
		return domain.PairRate{}, apperror.ErrAPIRequest(staleCacheReason)
	}

	pr, ok := snapshot.Lookup(from, to)
	if !ok {
		return domain.PairRate{}, apperror.ErrRateNotFound(domain.PairKey(from, to))
	}
	return pr, nil
}
