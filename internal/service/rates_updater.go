package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"valutatrade-hub/internal/core/domain"
	"valutatrade-hub/internal/core/ports"
	"valutatrade-hub/internal/metrics"
	"valutatrade-hub/pkg/apperror"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// RatesUpdaterImpl implements ports.RatesUpdater. Sources are fetched in
// parallel; their results are merged afterwards in registration order, so a
// pair supplied by several sources keeps the value of the last one.
type RatesUpdaterImpl struct {
	sources   []ports.RateSource
	snapshots ports.RateSnapshotStore
	history   ports.RateHistoryRepository
	metrics   *metrics.Recorder
	log       zerolog.Logger
	now       func() time.Time
}

// NewRatesUpdater creates a new RatesUpdaterImpl. rec may be nil.
func NewRatesUpdater(
	sources []ports.RateSource,
	snapshots ports.RateSnapshotStore,
	history ports.RateHistoryRepository,
	rec *metrics.Recorder,
	log zerolog.Logger,
) *RatesUpdaterImpl {
	return &RatesUpdaterImpl{
		sources:   sources,
		snapshots: snapshots,
		history:   history,
		metrics:   rec,
		log:       log,
		now:       time.Now,
	}
}

type fetchOutcome struct {
	rates    map[string]float64
	err      error
	duration time.Duration
}

// RunUpdate fetches every registered source, or only source when it is not
// empty. A source failing with API_001 is reported in the Errors list and the
// others still merge; any other error aborts the run. When nothing at all was
// fetched the stored snapshot and history are left untouched.
func (s *RatesUpdaterImpl) RunUpdate(ctx context.Context, source string) (*ports.UpdateReport, error) {
	selected, err := s.selectSources(source)
	if err != nil {
		return nil, err
	}

	// Fetch in parallel, one slot per source
	outcomes := make([]fetchOutcome, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range selected {
		g.Go(func() error {
			start := time.Now()
			rates, err := src.FetchRates(gctx)
			outcomes[i] = fetchOutcome{rates: rates, err: err, duration: time.Since(start)}
			if err != nil && !apperror.HasCode(err, apperror.CodeAPIRequest) {
				return fmt.Errorf("fetch from %s: %w", src.Name(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Ordered reduction
	report := &ports.UpdateReport{}
	merged := make(map[string]float64)
	provenance := make(map[string]string)
	for i, src := range selected {
		name := src.Name()
		out := outcomes[i]
		if out.err != nil {
			s.metrics.ObserveFetch(name, out.duration, 0, out.err)
			msg := fmt.Sprintf("Failed to fetch from %s: %s", name, apperror.Reason(out.err))
			report.Errors = append(report.Errors, msg)
			s.log.Warn().Str("source", name).Err(out.err).Msg("rate source failed")
			continue
		}

		count := 0
		for key, rate := range out.rates {
			if rate <= 0 {
				continue
			}
			merged[key] = rate
			provenance[key] = name
			count++
		}
		s.metrics.ObserveFetch(name, out.duration, count, nil)
		report.Results = append(report.Results, domain.UpdateResult{
			SourceName: name,
			RatesCount: count,
			Duration:   out.duration,
		})
		s.log.Debug().Str("source", name).Int("rates", count).Dur("duration", out.duration).Msg("rate source fetched")
	}

	if len(merged) == 0 {
		s.log.Warn().Int("failed", len(report.Errors)).Msg("no rates fetched, snapshot left unchanged")
		return report, nil
	}

	completedAt := s.now().UTC()

	// History first: one record per pair
	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	records := make([]domain.RateHistoryRecord, 0, len(keys))
	bySource := make(map[string]map[string]float64)
	for _, key := range keys {
		from, to, ok := domain.SplitPairKey(key)
		if !ok {
			s.log.Warn().Str("pair", key).Msg("skipping malformed pair key")
			continue
		}
		src := provenance[key]
		records = append(records, domain.NewRateHistoryRecord(from, to, merged[key], src, completedAt))
		if bySource[src] == nil {
			bySource[src] = make(map[string]float64)
		}
		bySource[src][key] = merged[key]
	}
	if err := s.history.Append(ctx, records); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("append rate history: %w", err))
	}

	// Then overwrite the matching snapshot pairs
	snapshot, err := s.snapshots.Load(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load rate snapshot: %w", err))
	}
	for _, src := range selected {
		if rates, ok := bySource[src.Name()]; ok {
			snapshot.Merge(rates, src.Name(), completedAt)
		}
	}
	if err := s.snapshots.Save(ctx, snapshot); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("save rate snapshot: %w", err))
	}
	s.metrics.ObserveSnapshot(len(snapshot.Pairs), completedAt)

	report.TotalRates = len(records)
	report.LastRefresh = completedAt

	s.log.Info().
		Int("rates", report.TotalRates).
		Int("sources_ok", len(report.Results)).
		Int("sources_failed", len(report.Errors)).
		Time("last_refresh", completedAt).
		Msg("rates updated successfully")

	return report, nil
}

func (s *RatesUpdaterImpl) selectSources(name string) ([]ports.RateSource, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return s.sources, nil
	}
	for _, src := range s.sources {
		if sourceKey(src.Name()) == sourceKey(name) {
			return []ports.RateSource{src}, nil
		}
	}
	return nil, apperror.ErrUnknownSource(name)
}

// sourceKey matches "exchangerate", "ExchangeRate-API" and "exchangerate-api" alike.
func sourceKey(name string) string {
	return strings.TrimSuffix(strings.ToLower(name), "-api")
}

// SourceNames lists the registered sources in merge order.
func (s *RatesUpdaterImpl) SourceNames() []string {
	names := make([]string, 0, len(s.sources))
	for _, src := range s.sources {
		names = append(names, src.Name())
	}
	return names
}
