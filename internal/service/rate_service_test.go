package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"valutatrade-hub/internal/core/domain"
	"valutatrade-hub/internal/core/ports"
	"valutatrade-hub/internal/core/ports/mocks"
	"valutatrade-hub/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var t0 = time.Date(2025, 10, 10, 12, 0, 0, 0, time.UTC)

type rateTestDeps struct {
	svc       *RateServiceImpl
	snapshots *mocks.MockRateSnapshotStore
	history   *mocks.MockRateHistoryRepository
}

func setupRateService(t *testing.T, at time.Time) *rateTestDeps {
	ctrl := gomock.NewController(t)
	d := &rateTestDeps{
		snapshots: mocks.NewMockRateSnapshotStore(ctrl),
		history:   mocks.NewMockRateHistoryRepository(ctrl),
	}
	d.svc = NewRateService(NewCurrencyRegistry(DefaultCurrencies()...), d.snapshots, d.history, 300*time.Second)
	d.svc.now = func() time.Time { return at }
	return d
}

func btcSnapshot() *domain.RateSnapshot {
	s := domain.NewRateSnapshot()
	s.Merge(map[string]float64{"BTC_USD": 60000}, "CoinGecko", t0)
	return s
}

func TestRateService_GetRate_StaleAfterTTL(t *testing.T) {
	d := setupRateService(t, t0.Add(301*time.Second))
	d.snapshots.EXPECT().Load(gomock.Any()).Return(btcSnapshot(), nil)

	_, err := d.svc.GetRate(context.Background(), "BTC", "USD")
	assertAppError(t, err, apperror.CodeAPIRequest)
	assert.Equal(t, staleCacheReason, apperror.Reason(err))
}

func TestRateService_GetRate_DerivedReverse(t *testing.T) {
	d := setupRateService(t, t0.Add(100*time.Second))
	d.snapshots.EXPECT().Load(gomock.Any()).Return(btcSnapshot(), nil)

	q, err := d.svc.GetRate(context.Background(), "usd", "BTC")
	require.NoError(t, err)
	assert.Equal(t, "USD", q.From)
	assert.Equal(t, "BTC", q.To)
	assert.InDelta(t, 1.0/60000, q.Rate, 1e-15)
	assert.InDelta(t, 60000, q.ReverseRate, 1e-6)
	assert.Equal(t, "CoinGecko", q.Source)
	assert.Equal(t, t0, q.UpdatedAt)
}

func TestRateService_GetRate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		load     bool
		code     string
	}{
		{"unknown from", "XYZ", "USD", false, apperror.CodeCurrencyNotFound},
		{"malformed to", "BTC", "us-d", false, apperror.CodeCurrencyNotFound},
		{"absent pair", "ETH", "EUR", true, apperror.CodeRateNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupRateService(t, t0)
			if tt.load {
				d.snapshots.EXPECT().Load(gomock.Any()).Return(btcSnapshot(), nil)
			}
			_, err := d.svc.GetRate(context.Background(), tt.from, tt.to)
			assertAppError(t, err, tt.code)
		})
	}
}

func TestRateService_PairRate_SameCurrency(t *testing.T) {
	d := setupRateService(t, t0)

	rate, err := d.svc.PairRate(context.Background(), "EUR", "EUR")
	require.NoError(t, err)
	assert.Equal(t, 1.0, rate)
}

func TestRateService_PairRate_NeverRefreshedIsStale(t *testing.T) {
	d := setupRateService(t, t0)
	d.snapshots.EXPECT().Load(gomock.Any()).Return(domain.NewRateSnapshot(), nil)

	_, err := d.svc.PairRate(context.Background(), "BTC", "USD")
	assertAppError(t, err, apperror.CodeAPIRequest)
}

func TestRateService_PairRate_ReverseProduct(t *testing.T) {
	d := setupRateService(t, t0.Add(time.Minute))
	snap := domain.NewRateSnapshot()
	snap.Merge(map[string]float64{"BTC_USD": 61234.5, "EUR_USD": 1.0837, "RUB_USD": 0.0108}, "x", t0)
	d.snapshots.EXPECT().Load(gomock.Any()).Return(snap, nil).AnyTimes()

	for _, pair := range [][2]string{{"BTC", "USD"}, {"EUR", "USD"}, {"RUB", "USD"}} {
		ab, err := d.svc.PairRate(context.Background(), pair[0], pair[1])
		require.NoError(t, err)
		ba, err := d.svc.PairRate(context.Background(), pair[1], pair[0])
		require.NoError(t, err)
		assert.InDelta(t, 1.0, ab*ba, 1e-12)
	}
}

func TestRateService_ListRates(t *testing.T) {
	snap := domain.NewRateSnapshot()
	snap.Merge(map[string]float64{"BTC_USD": 60000, "ETH_USD": 3000, "EUR_USD": 1.08, "SOL_USD": 150}, "x", t0)

	t.Run("ordered by pair", func(t *testing.T) {
		d := setupRateService(t, t0.Add(time.Minute))
		d.snapshots.EXPECT().Load(gomock.Any()).Return(snap, nil)

		listing, err := d.svc.ListRates(context.Background(), ports.RateFilter{})
		require.NoError(t, err)
		require.Len(t, listing.Rates, 4)
		assert.Equal(t, "BTC_USD", listing.Rates[0].Pair)
		assert.Equal(t, "SOL_USD", listing.Rates[3].Pair)
		assert.False(t, listing.Stale)
		assert.Equal(t, t0, listing.LastRefresh)
	})

	t.Run("top by rate", func(t *testing.T) {
		d := setupRateService(t, t0.Add(time.Hour))
		d.snapshots.EXPECT().Load(gomock.Any()).Return(snap, nil)

		listing, err := d.svc.ListRates(context.Background(), ports.RateFilter{Top: 2})
		require.NoError(t, err)
		require.Len(t, listing.Rates, 2)
		assert.Equal(t, "BTC_USD", listing.Rates[0].Pair)
		assert.Equal(t, "ETH_USD", listing.Rates[1].Pair)
		assert.True(t, listing.Stale, "listing reports staleness instead of failing")
	})

	t.Run("currency filter", func(t *testing.T) {
		d := setupRateService(t, t0)
		d.snapshots.EXPECT().Load(gomock.Any()).Return(snap, nil)

		listing, err := d.svc.ListRates(context.Background(), ports.RateFilter{Currency: "eth"})
		require.NoError(t, err)
		require.Len(t, listing.Rates, 1)
		assert.Equal(t, "ETH_USD", listing.Rates[0].Pair)
	})

	t.Run("currency without rates", func(t *testing.T) {
		d := setupRateService(t, t0)
		d.snapshots.EXPECT().Load(gomock.Any()).Return(snap, nil)

		_, err := d.svc.ListRates(context.Background(), ports.RateFilter{Currency: "GBP"})
		assertAppError(t, err, apperror.CodeRateNotFound)
	})

	t.Run("empty cache", func(t *testing.T) {
		d := setupRateService(t, t0)
		d.snapshots.EXPECT().Load(gomock.Any()).Return(domain.NewRateSnapshot(), nil)

		_, err := d.svc.ListRates(context.Background(), ports.RateFilter{})
		assertAppError(t, err, apperror.CodeRateNotFound)
	})
}

func TestRateService_History(t *testing.T) {
	d := setupRateService(t, t0)
	recs := []domain.RateHistoryRecord{domain.NewRateHistoryRecord("BTC", "USD", 60000, "CoinGecko", t0)}
	d.history.EXPECT().ListByPair(gomock.Any(), "BTC", "USD", 10).Return(recs, nil)

	got, err := d.svc.History(context.Background(), "btc", "usd", 10)
	require.NoError(t, err)
	assert.Equal(t, recs, got)
}

func TestRateService_LoadFailure(t *testing.T) {
	d := setupRateService(t, t0)
	d.snapshots.EXPECT().Load(gomock.Any()).Return(nil, errors.New("corrupt rates.json"))

	_, err := d.svc.GetRate(context.Background(), "BTC", "USD")
	assertAppError(t, err, apperror.CodeInternal)
}
