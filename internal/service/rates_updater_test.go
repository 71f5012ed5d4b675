package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"valutatrade-hub/internal/core/domain"
	"valutatrade-hub/internal/core/ports"
	"valutatrade-hub/internal/core/ports/mocks"
	"valutatrade-hub/internal/metrics"
	"valutatrade-hub/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type updaterTestDeps struct {
	svc       *RatesUpdaterImpl
	crypto    *mocks.MockRateSource
	fiat      *mocks.MockRateSource
	snapshots *mocks.MockRateSnapshotStore
	history   *mocks.MockRateHistoryRepository
	now       time.Time
}

func setupRatesUpdater(t *testing.T) *updaterTestDeps {
	ctrl := gomock.NewController(t)
	d := &updaterTestDeps{
		crypto:    mocks.NewMockRateSource(ctrl),
		fiat:      mocks.NewMockRateSource(ctrl),
		snapshots: mocks.NewMockRateSnapshotStore(ctrl),
		history:   mocks.NewMockRateHistoryRepository(ctrl),
		now:       time.Date(2025, 10, 10, 12, 0, 0, 0, time.UTC),
	}
	d.crypto.EXPECT().Name().Return("CoinGecko").AnyTimes()
	d.fiat.EXPECT().Name().Return("ExchangeRate-API").AnyTimes()

	d.svc = NewRatesUpdater(
		[]ports.RateSource{d.crypto, d.fiat},
		d.snapshots, d.history, metrics.NewRecorder(), zerolog.Nop(),
	)
	d.svc.now = func() time.Time { return d.now }
	return d
}

func TestRatesUpdater_AllSourcesSucceed(t *testing.T) {
	d := setupRatesUpdater(t)
	ctx := context.Background()

	d.crypto.EXPECT().FetchRates(gomock.Any()).Return(map[string]float64{"BTC_USD": 60000, "ETH_USD": 3000}, nil)
	d.fiat.EXPECT().FetchRates(gomock.Any()).Return(map[string]float64{"EUR_USD": 1.08}, nil)

	var appended []domain.RateHistoryRecord
	d.history.EXPECT().Append(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, recs []domain.RateHistoryRecord) error {
			appended = recs
			return nil
		})
	d.snapshots.EXPECT().Load(ctx).Return(domain.NewRateSnapshot(), nil)
	var saved *domain.RateSnapshot
	d.snapshots.EXPECT().Save(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, s *domain.RateSnapshot) error {
			saved = s
			return nil
		})

	report, err := d.svc.RunUpdate(ctx, "")
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	assert.Equal(t, "CoinGecko", report.Results[0].SourceName)
	assert.Equal(t, 2, report.Results[0].RatesCount)
	assert.Equal(t, "ExchangeRate-API", report.Results[1].SourceName)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 3, report.TotalRates)
	assert.Equal(t, d.now, report.LastRefresh)

	require.Len(t, appended, 3)
	assert.Equal(t, "BTC_USD_2025-10-10T12:00:00Z", appended[0].ID)
	assert.Equal(t, "CoinGecko", appended[0].Source)

	require.NotNil(t, saved)
	assert.Equal(t, d.now, saved.LastRefresh)
	assert.Equal(t, domain.PairRate{Rate: 1.08, UpdatedAt: d.now, Source: "ExchangeRate-API"}, saved.Pairs["EUR_USD"])
}

func TestRatesUpdater_PartialFailure(t *testing.T) {
	d := setupRatesUpdater(t)
	ctx := context.Background()

	prev := domain.NewRateSnapshot()
	prev.Merge(map[string]float64{"EUR_USD": 1.05}, "ExchangeRate-API", d.now.Add(-time.Hour))

	d.crypto.EXPECT().FetchRates(gomock.Any()).Return(nil, apperror.ErrAPIRequest("HTTP 429"))
	d.fiat.EXPECT().FetchRates(gomock.Any()).Return(map[string]float64{"EUR_USD": 1.08, "GBP_USD": 1.27}, nil)
	d.history.EXPECT().Append(ctx, gomock.Len(2)).Return(nil)
	d.snapshots.EXPECT().Load(ctx).Return(prev, nil)
	d.snapshots.EXPECT().Save(ctx, prev).Return(nil)

	report, err := d.svc.RunUpdate(ctx, "")
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	assert.Equal(t, "ExchangeRate-API", report.Results[0].SourceName)
	assert.Equal(t, []string{"Failed to fetch from CoinGecko: HTTP 429"}, report.Errors)
	assert.Equal(t, d.now, prev.LastRefresh, "last refresh advances on partial success")
	assert.Equal(t, 1.08, prev.Pairs["EUR_USD"].Rate)
}

func TestRatesUpdater_AllSourcesFail(t *testing.T) {
	d := setupRatesUpdater(t)

	d.crypto.EXPECT().FetchRates(gomock.Any()).Return(nil, apperror.ErrAPIRequest("timeout"))
	d.fiat.EXPECT().FetchRates(gomock.Any()).Return(nil, apperror.ErrAPIRequest("missing API key"))
	// No Append, Load or Save expected: the stored state must stay untouched.

	report, err := d.svc.RunUpdate(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Len(t, report.Errors, 2)
	assert.True(t, report.LastRefresh.IsZero())
}

func TestRatesUpdater_LastWriteWins(t *testing.T) {
	d := setupRatesUpdater(t)
	ctx := context.Background()

	d.crypto.EXPECT().FetchRates(gomock.Any()).Return(map[string]float64{"USDT_USD": 0.999}, nil)
	d.fiat.EXPECT().FetchRates(gomock.Any()).Return(map[string]float64{"USDT_USD": 1.001}, nil)
	d.history.EXPECT().Append(ctx, gomock.Len(1)).Return(nil)
	snap := domain.NewRateSnapshot()
	d.snapshots.EXPECT().Load(ctx).Return(snap, nil)
	d.snapshots.EXPECT().Save(ctx, snap).Return(nil)

	_, err := d.svc.RunUpdate(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1.001, snap.Pairs["USDT_USD"].Rate)
	assert.Equal(t, "ExchangeRate-API", snap.Pairs["USDT_USD"].Source)
}

func TestRatesUpdater_SourceFilter(t *testing.T) {
	d := setupRatesUpdater(t)
	ctx := context.Background()

	d.crypto.EXPECT().FetchRates(gomock.Any()).Return(map[string]float64{"BTC_USD": 60000}, nil)
	d.history.EXPECT().Append(ctx, gomock.Len(1)).Return(nil)
	d.snapshots.EXPECT().Load(ctx).Return(domain.NewRateSnapshot(), nil)
	d.snapshots.EXPECT().Save(ctx, gomock.Any()).Return(nil)

	report, err := d.svc.RunUpdate(ctx, "coingecko")
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "CoinGecko", report.Results[0].SourceName)
}

func TestRatesUpdater_SourceAlias(t *testing.T) {
	d := setupRatesUpdater(t)
	ctx := context.Background()

	d.fiat.EXPECT().FetchRates(gomock.Any()).Return(map[string]float64{"EUR_USD": 1.08}, nil)
	d.history.EXPECT().Append(ctx, gomock.Len(1)).Return(nil)
	d.snapshots.EXPECT().Load(ctx).Return(domain.NewRateSnapshot(), nil)
	d.snapshots.EXPECT().Save(ctx, gomock.Any()).Return(nil)

	report, err := d.svc.RunUpdate(ctx, "exchangerate")
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "ExchangeRate-API", report.Results[0].SourceName)
}

func TestRatesUpdater_UnknownSource(t *testing.T) {
	d := setupRatesUpdater(t)

	_, err := d.svc.RunUpdate(context.Background(), "bloomberg")
	assertAppError(t, err, apperror.CodeUnknownSource)
}

func TestRatesUpdater_UnexpectedErrorAborts(t *testing.T) {
	d := setupRatesUpdater(t)

	d.crypto.EXPECT().FetchRates(gomock.Any()).Return(nil, errors.New("nil map dereference"))
	d.fiat.EXPECT().FetchRates(gomock.Any()).Return(map[string]float64{"EUR_USD": 1.08}, nil).MaxTimes(1)

	report, err := d.svc.RunUpdate(context.Background(), "")
	require.Error(t, err)
	assert.Nil(t, report)
	assert.False(t, apperror.HasCode(err, apperror.CodeAPIRequest))
}

func TestRatesUpdater_HistoryFailureSkipsSnapshot(t *testing.T) {
	d := setupRatesUpdater(t)
	ctx := context.Background()

	d.crypto.EXPECT().FetchRates(gomock.Any()).Return(map[string]float64{"BTC_USD": 60000}, nil)
	d.fiat.EXPECT().FetchRates(gomock.Any()).Return(map[string]float64{}, nil)
	d.history.EXPECT().Append(ctx, gomock.Any()).Return(errors.New("disk full"))

	_, err := d.svc.RunUpdate(ctx, "")
	assertAppError(t, err, apperror.CodeInternal)
}

func TestRatesUpdater_SourceNames(t *testing.T) {
	d := setupRatesUpdater(t)
	assert.Equal(t, []string{"CoinGecko", "ExchangeRate-API"}, d.svc.SourceNames())
}
