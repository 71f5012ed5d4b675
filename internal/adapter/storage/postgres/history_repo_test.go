package postgres

import (
	"context"
	"testing"
	"time"

	"valutatrade-hub/internal/core/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var historyColumns = []string{"id", "from_currency", "to_currency", "rate", "timestamp", "source"}

func TestHistoryRepo_Append(t *testing.T) {
	mock := newMockPool(t)
	repo := NewHistoryRepo(mock)
	at := time.Date(2025, 10, 10, 12, 0, 0, 0, time.UTC)
	recs := []domain.RateHistoryRecord{
		domain.NewRateHistoryRecord("BTC", "USD", 60000, "CoinGecko", at),
		domain.NewRateHistoryRecord("EUR", "USD", 1.08, "ExchangeRate-API", at),
	}

	mock.ExpectBegin()
	for _, r := range recs {
		mock.ExpectExec("INSERT INTO exchange_rates").
			WithArgs(r.ID, r.FromCurrency, r.ToCurrency, r.Rate, r.Timestamp, r.Source).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	require.NoError(t, repo.Append(context.Background(), recs))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepo_Append_Empty(t *testing.T) {
	mock := newMockPool(t)
	require.NoError(t, NewHistoryRepo(mock).Append(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepo_ListByPair(t *testing.T) {
	mock := newMockPool(t)
	repo := NewHistoryRepo(mock)
	at := time.Date(2025, 10, 10, 12, 0, 0, 0, time.UTC)
	newest := domain.NewRateHistoryRecord("BTC", "USD", 61000, "CoinGecko", at.Add(time.Minute))

	mock.ExpectQuery("SELECT .+ FROM exchange_rates WHERE from_currency .+ ORDER BY timestamp DESC LIMIT").
		WithArgs("BTC", "USD", 1).
		WillReturnRows(pgxmock.NewRows(historyColumns).AddRow(
			newest.ID, newest.FromCurrency, newest.ToCurrency, newest.Rate, newest.Timestamp, newest.Source,
		))

	got, err := repo.ListByPair(context.Background(), "BTC", "USD", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, newest, got[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepo_ListByPair_NoLimit(t *testing.T) {
	mock := newMockPool(t)
	repo := NewHistoryRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM exchange_rates .+ ORDER BY timestamp DESC$").
		WithArgs("ETH", "USD").
		WillReturnRows(pgxmock.NewRows(historyColumns))

	got, err := repo.ListByPair(context.Background(), "ETH", "USD", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
