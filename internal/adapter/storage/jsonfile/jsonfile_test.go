package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"valutatrade-hub/internal/core/domain"
	"valutatrade-hub/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	return s
}

func TestOpen_CreatesDir(t *testing.T) {
	s := newTestStore(t)
	info, err := os.Stat(s.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestUserRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepo(newTestStore(t))

	u, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, u, "missing file reads as empty")

	alice := &domain.User{
		ID:               uuid.New(),
		Username:         "alice",
		HashedPassword:   "abc",
		Salt:             "def",
		RegistrationDate: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, alice))

	byName, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, alice.ID, byName.ID)
	assert.True(t, alice.RegistrationDate.Equal(byName.RegistrationDate))

	byID, err := repo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "alice", byID.Username)

	err = repo.Create(ctx, &domain.User{ID: uuid.New(), Username: "alice"})
	assert.True(t, apperror.HasCode(err, apperror.CodeUsernameExists))
}

func TestPortfolioRepo_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	repo := NewPortfolioRepo(store)
	userID := uuid.New()

	p, err := repo.Get(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, p)

	p = domain.NewPortfolio(userID)
	require.NoError(t, p.EnsureWallet("USD").Deposit(decimal.RequireFromString("400")))
	require.NoError(t, p.EnsureWallet("BTC").Deposit(decimal.RequireFromString("0.01")))
	require.NoError(t, repo.Save(ctx, p))

	// overwrite keeps a single record per user
	require.NoError(t, p.EnsureWallet("USD").Withdraw(decimal.RequireFromString("0.5")))
	require.NoError(t, repo.Save(ctx, p))
	require.NoError(t, repo.Save(ctx, domain.NewPortfolio(uuid.New())))

	got, err := repo.Get(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"BTC", "USD"}, got.Codes())
	usd, _ := got.Wallet("USD")
	btc, _ := got.Wallet("BTC")
	assert.Equal(t, "399.5", usd.Balance().String())
	assert.Equal(t, "0.01", btc.Balance().String())

	var records []portfolioRecord
	_, err = store.read(portfoliosFile, &records)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestPortfolioRepo_BalanceStoredAsDecimalString(t *testing.T) {
	store := newTestStore(t)
	repo := NewPortfolioRepo(store)
	p := domain.NewPortfolio(uuid.New())
	require.NoError(t, p.EnsureWallet("ETH").Deposit(decimal.RequireFromString("0.1")))
	require.NoError(t, repo.Save(context.Background(), p))

	raw, err := os.ReadFile(filepath.Join(store.Dir(), portfoliosFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"balance": "0.1"`)
}

func TestSnapshotStore(t *testing.T) {
	ctx := context.Background()
	s := NewSnapshotStore(newTestStore(t))

	empty, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.Pairs)
	assert.True(t, empty.LastRefresh.IsZero())

	at := time.Date(2025, 10, 10, 12, 0, 0, 0, time.UTC)
	snap := domain.NewRateSnapshot()
	snap.Merge(map[string]float64{"BTC_USD": 60000}, "CoinGecko", at)
	require.NoError(t, s.Save(ctx, snap))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Contains(t, got.Pairs, "BTC_USD")
	assert.Equal(t, 60000.0, got.Pairs["BTC_USD"].Rate)
	assert.Equal(t, "CoinGecko", got.Pairs["BTC_USD"].Source)
	assert.True(t, at.Equal(got.LastRefresh))
}

func TestStore_CorruptFile(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), ratesFile), []byte("{not json"), 0o644))

	_, err := NewSnapshotStore(store).Load(context.Background())
	assert.Error(t, err)
}

func TestStore_WriteLeavesNoTempFiles(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, NewSnapshotStore(store).Save(context.Background(), domain.NewRateSnapshot()))

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ratesFile, entries[0].Name())
}

func TestHistoryRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepo(newTestStore(t))
	t0 := time.Date(2025, 10, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Append(ctx, nil))
	require.NoError(t, repo.Append(ctx, []domain.RateHistoryRecord{
		domain.NewRateHistoryRecord("BTC", "USD", 59000, "CoinGecko", t0),
		domain.NewRateHistoryRecord("EUR", "USD", 1.08, "ExchangeRate-API", t0),
	}))
	require.NoError(t, repo.Append(ctx, []domain.RateHistoryRecord{
		domain.NewRateHistoryRecord("BTC", "USD", 60000, "CoinGecko", t0.Add(time.Minute)),
	}))

	all, err := repo.ListByPair(ctx, "BTC", "USD", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 60000.0, all[0].Rate, "newest first")
	assert.Equal(t, 59000.0, all[1].Rate)

	latest, err := repo.ListByPair(ctx, "BTC", "USD", 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "BTC_USD_2025-10-10T12:01:00Z", latest[0].ID)

	none, err := repo.ListByPair(ctx, "USD", "BTC", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestHistoryRepo_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepo(newTestStore(t))
	t0 := time.Date(2025, 10, 10, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := domain.NewRateHistoryRecord("ETH", "USD", float64(3000+i), "CoinGecko", t0.Add(time.Duration(i)*time.Second))
			assert.NoError(t, repo.Append(ctx, []domain.RateHistoryRecord{rec}))
		}()
	}
	wg.Wait()

	all, err := repo.ListByPair(ctx, "ETH", "USD", 0)
	require.NoError(t, err)
	assert.Len(t, all, 20)
}

func TestHealthCheck(t *testing.T) {
	store := newTestStore(t)
	hc := NewHealthCheck(store)
	assert.Equal(t, "storage", hc.Name())
	assert.NoError(t, hc.Ping(context.Background()))

	require.NoError(t, os.RemoveAll(store.Dir()))
	assert.Error(t, hc.Ping(context.Background()))
}
