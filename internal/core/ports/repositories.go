package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"time"

	"valutatrade-hub/internal/core/domain"

	"github.com/google/uuid"
)

// UserRepository defines persistence operations for users.
// Lookups return (nil, nil) when the user does not exist.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// PortfolioRepository loads and saves whole portfolios.
// Get returns (nil, nil) when the user has no stored portfolio.
type PortfolioRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Portfolio, error)
	Save(ctx context.Context, portfolio *domain.Portfolio) error
}

// RateSnapshotStore persists the current merged rate snapshot.
// Load returns an empty, never-refreshed snapshot when nothing was stored yet.
type RateSnapshotStore interface {
	Load(ctx context.Context) (*domain.RateSnapshot, error)
	Save(ctx context.Context, snapshot *domain.RateSnapshot) error
}

// RateHistoryRepository is the append-only log of fetched rates.
type RateHistoryRepository interface {
	Append(ctx context.Context, records []domain.RateHistoryRecord) error
	// ListByPair returns the newest records first; limit <= 0 means no limit.
	ListByPair(ctx context.Context, from, to string, limit int) ([]domain.RateHistoryRecord, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// RateLimitStore counts requests per key in fixed windows.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}
