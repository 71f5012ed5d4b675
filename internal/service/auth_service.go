package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"valutatrade-hub/internal/core/domain"
	"valutatrade-hub/internal/core/ports"
	"valutatrade-hub/pkg/apperror"

	"github.com/google/uuid"
)

const minPasswordLength = 4

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	userRepo      ports.UserRepository
	portfolioRepo ports.PortfolioRepository
	hashSvc       ports.HashService
	tokenSvc      ports.TokenService
	now           func() time.Time
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	userRepo ports.UserRepository,
	portfolioRepo ports.PortfolioRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		userRepo:      userRepo,
		portfolioRepo: portfolioRepo,
		hashSvc:       hashSvc,
		tokenSvc:      tokenSvc,
		now:           time.Now,
	}
}

// Register creates a user and its empty portfolio.
func (s *AuthServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*domain.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, apperror.Validation("username must not be empty")
	}
	if len(req.Password) < minPasswordLength {
		return nil, apperror.Validation(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	// Check username uniqueness
	existing, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check username: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrUsernameExists(username)
	}

	hash, salt, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	user := &domain.User{
		ID:               uuid.New(),
		Username:         username,
		HashedPassword:   hash,
		Salt:             salt,
		RegistrationDate: s.now().UTC(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create user: %w", err))
	}

	if err := s.portfolioRepo.Save(ctx, domain.NewPortfolio(user.ID)); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create portfolio: %w", err))
	}

	return user, nil
}

// Login validates credentials and returns a JWT token.
func (s *AuthServiceImpl) Login(ctx context.Context, req ports.LoginRequest) (*ports.LoginResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(req.Password, user.Salt, user.HashedPassword)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return nil, apperror.ErrInvalidCredentials()
	}

	session := domain.Session{UserID: user.ID, Username: user.Username}
	token, expiry, err := s.tokenSvc.Generate(session)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return &ports.LoginResponse{Token: token, ExpiresAt: expiry, Session: session}, nil
}
