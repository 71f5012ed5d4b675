package service

import (
	"context"

	"valutatrade-hub/internal/core/domain"
	"valutatrade-hub/pkg/apperror"
)

type sessionKey struct{}

// WithSession returns a context carrying the logged-in user.
func WithSession(ctx context.Context, s domain.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session stored by WithSession, or PermissionDenied.
func SessionFrom(ctx context.Context) (domain.Session, error) {
	s, ok := ctx.Value(sessionKey{}).(domain.Session)
	if !ok {
		return domain.Session{}, apperror.ErrPermissionDenied()
	}
	return s, nil
}
