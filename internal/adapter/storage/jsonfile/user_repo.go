package jsonfile

import (
	"context"

	"valutatrade-hub/internal/core/domain"
	"valutatrade-hub/pkg/apperror"

	"github.com/google/uuid"
)

// UserRepo implements ports.UserRepository on users.json.
type UserRepo struct {
	store *Store
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(store *Store) *UserRepo {
	return &UserRepo{store: store}
}

func (r *UserRepo) load() ([]domain.User, error) {
	var users []domain.User
	if _, err := r.store.read(usersFile, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Create appends a user; the username must be unique.
func (r *UserRepo) Create(_ context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.Username == user.Username {
			return apperror.ErrUsernameExists(user.Username)
		}
	}
	return r.store.write(usersFile, append(users, *user))
}

// GetByUsername returns the user or (nil, nil).
func (r *UserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username })
}

// GetByID returns the user or (nil, nil).
func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.ID == id })
}

func (r *UserRepo) find(match func(domain.User) bool) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if match(users[i]) {
			return &users[i], nil
		}
	}
	return nil, nil
}
