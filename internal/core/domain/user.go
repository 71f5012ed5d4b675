package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account. The password is stored as an Argon2id key plus its salt.
type User struct {
	ID               uuid.UUID `json:"user_id"`
	Username         string    `json:"username"`
	HashedPassword   string    `json:"hashed_password"`
	Salt             string    `json:"salt"`
	RegistrationDate time.Time `json:"registration_date"`
}

// Session identifies the logged-in user for the duration of one operation.
type Session struct {
	UserID   uuid.UUID
	Username string
}
