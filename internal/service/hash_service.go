package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters.
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64MB
	argon2Threads = 4
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

// Argon2HashService implements ports.HashService using Argon2id.
// The derived key and the salt are stored separately, both hex-encoded.
type Argon2HashService struct{}

// NewArgon2HashService creates a new Argon2id hash service.
func NewArgon2HashService() *Argon2HashService {
	return &Argon2HashService{}
}

// Hash derives a key from password under a fresh random salt.
func (s *Argon2HashService) Hash(password string) (string, string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	return hex.EncodeToString(key), hex.EncodeToString(salt), nil
}

// Verify checks password against a stored hash and salt in constant time.
func (s *Argon2HashService) Verify(password, salt, hash string) (bool, error) {
	saltBytes, err := hex.DecodeString(salt)
	if err != nil {
		return false, fmt.Errorf("decoding salt: %w", err)
	}
	want, err := hex.DecodeString(hash)
	if err != nil {
		return false, fmt.Errorf("decoding hash: %w", err)
	}
	if len(want) == 0 {
		return false, fmt.Errorf("empty hash")
	}

	got := argon2.IDKey([]byte(password), saltBytes, argon2Time, argon2Memory, argon2Threads, uint32(len(want)))

	return subtle.ConstantTimeCompare(want, got) == 1, nil
}
