package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used when none is configured.
const DefaultBcryptCost = 10

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrCorruptHash  = errors.New("corrupt password hash")
)

// Hasher performs one-way salted password hashing.
type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password longer than 72 bytes", ErrInvalidInput)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}

	return string(hash), nil
}

// Verify reports whether plaintext matches hash. A mismatch is not an error;
// only a hash bcrypt cannot parse is.
func (h *Hasher) Verify(plaintext string, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrCorruptHash, err)
	}
}
