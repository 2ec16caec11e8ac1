package service

import (
	"errors"
	"fmt"

	"github.com/alexedwards/argon2id"
	"github.com/dom/task-manager/internal/config"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher turns plaintext passwords into stored hashes and checks
// candidates against them.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare reports whether password matches hash. A mismatch is not an error.
	Compare(hash, password string) (bool, error)
}

var argonParams = &argon2id.Params{
	Memory:      64 * 1024,
	Iterations:  2,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

// NewPasswordHasher picks the hasher named by cfg.PasswordHasher.
func NewPasswordHasher(cfg *config.Config) (PasswordHasher, error) {
	switch cfg.PasswordHasher {
	case config.HasherBcrypt, "":
		cost := cfg.BcryptCost
		if cost == 0 {
			cost = bcrypt.DefaultCost
		}
		if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
		}
		return &bcryptHasher{cost: cost}, nil
	case config.HasherArgon2id:
		return &argon2idHasher{params: argonParams}, nil
	default:
		return nil, fmt.Errorf("unsupported password hasher %q", cfg.PasswordHasher)
	}
}

type bcryptHasher struct {
	cost int
}

func (h *bcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func (h *bcryptHasher) Compare(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("compare password: %w", err)
	}
	return true, nil
}

type argon2idHasher struct {
	params *argon2id.Params
}

func (h *argon2idHasher) Hash(password string) (string, error) {
	hashed, err := argon2id.CreateHash(password, h.params)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hashed, nil
}

func (h *argon2idHasher) Compare(hash, password string) (bool, error) {
	ok, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		return false, fmt.Errorf("compare password: %w", err)
	}
	return ok, nil
}
