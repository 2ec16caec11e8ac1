package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dom/task-manager/internal/config"
	"github.com/dom/task-manager/internal/domain"
	"github.com/dom/task-manager/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IssuedRefreshToken pairs the persisted record with a signed token of the
// same lifetime. Clients exchange the record ID; the signed token is only
// handed out alongside it.
type IssuedRefreshToken struct {
	Record *domain.RefreshToken
	Token  string
}

type TokenIssuer struct {
	secret       []byte
	refreshTTL   time.Duration
	refreshedTTL time.Duration
	store        *RefreshTokenStore
	users        repository.UserRepository
	logger       *zap.Logger
}

func NewTokenIssuer(cfg *config.Config, store *RefreshTokenStore, users repository.UserRepository, logger *zap.Logger) *TokenIssuer {
	return &TokenIssuer{
		secret:       []byte(cfg.JWTSecret),
		refreshTTL:   cfg.RefreshTokenTTL,
		refreshedTTL: cfg.RefreshedAccessTokenTTL,
		store:        store,
		users:        users,
		logger:       logger,
	}
}

func (i *TokenIssuer) sign(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// IssueAccessToken signs a bearer token for userID valid for ttl.
func (i *TokenIssuer) IssueAccessToken(userID uuid.UUID, ttl time.Duration) (string, error) {
	return i.sign(userID, ttl)
}

// VerifyAccessToken checks signature and expiry and returns the subject. It
// never touches storage.
func (i *TokenIssuer) VerifyAccessToken(raw string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return uuid.Nil, domain.ErrPleaseAuthenticate
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, domain.ErrPleaseAuthenticate
	}
	return userID, nil
}

// IssueRefreshToken persists a new refresh record for userID.
func (i *TokenIssuer) IssueRefreshToken(ctx context.Context, userID uuid.UUID) (*IssuedRefreshToken, error) {
	record, err := i.store.Generate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	signed, err := i.sign(userID, i.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &IssuedRefreshToken{Record: record, Token: signed}, nil
}

// ExchangeRefreshToken trades a refresh record id for a short-lived access
// token. Expired records of the owner are swept on the way.
func (i *TokenIssuer) ExchangeRefreshToken(ctx context.Context, rawID string) (string, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return "", domain.ErrRefreshTokenNotFound
	}

	record, err := i.store.Get(ctx, id)
	if err != nil {
		return "", err
	}

	user, err := i.users.GetByID(ctx, record.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", domain.ErrInvalidRefreshToken
	}
	if err != nil {
		return "", fmt.Errorf("load refresh token owner: %w", err)
	}

	if _, err := i.store.DeleteExpired(ctx, user.ID); err != nil {
		return "", err
	}
	if record.Expired(i.store.now()) {
		return "", domain.ErrRefreshTokenNotFound
	}

	return i.sign(user.ID, i.refreshedTTL)
}
