package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dom/task-manager/internal/domain"
	"github.com/dom/task-manager/internal/metrics"
	"github.com/dom/task-manager/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RefreshTokenStore owns the lifecycle of persisted refresh tokens on top of
// whichever backend was configured.
type RefreshTokenStore struct {
	repo    repository.RefreshTokenRepository
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func NewRefreshTokenStore(repo repository.RefreshTokenRepository, ttl time.Duration, m *metrics.Metrics, logger *zap.Logger) *RefreshTokenStore {
	return &RefreshTokenStore{
		repo:    repo,
		ttl:     ttl,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Generate persists a new record for userID that expires one TTL from now.
func (s *RefreshTokenStore) Generate(ctx context.Context, userID uuid.UUID) (*domain.RefreshToken, error) {
	token, err := s.repo.Generate(ctx, userID, s.now().Add(s.ttl))
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RefreshTokensIssued.Inc()
	}
	return token, nil
}

func (s *RefreshTokenStore) Get(ctx context.Context, id uuid.UUID) (*domain.RefreshToken, error) {
	token, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.ErrRefreshTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return token, nil
}

// DeleteExpired removes every expired record belonging to userID and returns
// how many were removed. Running it twice in a row is a no-op the second time.
func (s *RefreshTokenStore) DeleteExpired(ctx context.Context, userID uuid.UUID) (int, error) {
	tokens, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list refresh tokens: %w", err)
	}

	now := s.now()
	removed := 0
	for _, token := range tokens {
		if !token.Expired(now) {
			continue
		}
		if err := s.repo.Delete(ctx, token.ID); err != nil {
			return removed, fmt.Errorf("delete refresh token %s: %w", token.ID, err)
		}
		removed++
	}

	if removed > 0 {
		if s.metrics != nil {
			s.metrics.RefreshTokensSwept.Add(float64(removed))
		}
		s.logger.Debug("swept expired refresh tokens",
			zap.String("user_id", userID.String()),
			zap.Int("count", removed),
		)
	}
	return removed, nil
}

func (s *RefreshTokenStore) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	return s.repo.DeleteAllForUser(ctx, userID)
}
