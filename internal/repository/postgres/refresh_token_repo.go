package postgres

import (
	"context"
	"time"

	"github.com/dom/task-manager/internal/domain"
	"github.com/dom/task-manager/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type refreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *refreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Generate(ctx context.Context, userID uuid.UUID, expiresAt time.Time) (*domain.RefreshToken, error) {
	token := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		ExpiresAt: expiresAt,
	}
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return nil, err
	}
	return token, nil
}

func (r *refreshTokenRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RefreshToken, error) {
	var token domain.RefreshToken
	if err := r.db.WithContext(ctx).First(&token, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

func (r *refreshTokenRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.RefreshToken, error) {
	var tokens []*domain.RefreshToken
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *refreshTokenRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.RefreshToken{}, "id = ?", id).Error
}

func (r *refreshTokenRepository) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.RefreshToken{}, "user_id = ?", userID).Error
}

var _ repository.RefreshTokenRepository = (*refreshTokenRepository)(nil)
