package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dom/task-manager/internal/domain"
	"github.com/dom/task-manager/internal/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RefreshTokenRepo keeps each refresh token in a hash and indexes the ids of
// a user's tokens in a set. Keys carry no TTL; expired records are removed by
// the explicit sweep like in every other backend.
type RefreshTokenRepo struct {
	client *redis.Client
	now    func() time.Time
}

func NewRefreshTokenRepo(client *redis.Client) *RefreshTokenRepo {
	return &RefreshTokenRepo{
		client: client,
		now:    time.Now,
	}
}

func tokenKey(id uuid.UUID) string {
	return "refresh_token:" + id.String()
}

func userKey(userID uuid.UUID) string {
	return "user:" + userID.String() + ":refresh_tokens"
}

func (r *RefreshTokenRepo) Generate(ctx context.Context, userID uuid.UUID, expiresAt time.Time) (*domain.RefreshToken, error) {
	token := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		ExpiresAt: expiresAt.UTC().Truncate(time.Millisecond),
		CreatedAt: r.now().UTC().Truncate(time.Millisecond),
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, tokenKey(token.ID), map[string]any{
			"user_id":    token.UserID.String(),
			"expires_at": token.ExpiresAt.UnixMilli(),
			"created_at": token.CreatedAt.UnixMilli(),
		})
		pipe.SAdd(ctx, userKey(userID), token.ID.String())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return token, nil
}

func (r *RefreshTokenRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.RefreshToken, error) {
	fields, err := r.client.HGetAll(ctx, tokenKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("load refresh token: %w", err)
	}
	if len(fields) == 0 {
		return nil, repository.ErrNotFound
	}
	return decodeToken(id, fields)
}

func (r *RefreshTokenRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.RefreshToken, error) {
	ids, err := r.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list refresh tokens: %w", err)
	}

	tokens := make([]*domain.RefreshToken, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		token, err := r.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			// Dangling index entry.
			if err := r.client.SRem(ctx, userKey(userID), raw).Err(); err != nil {
				return nil, fmt.Errorf("prune refresh token index: %w", err)
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

func (r *RefreshTokenRepo) Delete(ctx context.Context, id uuid.UUID) error {
	userID, err := r.client.HGet(ctx, tokenKey(id), "user_id").Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load refresh token owner: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, tokenKey(id))
		pipe.SRem(ctx, "user:"+userID+":refresh_tokens", id.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepo) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	ids, err := r.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("list refresh tokens: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, raw := range ids {
		keys = append(keys, "refresh_token:"+raw)
	}
	keys = append(keys, userKey(userID))

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete refresh tokens: %w", err)
	}
	return nil
}

func decodeToken(id uuid.UUID, fields map[string]string) (*domain.RefreshToken, error) {
	userID, err := uuid.Parse(fields["user_id"])
	if err != nil {
		return nil, fmt.Errorf("decode refresh token %s: %w", id, err)
	}
	expires, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode refresh token %s: %w", id, err)
	}
	created, _ := strconv.ParseInt(fields["created_at"], 10, 64)

	return &domain.RefreshToken{
		ID:        id,
		UserID:    userID,
		ExpiresAt: time.UnixMilli(expires).UTC(),
		CreatedAt: time.UnixMilli(created).UTC(),
	}, nil
}

var _ repository.RefreshTokenRepository = (*RefreshTokenRepo)(nil)
