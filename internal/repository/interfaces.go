package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dom/task-manager/internal/domain"
	"github.com/google/uuid"
)

// ErrNotFound is returned by every store when the requested record does not
// exist. Services translate it into the matching domain error.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateEmail is returned when a write would violate email uniqueness.
var ErrDuplicateEmail = errors.New("duplicate email")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	// DeleteCascade removes the user together with every task and refresh
	// token it owns. Implementations that own all three collections do it
	// atomically.
	DeleteCascade(ctx context.Context, id uuid.UUID) error
}

type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	// GetForOwner only finds tasks whose owner is ownerID.
	GetForOwner(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error)
	ListForOwner(ctx context.Context, ownerID uuid.UUID, filter domain.TaskFilter) ([]*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	DeleteForOwner(ctx context.Context, id, ownerID uuid.UUID) error
	DeleteAllForOwner(ctx context.Context, ownerID uuid.UUID) error
}

type RefreshTokenRepository interface {
	Generate(ctx context.Context, userID uuid.UUID, expiresAt time.Time) (*domain.RefreshToken, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.RefreshToken, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.RefreshToken, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error
}

type Repositories struct {
	User         UserRepository
	Task         TaskRepository
	RefreshToken RefreshTokenRepository
}
