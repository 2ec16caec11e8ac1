package service

import (
	"context"

	"github.com/dom/task-manager/internal/config"
	"github.com/dom/task-manager/internal/domain"
	"github.com/dom/task-manager/internal/metrics"
	"github.com/dom/task-manager/internal/notify"
	"github.com/dom/task-manager/internal/repository"
	"go.uber.org/zap"
)

type Services struct {
	Auth          *AuthService
	User          *UserService
	Task          *TaskService
	Tokens        *TokenIssuer
	RefreshTokens *RefreshTokenStore
}

// Deps are the collaborators shared by every service.
type Deps struct {
	Repos    *repository.Repositories
	Config   *config.Config
	Notifier notify.Notifier
	Feed     TaskFeed
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

func NewServices(deps Deps) (*Services, error) {
	hasher, err := NewPasswordHasher(deps.Config)
	if err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = noopNotifier{}
	}

	refresh := NewRefreshTokenStore(deps.Repos.RefreshToken, deps.Config.RefreshTokenTTL, deps.Metrics, logger.Named("refresh"))
	issuer := NewTokenIssuer(deps.Config, refresh, deps.Repos.User, logger.Named("tokens"))
	users := NewUserService(deps.Repos.User, deps.Repos.Task, refresh, hasher, notifier, deps.Feed, logger.Named("users"))
	tasks := NewTaskService(deps.Repos.Task, deps.Feed, logger.Named("tasks"))

	return &Services{
		Auth:          NewAuthService(users, issuer, refresh, notifier, deps.Config.AccessTokenTTL, deps.Metrics, logger.Named("auth")),
		User:          users,
		Task:          tasks,
		Tokens:        issuer,
		RefreshTokens: refresh,
	}, nil
}

type noopNotifier struct{}

func (noopNotifier) SendWelcome(context.Context, *domain.User) error      { return nil }
func (noopNotifier) SendCancellation(context.Context, *domain.User) error { return nil }
