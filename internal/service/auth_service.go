package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dom/task-manager/internal/domain"
	"github.com/dom/task-manager/internal/metrics"
	"github.com/dom/task-manager/internal/notify"
	"go.uber.org/zap"
)

type AuthResult struct {
	User         *domain.User
	AccessToken  string
	RefreshToken *IssuedRefreshToken
}

type AuthService struct {
	users      *UserService
	issuer     *TokenIssuer
	refresh    *RefreshTokenStore
	notifier   notify.Notifier
	sessionTTL time.Duration
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func NewAuthService(
	users *UserService,
	issuer *TokenIssuer,
	refresh *RefreshTokenStore,
	notifier notify.Notifier,
	sessionTTL time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) *AuthService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &AuthService{
		users:      users,
		issuer:     issuer,
		refresh:    refresh,
		notifier:   notifier,
		sessionTTL: sessionTTL,
		metrics:    m,
		logger:     logger,
	}
}

func (s *AuthService) fail(reason string) {
	if s.metrics != nil {
		s.metrics.AuthFailures.WithLabelValues(reason).Inc()
	}
}

// Authenticate resolves the user behind an Authorization header. A bad
// token and a token whose user no longer exists fail the same way.
func (s *AuthService) Authenticate(ctx context.Context, header string) (*domain.User, error) {
	if strings.TrimSpace(header) == "" {
		s.fail("token_missing")
		return nil, domain.ErrTokenMissing
	}

	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		s.fail("malformed_header")
		return nil, domain.ErrPleaseAuthenticate
	}
	return s.AuthenticateToken(ctx, parts[1])
}

// AuthenticateToken is Authenticate for a bare token.
func (s *AuthService) AuthenticateToken(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		s.fail("token_missing")
		return nil, domain.ErrTokenMissing
	}

	userID, err := s.issuer.VerifyAccessToken(token)
	if err != nil {
		s.fail("invalid_token")
		return nil, domain.ErrPleaseAuthenticate
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		s.fail("unknown_subject")
		return nil, domain.ErrPleaseAuthenticate
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Signup(ctx context.Context, input CreateUserInput) (*AuthResult, error) {
	user, err := s.users.Create(ctx, input)
	if err != nil {
		return nil, err
	}

	result, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}

	welcome := *user
	go func() {
		if err := s.notifier.SendWelcome(context.Background(), &welcome); err != nil {
			s.logger.Warn("welcome email failed", zap.String("user_id", welcome.ID.String()), zap.Error(err))
		}
	}()

	s.logger.Info("user signed up", zap.String("user_id", user.ID.String()))
	return result, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByCredentials(ctx, email, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			s.fail("invalid_credentials")
		}
		return nil, err
	}
	return s.startSession(ctx, user)
}

// Refresh exchanges a refresh token id for a short-lived access token.
func (s *AuthService) Refresh(ctx context.Context, refreshTokenID string) (string, error) {
	token, err := s.issuer.ExchangeRefreshToken(ctx, refreshTokenID)
	if err != nil && errors.Is(err, domain.ErrAuthentication) {
		s.fail("invalid_refresh_token")
	}
	return token, err
}

func (s *AuthService) startSession(ctx context.Context, user *domain.User) (*AuthResult, error) {
	access, err := s.issuer.IssueAccessToken(user.ID, s.sessionTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := s.issuer.IssueRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if _, err := s.refresh.DeleteExpired(ctx, user.ID); err != nil {
		return nil, err
	}

	return &AuthResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}
