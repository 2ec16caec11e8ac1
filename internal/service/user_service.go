package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dom/task-manager/internal/avatar"
	"github.com/dom/task-manager/internal/domain"
	"github.com/dom/task-manager/internal/notify"
	"github.com/dom/task-manager/internal/repository"
	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const dateLayout = "2006-01-02"

var ErrInvalidBirthday = domain.Validation("Date format must be YYYY-MM-DD")

var allowedUserUpdates = map[string]bool{
	"username": true,
	"email":    true,
	"birthday": true,
	"password": true,
}

type CreateUserInput struct {
	Username string
	Email    string
	Password string
	Birthday *time.Time
}

type userFields struct {
	Username string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=7"`
}

type userUpdateFields struct {
	Username string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"omitempty,min=7"`
}

// validationMessages maps field and tag to the message returned to clients.
var validationMessages = map[string]string{
	"Username.required": "username is required",
	"Email.required":    "email is required",
	"Email.email":       "Invalid email",
	"Password.required": "password is required",
	"Password.min":      "Password must be at least 7 characters",
}

type UserService struct {
	users         repository.UserRepository
	tasks         repository.TaskRepository
	refreshTokens *RefreshTokenStore
	hasher        PasswordHasher
	notifier      notify.Notifier
	feed          TaskFeed
	v             *validator.Validate
	logger        *zap.Logger
}

func NewUserService(
	users repository.UserRepository,
	tasks repository.TaskRepository,
	refreshTokens *RefreshTokenStore,
	hasher PasswordHasher,
	notifier notify.Notifier,
	feed TaskFeed,
	logger *zap.Logger,
) *UserService {
	if feed == nil {
		feed = noopFeed{}
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &UserService{
		users:         users,
		tasks:         tasks,
		refreshTokens: refreshTokens,
		hasher:        hasher,
		notifier:      notifier,
		feed:          feed,
		v:             validator.New(),
		logger:        logger,
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (s *UserService) validate(fields any) error {
	err := s.v.Struct(fields)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if msg, ok := validationMessages[verrs[0].Field()+"."+verrs[0].Tag()]; ok {
			return domain.Validation(msg)
		}
		return domain.Validation(fmt.Sprintf("Invalid %s", strings.ToLower(verrs[0].Field())))
	}
	return fmt.Errorf("validate user: %w", err)
}

// Create registers a new user. Username and email are stored trimmed and
// lower-cased.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	fields := userFields{
		Username: normalize(input.Username),
		Email:    normalize(input.Email),
		Password: input.Password,
	}
	if err := s.validate(fields); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, fields.Email); err == nil {
		return nil, domain.ErrEmailInUse
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := s.hasher.Hash(fields.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Username:     fields.Username,
		Email:        fields.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if input.Birthday != nil {
		d := datatypes.Date(*input.Birthday)
		user.Birthday = &d
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, domain.ErrEmailInUse
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// FindByCredentials returns the user owning email if password matches. An
// unknown email and a wrong password fail identically.
func (s *UserService) FindByCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, normalize(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	ok, err := s.hasher.Compare(user.PasswordHash, password)
	if err != nil {
		s.logger.Warn("password comparison failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		return nil, domain.ErrInvalidCredentials
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Update applies fields to user. Keys outside the allow-list reject the
// whole request before anything changes.
func (s *UserService) Update(ctx context.Context, user *domain.User, fields map[string]any) (*domain.User, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !allowedUserUpdates[k] {
			return nil, domain.Validation("Invalid update: " + k)
		}
	}

	updated := *user
	newPassword := ""
	passwordSet := false

	for _, k := range keys {
		value := fields[k]
		switch k {
		case "birthday":
			if value == nil {
				updated.Birthday = nil
				continue
			}
			raw, ok := value.(string)
			if !ok {
				return nil, ErrInvalidBirthday
			}
			t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
			if err != nil {
				return nil, ErrInvalidBirthday
			}
			d := datatypes.Date(t)
			updated.Birthday = &d
		default:
			raw, ok := value.(string)
			if !ok {
				return nil, domain.Validation(fmt.Sprintf("Invalid value for %s", k))
			}
			switch k {
			case "username":
				updated.Username = normalize(raw)
			case "email":
				updated.Email = normalize(raw)
			case "password":
				newPassword = raw
				passwordSet = true
			}
		}
	}

	if passwordSet && newPassword == "" {
		return nil, domain.Validation(validationMessages["Password.required"])
	}
	check := userUpdateFields{Username: updated.Username, Email: updated.Email, Password: newPassword}
	if err := s.validate(check); err != nil {
		return nil, err
	}

	if updated.Email != user.Email {
		existing, err := s.users.GetByEmail(ctx, updated.Email)
		if err == nil && existing.ID != user.ID {
			return nil, domain.ErrEmailInUse
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("check email: %w", err)
		}
	}

	if passwordSet {
		hash, err := s.hasher.Hash(newPassword)
		if err != nil {
			return nil, err
		}
		updated.PasswordHash = hash
	}
	updated.UpdatedAt = time.Now()

	if err := s.save(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *UserService) save(ctx context.Context, user *domain.User) error {
	err := s.users.Update(ctx, user)
	switch {
	case errors.Is(err, repository.ErrDuplicateEmail):
		return domain.ErrEmailInUse
	case errors.Is(err, repository.ErrNotFound):
		return domain.ErrUserNotFound
	case err != nil:
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// Delete removes the user with every task and refresh token it owns.
func (s *UserService) Delete(ctx context.Context, user *domain.User) error {
	if err := s.tasks.DeleteAllForOwner(ctx, user.ID); err != nil {
		return fmt.Errorf("delete tasks: %w", err)
	}
	if err := s.refreshTokens.DeleteAllForUser(ctx, user.ID); err != nil {
		return fmt.Errorf("delete refresh tokens: %w", err)
	}
	if err := s.users.DeleteCascade(ctx, user.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}

	s.feed.DisconnectUser(user.ID)

	deleted := *user
	go func() {
		if err := s.notifier.SendCancellation(context.Background(), &deleted); err != nil {
			s.logger.Warn("cancellation email failed", zap.String("user_id", deleted.ID.String()), zap.Error(err))
		}
	}()

	s.logger.Info("user deleted", zap.String("user_id", user.ID.String()))
	return nil
}

// SetAvatar stores raw as the user's avatar after normalising it and returns
// the stored PNG.
func (s *UserService) SetAvatar(ctx context.Context, user *domain.User, raw []byte) ([]byte, error) {
	img, err := avatar.Normalize(raw)
	if errors.Is(err, avatar.ErrInvalidImage) {
		return nil, domain.Validation("Invalid image")
	}
	if err != nil {
		return nil, err
	}

	updated := *user
	updated.Avatar = img
	updated.UpdatedAt = time.Now()
	if err := s.save(ctx, &updated); err != nil {
		return nil, err
	}
	return img, nil
}

func (s *UserService) RemoveAvatar(ctx context.Context, user *domain.User) (*domain.User, error) {
	updated := *user
	updated.Avatar = nil
	updated.UpdatedAt = time.Now()
	if err := s.save(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Avatar returns the stored avatar of the user identified by rawID.
func (s *UserService) Avatar(ctx context.Context, rawID string) ([]byte, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(user.Avatar) == 0 {
		return nil, domain.ErrAvatarNotFound
	}
	return user.Avatar, nil
}
