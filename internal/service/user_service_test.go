package service_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/dom/task-manager/internal/avatar"
	"github.com/dom/task-manager/internal/domain"
	"github.com/dom/task-manager/internal/metrics"
	"github.com/dom/task-manager/internal/repository/memory"
	"github.com/dom/task-manager/internal/service"
	"github.com/dom/task-manager/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUserService_Create(t *testing.T) {
	ctx := context.Background()
	birthday := time.Date(1990, 4, 12, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		input   service.CreateUserInput
		wantErr string
	}{
		{
			name:  "normalises username and email",
			input: service.CreateUserInput{Username: "  Alice ", Email: " Alice@Example.COM ", Password: "password123", Birthday: &birthday},
		},
		{
			name:    "missing username",
			input:   service.CreateUserInput{Email: "a@example.com", Password: "password123"},
			wantErr: "username is required",
		},
		{
			name:    "missing email",
			input:   service.CreateUserInput{Username: "alice", Password: "password123"},
			wantErr: "email is required",
		},
		{
			name:    "invalid email",
			input:   service.CreateUserInput{Username: "alice", Email: "not-an-email", Password: "password123"},
			wantErr: "Invalid email",
		},
		{
			name:    "missing password",
			input:   service.CreateUserInput{Username: "alice", Email: "a@example.com"},
			wantErr: "password is required",
		},
		{
			name:    "short password",
			input:   service.CreateUserInput{Username: "alice", Email: "a@example.com", Password: "123456"},
			wantErr: "Password must be at least 7 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			user, err := f.services.User.Create(ctx, tt.input)
			if tt.wantErr != "" {
				assert.ErrorIs(t, err, domain.ErrValidation)
				assert.EqualError(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "alice", user.Username)
			assert.Equal(t, "alice@example.com", user.Email)
			assert.NotEqual(t, "password123", user.PasswordHash)
			require.NotNil(t, user.Birthday)
			assert.Equal(t, birthday, time.Time(*user.Birthday))

			stored, err := f.repos.User.GetByEmail(ctx, "alice@example.com")
			require.NoError(t, err)
			assert.Equal(t, user.ID, stored.ID)
		})
	}
}

func TestUserService_CreateDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createUser(t, "dup@example.com")

	_, err := f.services.User.Create(ctx, service.CreateUserInput{
		Username: "other",
		Email:    "DUP@example.com",
		Password: "password123",
	})
	assert.ErrorIs(t, err, domain.ErrEmailInUse)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUserService_FindByCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "creds@example.com")

	found, err := f.services.User.FindByCredentials(ctx, " Creds@Example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, wrongPassword := f.services.User.FindByCredentials(ctx, "creds@example.com", "wrong-password")
	_, unknownEmail := f.services.User.FindByCredentials(ctx, "nobody@example.com", "password123")

	assert.ErrorIs(t, wrongPassword, domain.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, domain.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestUserService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("applies allowed fields", func(t *testing.T) {
		f := newFixture(t)
		user := f.createUser(t, "update@example.com")

		updated, err := f.services.User.Update(ctx, user, map[string]any{
			"username": "  NewName ",
			"birthday": "1985-01-31",
		})
		require.NoError(t, err)
		assert.Equal(t, "newname", updated.Username)
		require.NotNil(t, updated.Birthday)
		assert.Equal(t, "1985-01-31", time.Time(*updated.Birthday).Format("2006-01-02"))
		assert.Equal(t, user.PasswordHash, updated.PasswordHash)

		stored, err := f.services.User.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "newname", stored.Username)
	})

	t.Run("unknown key rejects the whole request", func(t *testing.T) {
		f := newFixture(t)
		user := f.createUser(t, "owner@example.com")

		_, err := f.services.User.Update(ctx, user, map[string]any{
			"username": "changed",
			"_id":      "x",
		})
		assert.EqualError(t, err, "Invalid update: _id")

		stored, err := f.services.User.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "someone", stored.Username)
	})

	t.Run("password is re-hashed", func(t *testing.T) {
		f := newFixture(t)
		user := f.createUser(t, "rehash@example.com")

		updated, err := f.services.User.Update(ctx, user, map[string]any{"password": "brand-new-pass"})
		require.NoError(t, err)
		assert.NotEqual(t, user.PasswordHash, updated.PasswordHash)

		_, err = f.services.User.FindByCredentials(ctx, "rehash@example.com", "password123")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		_, err = f.services.User.FindByCredentials(ctx, "rehash@example.com", "brand-new-pass")
		assert.NoError(t, err)
	})

	t.Run("birthday can be cleared", func(t *testing.T) {
		f := newFixture(t)
		user := f.createUser(t, "bday@example.com")

		updated, err := f.services.User.Update(ctx, user, map[string]any{"birthday": "2000-02-29"})
		require.NoError(t, err)
		require.NotNil(t, updated.Birthday)

		cleared, err := f.services.User.Update(ctx, updated, map[string]any{"birthday": nil})
		require.NoError(t, err)
		assert.Nil(t, cleared.Birthday)
	})

	t.Run("email taken by someone else", func(t *testing.T) {
		f := newFixture(t)
		f.createUser(t, "taken@example.com")
		user := f.createUser(t, "mine@example.com")

		_, err := f.services.User.Update(ctx, user, map[string]any{"email": "Taken@example.com"})
		assert.ErrorIs(t, err, domain.ErrEmailInUse)
	})

	invalid := []struct {
		name    string
		fields  map[string]any
		wantErr string
	}{
		{"bad birthday", map[string]any{"birthday": "12/31/1990"}, "Date format must be YYYY-MM-DD"},
		{"birthday not a string", map[string]any{"birthday": 1990}, "Date format must be YYYY-MM-DD"},
		{"short password", map[string]any{"password": "abc"}, "Password must be at least 7 characters"},
		{"empty password", map[string]any{"password": ""}, "password is required"},
		{"invalid email", map[string]any{"email": "nope"}, "Invalid email"},
		{"blank username", map[string]any{"username": "   "}, "username is required"},
		{"username not a string", map[string]any{"username": 42.0}, "Invalid value for username"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			user := f.createUser(t, "invalid@example.com")

			_, err := f.services.User.Update(ctx, user, tt.fields)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestUserService_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositories(memory.NewStore())
	feed := &recordingFeed{}
	notifier := &recordingNotifier{}

	services, err := service.NewServices(service.Deps{
		Repos:    repos,
		Config:   testutil.TestConfig(),
		Notifier: notifier,
		Feed:     feed,
		Metrics:  metrics.New(),
		Logger:   zap.NewNop(),
	})
	require.NoError(t, err)

	result, err := services.Auth.Signup(ctx, service.CreateUserInput{
		Username: "leaver",
		Email:    "leaver@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	user := result.User

	survivor, err := services.Auth.Signup(ctx, service.CreateUserInput{
		Username: "stayer",
		Email:    "stayer@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	_, err = services.Task.Create(ctx, user, "first", nil)
	require.NoError(t, err)
	_, err = services.Task.Create(ctx, user, "second", nil)
	require.NoError(t, err)
	kept, err := services.Task.Create(ctx, survivor.User, "not mine", nil)
	require.NoError(t, err)

	require.NoError(t, services.User.Delete(ctx, user))

	_, err = services.User.GetByID(ctx, user.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	tasks, err := repos.Task.ListForOwner(ctx, user.ID, domain.TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)

	tokens, err := repos.RefreshToken.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, tokens)

	_, err = repos.Task.GetForOwner(ctx, kept.ID, survivor.User.ID)
	assert.NoError(t, err)

	assert.Equal(t, []uuid.UUID{user.ID}, feed.Disconnected())
	require.Eventually(t, func() bool {
		return len(notifier.Cancelled()) == 1 && len(notifier.Welcomed()) == 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"leaver@example.com"}, notifier.Cancelled())
	assert.ElementsMatch(t, []string{"leaver@example.com", "stayer@example.com"}, notifier.Welcomed())
}

func testImage(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestUserService_Avatar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "avatar@example.com")

	_, err := f.services.User.Avatar(ctx, user.ID.String())
	assert.ErrorIs(t, err, domain.ErrAvatarNotFound)

	stored, err := f.services.User.SetAvatar(ctx, user, testImage(t, 40, 20))
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(stored))
	require.NoError(t, err)
	assert.Equal(t, avatar.Size, decoded.Bounds().Dx())
	assert.Equal(t, avatar.Size, decoded.Bounds().Dy())

	got, err := f.services.User.Avatar(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, stored, got)

	_, err = f.services.User.SetAvatar(ctx, user, []byte("definitely not an image"))
	assert.EqualError(t, err, "Invalid image")

	current, err := f.services.User.GetByID(ctx, user.ID)
	require.NoError(t, err)
	_, err = f.services.User.RemoveAvatar(ctx, current)
	require.NoError(t, err)

	_, err = f.services.User.Avatar(ctx, user.ID.String())
	assert.ErrorIs(t, err, domain.ErrAvatarNotFound)

	_, err = f.services.User.Avatar(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	_, err = f.services.User.Avatar(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
