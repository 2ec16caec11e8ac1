package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/task-manager/internal/domain"
	"github.com/dom/task-manager/internal/repository"
	"github.com/dom/task-manager/internal/repository/postgres"
	"github.com/dom/task-manager/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestUserRepository_Create(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	user := &domain.User{
		ID:           uuid.New(),
		Username:     "frodo",
		Email:        "frodo@shire.com",
		PasswordHash: "hashed",
	}
	require.NoError(t, repo.Create(ctx, user))
	assert.False(t, user.CreatedAt.IsZero())

	duplicate := &domain.User{
		ID:           uuid.New(),
		Username:     "impostor",
		Email:        "frodo@shire.com",
		PasswordHash: "hashed",
	}
	err := repo.Create(ctx, duplicate)
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
}

func TestUserRepository_Get(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	existing, _ := testutil.NewUserBuilder().WithEmail("sam@shire.com").Build(t, testDB.DB)

	byID, err := repo.GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "sam@shire.com", byID.Email)

	byEmail, err := repo.GetByEmail(ctx, "sam@shire.com")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, byEmail.ID)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.GetByEmail(ctx, "nobody@shire.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_Update(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
	other, _ := testutil.NewUserBuilder().WithEmail("taken@shire.com").Build(t, testDB.DB)

	birthday := datatypes.Date(time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC))
	user.Username = "renamed"
	user.Birthday = &birthday
	user.Avatar = []byte{0x89, 'P', 'N', 'G'}
	require.NoError(t, repo.Update(ctx, user))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Username)
	require.NotNil(t, got.Birthday)
	assert.Equal(t, "1990-01-02", time.Time(*got.Birthday).Format("2006-01-02"))
	assert.Equal(t, user.Avatar, got.Avatar)

	// Clearing optional columns must be persisted too.
	got.Birthday = nil
	got.Avatar = nil
	require.NoError(t, repo.Update(ctx, got))

	cleared, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, cleared.Birthday)
	assert.Empty(t, cleared.Avatar)

	cleared.Email = other.Email
	assert.ErrorIs(t, repo.Update(ctx, cleared), repository.ErrDuplicateEmail)

	missing := *cleared
	missing.ID = uuid.New()
	missing.Email = "ghost@shire.com"
	assert.ErrorIs(t, repo.Update(ctx, &missing), repository.ErrNotFound)
}

func TestUserRepository_DeleteCascade(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	ctx := context.Background()

	leaver, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
	stayer, _ := testutil.NewUserBuilder().Build(t, testDB.DB)

	for _, owner := range []uuid.UUID{leaver.ID, leaver.ID, stayer.ID} {
		require.NoError(t, repos.Task.Create(ctx, &domain.Task{ID: uuid.New(), Description: "task", OwnerID: owner}))
		_, err := repos.RefreshToken.Generate(ctx, owner, time.Now().Add(time.Hour))
		require.NoError(t, err)
	}

	require.NoError(t, repos.User.DeleteCascade(ctx, leaver.ID))

	_, err := repos.User.GetByID(ctx, leaver.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	tasks, err := repos.Task.ListForOwner(ctx, leaver.ID, domain.TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)

	tokens, err := repos.RefreshToken.ListByUser(ctx, leaver.ID)
	require.NoError(t, err)
	assert.Empty(t, tokens)

	tasks, err = repos.Task.ListForOwner(ctx, stayer.ID, domain.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	assert.ErrorIs(t, repos.User.DeleteCascade(ctx, leaver.ID), repository.ErrNotFound)
}
