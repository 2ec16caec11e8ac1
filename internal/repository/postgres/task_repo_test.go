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
)

func TestTaskRepository_OwnerScoping(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewTaskRepository(testDB.DB)
	ctx := context.Background()

	owner, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
	intruder, _ := testutil.NewUserBuilder().Build(t, testDB.DB)

	task := &domain.Task{ID: uuid.New(), Description: "Protect Sam", OwnerID: owner.ID}
	require.NoError(t, repo.Create(ctx, task))

	got, err := repo.GetForOwner(ctx, task.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "Protect Sam", got.Description)
	assert.False(t, got.Completed)

	_, err = repo.GetForOwner(ctx, task.ID, intruder.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	hijack := *got
	hijack.OwnerID = intruder.ID
	hijack.Completed = true
	assert.ErrorIs(t, repo.Update(ctx, &hijack), repository.ErrNotFound)

	assert.ErrorIs(t, repo.DeleteForOwner(ctx, task.ID, intruder.ID), repository.ErrNotFound)

	got.Completed = true
	require.NoError(t, repo.Update(ctx, got))
	reloaded, err := repo.GetForOwner(ctx, task.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Completed)

	require.NoError(t, repo.DeleteForOwner(ctx, task.ID, owner.ID))
	_, err = repo.GetForOwner(ctx, task.ID, owner.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTaskRepository_ListForOwner(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewTaskRepository(testDB.DB)
	ctx := context.Background()

	owner, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
	other, _ := testutil.NewUserBuilder().Build(t, testDB.DB)

	for i, desc := range []string{"one", "two", "three"} {
		require.NoError(t, repo.Create(ctx, &domain.Task{
			ID:          uuid.New(),
			Description: desc,
			Completed:   i == 1,
			OwnerID:     owner.ID,
		}))
		time.Sleep(5 * time.Millisecond)
	}
	require.NoError(t, repo.Create(ctx, &domain.Task{ID: uuid.New(), Description: "theirs", OwnerID: other.ID}))

	names := func(tasks []*domain.Task) []string {
		out := []string{}
		for _, task := range tasks {
			out = append(out, task.Description)
		}
		return out
	}
	done := true

	tests := []struct {
		name   string
		filter domain.TaskFilter
		want   []string
	}{
		{"default", domain.TaskFilter{}, []string{"one", "two", "three"}},
		{"completed", domain.TaskFilter{Completed: &done}, []string{"two"}},
		{"desc", domain.TaskFilter{Sort: domain.SortDesc}, []string{"three", "two", "one"}},
		{"page", domain.TaskFilter{Limit: 1, Skip: 1}, []string{"two"}},
		{"past end", domain.TaskFilter{Skip: 5}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := repo.ListForOwner(ctx, owner.ID, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(tasks))
		})
	}

	require.NoError(t, repo.DeleteAllForOwner(ctx, owner.ID))
	tasks, err := repo.ListForOwner(ctx, owner.ID, domain.TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)

	tasks, err = repo.ListForOwner(ctx, other.ID, domain.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}
