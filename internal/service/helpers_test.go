package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/dom/task-manager/internal/domain"
	"github.com/dom/task-manager/internal/repository"
	"github.com/dom/task-manager/internal/repository/memory"
	"github.com/dom/task-manager/internal/service"
	"github.com/dom/task-manager/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type publishedEvent struct {
	event domain.TaskEvent
	task  domain.Task
}

// recordingFeed captures everything the services push to the live feed.
type recordingFeed struct {
	mu           sync.Mutex
	events       []publishedEvent
	disconnected []uuid.UUID
}

func (f *recordingFeed) Publish(event domain.TaskEvent, task *domain.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{event: event, task: *task})
}

func (f *recordingFeed) DisconnectUser(userID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = append(f.disconnected, userID)
}

func (f *recordingFeed) Events() []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publishedEvent(nil), f.events...)
}

func (f *recordingFeed) Disconnected() []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID(nil), f.disconnected...)
}

type recordingNotifier struct {
	mu        sync.Mutex
	welcomed  []string
	cancelled []string
}

func (n *recordingNotifier) SendWelcome(_ context.Context, user *domain.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomed = append(n.welcomed, user.Email)
	return nil
}

func (n *recordingNotifier) SendCancellation(_ context.Context, user *domain.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, user.Email)
	return nil
}

func (n *recordingNotifier) Welcomed() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.welcomed...)
}

func (n *recordingNotifier) Cancelled() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.cancelled...)
}

type fixture struct {
	repos    *repository.Repositories
	services *service.Services
	feed     *recordingFeed
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repos := memory.NewRepositories(memory.NewStore())
	feed := &recordingFeed{}
	return &fixture{
		repos:    repos,
		services: testutil.NewTestServices(t, repos, feed),
		feed:     feed,
	}
}

func (f *fixture) createUser(t *testing.T, email string) *domain.User {
	t.Helper()

	user, err := f.services.User.Create(context.Background(), service.CreateUserInput{
		Username: "someone",
		Email:    email,
		Password: "password123",
	})
	require.NoError(t, err)
	return user
}
