// Package memory keeps every store in process memory. It backs local
// development (STORE_DRIVER=memory) and the handler tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dom/task-manager/internal/domain"
	"github.com/dom/task-manager/internal/repository"
	"github.com/google/uuid"
)

// Store holds all three collections behind one lock so a cascading delete is
// atomic with respect to readers.
type Store struct {
	mu            sync.RWMutex
	users         map[uuid.UUID]*domain.User
	tasks         map[uuid.UUID]*domain.Task
	refreshTokens map[uuid.UUID]*domain.RefreshToken
	taskSeq       map[uuid.UUID]uint64
	seq           uint64
	now           func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:         make(map[uuid.UUID]*domain.User),
		tasks:         make(map[uuid.UUID]*domain.Task),
		refreshTokens: make(map[uuid.UUID]*domain.RefreshToken),
		taskSeq:       make(map[uuid.UUID]uint64),
		now:           time.Now,
	}
}

func NewRepositories(s *Store) *repository.Repositories {
	return &repository.Repositories{
		User:         &userRepository{s},
		Task:         &taskRepository{s},
		RefreshToken: &refreshTokenRepository{s},
	}
}

type userRepository struct{ s *Store }

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	now := r.s.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.s.users[user.ID] = cloneUser(user)
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, u := range r.s.users {
		if id != user.ID && u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	stored := cloneUser(user)
	stored.CreatedAt = existing.CreatedAt
	r.s.users[user.ID] = stored
	return nil
}

func (r *userRepository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	for tid, t := range r.s.tasks {
		if t.OwnerID == id {
			delete(r.s.tasks, tid)
			delete(r.s.taskSeq, tid)
		}
	}
	for rid, rt := range r.s.refreshTokens {
		if rt.UserID == id {
			delete(r.s.refreshTokens, rid)
		}
	}
	delete(r.s.users, id)
	return nil
}

type taskRepository struct{ s *Store }

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	task.CreatedAt = now
	task.UpdatedAt = now
	t := *task
	r.s.tasks[task.ID] = &t
	r.s.seq++
	r.s.taskSeq[task.ID] = r.s.seq
	return nil
}

func (r *taskRepository) GetForOwner(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return nil, repository.ErrNotFound
	}
	out := *t
	return &out, nil
}

func (r *taskRepository) ListForOwner(ctx context.Context, ownerID uuid.UUID, filter domain.TaskFilter) ([]*domain.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	tasks := []*domain.Task{}
	for _, t := range r.s.tasks {
		if t.OwnerID != ownerID {
			continue
		}
		if filter.Completed != nil && t.Completed != *filter.Completed {
			continue
		}
		out := *t
		tasks = append(tasks, &out)
	}

	// Insertion order breaks timestamp ties.
	sort.Slice(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		switch filter.Sort {
		case domain.SortAsc:
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.Before(b.UpdatedAt)
			}
		case domain.SortDesc:
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.After(b.UpdatedAt)
			}
			return r.s.taskSeq[a.ID] > r.s.taskSeq[b.ID]
		}
		return r.s.taskSeq[a.ID] < r.s.taskSeq[b.ID]
	})

	if filter.Skip >= len(tasks) {
		return []*domain.Task{}, nil
	}
	tasks = tasks[filter.Skip:]
	if filter.Limit > 0 && filter.Limit < len(tasks) {
		tasks = tasks[:filter.Limit]
	}
	return tasks, nil
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.tasks[task.ID]
	if !ok || existing.OwnerID != task.OwnerID {
		return repository.ErrNotFound
	}
	existing.Description = task.Description
	existing.Completed = task.Completed
	existing.UpdatedAt = r.s.now()
	task.UpdatedAt = existing.UpdatedAt
	return nil
}

func (r *taskRepository) DeleteForOwner(ctx context.Context, id, ownerID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return repository.ErrNotFound
	}
	delete(r.s.tasks, id)
	delete(r.s.taskSeq, id)
	return nil
}

func (r *taskRepository) DeleteAllForOwner(ctx context.Context, ownerID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, t := range r.s.tasks {
		if t.OwnerID == ownerID {
			delete(r.s.tasks, id)
			delete(r.s.taskSeq, id)
		}
	}
	return nil
}

type refreshTokenRepository struct{ s *Store }

func (r *refreshTokenRepository) Generate(ctx context.Context, userID uuid.UUID, expiresAt time.Time) (*domain.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	token := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: r.s.now(),
	}
	stored := *token
	r.s.refreshTokens[token.ID] = &stored
	return token, nil
}

func (r *refreshTokenRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.refreshTokens[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *t
	return &out, nil
}

func (r *refreshTokenRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var tokens []*domain.RefreshToken
	for _, t := range r.s.refreshTokens {
		if t.UserID == userID {
			out := *t
			tokens = append(tokens, &out)
		}
	}
	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].CreatedAt.Before(tokens[j].CreatedAt)
	})
	return tokens, nil
}

func (r *refreshTokenRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.refreshTokens, id)
	return nil
}

func (r *refreshTokenRepository) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, t := range r.s.refreshTokens {
		if t.UserID == userID {
			delete(r.s.refreshTokens, id)
		}
	}
	return nil
}

func cloneUser(u *domain.User) *domain.User {
	out := *u
	if u.Avatar != nil {
		out.Avatar = append([]byte(nil), u.Avatar...)
	}
	if u.Birthday != nil {
		b := *u.Birthday
		out.Birthday = &b
	}
	out.Tasks = nil
	out.RefreshTokens = nil
	return &out
}
