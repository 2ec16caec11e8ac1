package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dom/task-manager/internal/domain"
	"github.com/dom/task-manager/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrDescriptionRequired = domain.Validation("description is required")

var allowedTaskUpdates = map[string]bool{
	"description": true,
	"completed":   true,
}

// TaskFeed receives task changes for delivery to the owner's live
// connections.
type TaskFeed interface {
	Publish(event domain.TaskEvent, task *domain.Task)
	DisconnectUser(userID uuid.UUID)
}

type noopFeed struct{}

func (noopFeed) Publish(domain.TaskEvent, *domain.Task) {}
func (noopFeed) DisconnectUser(uuid.UUID)               {}

// TaskService scopes every task operation to the calling owner. A task owned
// by someone else behaves exactly like a missing one.
type TaskService struct {
	tasks  repository.TaskRepository
	feed   TaskFeed
	logger *zap.Logger
}

func NewTaskService(tasks repository.TaskRepository, feed TaskFeed, logger *zap.Logger) *TaskService {
	if feed == nil {
		feed = noopFeed{}
	}
	return &TaskService{tasks: tasks, feed: feed, logger: logger}
}

func (s *TaskService) Create(ctx context.Context, owner *domain.User, description string, completed *bool) (*domain.Task, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrDescriptionRequired
	}

	task := &domain.Task{
		ID:          uuid.New(),
		Description: description,
		OwnerID:     owner.ID,
	}
	if completed != nil {
		task.Completed = *completed
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.feed.Publish(domain.TaskCreated, task)
	return task, nil
}

func (s *TaskService) List(ctx context.Context, owner *domain.User, filter domain.TaskFilter) ([]*domain.Task, error) {
	switch filter.Sort {
	case domain.SortNone, domain.SortAsc, domain.SortDesc:
	default:
		return nil, domain.Validation("Sort option must be 'asc' or 'desc'")
	}
	if filter.Limit < 0 {
		return nil, domain.Validation("Limit must be a non-negative integer")
	}
	if filter.Skip < 0 {
		return nil, domain.Validation("Skip must be a non-negative integer")
	}

	tasks, err := s.tasks.ListForOwner(ctx, owner.ID, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) get(ctx context.Context, owner *domain.User, rawID string) (*domain.Task, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, domain.ErrTaskNotFound
	}
	task, err := s.tasks.GetForOwner(ctx, id, owner.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	return task, nil
}

// Update applies fields to the owner's task. Any key outside the allow-list
// rejects the whole request.
func (s *TaskService) Update(ctx context.Context, owner *domain.User, taskID string, fields map[string]any) (*domain.Task, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !allowedTaskUpdates[k] {
			return nil, domain.Validation("Invalid update: " + k)
		}
	}

	task, err := s.get(ctx, owner, taskID)
	if err != nil {
		return nil, err
	}

	for _, k := range keys {
		switch k {
		case "description":
			raw, ok := fields[k].(string)
			if !ok {
				return nil, domain.Validation("Invalid value for description")
			}
			raw = strings.TrimSpace(raw)
			if raw == "" {
				return nil, ErrDescriptionRequired
			}
			task.Description = raw
		case "completed":
			done, ok := fields[k].(bool)
			if !ok {
				return nil, domain.Validation("Invalid value for completed")
			}
			task.Completed = done
		}
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	s.feed.Publish(domain.TaskUpdated, task)
	return task, nil
}

// Delete removes the owner's task and returns its last state.
func (s *TaskService) Delete(ctx context.Context, owner *domain.User, taskID string) (*domain.Task, error) {
	task, err := s.get(ctx, owner, taskID)
	if err != nil {
		return nil, err
	}

	if err := s.tasks.DeleteForOwner(ctx, task.ID, owner.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("delete task: %w", err)
	}
	s.feed.Publish(domain.TaskDeleted, task)
	return task, nil
}
