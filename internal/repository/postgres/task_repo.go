package postgres

import (
	"context"

	"github.com/dom/task-manager/internal/domain"
	"github.com/dom/task-manager/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *taskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *taskRepository) GetForOwner(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error) {
	var task domain.Task
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&task).Error
	if err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

func (r *taskRepository) ListForOwner(ctx context.Context, ownerID uuid.UUID, filter domain.TaskFilter) ([]*domain.Task, error) {
	query := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)

	if filter.Completed != nil {
		query = query.Where("completed = ?", *filter.Completed)
	}

	switch filter.Sort {
	case domain.SortAsc:
		query = query.Order("updated_at ASC")
	case domain.SortDesc:
		query = query.Order("updated_at DESC")
	default:
		query = query.Order("created_at ASC")
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Skip > 0 {
		query = query.Offset(filter.Skip)
	}

	tasks := []*domain.Task{}
	if err := query.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	res := r.db.WithContext(ctx).
		Model(task).
		Where("owner_id = ?", task.OwnerID).
		Select("Description", "Completed", "UpdatedAt").
		Updates(task)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *taskRepository) DeleteForOwner(ctx context.Context, id, ownerID uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&domain.Task{}, "id = ? AND owner_id = ?", id, ownerID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *taskRepository) DeleteAllForOwner(ctx context.Context, ownerID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&domain.Task{}).Error
}

var _ repository.TaskRepository = (*taskRepository)(nil)
