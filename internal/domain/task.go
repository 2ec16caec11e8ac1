package domain

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Description string    `json:"description" gorm:"not null"`
	Completed   bool      `json:"completed" gorm:"not null;default:false"`
	OwnerID     uuid.UUID `json:"owner" gorm:"type:uuid;not null;index"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type SortOrder string

const (
	SortNone SortOrder = ""
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// TaskFilter narrows a task listing. The owner is never part of the filter;
// it is always applied by the caller from the authenticated identity.
type TaskFilter struct {
	Completed *bool
	Sort      SortOrder
	Limit     int // 0 means no limit
	Skip      int
}

// TaskEvent names a change pushed to the owner's live feed.
type TaskEvent string

const (
	TaskCreated TaskEvent = "TASK_CREATED"
	TaskUpdated TaskEvent = "TASK_UPDATED"
	TaskDeleted TaskEvent = "TASK_DELETED"
)
