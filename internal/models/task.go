package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
)

// ValidTaskStatus reports whether s is one of the three known statuses.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// Next returns the status the toggle endpoint cycles to.
func (s TaskStatus) Next() TaskStatus {
	switch s {
	case TaskStatusPending:
		return TaskStatusInProgress
	case TaskStatusInProgress:
		return TaskStatusDone
	case TaskStatusDone:
		return TaskStatusPending
	default:
		return TaskStatusPending
	}
}

type Task struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string         `gorm:"not null;size:100" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Status      TaskStatus     `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	OwnerID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner       User           `gorm:"foreignKey:OwnerID" json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
