package dto

import (
	"errors"

	"github.com/mertokas/tasknest-backend/internal/models"
)

type CreateTaskRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      models.TaskStatus `json:"status"`
}

func (r *CreateTaskRequest) Validate() error {
	if len(r.Title) < 3 || len(r.Title) > 100 {
		return errors.New("title must be between 3 and 100 characters")
	}
	if r.Status == "" {
		r.Status = models.TaskStatusPending
	}
	if !models.ValidTaskStatus(r.Status) {
		return errors.New("status must be one of PENDING, IN_PROGRESS, DONE")
	}
	return nil
}

// UpdateTaskRequest is a patch: nil fields are left untouched.
type UpdateTaskRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Status      *models.TaskStatus `json:"status"`
}

func (r *UpdateTaskRequest) Validate() error {
	if r.Title == nil && r.Description == nil && r.Status == nil {
		return errors.New("at least one field must be provided")
	}
	if r.Title != nil && (len(*r.Title) < 3 || len(*r.Title) > 100) {
		return errors.New("title must be between 3 and 100 characters")
	}
	if r.Status != nil && !models.ValidTaskStatus(*r.Status) {
		return errors.New("status must be one of PENDING, IN_PROGRESS, DONE")
	}
	return nil
}

type ListTasksQuery struct {
	Page   int
	Limit  int
	Search string
	Status models.TaskStatus
}

func (q *ListTasksQuery) Validate() error {
	if q.Page < 1 {
		return errors.New("page must be a positive number")
	}
	if q.Limit < 1 {
		return errors.New("limit must be a positive number")
	}
	if q.Status != "" && !models.ValidTaskStatus(q.Status) {
		return errors.New("status must be one of PENDING, IN_PROGRESS, DONE")
	}
	return nil
}

type TaskResponse struct {
	Message string       `json:"message"`
	Task    *models.Task `json:"task"`
}

type TaskListResponse struct {
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	Total      int64         `json:"total"`
	TotalPages int           `json:"totalPages"`
	Tasks      []models.Task `json:"tasks"`
}
