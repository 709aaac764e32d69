package services

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/mertokas/tasknest-backend/internal/dto"
	"github.com/mertokas/tasknest-backend/internal/models"
	"gorm.io/gorm"
)

// ErrTaskNotFound covers both a missing task and a task owned by someone
// else; callers cannot tell the two apart.
var ErrTaskNotFound = errors.New("task not found")

type TaskService struct {
	db *gorm.DB
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{db: db}
}

func (s *TaskService) Create(ownerID uuid.UUID, req *dto.CreateTaskRequest) (*models.Task, error) {
	task := models.Task{
		ID:          uuid.New(),
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		OwnerID:     ownerID,
	}

	if err := s.db.Create(&task).Error; err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return &task, nil
}

func (s *TaskService) List(ownerID uuid.UUID, q *dto.ListTasksQuery) (*dto.TaskListResponse, error) {
	query := s.db.Model(&models.Task{}).Where("owner_id = ?", ownerID)

	if q.Search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+likePattern(q.Search)+"%")
	}
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	var tasks []models.Task
	offset := (q.Page - 1) * q.Limit
	if err := query.Order("created_at DESC").Limit(q.Limit).Offset(offset).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return &dto.TaskListResponse{
		Page:       q.Page,
		Limit:      q.Limit,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(q.Limit))),
		Tasks:      tasks,
	}, nil
}

func (s *TaskService) Get(ownerID, taskID uuid.UUID) (*models.Task, error) {
	return s.findOwned(ownerID, taskID)
}

func (s *TaskService) Update(ownerID, taskID uuid.UUID, req *dto.UpdateTaskRequest) (*models.Task, error) {
	task, err := s.findOwned(ownerID, taskID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}

	if err := s.db.Model(task).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return task, nil
}

func (s *TaskService) Delete(ownerID, taskID uuid.UUID) error {
	task, err := s.findOwned(ownerID, taskID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(task).Error; err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// ToggleStatus advances the task through PENDING → IN_PROGRESS → DONE and
// back around.
func (s *TaskService) ToggleStatus(ownerID, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.findOwned(ownerID, taskID)
	if err != nil {
		return nil, err
	}

	next := task.Status.Next()
	if err := s.db.Model(task).Update("status", next).Error; err != nil {
		return nil, fmt.Errorf("failed to toggle task status: %w", err)
	}
	return task, nil
}

// likePattern lowercases the search term and escapes LIKE wildcards so
// user input is matched literally.
func likePattern(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

func (s *TaskService) findOwned(ownerID, taskID uuid.UUID) (*models.Task, error) {
	var task models.Task
	err := s.db.Where("id = ? AND owner_id = ?", taskID, ownerID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to fetch task: %w", err)
	}
	return &task, nil
}
