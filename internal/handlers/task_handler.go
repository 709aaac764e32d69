package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/mertokas/tasknest-backend/internal/dto"
	"github.com/mertokas/tasknest-backend/internal/identity"
	"github.com/mertokas/tasknest-backend/internal/models"
	"github.com/mertokas/tasknest-backend/internal/services"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

func (h *TaskHandler) Create(c *fiber.Ctx) error {
	ownerID, err := identity.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	task, err := h.taskService.Create(ownerID, &req)
	if err != nil {
		slog.Error("task create failed", "action", "tasks.create", "user_id", ownerID.String(), "error", err)
		return internalError(c)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.TaskResponse{
		Message: "Task created successfully",
		Task:    task,
	})
}

func (h *TaskHandler) List(c *fiber.Ctx) error {
	ownerID, err := identity.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	q := dto.ListTasksQuery{
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 10),
		Search: c.Query("search"),
		Status: models.TaskStatus(c.Query("status")),
	}
	if err := q.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.taskService.List(ownerID, &q)
	if err != nil {
		slog.Error("task list failed", "action", "tasks.list", "user_id", ownerID.String(), "error", err)
		return internalError(c)
	}

	return c.JSON(resp)
}

func (h *TaskHandler) Get(c *fiber.Ctx) error {
	ownerID, err := identity.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid task ID")
	}

	task, err := h.taskService.Get(ownerID, taskID)
	if err != nil {
		return h.taskError(c, "tasks.get", ownerID, err)
	}

	return c.JSON(task)
}

func (h *TaskHandler) Update(c *fiber.Ctx) error {
	ownerID, err := identity.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid task ID")
	}

	var req dto.UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	task, err := h.taskService.Update(ownerID, taskID, &req)
	if err != nil {
		return h.taskError(c, "tasks.update", ownerID, err)
	}

	return c.JSON(dto.TaskResponse{
		Message: "Task updated successfully",
		Task:    task,
	})
}

func (h *TaskHandler) Delete(c *fiber.Ctx) error {
	ownerID, err := identity.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid task ID")
	}

	if err := h.taskService.Delete(ownerID, taskID); err != nil {
		return h.taskError(c, "tasks.delete", ownerID, err)
	}

	return c.JSON(dto.MessageResponse{Message: "Task deleted successfully"})
}

func (h *TaskHandler) ToggleStatus(c *fiber.Ctx) error {
	ownerID, err := identity.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid task ID")
	}

	task, err := h.taskService.ToggleStatus(ownerID, taskID)
	if err != nil {
		return h.taskError(c, "tasks.toggle", ownerID, err)
	}

	return c.JSON(dto.TaskResponse{
		Message: fmt.Sprintf("Task status updated to %s", task.Status),
		Task:    task,
	})
}

func (h *TaskHandler) taskError(c *fiber.Ctx, action string, ownerID uuid.UUID, err error) error {
	if errors.Is(err, services.ErrTaskNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Task not found",
		})
	}
	slog.Error("task operation failed", "action", action, "user_id", ownerID.String(), "error", err)
	return internalError(c)
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: "Unauthorized",
	})
}
