package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/database"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/domain"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/logger"
)

const (
	defaultTaskLimit = 50
	defaultLogLimit  = database.DefaultRecentLogLimit
)

// TaskReader reads tasks and their logs. *ledger.Ledger implements it.
type TaskReader interface {
	Tasks(ctx context.Context, status domain.TaskStatus, limit int) ([]*domain.ScrapeTask, error)
	Task(ctx context.Context, id int64) (*domain.ScrapeTask, error)
	RecentLogs(ctx context.Context, taskID int64, limit int) ([]*domain.ScrapeLogLine, error)
}

// TasksHandler handles task-related HTTP requests.
type TasksHandler struct {
	tasks TaskReader
	log   logger.Logger
}

// NewTasksHandler creates a new tasks handler.
func NewTasksHandler(tasks TaskReader, log logger.Logger) *TasksHandler {
	return &TasksHandler{tasks: tasks, log: log}
}

// ListTasks handles GET /api/v1/tasks
func (h *TasksHandler) ListTasks(c *gin.Context) {
	status := domain.TaskStatusNone
	if raw := c.Query("status"); raw != "" {
		parsed, err := domain.ParseTaskStatus(raw)
		if err != nil {
			respondBadRequest(c, err.Error())
			return
		}
		status = parsed
	}

	limit := parseLimit(c, defaultTaskLimit)
	tasks, err := h.tasks.Tasks(c.Request.Context(), status, limit)
	if err != nil {
		h.log.Error("Failed to list tasks", logger.Error(err))
		respondInternalError(c, "Failed to retrieve tasks")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"total": len(tasks),
		"limit": limit,
	})
}

// GetTask handles GET /api/v1/tasks/:id
func (h *TasksHandler) GetTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	task, found := h.lookup(c, id)
	if !found {
		return
	}

	c.JSON(http.StatusOK, task)
}

// GetTaskLogs handles GET /api/v1/tasks/:id/logs
func (h *TasksHandler) GetTaskLogs(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if _, found := h.lookup(c, id); !found {
		return
	}

	limit := parseLimit(c, defaultLogLimit)
	lines, err := h.tasks.RecentLogs(c.Request.Context(), id, limit)
	if err != nil {
		h.log.Error("Failed to read task logs", logger.Int64("task_id", id), logger.Error(err))
		respondInternalError(c, "Failed to retrieve logs")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task_id": id,
		"lines":   lines,
		"total":   len(lines),
	})
}

func (h *TasksHandler) lookup(c *gin.Context, id int64) (*domain.ScrapeTask, bool) {
	task, err := h.tasks.Task(c.Request.Context(), id)
	if errors.Is(err, database.ErrTaskNotFound) {
		respondNotFound(c, "Task")
		return nil, false
	}
	if err != nil {
		h.log.Error("Failed to get task", logger.Int64("task_id", id), logger.Error(err))
		respondInternalError(c, "Failed to retrieve task")
		return nil, false
	}
	return task, true
}
