package tasks

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mleone/taskhub/pkg/taskhub/apperrors"
	"github.com/mleone/taskhub/pkg/taskhub/auth"
	"github.com/mleone/taskhub/pkg/taskhub/models"
	"gorm.io/gorm"
)

// Handler handles task-related requests
type Handler struct {
	service *Service
}

// NewHandler creates a new tasks handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{service: NewService(db)}
}

// CreateTaskRequest represents the request to create a task
type CreateTaskRequest struct {
	Title       string   `json:"title" binding:"required,min=3,max=100"`
	Description string   `json:"description" binding:"omitempty,max=500"`
	Completed   bool     `json:"completed"`
	Tags        []string `json:"tags"`
}

// UpdateTaskRequest represents a partial task update. A present "tags" key,
// even an empty array, replaces the task's whole tag set.
type UpdateTaskRequest struct {
	Title       *string   `json:"title" binding:"omitempty,min=3,max=100"`
	Description *string   `json:"description" binding:"omitempty,max=500"`
	Completed   *bool     `json:"completed"`
	Tags        *[]string `json:"tags"`
}

// TaskResponse represents a task in API responses
type TaskResponse struct {
	ID          uint     `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Completed   bool     `json:"completed"`
	Tags        []string `json:"tags"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// ListTasksResponse represents one page of tasks
type ListTasksResponse struct {
	Tasks      []TaskResponse `json:"tasks"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"totalPages"`
}

func taskToResponse(task models.Task) TaskResponse {
	names := make([]string, len(task.Tags))
	for i, t := range task.Tags {
		names[i] = t.Name
	}
	return TaskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		Tags:        names,
		CreatedAt:   task.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt:   task.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func respondServiceError(c *gin.Context, err error) {
	var notFound *apperrors.NotFoundError
	if errors.As(err, &notFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	var validation *apperrors.ValidationError
	var emptyName *apperrors.EmptyNameError
	if errors.As(err, &validation) || errors.As(err, &emptyName) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
}

// splitTagNames splits a comma-separated tag list, trimming segments and
// dropping empty ones.
func splitTagNames(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}

// parseListFilter builds a ListFilter from query parameters. Unknown sort
// fields and match modes fall back to defaults rather than erroring.
func parseListFilter(c *gin.Context) ListFilter {
	filter := ListFilter{
		SortField:     c.Query("sortField"),
		SortDirection: c.Query("sortDirection"),
		Page:          1,
		PageSize:      DefaultPageSize,
	}

	if completed := c.Query("completed"); completed != "" {
		value := completed == "true"
		filter.Completed = &value
	}

	if names := splitTagNames(c.Query("tags")); len(names) > 0 {
		filter.Tags = NewTagFilter(ParseTagMatchMode(c.Query("tagMatchMode")), names)
	}

	if p := c.Query("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			filter.Page = parsed
		}
	}
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			filter.PageSize = parsed
		}
	}

	return filter
}

// List returns the caller's tasks under the given filters
// @Summary List tasks
// @Description List the caller's tasks with optional completion, tag and sort filters
// @Tags tasks
// @Produce json
// @Param completed query bool false "Filter by completion status"
// @Param tags query string false "Comma-separated tag names"
// @Param tagMatchMode query string false "all (default) or any"
// @Param sortField query string false "createdAt, updatedAt, title or completed"
// @Param sortDirection query string false "ASC or DESC (default DESC)"
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Page size (default 10, max 100)"
// @Success 200 {object} ListTasksResponse
// @Security BearerAuth
// @Router /tasks [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	result, err := h.service.List(userID, parseListFilter(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tasks"})
		return
	}

	responses := make([]TaskResponse, len(result.Items))
	for i, task := range result.Items {
		responses[i] = taskToResponse(task)
	}

	c.JSON(http.StatusOK, ListTasksResponse{
		Tasks:      responses,
		Total:      result.Total,
		Page:       result.Page,
		Limit:      result.PageSize,
		TotalPages: result.TotalPages,
	})
}

// Create creates a new task
// @Summary Create a task
// @Description Create a task owned by the caller, optionally tagged
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body CreateTaskRequest true "Task details"
// @Success 201 {object} TaskResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /tasks [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.service.Create(userID, CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
		TagNames:    req.Tags,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, taskToResponse(*task))
}

// Get returns a single task by ID
// @Summary Get a task
// @Description Get one of the caller's tasks by ID
// @Tags tasks
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {object} TaskResponse
// @Failure 404 {object} map[string]string "Task not found"
// @Security BearerAuth
// @Router /tasks/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	taskID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	task, err := h.service.GetByID(uint(taskID), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, taskToResponse(*task))
}

// Update applies a partial update to a task
// @Summary Update a task
// @Description Update one of the caller's tasks; absent fields are left unchanged
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param request body UpdateTaskRequest true "Fields to update"
// @Success 200 {object} TaskResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Task not found"
// @Security BearerAuth
// @Router /tasks/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	taskID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.service.Update(uint(taskID), userID, UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
		TagNames:    req.Tags,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, taskToResponse(*task))
}

// Delete removes a task
// @Summary Delete a task
// @Description Delete one of the caller's tasks and its tag associations
// @Tags tasks
// @Produce json
// @Param id path int true "Task ID"
// @Success 204 "Task deleted"
// @Failure 404 {object} map[string]string "Task not found"
// @Security BearerAuth
// @Router /tasks/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	taskID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	deleted, err := h.service.Delete(uint(taskID), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete task"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers task routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tasks", h.List)
	rg.POST("/tasks", h.Create)
	rg.GET("/tasks/:id", h.Get)
	rg.PUT("/tasks/:id", h.Update)
	rg.DELETE("/tasks/:id", h.Delete)
}
