package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mleone/taskhub/pkg/taskhub/models"
	"gorm.io/gorm"
)

// Handler handles admin requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new admin handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// UserResponse represents user data in admin responses
type UserResponse struct {
	ID         uint   `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email,omitempty"`
	SystemRole string `json:"system_role"`
	CreatedAt  string `json:"created_at"`
	TaskCount  int64  `json:"task_count"`
}

// StatsResponse represents system statistics
type StatsResponse struct {
	TotalUsers     int64 `json:"total_users"`
	TotalTasks     int64 `json:"total_tasks"`
	CompletedTasks int64 `json:"completed_tasks"`
	TotalTags      int64 `json:"total_tags"`
	AdminUsers     int64 `json:"admin_users"`
}

func (h *Handler) userToResponse(user models.User) UserResponse {
	var taskCount int64
	h.db.Model(&models.Task{}).Where("owner_id = ?", user.ID).Count(&taskCount)

	resp := UserResponse{
		ID:         user.ID,
		Username:   user.Username,
		SystemRole: string(user.SystemRole),
		CreatedAt:  user.CreatedAt.Format("2006-01-02T15:04:05Z"),
		TaskCount:  taskCount,
	}
	if user.Email != nil {
		resp.Email = *user.Email
	}
	return resp
}

// ListUsers returns all users (admin only)
// @Summary List users
// @Description List all users with their task counts
// @Tags admin
// @Produce json
// @Param q query string false "Search by username or email"
// @Param role query string false "Filter by system role"
// @Success 200 {array} UserResponse
// @Security BearerAuth
// @Router /admin/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	var users []models.User

	query := h.db.Order("created_at DESC")

	if search := c.Query("q"); search != "" {
		query = query.Where("username LIKE ? OR email LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if role := c.Query("role"); role != "" {
		query = query.Where("system_role = ?", role)
	}

	if err := query.Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	responses := make([]UserResponse, len(users))
	for i, user := range users {
		responses[i] = h.userToResponse(user)
	}

	c.JSON(http.StatusOK, responses)
}

// GetUser returns a single user by ID (admin only)
// @Summary Get a user
// @Description Get one user with their task count
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} UserResponse
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /admin/users/{id} [get]
func (h *Handler) GetUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, h.userToResponse(user))
}

// GetStats returns system-wide statistics (admin only)
// @Summary System statistics
// @Description Counts of users, tasks and tags
// @Tags admin
// @Produce json
// @Success 200 {object} StatsResponse
// @Security BearerAuth
// @Router /admin/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	var stats StatsResponse

	h.db.Model(&models.User{}).Count(&stats.TotalUsers)
	h.db.Model(&models.Task{}).Count(&stats.TotalTasks)
	h.db.Model(&models.Task{}).Where("completed = ?", true).Count(&stats.CompletedTasks)
	h.db.Model(&models.Tag{}).Count(&stats.TotalTags)
	h.db.Model(&models.User{}).Where("system_role = ?", "admin").Count(&stats.AdminUsers)

	c.JSON(http.StatusOK, stats)
}

// RegisterRoutes registers admin routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.GetStats)
	rg.GET("/users", h.ListUsers)
	rg.GET("/users/:id", h.GetUser)
}
