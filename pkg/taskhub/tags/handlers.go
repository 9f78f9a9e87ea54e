package tags

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mleone/taskhub/pkg/taskhub/apperrors"
	"github.com/mleone/taskhub/pkg/taskhub/auth"
	"github.com/mleone/taskhub/pkg/taskhub/models"
	"gorm.io/gorm"
)

// Handler handles tag-related requests
type Handler struct {
	store *Store
}

// NewHandler creates a new tags handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{store: NewStore(db)}
}

// TagResponse represents a tag in API responses
type TagResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// RenameTagRequest represents the request to rename a tag
type RenameTagRequest struct {
	Name string `json:"name" binding:"required"`
}

func tagsToResponses(tags []models.Tag) []TagResponse {
	responses := make([]TagResponse, len(tags))
	for i, t := range tags {
		responses[i] = TagResponse{ID: t.ID, Name: t.Name}
	}
	return responses
}

// respondStoreError maps the store's typed errors onto HTTP statuses.
func respondStoreError(c *gin.Context, err error) {
	var (
		notFound   *apperrors.NotFoundError
		permission *apperrors.PermissionError
		conflict   *apperrors.ConflictError
		inUse      *apperrors.InUseError
		emptyName  *apperrors.EmptyNameError
		validation *apperrors.ValidationError
	)
	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &permission):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &inUse), errors.As(err, &emptyName), errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

// List returns all tags used by the caller's tasks
// @Summary List tags
// @Description Get the distinct tags attached to any of the caller's tasks, ordered by name
// @Tags tags
// @Produce json
// @Success 200 {array} TagResponse
// @Security BearerAuth
// @Router /tags [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	tags, err := h.store.ListForUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tags"})
		return
	}

	c.JSON(http.StatusOK, tagsToResponses(tags))
}

// Autocomplete returns tag suggestions for a prefix
// @Summary Autocomplete tags
// @Description Case-insensitive prefix search over the caller's tags. Empty prefix returns an empty list unless all=true.
// @Tags tags
// @Produce json
// @Param q query string false "Name prefix"
// @Param limit query int false "Max results (default 10)"
// @Param all query bool false "List all of the caller's tags instead of prefix matching"
// @Success 200 {array} TagResponse
// @Security BearerAuth
// @Router /tags/autocomplete [get]
func (h *Handler) Autocomplete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	limit := 0
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	listAll := c.Query("all") == "true"

	tags, err := h.store.Autocomplete(userID, c.Query("q"), limit, listAll)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tags"})
		return
	}

	c.JSON(http.StatusOK, tagsToResponses(tags))
}

// Rename renames a tag globally
// @Summary Rename a tag
// @Description Rename a tag for every task that bears it. Requires owning at least one task with the tag.
// @Tags tags
// @Accept json
// @Produce json
// @Param id path int true "Tag ID"
// @Param request body RenameTagRequest true "New name"
// @Success 200 {object} TagResponse
// @Failure 400 {object} map[string]string "Empty or too long name"
// @Failure 403 {object} map[string]string "No owned task bears this tag"
// @Failure 404 {object} map[string]string "Tag not found"
// @Failure 409 {object} map[string]string "Name already taken"
// @Security BearerAuth
// @Router /tags/{id} [put]
func (h *Handler) Rename(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	tagID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tag ID"})
		return
	}

	var req RenameTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tag, err := h.store.Rename(uint(tagID), req.Name, userID)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, TagResponse{ID: tag.ID, Name: tag.Name})
}

// Delete removes an unreferenced tag
// @Summary Delete a tag
// @Description Delete a tag. Fails while any task system-wide still references it.
// @Tags tags
// @Produce json
// @Param id path int true "Tag ID"
// @Success 204 "Tag deleted"
// @Failure 400 {object} map[string]string "Tag still in use"
// @Failure 404 {object} map[string]string "Tag not found"
// @Security BearerAuth
// @Router /tags/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	tagID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tag ID"})
		return
	}

	if err := h.store.Delete(uint(tagID), userID); err != nil {
		respondStoreError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers tag routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tags", h.List)
	rg.GET("/tags/autocomplete", h.Autocomplete)
	rg.PUT("/tags/:id", h.Rename)
	rg.DELETE("/tags/:id", h.Delete)
}
