package handlers

import (
	"net/http"

	"compliancedesk-backend/middleware"
	"compliancedesk-backend/models"
	"compliancedesk-backend/service"

	"github.com/gin-gonic/gin"
)

// CategoryHandler handles HTTP requests for classification categories
type CategoryHandler struct {
	categories *service.CategoryService
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(categories *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// List handles GET /api/categories
func (h *CategoryHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	categories, err := h.categories.List(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err, "LIST_FAILED")
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    categories,
	})
}

// Create handles POST /api/categories
func (h *CategoryHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req service.CategoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	category, err := h.categories.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondServiceError(c, err, "CREATE_FAILED")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    category,
	})
}

// Update handles PUT /api/categories/:id
func (h *CategoryHandler) Update(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	id, ok := pathID(c, "category")
	if !ok {
		return
	}

	var req service.CategoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	category, err := h.categories.Update(c.Request.Context(), id, userID, req)
	if err != nil {
		respondServiceError(c, err, "UPDATE_FAILED")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    category,
	})
}

// Delete handles DELETE /api/categories/:id
func (h *CategoryHandler) Delete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	id, ok := pathID(c, "category")
	if !ok {
		return
	}

	if err := h.categories.Delete(c.Request.Context(), id, userID); err != nil {
		respondServiceError(c, err, "DELETE_FAILED")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"id": id,
		},
	})
}
