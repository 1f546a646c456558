package handlers

import (
	"net/http"

	"compliancedesk-backend/middleware"

	"github.com/gin-gonic/gin"
)

// Set groups the handlers mounted by RegisterRoutes
type Set struct {
	Auth       *AuthHandler
	Contracts  *ContractHandler
	Analysis   *AnalysisHandler
	Categories *CategoryHandler
	Chat       *ChatHandler
}

// RegisterRoutes mounts the health check, the login endpoint and the protected API
func RegisterRoutes(r *gin.Engine, h Set, jwtSecret string) {
	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	api := r.Group("/api")
	api.POST("/auth/login", h.Auth.Login)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(jwtSecret))
	{
		// Contract endpoints
		protected.POST("/contracts/upload", h.Contracts.Upload)
		protected.GET("/contracts", h.Contracts.List)
		protected.GET("/contracts/:id", h.Contracts.Get)
		protected.GET("/contracts/:id/file", h.Contracts.File)
		protected.PATCH("/contracts/:id/status", h.Contracts.UpdateStatus)
		protected.DELETE("/contracts/:id", h.Contracts.Delete)

		// Analysis endpoints
		protected.POST("/contracts/:id/analyze", h.Analysis.Analyze)
		protected.GET("/contracts/:id/findings", h.Analysis.ListFindings)
		protected.GET("/contracts/:id/findings/export", h.Analysis.ExportFindings)
		protected.GET("/analysis-jobs/:id", h.Analysis.GetJob)

		// Category endpoints
		protected.GET("/categories", h.Categories.List)
		protected.POST("/categories", h.Categories.Create)
		protected.PUT("/categories/:id", h.Categories.Update)
		protected.DELETE("/categories/:id", h.Categories.Delete)

		// Chat
		protected.POST("/chat", h.Chat.Ask)
	}
}
