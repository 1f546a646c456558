package handlers

import (
	"net/http"
	"time"

	"compliancedesk-backend/logger"
	"compliancedesk-backend/middleware"
	"compliancedesk-backend/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler issues tokens for valid credentials
type AuthHandler struct {
	auth     *service.AuthService
	secret   string
	tokenTTL time.Duration
	log      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth *service.AuthService, secret string, tokenTTL time.Duration, log *logger.Logger) *AuthHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthHandler{auth: auth, secret: secret, tokenTTL: tokenTTL, log: log}
}

// LoginRequest represents the login body
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	user, err := h.auth.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.log.Warn("auth.login.rejected", "email", req.Email)
		respondServiceError(c, err, "LOGIN_FAILED")
		return
	}

	token, expiresAt, err := middleware.GenerateToken(user.ID, user.Email, h.secret, h.tokenTTL)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "TOKEN_ERROR", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"token":      token,
			"expires_at": expiresAt,
			"user":       user,
		},
	})
}
