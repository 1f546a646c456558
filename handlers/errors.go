package handlers

import (
	"errors"
	"net/http"

	"compliancedesk-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondServiceError maps service sentinel errors to status codes.
// Anything unrecognised is reported as fallbackCode with status 500.
func respondServiceError(c *gin.Context, err error, fallbackCode string) {
	switch {
	case errors.Is(err, service.ErrInvalidFileType):
		respondError(c, http.StatusUnsupportedMediaType, "INVALID_FILE_TYPE", err.Error())
	case errors.Is(err, service.ErrFileTooLarge):
		respondError(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", err.Error())
	case errors.Is(err, service.ErrContractNotFound):
		respondError(c, http.StatusNotFound, "CONTRACT_NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrJobNotFound):
		respondError(c, http.StatusNotFound, "JOB_NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrCategoryNotFound):
		respondError(c, http.StatusNotFound, "CATEGORY_NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrAnalysisInProgress):
		respondError(c, http.StatusConflict, "ANALYSIS_IN_PROGRESS", err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		respondError(c, http.StatusConflict, "INVALID_STATUS_TRANSITION", err.Error())
	case errors.Is(err, service.ErrDuplicateCategory):
		respondError(c, http.StatusConflict, "DUPLICATE_CATEGORY", err.Error())
	case errors.Is(err, service.ErrInvalidCategory), errors.Is(err, service.ErrEmptyMessage):
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", err.Error())
	case errors.Is(err, service.ErrJobTimeout):
		respondError(c, http.StatusGatewayTimeout, "JOB_TIMEOUT", err.Error())
	default:
		respondError(c, http.StatusInternalServerError, fallbackCode, err.Error())
	}
}

// pathID parses the :id parameter and writes a 400 when it is malformed
func pathID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+what+" ID format")
		return uuid.Nil, false
	}
	return id, true
}
