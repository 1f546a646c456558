package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"compliancedesk-backend/logger"
	"compliancedesk-backend/middleware"
	"compliancedesk-backend/models"
	"compliancedesk-backend/service"

	"github.com/gin-gonic/gin"
)

// multipartOverhead leaves room for form boundaries and headers around the file part
const multipartOverhead = 1 << 20

// ContractHandler handles HTTP requests for contracts
type ContractHandler struct {
	ingest    *service.IngestionService
	contracts *service.ContractService
	log       *logger.Logger
}

// NewContractHandler creates a new contract handler
func NewContractHandler(ingest *service.IngestionService, contracts *service.ContractService, log *logger.Logger) *ContractHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ContractHandler{
		ingest:    ingest,
		contracts: contracts,
		log:       log,
	}
}

// Upload handles POST /api/contracts/upload
func (h *ContractHandler) Upload(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	maxBytes := h.ingest.MaxBytes()
	if c.Request.ContentLength > maxBytes+multipartOverhead {
		respondServiceError(c, service.ErrFileTooLarge, "INVALID_FILE")
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondServiceError(c, service.ErrFileTooLarge, "INVALID_FILE")
			return
		}
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "File is required")
		return
	}

	mimeType := service.ResolveMimeType(fileHeader.Header.Get("Content-Type"), fileHeader.Filename)
	if err := h.ingest.Validate(mimeType, fileHeader.Filename, fileHeader.Size); err != nil {
		respondServiceError(c, err, "INVALID_FILE")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FILE_OPEN_ERROR", err.Error())
		return
	}
	defer file.Close()

	// One extra byte lets the service see an oversized body
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FILE_READ_ERROR", err.Error())
		return
	}

	result, err := h.ingest.Upload(c.Request.Context(), service.UploadRequest{
		UserID:   userID,
		Filename: fileHeader.Filename,
		MimeType: mimeType,
		Size:     fileHeader.Size,
		Data:     data,
	})
	if err != nil {
		respondServiceError(c, err, "UPLOAD_FAILED")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"contract":     result.Contract,
			"duplicate_of": result.DuplicateOf,
		},
	})
}

// List handles GET /api/contracts
func (h *ContractHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var status *models.ContractStatus
	if s := c.Query("status"); s != "" {
		st := models.ContractStatus(s)
		if !st.Valid() {
			respondError(c, http.StatusBadRequest, "INVALID_STATUS", fmt.Sprintf("Unknown status %q", s))
			return
		}
		status = &st
	}

	contracts, err := h.contracts.List(c.Request.Context(), userID, status)
	if err != nil {
		respondServiceError(c, err, "LIST_FAILED")
		return
	}
	if contracts == nil {
		contracts = []*models.Contract{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    contracts,
	})
}

// Get handles GET /api/contracts/:id
func (h *ContractHandler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	id, ok := pathID(c, "contract")
	if !ok {
		return
	}

	contract, err := h.contracts.Get(c.Request.Context(), id, userID)
	if err != nil {
		respondServiceError(c, err, "GET_FAILED")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    contract,
	})
}

// File handles GET /api/contracts/:id/file
func (h *ContractHandler) File(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	id, ok := pathID(c, "contract")
	if !ok {
		return
	}

	contract, reader, err := h.contracts.Open(c.Request.Context(), id, userID)
	if err != nil {
		respondServiceError(c, err, "DOWNLOAD_FAILED")
		return
	}
	defer reader.Close()

	extraHeaders := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", contract.Name),
	}
	c.DataFromReader(http.StatusOK, contract.Size, contract.MimeType, reader, extraHeaders)
}

// UpdateStatusRequest represents the body of a reviewer decision
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus handles PATCH /api/contracts/:id/status
func (h *ContractHandler) UpdateStatus(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	id, ok := pathID(c, "contract")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	next := models.ContractStatus(req.Status)
	if !next.Valid() {
		respondError(c, http.StatusBadRequest, "INVALID_STATUS", fmt.Sprintf("Unknown status %q", req.Status))
		return
	}

	contract, err := h.contracts.UpdateStatus(c.Request.Context(), id, userID, next)
	if err != nil {
		respondServiceError(c, err, "UPDATE_FAILED")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    contract,
	})
}

// Delete handles DELETE /api/contracts/:id
func (h *ContractHandler) Delete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	id, ok := pathID(c, "contract")
	if !ok {
		return
	}

	if err := h.contracts.Delete(c.Request.Context(), id, userID); err != nil {
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
