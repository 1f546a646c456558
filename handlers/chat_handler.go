package handlers

import (
	"net/http"

	"compliancedesk-backend/service"

	"github.com/gin-gonic/gin"
)

// ChatHandler handles the compliance assistant endpoint
type ChatHandler struct {
	chat *service.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// Ask handles POST /api/chat
func (h *ChatHandler) Ask(c *gin.Context) {
	var req service.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	resp, err := h.chat.Ask(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "CHAT_FAILED")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    resp,
	})
}
