// Package llm wraps the chat-completion model used for contract analysis and Q&A.
package llm

import (
	"context"
	"errors"
)

// Roles used in conversation history.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("model returned empty content")

// Message is one prior turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion call.
type Request struct {
	System      string
	History     []Message
	Prompt      string
	JSON        bool
	Temperature float32
}

// Client produces one free-text completion per request.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}
