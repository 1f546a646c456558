package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is a label with the keywords used to auto-classify contracts.
// Keyword order is preserved as entered.
type Category struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Keywords    []string  `json:"keywords"`
	CreatedAt   time.Time `json:"created_at"`
}
