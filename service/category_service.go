package service

import (
	"context"
	"errors"
	"strings"

	"compliancedesk-backend/models"
	"compliancedesk-backend/repository"

	"github.com/google/uuid"
)

// CategoryService manages the categories used to auto-classify uploads
type CategoryService struct {
	categories CategoryStore
}

// NewCategoryService creates a new category service
func NewCategoryService(store CategoryStore) *CategoryService {
	return &CategoryService{categories: store}
}

// CategoryInput is the editable part of a category
type CategoryInput struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Keywords    []string `json:"keywords"`
}

// NormalizeKeywords trims keywords, drops empty ones and case-insensitive repeats, keeping order
func NormalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" || seen[strings.ToLower(k)] {
			continue
		}
		seen[strings.ToLower(k)] = true
		out = append(out, k)
	}
	return out
}

func (in CategoryInput) apply(c *models.Category) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return ErrInvalidCategory
	}
	c.Name = name
	c.Description = in.Description
	if c.Description != nil && strings.TrimSpace(*c.Description) == "" {
		c.Description = nil
	}
	c.Keywords = NormalizeKeywords(in.Keywords)
	return nil
}

// List returns the user's categories in classification order
func (s *CategoryService) List(ctx context.Context, userID uuid.UUID) ([]models.Category, error) {
	return s.categories.ListByUserID(ctx, userID)
}

// Create adds a category for the user
func (s *CategoryService) Create(ctx context.Context, userID uuid.UUID, in CategoryInput) (*models.Category, error) {
	category := &models.Category{UserID: userID}
	if err := in.apply(category); err != nil {
		return nil, err
	}
	if err := s.categories.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateCategory
		}
		return nil, err
	}
	return category, nil
}

// Update replaces a category's name, description and keywords
func (s *CategoryService) Update(ctx context.Context, id, userID uuid.UUID, in CategoryInput) (*models.Category, error) {
	category, err := s.owned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if err := in.apply(category); err != nil {
		return nil, err
	}
	if err := s.categories.Update(ctx, category); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrDuplicateCategory
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

// Delete removes a category. Contracts keep the category name they were given.
func (s *CategoryService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	if _, err := s.owned(ctx, id, userID); err != nil {
		return err
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}
	return nil
}

func (s *CategoryService) owned(ctx context.Context, id, userID uuid.UUID) (*models.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	if category.UserID != userID {
		return nil, ErrCategoryNotFound
	}
	return category, nil
}
