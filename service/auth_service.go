package service

import (
	"context"
	"errors"
	"strings"

	"compliancedesk-backend/models"
	"compliancedesk-backend/repository"

	"golang.org/x/crypto/bcrypt"
)

// AuthService checks login credentials
type AuthService struct {
	users UserStore
}

// NewAuthService creates a new auth service
func NewAuthService(users UserStore) *AuthService {
	return &AuthService{users: users}
}

// Authenticate returns the user when the password matches the stored bcrypt hash
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
