package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/lorrc/pizza-orders-backend/internal/core/domain"
	"github.com/lorrc/pizza-orders-backend/internal/core/ports"
)

// AuthorizationService resolves permissions from the user's role.
type AuthorizationService struct {
	userRepo ports.UserRepository
}

// Ensure implementation matches the interface.
var _ ports.AuthorizationService = (*AuthorizationService)(nil)

// NewAuthorizationService creates a new service for authorization logic.
func NewAuthorizationService(userRepo ports.UserRepository) ports.AuthorizationService {
	return &AuthorizationService{
		userRepo: userRepo,
	}
}

// Can checks if a user has a specific permission.
func (s *AuthorizationService) Can(ctx context.Context, userID uuid.UUID, permission string) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		// If the user cannot be loaded, deny access.
		return false, err
	}
	return domain.RoleHas(user.Role, permission), nil
}

// GetPermissions returns all permissions for a user.
func (s *AuthorizationService) GetPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return domain.PermissionsFor(user.Role), nil
}
