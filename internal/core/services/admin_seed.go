package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/lorrc/pizza-orders-backend/internal/core/domain"
	apperrors "github.com/lorrc/pizza-orders-backend/internal/core/errors"
	"github.com/lorrc/pizza-orders-backend/internal/core/ports"
)

// SeedAdmin makes sure an administrator with the given email exists.
// It reports whether a new account was created. An existing account with
// that email must already be an admin; it is never promoted.
func SeedAdmin(ctx context.Context, userRepo ports.UserRepository, params domain.UserRegistrationParams) (*domain.User, bool, error) {
	existing, err := userRepo.GetByEmail(ctx, normalizeEmail(params.Email))
	if err == nil {
		if !existing.IsAdmin() {
			return nil, false, fmt.Errorf("seed admin %s: %w", existing.Email, apperrors.ErrUserExists)
		}
		return existing, false, nil
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, false, err
	}

	user, err := domain.NewUser(params, domain.RoleAdmin)
	if err != nil {
		return nil, false, err
	}

	created, err := userRepo.Create(ctx, user)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}
