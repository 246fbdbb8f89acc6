package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/pizza-orders-backend/internal/core/domain"
	apperrors "github.com/lorrc/pizza-orders-backend/internal/core/errors"
	"github.com/lorrc/pizza-orders-backend/internal/core/mocks"
	"github.com/lorrc/pizza-orders-backend/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo)

		// User doesn't exist yet
		mockUserRepo.On("GetByEmail", ctx, "newuser@example.com").
			Return(nil, apperrors.ErrUserNotFound)

		mockUserRepo.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool {
			return u.Role == domain.RoleCustomer && u.Email == "newuser@example.com"
		})).Return(&domain.User{
			ID:        uuid.New(),
			Name:      "New User",
			Email:     "newuser@example.com",
			Role:      domain.RoleCustomer,
			CreatedAt: time.Now(),
		}, nil)

		user, err := svc.Register(ctx, "New User", " NewUser@Example.com ", "Password123")

		require.NoError(t, err)
		assert.NotNil(t, user)
		assert.Equal(t, "New User", user.Name)
		assert.Equal(t, domain.RoleCustomer, user.Role)

		mockUserRepo.AssertExpectations(t)
	})

	t.Run("user already exists", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo)

		existingUser := &domain.User{
			ID:    uuid.New(),
			Email: "existing@example.com",
		}
		mockUserRepo.On("GetByEmail", ctx, "existing@example.com").
			Return(existingUser, nil)

		user, err := svc.Register(ctx, "Existing User", "existing@example.com", "Password123")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrUserExists)
		mockUserRepo.AssertNotCalled(t, "Create")
	})

	t.Run("weak password", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo)

		user, err := svc.Register(ctx, "Test User", "test@example.com", "weak")

		assert.Nil(t, user)
		var validationErr *apperrors.ValidationErrors
		require.ErrorAs(t, err, &validationErr)
		assert.Contains(t, validationErr.Errors, "password")
		mockUserRepo.AssertNotCalled(t, "GetByEmail")
	})

	t.Run("repository failure is returned", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo)

		dbErr := errors.New("connection refused")
		mockUserRepo.On("GetByEmail", ctx, "test@example.com").Return(nil, dbErr)

		user, err := svc.Register(ctx, "Test User", "test@example.com", "Password123")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, dbErr)
		mockUserRepo.AssertNotCalled(t, "Create")
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo)

		hash, err := domain.HashPassword("Password123")
		require.NoError(t, err)

		existingUser := &domain.User{
			ID:           uuid.New(),
			Email:        "user@example.com",
			PasswordHash: hash,
			Role:         domain.RoleAdmin,
		}
		mockUserRepo.On("GetByEmail", ctx, "user@example.com").Return(existingUser, nil)

		user, err := svc.Login(ctx, "User@Example.com", "Password123")

		require.NoError(t, err)
		assert.Equal(t, existingUser.ID, user.ID)
		assert.True(t, user.IsAdmin())
	})

	t.Run("unknown email", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo)

		mockUserRepo.On("GetByEmail", ctx, "nobody@example.com").
			Return(nil, apperrors.ErrUserNotFound)

		user, err := svc.Login(ctx, "nobody@example.com", "Password123")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo)

		hash, _ := domain.HashPassword("Password123")

		existingUser := &domain.User{
			ID:           uuid.New(),
			Email:        "user@example.com",
			PasswordHash: hash,
		}
		mockUserRepo.On("GetByEmail", ctx, "user@example.com").Return(existingUser, nil)

		user, err := svc.Login(ctx, "user@example.com", "WrongPassword123")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("empty email", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo)

		user, err := svc.Login(ctx, "", "Password123")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrEmailRequired)
		mockUserRepo.AssertNotCalled(t, "GetByEmail")
	})

	t.Run("empty password", func(t *testing.T) {
		mockUserRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockUserRepo)

		user, err := svc.Login(ctx, "user@example.com", "")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrPasswordRequired)
		mockUserRepo.AssertNotCalled(t, "GetByEmail")
	})
}
