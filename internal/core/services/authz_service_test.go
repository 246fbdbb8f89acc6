package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lorrc/pizza-orders-backend/internal/core/domain"
	apperrors "github.com/lorrc/pizza-orders-backend/internal/core/errors"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*domain.User
	calls int
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	f.calls++
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return u, nil
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func TestAuthorizationService_Can_UsesRolePermissions(t *testing.T) {
	customer := &domain.User{ID: uuid.New(), Role: domain.RoleCustomer}
	admin := &domain.User{ID: uuid.New(), Role: domain.RoleAdmin}
	svc := NewAuthorizationService(newFakeUserRepo(customer, admin))
	ctx := context.Background()

	allowed, err := svc.Can(ctx, customer.ID, domain.PermOrdersCreate)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = svc.Can(ctx, customer.ID, domain.PermOrdersUpdateStatus)
	require.NoError(t, err)
	require.False(t, allowed)

	allowed, err = svc.Can(ctx, admin.ID, domain.PermOrdersUpdateStatus)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = svc.Can(ctx, admin.ID, domain.PermOrdersCreate)
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestAuthorizationService_Can_DeniesUnknownUser(t *testing.T) {
	svc := NewAuthorizationService(newFakeUserRepo())

	allowed, err := svc.Can(context.Background(), uuid.New(), domain.PermOrdersRead)
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)
	require.False(t, allowed)
}

func TestAuthorizationService_GetPermissions_ReturnsCopy(t *testing.T) {
	admin := &domain.User{ID: uuid.New(), Role: domain.RoleAdmin}
	repo := newFakeUserRepo(admin)
	svc := NewAuthorizationService(repo)

	perms, err := svc.GetPermissions(context.Background(), admin.ID)
	require.NoError(t, err)
	require.Contains(t, perms, domain.PermMenuWrite)

	perms[0] = "tampered"
	again, err := svc.GetPermissions(context.Background(), admin.ID)
	require.NoError(t, err)
	require.NotContains(t, again, "tampered")
	require.Equal(t, 2, repo.calls)
}
