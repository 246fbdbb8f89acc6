package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/lorrc/pizza-orders-backend/internal/core/domain"
	apperrors "github.com/lorrc/pizza-orders-backend/internal/core/errors"
	"github.com/lorrc/pizza-orders-backend/internal/core/mocks"
	"github.com/lorrc/pizza-orders-backend/internal/core/ports"
	"github.com/lorrc/pizza-orders-backend/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMenuService_CreateItem(t *testing.T) {
	ctx := context.Background()
	adminID := uuid.New()

	newParams := func() ports.SaveMenuItemParams {
		return ports.SaveMenuItemParams{
			ActorID:    adminID,
			Name:       "Margherita",
			PriceCents: 899,
			Size:       domain.SizeMedium,
			Image:      &ports.ImageUpload{Filename: "margherita.png", Content: strings.NewReader("png")},
		}
	}

	t.Run("success stores image and item", func(t *testing.T) {
		repo := mocks.NewMockMenuRepository()
		images := mocks.NewMockImageStore()
		authz := mocks.NewMockAuthorizationService()
		svc := services.NewMenuService(repo, images, authz)

		authz.On("Can", ctx, adminID, domain.PermMenuWrite).Return(true, nil)
		images.On("Save", ctx, "margherita.png", mock.Anything).Return("1700000000000margherita.png", nil)
		repo.On("Create", ctx, mock.MatchedBy(func(item *domain.MenuItem) bool {
			return item.Image == "1700000000000margherita.png"
		})).Return(func(_ context.Context, item *domain.MenuItem) *domain.MenuItem {
			item.ID = 11
			return item
		}, nil)

		item, err := svc.CreateItem(ctx, newParams())

		require.NoError(t, err)
		assert.Equal(t, int64(11), item.ID)
		assert.Equal(t, "Margherita", item.Name)
		images.AssertExpectations(t)
		repo.AssertExpectations(t)
	})

	t.Run("forbidden for customers", func(t *testing.T) {
		repo := mocks.NewMockMenuRepository()
		images := mocks.NewMockImageStore()
		authz := mocks.NewMockAuthorizationService()
		svc := services.NewMenuService(repo, images, authz)

		authz.On("Can", ctx, adminID, domain.PermMenuWrite).Return(false, nil)

		item, err := svc.CreateItem(ctx, newParams())

		assert.Nil(t, item)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		images.AssertNotCalled(t, "Save")
	})

	t.Run("missing image is a validation error", func(t *testing.T) {
		repo := mocks.NewMockMenuRepository()
		images := mocks.NewMockImageStore()
		authz := mocks.NewMockAuthorizationService()
		svc := services.NewMenuService(repo, images, authz)

		authz.On("Can", ctx, adminID, domain.PermMenuWrite).Return(true, nil)
		params := newParams()
		params.Image = nil

		item, err := svc.CreateItem(ctx, params)

		assert.Nil(t, item)
		var validationErr *apperrors.ValidationErrors
		require.ErrorAs(t, err, &validationErr)
		assert.Contains(t, validationErr.Errors, "file")
		images.AssertNotCalled(t, "Save")
	})

	t.Run("repository failure removes stored image", func(t *testing.T) {
		repo := mocks.NewMockMenuRepository()
		images := mocks.NewMockImageStore()
		authz := mocks.NewMockAuthorizationService()
		svc := services.NewMenuService(repo, images, authz)

		authz.On("Can", ctx, adminID, domain.PermMenuWrite).Return(true, nil)
		images.On("Save", ctx, "margherita.png", mock.Anything).Return("1700000000000margherita.png", nil)
		images.On("Delete", ctx, "1700000000000margherita.png").Return(nil)
		repo.On("Create", ctx, mock.AnythingOfType("*domain.MenuItem")).Return(nil, errors.New("insert failed"))

		item, err := svc.CreateItem(ctx, newParams())

		assert.Nil(t, item)
		assert.Error(t, err)
		images.AssertExpectations(t)
	})
}

func TestMenuService_UpdateItem(t *testing.T) {
	ctx := context.Background()
	adminID := uuid.New()
	existing := &domain.MenuItem{ID: 4, Name: "Veggie", Image: "old.png", PriceCents: 999, Size: domain.SizeSmall}

	t.Run("keeps existing image without upload", func(t *testing.T) {
		repo := mocks.NewMockMenuRepository()
		images := mocks.NewMockImageStore()
		authz := mocks.NewMockAuthorizationService()
		svc := services.NewMenuService(repo, images, authz)

		authz.On("Can", ctx, adminID, domain.PermMenuWrite).Return(true, nil)
		repo.On("GetByID", ctx, int64(4)).Return(existing, nil)
		repo.On("Update", ctx, mock.MatchedBy(func(item *domain.MenuItem) bool {
			return item.ID == 4 && item.Image == "old.png" && item.PriceCents == 1199
		})).Return(func(_ context.Context, item *domain.MenuItem) *domain.MenuItem { return item }, nil)

		item, err := svc.UpdateItem(ctx, 4, ports.SaveMenuItemParams{
			ActorID:    adminID,
			Name:       "Veggie Supreme",
			PriceCents: 1199,
			Size:       domain.SizeLarge,
		})

		require.NoError(t, err)
		assert.Equal(t, "Veggie Supreme", item.Name)
		images.AssertNotCalled(t, "Save")
		images.AssertNotCalled(t, "Delete")
	})

	t.Run("new upload replaces old image", func(t *testing.T) {
		repo := mocks.NewMockMenuRepository()
		images := mocks.NewMockImageStore()
		authz := mocks.NewMockAuthorizationService()
		svc := services.NewMenuService(repo, images, authz)

		authz.On("Can", ctx, adminID, domain.PermMenuWrite).Return(true, nil)
		repo.On("GetByID", ctx, int64(4)).Return(existing, nil)
		images.On("Save", ctx, "veggie.png", mock.Anything).Return("1700000000001veggie.png", nil)
		images.On("Delete", ctx, "old.png").Return(nil)
		repo.On("Update", ctx, mock.AnythingOfType("*domain.MenuItem")).
			Return(func(_ context.Context, item *domain.MenuItem) *domain.MenuItem { return item }, nil)

		item, err := svc.UpdateItem(ctx, 4, ports.SaveMenuItemParams{
			ActorID:    adminID,
			Name:       "Veggie",
			PriceCents: 999,
			Size:       domain.SizeSmall,
			Image:      &ports.ImageUpload{Filename: "veggie.png", Content: strings.NewReader("png")},
		})

		require.NoError(t, err)
		assert.Equal(t, "1700000000001veggie.png", item.Image)
		images.AssertExpectations(t)
	})

	t.Run("item not found", func(t *testing.T) {
		repo := mocks.NewMockMenuRepository()
		images := mocks.NewMockImageStore()
		authz := mocks.NewMockAuthorizationService()
		svc := services.NewMenuService(repo, images, authz)

		authz.On("Can", ctx, adminID, domain.PermMenuWrite).Return(true, nil)
		repo.On("GetByID", ctx, int64(99)).Return(nil, apperrors.ErrItemNotFound)

		item, err := svc.UpdateItem(ctx, 99, ports.SaveMenuItemParams{
			ActorID:    adminID,
			Name:       "Ghost",
			PriceCents: 100,
			Size:       domain.SizeSmall,
		})

		assert.Nil(t, item)
		assert.ErrorIs(t, err, apperrors.ErrItemNotFound)
	})
}
