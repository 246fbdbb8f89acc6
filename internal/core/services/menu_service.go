package services

import (
	"context"

	"github.com/lorrc/pizza-orders-backend/internal/core/domain"
	apperrors "github.com/lorrc/pizza-orders-backend/internal/core/errors"
	"github.com/lorrc/pizza-orders-backend/internal/core/ports"
)

// MenuService implements business logic for the menu catalogue
type MenuService struct {
	menuRepo ports.MenuRepository
	images   ports.ImageStore
	authzSvc ports.AuthorizationService
}

var _ ports.MenuService = (*MenuService)(nil)

// NewMenuService creates a new menu service
func NewMenuService(
	menuRepo ports.MenuRepository,
	images ports.ImageStore,
	authzSvc ports.AuthorizationService,
) ports.MenuService {
	return &MenuService{
		menuRepo: menuRepo,
		images:   images,
		authzSvc: authzSvc,
	}
}

// ListItems returns the full menu. It is public.
func (s *MenuService) ListItems(ctx context.Context) ([]*domain.MenuItem, error) {
	return s.menuRepo.List(ctx)
}

// CreateItem stores the uploaded image and adds a new item to the menu.
func (s *MenuService) CreateItem(ctx context.Context, params ports.SaveMenuItemParams) (*domain.MenuItem, error) {
	if err := s.requireMenuWrite(ctx, params); err != nil {
		return nil, err
	}

	itemParams := domain.MenuItemParams{
		Name:       params.Name,
		PriceCents: params.PriceCents,
		Size:       params.Size,
	}
	if params.Image != nil {
		itemParams.Image = params.Image.Filename
	}
	if err := itemParams.Validate(); err != nil {
		return nil, err
	}

	stored, err := s.images.Save(ctx, params.Image.Filename, params.Image.Content)
	if err != nil {
		return nil, err
	}
	itemParams.Image = stored

	item, err := domain.NewMenuItem(itemParams)
	if err != nil {
		_ = s.images.Delete(ctx, stored)
		return nil, err
	}

	created, err := s.menuRepo.Create(ctx, item)
	if err != nil {
		_ = s.images.Delete(ctx, stored)
		return nil, err
	}
	return created, nil
}

// UpdateItem replaces an item's fields. Without a new upload the current
// image is kept.
func (s *MenuService) UpdateItem(ctx context.Context, itemID int64, params ports.SaveMenuItemParams) (*domain.MenuItem, error) {
	if err := s.requireMenuWrite(ctx, params); err != nil {
		return nil, err
	}

	existing, err := s.menuRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	itemParams := domain.MenuItemParams{
		Name:       params.Name,
		Image:      existing.Image,
		PriceCents: params.PriceCents,
		Size:       params.Size,
	}
	if err := itemParams.Validate(); err != nil {
		return nil, err
	}

	var stored string
	if params.Image != nil {
		stored, err = s.images.Save(ctx, params.Image.Filename, params.Image.Content)
		if err != nil {
			return nil, err
		}
		itemParams.Image = stored
	}

	item, err := domain.NewMenuItem(itemParams)
	if err != nil {
		return nil, err
	}
	item.ID = existing.ID

	updated, err := s.menuRepo.Update(ctx, item)
	if err != nil {
		if stored != "" {
			_ = s.images.Delete(ctx, stored)
		}
		return nil, err
	}

	if stored != "" && existing.Image != "" {
		_ = s.images.Delete(ctx, existing.Image)
	}
	return updated, nil
}

func (s *MenuService) requireMenuWrite(ctx context.Context, params ports.SaveMenuItemParams) error {
	canWrite, err := s.authzSvc.Can(ctx, params.ActorID, domain.PermMenuWrite)
	if err != nil {
		return err
	}
	if !canWrite {
		return apperrors.ErrForbidden
	}
	return nil
}
