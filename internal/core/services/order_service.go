package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lorrc/pizza-orders-backend/internal/core/domain"
	apperrors "github.com/lorrc/pizza-orders-backend/internal/core/errors"
	"github.com/lorrc/pizza-orders-backend/internal/core/ports"
)

// OrderService implements business logic for placing and tracking orders
type OrderService struct {
	orderRepo ports.OrderRepository
	menuRepo  ports.MenuRepository
	authzSvc  ports.AuthorizationService
	publisher ports.EventPublisher
}

var _ ports.OrderService = (*OrderService)(nil)

// NewOrderService creates a new order service
func NewOrderService(
	orderRepo ports.OrderRepository,
	menuRepo ports.MenuRepository,
	authzSvc ports.AuthorizationService,
	publisher ports.EventPublisher,
) ports.OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		menuRepo:  menuRepo,
		authzSvc:  authzSvc,
		publisher: publisher,
	}
}

// PlaceOrder prices the requested lines from the menu, stores the order and
// announces it to the admin room.
func (s *OrderService) PlaceOrder(ctx context.Context, params ports.PlaceOrderParams) (*domain.Order, error) {
	// 1. Authorization Check
	canCreate, err := s.authzSvc.Can(ctx, params.CustomerID, domain.PermOrdersCreate)
	if err != nil {
		return nil, err
	}
	if !canCreate {
		return nil, apperrors.ErrForbidden
	}

	// 2. Resolve prices from the menu
	items, err := s.resolveLines(ctx, params.Lines)
	if err != nil {
		return nil, err
	}

	// 3. Create domain entity with validation
	order, err := domain.NewOrder(domain.OrderParams{
		CustomerID:  params.CustomerID,
		Items:       items,
		Phone:       params.Phone,
		Address:     params.Address,
		PaymentType: params.PaymentType,
	})
	if err != nil {
		return nil, err
	}

	// 4. Persist; nothing is announced if this fails
	created, err := s.orderRepo.Create(ctx, order)
	if err != nil {
		return nil, err
	}

	// 5. Notify subscribers
	s.publisher.Publish(context.WithoutCancel(ctx), domain.EventOrderPlaced, domain.NewOrderSummary(created))

	return created, nil
}

// UpdateStatus moves an order forward and announces the change to the
// order's group.
func (s *OrderService) UpdateStatus(ctx context.Context, params ports.UpdateOrderStatusParams) (*domain.Order, error) {
	// 1. Authorization Check
	canUpdate, err := s.authzSvc.Can(ctx, params.ActorID, domain.PermOrdersUpdateStatus)
	if err != nil {
		return nil, err
	}
	if !canUpdate {
		return nil, apperrors.ErrForbidden
	}

	// 2. Fetch and update domain entity
	order, err := s.orderRepo.GetByID(ctx, params.OrderID)
	if err != nil {
		return nil, err
	}

	// 3. Apply status change (domain validates the transition)
	from := order.Status
	if err := order.UpdateStatus(params.Status); err != nil {
		return nil, err
	}

	// 4. Persist changes; fails if another update got there first
	updated, err := s.orderRepo.UpdateStatus(ctx, order, from)
	if err != nil {
		return nil, err
	}

	// 5. Notify subscribers
	s.publisher.Publish(context.WithoutCancel(ctx), domain.EventOrderUpdated, domain.NewOrderStatusChange(updated))

	return updated, nil
}

// GetOrder retrieves an order the viewer owns, or any order for admins.
func (s *OrderService) GetOrder(ctx context.Context, orderID int64, viewerID uuid.UUID) (*domain.Order, error) {
	canRead, err := s.authzSvc.Can(ctx, viewerID, domain.PermOrdersRead)
	if err != nil {
		return nil, err
	}
	if !canRead {
		return nil, apperrors.ErrForbidden
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.IsOwnedBy(viewerID) {
		canReadAll, err := s.authzSvc.Can(ctx, viewerID, domain.PermOrdersReadAll)
		if err != nil {
			return nil, err
		}
		if !canReadAll {
			return nil, apperrors.ErrForbidden
		}
	}

	return order, nil
}

// ListOrders returns the viewer's own orders, or every open order for admins.
func (s *OrderService) ListOrders(ctx context.Context, viewerID uuid.UUID) ([]*domain.Order, error) {
	canReadAll, err := s.authzSvc.Can(ctx, viewerID, domain.PermOrdersReadAll)
	if err != nil {
		return nil, err
	}
	if canReadAll {
		return s.orderRepo.ListOpen(ctx)
	}

	return s.orderRepo.ListByCustomer(ctx, viewerID)
}

// IsOwner reports whether userID placed the order. A missing order is not
// owned by anyone.
func (s *OrderService) IsOwner(ctx context.Context, orderID int64, userID uuid.UUID) (bool, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, apperrors.ErrOrderNotFound) {
			return false, nil
		}
		return false, err
	}
	return order.IsOwnedBy(userID), nil
}

func (s *OrderService) resolveLines(ctx context.Context, lines []ports.OrderLine) ([]domain.OrderItem, error) {
	if len(lines) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(lines))
	seen := make(map[int64]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ItemID]; ok {
			continue
		}
		seen[line.ItemID] = struct{}{}
		ids = append(ids, line.ItemID)
	}

	menuItems, err := s.menuRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*domain.MenuItem, len(menuItems))
	for _, item := range menuItems {
		byID[item.ID] = item
	}

	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		menuItem, ok := byID[line.ItemID]
		if !ok {
			errs := apperrors.NewValidationErrors()
			errs.Add("items", fmt.Sprintf("Menu item %d does not exist", line.ItemID))
			return nil, errs
		}
		items = append(items, menuItem.ToOrderItem(line.Quantity))
	}
	return items, nil
}
