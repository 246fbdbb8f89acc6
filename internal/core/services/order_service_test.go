package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/pizza-orders-backend/internal/core/bus"
	"github.com/lorrc/pizza-orders-backend/internal/core/domain"
	apperrors "github.com/lorrc/pizza-orders-backend/internal/core/errors"
	"github.com/lorrc/pizza-orders-backend/internal/core/mocks"
	"github.com/lorrc/pizza-orders-backend/internal/core/ports"
	"github.com/lorrc/pizza-orders-backend/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type orderFixture struct {
	orderRepo *mocks.MockOrderRepository
	menuRepo  *mocks.MockMenuRepository
	authz     *mocks.MockAuthorizationService
	publisher *mocks.MockEventPublisher
	svc       ports.OrderService
}

func newOrderFixture() *orderFixture {
	f := &orderFixture{
		orderRepo: mocks.NewMockOrderRepository(),
		menuRepo:  mocks.NewMockMenuRepository(),
		authz:     mocks.NewMockAuthorizationService(),
		publisher: mocks.NewMockEventPublisher(),
	}
	f.svc = services.NewOrderService(f.orderRepo, f.menuRepo, f.authz, f.publisher)
	return f
}

func menuFixture() []*domain.MenuItem {
	return []*domain.MenuItem{
		{ID: 1, Name: "Margherita", Image: "1.png", PriceCents: 899, Size: domain.SizeMedium},
		{ID: 2, Name: "Pepperoni", Image: "2.png", PriceCents: 1099, Size: domain.SizeLarge},
	}
}

func placeParams(customerID uuid.UUID) ports.PlaceOrderParams {
	return ports.PlaceOrderParams{
		CustomerID:  customerID,
		Lines:       []ports.OrderLine{{ItemID: 1, Quantity: 2}, {ItemID: 2, Quantity: 1}},
		Phone:       "555-0100",
		Address:     "1 Main Street",
		PaymentType: domain.PaymentCOD,
	}
}

func TestOrderService_PlaceOrder(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()

	t.Run("success publishes order summary", func(t *testing.T) {
		f := newOrderFixture()

		f.authz.On("Can", ctx, customerID, domain.PermOrdersCreate).Return(true, nil)
		f.menuRepo.On("GetByIDs", ctx, []int64{1, 2}).Return(menuFixture(), nil)
		f.orderRepo.On("Create", ctx, mock.AnythingOfType("*domain.Order")).
			Return(func(_ context.Context, o *domain.Order) *domain.Order {
				o.ID = 42
				return o
			}, nil)
		f.publisher.On("Publish", mock.Anything, domain.EventOrderPlaced,
			mock.MatchedBy(func(s domain.OrderSummary) bool {
				return s.ID == 42 && s.Total == 28.97 && s.Status == "order_placed" && len(s.Items) == 2
			})).Return()

		order, err := f.svc.PlaceOrder(ctx, placeParams(customerID))

		require.NoError(t, err)
		assert.Equal(t, int64(42), order.ID)
		assert.Equal(t, int64(2897), order.TotalCents())
		assert.Equal(t, "Margherita", order.Items[0].Name)

		f.authz.AssertExpectations(t)
		f.orderRepo.AssertExpectations(t)
		f.publisher.AssertExpectations(t)
	})

	t.Run("forbidden when no permission", func(t *testing.T) {
		f := newOrderFixture()
		f.authz.On("Can", ctx, customerID, domain.PermOrdersCreate).Return(false, nil)

		order, err := f.svc.PlaceOrder(ctx, placeParams(customerID))

		assert.Nil(t, order)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		f.menuRepo.AssertNotCalled(t, "GetByIDs")
		f.publisher.AssertNotCalled(t, "Publish")
	})

	t.Run("unknown menu item", func(t *testing.T) {
		f := newOrderFixture()
		f.authz.On("Can", ctx, customerID, domain.PermOrdersCreate).Return(true, nil)
		f.menuRepo.On("GetByIDs", ctx, []int64{1, 2}).Return(menuFixture()[:1], nil)

		order, err := f.svc.PlaceOrder(ctx, placeParams(customerID))

		assert.Nil(t, order)
		var validationErr *apperrors.ValidationErrors
		require.ErrorAs(t, err, &validationErr)
		assert.Contains(t, validationErr.Errors, "items")
		f.orderRepo.AssertNotCalled(t, "Create")
	})

	t.Run("validation error for missing address", func(t *testing.T) {
		f := newOrderFixture()
		f.authz.On("Can", ctx, customerID, domain.PermOrdersCreate).Return(true, nil)
		f.menuRepo.On("GetByIDs", ctx, []int64{1, 2}).Return(menuFixture(), nil)

		params := placeParams(customerID)
		params.Address = ""

		order, err := f.svc.PlaceOrder(ctx, params)

		assert.Nil(t, order)
		assert.Error(t, err)
		f.orderRepo.AssertNotCalled(t, "Create")
		f.publisher.AssertNotCalled(t, "Publish")
	})

	t.Run("persistence failure publishes nothing", func(t *testing.T) {
		f := newOrderFixture()
		f.authz.On("Can", ctx, customerID, domain.PermOrdersCreate).Return(true, nil)
		f.menuRepo.On("GetByIDs", ctx, []int64{1, 2}).Return(menuFixture(), nil)
		f.orderRepo.On("Create", ctx, mock.AnythingOfType("*domain.Order")).
			Return(nil, errors.New("insert failed"))

		order, err := f.svc.PlaceOrder(ctx, placeParams(customerID))

		assert.Nil(t, order)
		assert.Error(t, err)
		f.publisher.AssertNotCalled(t, "Publish")
	})
}

func TestOrderService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	adminID := uuid.New()

	existing := func() *domain.Order {
		return &domain.Order{
			ID:         7,
			CustomerID: uuid.New(),
			Status:     domain.StatusPlaced,
			CreatedAt:  time.Now().UTC(),
		}
	}

	t.Run("success publishes status change", func(t *testing.T) {
		f := newOrderFixture()
		f.authz.On("Can", ctx, adminID, domain.PermOrdersUpdateStatus).Return(true, nil)
		f.orderRepo.On("GetByID", ctx, int64(7)).Return(existing(), nil)
		f.orderRepo.On("UpdateStatus", ctx, mock.MatchedBy(func(o *domain.Order) bool {
			return o.Status == domain.StatusConfirmed
		}), domain.StatusPlaced).Return(func(_ context.Context, o *domain.Order) *domain.Order { return o }, nil)
		f.publisher.On("Publish", mock.Anything, domain.EventOrderUpdated,
			mock.MatchedBy(func(c domain.OrderStatusChange) bool {
				return c.ID == 7 && c.Status == "confirmed" && c.UpdatedAt != ""
			})).Return()

		order, err := f.svc.UpdateStatus(ctx, ports.UpdateOrderStatusParams{
			OrderID: 7,
			Status:  domain.StatusConfirmed,
			ActorID: adminID,
		})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusConfirmed, order.Status)
		f.publisher.AssertExpectations(t)
	})

	t.Run("customer cannot update status", func(t *testing.T) {
		f := newOrderFixture()
		f.authz.On("Can", ctx, adminID, domain.PermOrdersUpdateStatus).Return(false, nil)

		order, err := f.svc.UpdateStatus(ctx, ports.UpdateOrderStatusParams{
			OrderID: 7,
			Status:  domain.StatusConfirmed,
			ActorID: adminID,
		})

		assert.Nil(t, order)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		f.orderRepo.AssertNotCalled(t, "GetByID")
	})

	t.Run("backward transition is rejected", func(t *testing.T) {
		f := newOrderFixture()
		order := existing()
		order.Status = domain.StatusDelivered
		f.authz.On("Can", ctx, adminID, domain.PermOrdersUpdateStatus).Return(true, nil)
		f.orderRepo.On("GetByID", ctx, int64(7)).Return(order, nil)

		updated, err := f.svc.UpdateStatus(ctx, ports.UpdateOrderStatusParams{
			OrderID: 7,
			Status:  domain.StatusConfirmed,
			ActorID: adminID,
		})

		assert.Nil(t, updated)
		assert.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)
		f.orderRepo.AssertNotCalled(t, "UpdateStatus")
		f.publisher.AssertNotCalled(t, "Publish")
	})

	t.Run("order not found", func(t *testing.T) {
		f := newOrderFixture()
		f.authz.On("Can", ctx, adminID, domain.PermOrdersUpdateStatus).Return(true, nil)
		f.orderRepo.On("GetByID", ctx, int64(7)).Return(nil, apperrors.ErrOrderNotFound)

		updated, err := f.svc.UpdateStatus(ctx, ports.UpdateOrderStatusParams{
			OrderID: 7,
			Status:  domain.StatusConfirmed,
			ActorID: adminID,
		})

		assert.Nil(t, updated)
		assert.ErrorIs(t, err, apperrors.ErrOrderNotFound)
	})

	t.Run("persistence failure publishes nothing", func(t *testing.T) {
		f := newOrderFixture()
		f.authz.On("Can", ctx, adminID, domain.PermOrdersUpdateStatus).Return(true, nil)
		f.orderRepo.On("GetByID", ctx, int64(7)).Return(existing(), nil)
		f.orderRepo.On("UpdateStatus", ctx, mock.AnythingOfType("*domain.Order"), domain.StatusPlaced).
			Return(nil, errors.New("update failed"))

		updated, err := f.svc.UpdateStatus(ctx, ports.UpdateOrderStatusParams{
			OrderID: 7,
			Status:  domain.StatusConfirmed,
			ActorID: adminID,
		})

		assert.Nil(t, updated)
		assert.Error(t, err)
		f.publisher.AssertNotCalled(t, "Publish")
	})

	t.Run("concurrent change wins", func(t *testing.T) {
		f := newOrderFixture()
		f.authz.On("Can", ctx, adminID, domain.PermOrdersUpdateStatus).Return(true, nil)
		f.orderRepo.On("GetByID", ctx, int64(7)).Return(existing(), nil)
		f.orderRepo.On("UpdateStatus", ctx, mock.AnythingOfType("*domain.Order"), domain.StatusPlaced).
			Return(nil, apperrors.ErrInvalidStatusTransition)

		updated, err := f.svc.UpdateStatus(ctx, ports.UpdateOrderStatusParams{
			OrderID: 7,
			Status:  domain.StatusConfirmed,
			ActorID: adminID,
		})

		assert.Nil(t, updated)
		assert.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)
		f.publisher.AssertNotCalled(t, "Publish")
	})
}

func TestOrderService_GetOrder(t *testing.T) {
	ctx := context.Background()
	viewerID := uuid.New()

	t.Run("owner can read own order", func(t *testing.T) {
		f := newOrderFixture()
		order := &domain.Order{ID: 3, CustomerID: viewerID}
		f.authz.On("Can", ctx, viewerID, domain.PermOrdersRead).Return(true, nil)
		f.orderRepo.On("GetByID", ctx, int64(3)).Return(order, nil)

		got, err := f.svc.GetOrder(ctx, 3, viewerID)

		require.NoError(t, err)
		assert.Equal(t, order, got)
		f.authz.AssertNotCalled(t, "Can", ctx, viewerID, domain.PermOrdersReadAll)
	})

	t.Run("non-owner without read all is forbidden", func(t *testing.T) {
		f := newOrderFixture()
		order := &domain.Order{ID: 3, CustomerID: uuid.New()}
		f.authz.On("Can", ctx, viewerID, domain.PermOrdersRead).Return(true, nil)
		f.authz.On("Can", ctx, viewerID, domain.PermOrdersReadAll).Return(false, nil)
		f.orderRepo.On("GetByID", ctx, int64(3)).Return(order, nil)

		got, err := f.svc.GetOrder(ctx, 3, viewerID)

		assert.Nil(t, got)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("admin can read any order", func(t *testing.T) {
		f := newOrderFixture()
		order := &domain.Order{ID: 3, CustomerID: uuid.New()}
		f.authz.On("Can", ctx, viewerID, domain.PermOrdersRead).Return(true, nil)
		f.authz.On("Can", ctx, viewerID, domain.PermOrdersReadAll).Return(true, nil)
		f.orderRepo.On("GetByID", ctx, int64(3)).Return(order, nil)

		got, err := f.svc.GetOrder(ctx, 3, viewerID)

		require.NoError(t, err)
		assert.Equal(t, order, got)
	})

	t.Run("read all lookup failure is returned", func(t *testing.T) {
		f := newOrderFixture()
		lookupErr := errors.New("authz unavailable")
		order := &domain.Order{ID: 3, CustomerID: uuid.New()}
		f.authz.On("Can", ctx, viewerID, domain.PermOrdersRead).Return(true, nil)
		f.authz.On("Can", ctx, viewerID, domain.PermOrdersReadAll).Return(false, lookupErr)
		f.orderRepo.On("GetByID", ctx, int64(3)).Return(order, nil)

		got, err := f.svc.GetOrder(ctx, 3, viewerID)

		assert.Nil(t, got)
		assert.ErrorIs(t, err, lookupErr)
		assert.NotErrorIs(t, err, apperrors.ErrForbidden)
	})
}

func TestOrderService_ListOrders(t *testing.T) {
	ctx := context.Background()
	viewerID := uuid.New()

	t.Run("customer sees own orders", func(t *testing.T) {
		f := newOrderFixture()
		own := []*domain.Order{{ID: 1, CustomerID: viewerID}}
		f.authz.On("Can", ctx, viewerID, domain.PermOrdersReadAll).Return(false, nil)
		f.orderRepo.On("ListByCustomer", ctx, viewerID).Return(own, nil)

		orders, err := f.svc.ListOrders(ctx, viewerID)

		require.NoError(t, err)
		assert.Equal(t, own, orders)
		f.orderRepo.AssertNotCalled(t, "ListOpen")
	})

	t.Run("admin sees open orders", func(t *testing.T) {
		f := newOrderFixture()
		open := []*domain.Order{{ID: 9}, {ID: 8}}
		f.authz.On("Can", ctx, viewerID, domain.PermOrdersReadAll).Return(true, nil)
		f.orderRepo.On("ListOpen", ctx).Return(open, nil)

		orders, err := f.svc.ListOrders(ctx, viewerID)

		require.NoError(t, err)
		assert.Equal(t, open, orders)
	})
}

func TestOrderService_IsOwner(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	f := newOrderFixture()
	f.orderRepo.On("GetByID", ctx, int64(1)).Return(&domain.Order{ID: 1, CustomerID: userID}, nil)
	f.orderRepo.On("GetByID", ctx, int64(2)).Return(&domain.Order{ID: 2, CustomerID: uuid.New()}, nil)
	f.orderRepo.On("GetByID", ctx, int64(3)).Return(nil, apperrors.ErrOrderNotFound)

	owned, err := f.svc.IsOwner(ctx, 1, userID)
	require.NoError(t, err)
	assert.True(t, owned)

	owned, err = f.svc.IsOwner(ctx, 2, userID)
	require.NoError(t, err)
	assert.False(t, owned)

	owned, err = f.svc.IsOwner(ctx, 3, userID)
	require.NoError(t, err)
	assert.False(t, owned)
}

func TestOrderService_PublishesOnRealBus(t *testing.T) {
	ctx := context.Background()
	adminID := uuid.New()

	orderRepo := mocks.NewMockOrderRepository()
	authz := mocks.NewMockAuthorizationService()
	b := bus.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc := services.NewOrderService(orderRepo, mocks.NewMockMenuRepository(), authz, b)

	var received []domain.Event
	b.Subscribe(domain.EventOrderUpdated, func(_ context.Context, evt domain.Event) error {
		received = append(received, evt)
		return nil
	})

	authz.On("Can", ctx, adminID, domain.PermOrdersUpdateStatus).Return(true, nil)
	orderRepo.On("GetByID", ctx, int64(5)).
		Return(&domain.Order{ID: 5, Status: domain.StatusPlaced, CreatedAt: time.Now()}, nil).Once()
	orderRepo.On("GetByID", ctx, int64(5)).
		Return(&domain.Order{ID: 5, Status: domain.StatusConfirmed, CreatedAt: time.Now()}, nil).Once()
	orderRepo.On("UpdateStatus", ctx, mock.AnythingOfType("*domain.Order"), mock.Anything).
		Return(func(_ context.Context, o *domain.Order) *domain.Order { return o }, nil)

	_, err := svc.UpdateStatus(ctx, ports.UpdateOrderStatusParams{OrderID: 5, Status: domain.StatusConfirmed, ActorID: adminID})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, ports.UpdateOrderStatusParams{OrderID: 5, Status: domain.StatusPrepared, ActorID: adminID})
	require.NoError(t, err)

	require.Len(t, received, 2)
	assert.Equal(t, "confirmed", received[0].Payload.(domain.OrderStatusChange).Status)
	assert.Equal(t, "prepared", received[1].Payload.(domain.OrderStatusChange).Status)
}
