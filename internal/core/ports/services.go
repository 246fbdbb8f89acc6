package ports

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/lorrc/pizza-orders-backend/internal/core/domain"
)

// AuthService defines the port for authentication business logic.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
}

// AuthorizationService defines the port for checking user permissions.
type AuthorizationService interface {
	Can(ctx context.Context, userID uuid.UUID, permission string) (bool, error)
	GetPermissions(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// OrderLine is one requested menu item and quantity.
type OrderLine struct {
	ItemID   int64
	Quantity int
}

// PlaceOrderParams defines the input for placing an order.
type PlaceOrderParams struct {
	CustomerID  uuid.UUID
	Lines       []OrderLine
	Phone       string
	Address     string
	PaymentType domain.PaymentType
}

// UpdateOrderStatusParams defines the input for changing an order's status.
type UpdateOrderStatusParams struct {
	OrderID int64
	Status  domain.OrderStatus
	ActorID uuid.UUID
}

// OrderService defines the business operations for orders.
type OrderService interface {
	PlaceOrder(ctx context.Context, params PlaceOrderParams) (*domain.Order, error)
	UpdateStatus(ctx context.Context, params UpdateOrderStatusParams) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID int64, viewerID uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, viewerID uuid.UUID) ([]*domain.Order, error)
	IsOwner(ctx context.Context, orderID int64, userID uuid.UUID) (bool, error)
}

// ImageUpload is an uploaded image file.
type ImageUpload struct {
	Filename string
	Content  io.Reader
}

// SaveMenuItemParams defines the input for creating or replacing a menu item.
type SaveMenuItemParams struct {
	ActorID    uuid.UUID
	Name       string
	PriceCents int64
	Size       domain.ItemSize
	Image      *ImageUpload
}

// MenuService defines the business operations for the menu.
type MenuService interface {
	ListItems(ctx context.Context) ([]*domain.MenuItem, error)
	CreateItem(ctx context.Context, params SaveMenuItemParams) (*domain.MenuItem, error)
	UpdateItem(ctx context.Context, itemID int64, params SaveMenuItemParams) (*domain.MenuItem, error)
}

// EventHandler receives events from the notification bus.
type EventHandler func(ctx context.Context, event domain.Event) error

// EventPublisher defines the port services use to announce order changes.
type EventPublisher interface {
	Publish(ctx context.Context, kind domain.EventKind, payload any)
}

// NotificationBus is the in-process publish/subscribe hub.
type NotificationBus interface {
	EventPublisher
	Subscribe(kind domain.EventKind, handler EventHandler)
	Subscribers(kind domain.EventKind) int
}

// TransactionManager defines the port for running atomic operations.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
