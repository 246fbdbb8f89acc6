package ports

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/lorrc/pizza-orders-backend/internal/core/domain"
)

// UserRepository defines the persistence port for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// OrderRepository defines the persistence port for orders.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	// UpdateStatus writes order.Status only while the stored status is still from.
	UpdateStatus(ctx context.Context, order *domain.Order, from domain.OrderStatus) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Order, error)
	// ListOpen returns every order that is not completed, newest first.
	ListOpen(ctx context.Context) ([]*domain.Order, error)
}

// MenuRepository defines the persistence port for menu items.
type MenuRepository interface {
	Create(ctx context.Context, item *domain.MenuItem) (*domain.MenuItem, error)
	Update(ctx context.Context, item *domain.MenuItem) (*domain.MenuItem, error)
	GetByID(ctx context.Context, id int64) (*domain.MenuItem, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*domain.MenuItem, error)
	List(ctx context.Context) ([]*domain.MenuItem, error)
}

// ImageStore defines the port for storing uploaded item images.
type ImageStore interface {
	// Save stores the image and returns the generated file name.
	Save(ctx context.Context, originalName string, content io.Reader) (string, error)
	Delete(ctx context.Context, name string) error
}
