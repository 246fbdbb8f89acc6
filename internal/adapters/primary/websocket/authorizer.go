package websocket

import (
	"context"

	"github.com/google/uuid"
	"github.com/lorrc/pizza-orders-backend/internal/core/domain"
	apperrors "github.com/lorrc/pizza-orders-backend/internal/core/errors"
)

// JoinAuthorizer decides whether a connection may join a group. It returns
// nil to allow, or an error wrapping apperrors.ErrForbidden to deny.
type JoinAuthorizer interface {
	AuthorizeJoin(ctx context.Context, client *Client, group string) error
}

// OwnershipChecker reports whether a user placed an order.
type OwnershipChecker interface {
	IsOwner(ctx context.Context, orderID int64, userID uuid.UUID) (bool, error)
}

// AllowAllAuthorizer lets any connection join any valid group.
type AllowAllAuthorizer struct{}

func (AllowAllAuthorizer) AuthorizeJoin(context.Context, *Client, string) error {
	return nil
}

// OwnershipAuthorizer restricts the admin room to admins and an order's
// group to its customer and admins.
type OwnershipAuthorizer struct {
	orders OwnershipChecker
}

// NewOwnershipAuthorizer creates an authorizer backed by order ownership.
func NewOwnershipAuthorizer(orders OwnershipChecker) *OwnershipAuthorizer {
	return &OwnershipAuthorizer{orders: orders}
}

func (a *OwnershipAuthorizer) AuthorizeJoin(ctx context.Context, client *Client, group string) error {
	if client.Role == domain.RoleAdmin {
		return nil
	}
	if group == domain.AdminGroup {
		return apperrors.ErrForbidden
	}

	orderID, ok := domain.ParseOrderGroup(group)
	if !ok {
		return apperrors.ErrInvalidGroup
	}

	owned, err := a.orders.IsOwner(ctx, orderID, client.UserID)
	if err != nil {
		return err
	}
	if !owned {
		return apperrors.ErrForbidden
	}
	return nil
}
