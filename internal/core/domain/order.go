package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/lorrc/pizza-orders-backend/internal/core/errors"
)

const (
	MaxPhoneLength   = 32
	MaxAddressLength = 512
	MaxItemQuantity  = 50
)

// OrderStatus represents the possible states of an order.
type OrderStatus string

const (
	StatusPlaced    OrderStatus = "order_placed"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPrepared  OrderStatus = "prepared"
	StatusDelivered OrderStatus = "delivered"
	StatusCompleted OrderStatus = "completed"
)

// statusRank orders the lifecycle; transitions only move forward.
var statusRank = map[OrderStatus]int{
	StatusPlaced:    0,
	StatusConfirmed: 1,
	StatusPrepared:  2,
	StatusDelivered: 3,
	StatusCompleted: 4,
}

// OrderStatuses lists every status in lifecycle order.
func OrderStatuses() []OrderStatus {
	return []OrderStatus{StatusPlaced, StatusConfirmed, StatusPrepared, StatusDelivered, StatusCompleted}
}

// IsValid reports whether the status is part of the lifecycle.
func (s OrderStatus) IsValid() bool {
	_, ok := statusRank[s]
	return ok
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted
}

// PaymentType is how the customer pays for the order.
type PaymentType string

const (
	PaymentCOD  PaymentType = "cod"
	PaymentCard PaymentType = "card"
)

// IsValid reports whether the payment type is supported.
func (p PaymentType) IsValid() bool {
	return p == PaymentCOD || p == PaymentCard
}

// OrderItem is a menu item line captured at order time.
type OrderItem struct {
	ItemID     int64
	Name       string
	Size       ItemSize
	PriceCents int64
	Quantity   int
}

// LineTotalCents returns price times quantity.
func (i OrderItem) LineTotalCents() int64 {
	return i.PriceCents * int64(i.Quantity)
}

// Order is the core domain entity.
type Order struct {
	ID          int64
	CustomerID  uuid.UUID
	Items       []OrderItem
	Phone       string
	Address     string
	PaymentType PaymentType
	Status      OrderStatus
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// OrderParams holds the input for building a new order.
type OrderParams struct {
	CustomerID  uuid.UUID
	Items       []OrderItem
	Phone       string
	Address     string
	PaymentType PaymentType
}

// Validate checks the order params and collects field errors.
func (p *OrderParams) Validate() error {
	errs := apperrors.NewValidationErrors()

	if p.CustomerID == uuid.Nil {
		errs.Add("customerId", apperrors.ErrCustomerRequired.Error())
	}

	if len(p.Items) == 0 {
		errs.Add("items", apperrors.ErrOrderItemsRequired.Error())
	}
	for _, item := range p.Items {
		if item.Quantity <= 0 || item.Quantity > MaxItemQuantity {
			errs.Add("items", apperrors.ErrInvalidQuantity.Error())
			break
		}
	}

	phone := strings.TrimSpace(p.Phone)
	if phone == "" {
		errs.Add("phone", apperrors.ErrPhoneRequired.Error())
	} else if len(phone) > MaxPhoneLength {
		errs.Add("phone", "Phone must be 32 characters or less")
	}

	address := strings.TrimSpace(p.Address)
	if address == "" {
		errs.Add("address", apperrors.ErrAddressRequired.Error())
	} else if len(address) > MaxAddressLength {
		errs.Add("address", "Address must be 512 characters or less")
	}

	if !p.PaymentType.IsValid() {
		errs.Add("paymentType", apperrors.ErrInvalidPaymentType.Error())
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// NewOrder is a factory function to create a valid new order.
func NewOrder(params OrderParams) (*Order, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	items := make([]OrderItem, len(params.Items))
	copy(items, params.Items)

	return &Order{
		CustomerID:  params.CustomerID,
		Items:       items,
		Phone:       strings.TrimSpace(params.Phone),
		Address:     strings.TrimSpace(params.Address),
		PaymentType: params.PaymentType,
		Status:      StatusPlaced,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// TotalCents sums every line of the order.
func (o *Order) TotalCents() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.LineTotalCents()
	}
	return total
}

// IsOwnedBy checks if the order belongs to the given customer.
func (o *Order) IsOwnedBy(userID uuid.UUID) bool {
	return o.CustomerID == userID
}

// UpdateStatus moves the order forward in its lifecycle. Steps may be
// skipped, but an order never moves backward or leaves completed.
func (o *Order) UpdateStatus(newStatus OrderStatus) error {
	if !newStatus.IsValid() {
		return apperrors.ErrInvalidStatus
	}
	if o.Status.IsTerminal() || statusRank[newStatus] <= statusRank[o.Status] {
		return apperrors.ErrInvalidStatusTransition
	}

	o.Status = newStatus
	now := time.Now().UTC()
	o.UpdatedAt = &now
	return nil
}
