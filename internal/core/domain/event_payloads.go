package domain

import (
	"time"
)

// OrderItemSnapshot matches the API response shape for order lines.
type OrderItemSnapshot struct {
	ItemID   int64   `json:"itemId"`
	Name     string  `json:"name"`
	Size     string  `json:"size"`
	Price    float64 `json:"price"`
	Quantity int     `json:"qty"`
}

// OrderSummary is the payload of an orderPlaced notification.
type OrderSummary struct {
	ID          int64               `json:"id"`
	CustomerID  string              `json:"customerId"`
	Items       []OrderItemSnapshot `json:"items"`
	Total       float64             `json:"total"`
	Status      string              `json:"status"`
	Phone       string              `json:"phone"`
	Address     string              `json:"address"`
	PaymentType string              `json:"paymentType"`
	CreatedAt   string              `json:"createdAt"`
}

// OrderID implements OrderIdentified.
func (s OrderSummary) OrderID() int64 { return s.ID }

// OrderStatusChange is the payload of an orderUpdated notification.
type OrderStatusChange struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updatedAt"`
}

// OrderID implements OrderIdentified.
func (c OrderStatusChange) OrderID() int64 { return c.ID }

// CentsToAmount converts integer cents to a decimal amount.
func CentsToAmount(cents int64) float64 {
	return float64(cents) / 100
}

// NewOrderSummary builds an order summary from a domain order.
func NewOrderSummary(order *Order) OrderSummary {
	items := make([]OrderItemSnapshot, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemSnapshot{
			ItemID:   item.ItemID,
			Name:     item.Name,
			Size:     string(item.Size),
			Price:    CentsToAmount(item.PriceCents),
			Quantity: item.Quantity,
		})
	}

	return OrderSummary{
		ID:          order.ID,
		CustomerID:  order.CustomerID.String(),
		Items:       items,
		Total:       CentsToAmount(order.TotalCents()),
		Status:      string(order.Status),
		Phone:       order.Phone,
		Address:     order.Address,
		PaymentType: string(order.PaymentType),
		CreatedAt:   order.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// NewOrderStatusChange builds a status change payload from a domain order.
func NewOrderStatusChange(order *Order) OrderStatusChange {
	updatedAt := order.CreatedAt
	if order.UpdatedAt != nil {
		updatedAt = *order.UpdatedAt
	}
	return OrderStatusChange{
		ID:        order.ID,
		Status:    string(order.Status),
		UpdatedAt: updatedAt.UTC().Format(time.RFC3339),
	}
}
