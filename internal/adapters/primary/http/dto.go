package http

import (
	"path"
	"time"

	"github.com/lorrc/pizza-orders-backend/internal/core/domain"
)

// UserDTO defines the JSON response for users.
type UserDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
}

func toUserDTO(user *domain.User) UserDTO {
	return UserDTO{
		ID:        user.ID.String(),
		Name:      user.Name,
		Email:     user.Email,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// MenuItemDTO defines the JSON response for menu items.
type MenuItemDTO struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Image    string  `json:"image"`
	ImageURL string  `json:"imageUrl"`
	Price    float64 `json:"price"`
	Size     string  `json:"size"`
}

func toMenuItemDTO(item *domain.MenuItem, uploadsPrefix string) MenuItemDTO {
	return MenuItemDTO{
		ID:       item.ID,
		Name:     item.Name,
		Image:    item.Image,
		ImageURL: path.Join(uploadsPrefix, item.Image),
		Price:    domain.CentsToAmount(item.PriceCents),
		Size:     string(item.Size),
	}
}

func toMenuItemDTOs(items []*domain.MenuItem, uploadsPrefix string) []MenuItemDTO {
	response := make([]MenuItemDTO, 0, len(items))
	for _, item := range items {
		response = append(response, toMenuItemDTO(item, uploadsPrefix))
	}
	return response
}

// OrderDTO defines the JSON response for orders. It shares the line and
// total shape of the realtime orderPlaced payload.
type OrderDTO struct {
	domain.OrderSummary
	UpdatedAt *string `json:"updatedAt"`
}

func toOrderDTO(order *domain.Order) OrderDTO {
	var updatedAt *string
	if order.UpdatedAt != nil {
		value := order.UpdatedAt.UTC().Format(time.RFC3339)
		updatedAt = &value
	}
	return OrderDTO{
		OrderSummary: domain.NewOrderSummary(order),
		UpdatedAt:    updatedAt,
	}
}

func toOrderDTOs(orders []*domain.Order) []OrderDTO {
	response := make([]OrderDTO, 0, len(orders))
	for _, order := range orders {
		response = append(response, toOrderDTO(order))
	}
	return response
}
