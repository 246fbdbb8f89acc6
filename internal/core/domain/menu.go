package domain

import (
	"strings"

	apperrors "github.com/lorrc/pizza-orders-backend/internal/core/errors"
)

const MaxItemNameLength = 120

// ItemSize is the pizza size offered on the menu.
type ItemSize string

const (
	SizeSmall  ItemSize = "small"
	SizeMedium ItemSize = "medium"
	SizeLarge  ItemSize = "large"
)

// IsValid reports whether the size is offered.
func (s ItemSize) IsValid() bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge:
		return true
	}
	return false
}

// MenuItem is a product that can be ordered.
type MenuItem struct {
	ID         int64
	Name       string
	Image      string
	PriceCents int64
	Size       ItemSize
}

// MenuItemParams holds the input for creating or replacing a menu item.
type MenuItemParams struct {
	Name       string
	Image      string
	PriceCents int64
	Size       ItemSize
}

// Validate checks the menu item fields.
func (p *MenuItemParams) Validate() error {
	errs := apperrors.NewValidationErrors()

	name := strings.TrimSpace(p.Name)
	if name == "" {
		errs.Add("name", apperrors.ErrItemNameRequired.Error())
	} else if len(name) > MaxItemNameLength {
		errs.Add("name", "Name must be 120 characters or less")
	}
	if p.PriceCents <= 0 {
		errs.Add("price", apperrors.ErrInvalidPrice.Error())
	}
	if !p.Size.IsValid() {
		errs.Add("size", apperrors.ErrInvalidSize.Error())
	}
	if strings.TrimSpace(p.Image) == "" {
		errs.Add("file", apperrors.ErrImageRequired.Error())
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// NewMenuItem builds a validated menu item.
func NewMenuItem(params MenuItemParams) (*MenuItem, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &MenuItem{
		Name:       strings.TrimSpace(params.Name),
		Image:      params.Image,
		PriceCents: params.PriceCents,
		Size:       params.Size,
	}, nil
}

// ToOrderItem captures the item at its current price.
func (m *MenuItem) ToOrderItem(qty int) OrderItem {
	return OrderItem{
		ItemID:     m.ID,
		Name:       m.Name,
		Size:       m.Size,
		PriceCents: m.PriceCents,
		Quantity:   qty,
	}
}
