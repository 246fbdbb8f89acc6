package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/lorrc/pizza-orders-backend/internal/adapters/primary/validation"
	"github.com/lorrc/pizza-orders-backend/internal/core/domain"
	"github.com/lorrc/pizza-orders-backend/internal/core/ports"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	orderService ports.OrderService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(
	orderService ports.OrderService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "orders"),
	}
}

// RegisterRoutes registers the order routes. placeLimit, when non-nil, wraps
// POST /orders and statusGuard wraps the status endpoint.
func (h *OrderHandler) RegisterRoutes(r chi.Router, placeLimit, statusGuard func(http.Handler) http.Handler) {
	place := http.Handler(http.HandlerFunc(h.HandlePlaceOrder))
	if placeLimit != nil {
		place = placeLimit(place)
	}
	status := http.Handler(http.HandlerFunc(h.HandleUpdateStatus))
	if statusGuard != nil {
		status = statusGuard(status)
	}

	r.Method(http.MethodPost, "/", place)
	r.Get("/", h.HandleListOrders)
	r.Get("/{orderID}", h.HandleGetOrder)
	r.Method(http.MethodPatch, "/{orderID}/status", status)
}

// OrderLineRequest is one requested line of an order.
type OrderLineRequest struct {
	ItemID   int64 `json:"itemId"`
	Quantity int   `json:"qty"`
}

// PlaceOrderRequest defines the expected JSON body for placing an order
type PlaceOrderRequest struct {
	Items       []OrderLineRequest `json:"items"`
	Phone       string             `json:"phone"`
	Address     string             `json:"address"`
	PaymentType string             `json:"paymentType"`
}

// Validate validates the place order request
func (r *PlaceOrderRequest) Validate() error {
	v := validation.NewValidator()

	v.Custom("items", len(r.Items) > 0, "At least one item is required")
	for _, line := range r.Items {
		if line.ItemID <= 0 {
			v.Custom("items", false, "Item id must be a positive integer")
			break
		}
	}
	for _, line := range r.Items {
		if line.Quantity < 1 || line.Quantity > domain.MaxItemQuantity {
			v.Range("items", line.Quantity, 1, domain.MaxItemQuantity)
			break
		}
	}
	v.Required("phone", r.Phone).
		MaxLength("phone", r.Phone, domain.MaxPhoneLength)
	v.Required("address", r.Address).
		MaxLength("address", r.Address, domain.MaxAddressLength)
	v.Required("paymentType", r.PaymentType).
		OneOf("paymentType", r.PaymentType, []string{string(domain.PaymentCOD), string(domain.PaymentCard)})

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdateStatusRequest defines the expected JSON body for a status change
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// Validate validates the update status request
func (r *UpdateStatusRequest) Validate() error {
	statuses := make([]string, 0, len(domain.OrderStatuses()))
	for _, s := range domain.OrderStatuses() {
		statuses = append(statuses, string(s))
	}

	v := validation.NewValidator()
	v.Required("status", r.Status).
		OneOf("status", r.Status, statuses)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// HandlePlaceOrder handles POST /orders
func (h *OrderHandler) HandlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[PlaceOrderRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	lines := make([]ports.OrderLine, 0, len(req.Items))
	for _, line := range req.Items {
		lines = append(lines, ports.OrderLine{ItemID: line.ItemID, Quantity: line.Quantity})
	}

	order, err := h.orderService.PlaceOrder(r.Context(), ports.PlaceOrderParams{
		CustomerID:  claims.UserID,
		Lines:       lines,
		Phone:       strings.TrimSpace(req.Phone),
		Address:     strings.TrimSpace(req.Address),
		PaymentType: domain.PaymentType(req.PaymentType),
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "order placed",
		"order_id", order.ID,
		"total_cents", order.TotalCents(),
	)
	WriteCreated(w, toOrderDTO(order))
}

// HandleListOrders handles GET /orders
func (h *OrderHandler) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	orders, err := h.orderService.ListOrders(r.Context(), claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, toOrderDTOs(orders))
}

// HandleGetOrder handles GET /orders/{orderID}
func (h *OrderHandler) HandleGetOrder(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	orderID, err := validation.ParseID("orderID", chi.URLParam(r, "orderID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), orderID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toOrderDTO(order))
}

// HandleUpdateStatus handles PATCH /orders/{orderID}/status
func (h *OrderHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	orderID, err := validation.ParseID("orderID", chi.URLParam(r, "orderID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[UpdateStatusRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), ports.UpdateOrderStatusParams{
		OrderID: orderID,
		Status:  domain.OrderStatus(req.Status),
		ActorID: claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "order status updated",
		"order_id", order.ID,
		"status", order.Status,
	)
	WriteJSON(w, http.StatusOK, toOrderDTO(order))
}
