package websocket

import (
	"context"
	"log/slog"

	"github.com/lorrc/pizza-orders-backend/internal/core/domain"
	"github.com/lorrc/pizza-orders-backend/internal/core/ports"
)

// Relay carries group-addressed frames between instances. Every instance,
// including the publisher, receives each frame through its forwarder.
type Relay interface {
	Publish(ctx context.Context, group string, frame []byte) error
	StartForwarder(ctx context.Context, onFrame func(group string, frame []byte)) error
	Close() error
}

// Gateway turns bus events into frames for the hub's groups.
type Gateway struct {
	hub    *Hub
	relay  Relay
	logger *slog.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithRelay routes frames through relay instead of the local hub.
func WithRelay(relay Relay) GatewayOption {
	return func(g *Gateway) { g.relay = relay }
}

// NewGateway creates a gateway that fans out to hub.
func NewGateway(hub *Hub, logger *slog.Logger, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		hub:    hub,
		logger: logger.With("component", "realtime_gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Subscribe registers the gateway on both order event kinds.
func (g *Gateway) Subscribe(bus ports.NotificationBus) {
	bus.Subscribe(domain.EventOrderUpdated, g.handleOrderUpdated)
	bus.Subscribe(domain.EventOrderPlaced, g.handleOrderPlaced)
}

// Start begins forwarding relayed frames to the local hub. Without a relay
// it does nothing. The forwarder stops when ctx is cancelled.
func (g *Gateway) Start(ctx context.Context) error {
	if g.relay == nil {
		return nil
	}
	return g.relay.StartForwarder(ctx, g.deliverLocal)
}

func (g *Gateway) handleOrderUpdated(ctx context.Context, event domain.Event) error {
	id, ok := orderID(event.Payload)
	if !ok {
		g.logger.Warn("dropping event without order id", "kind", event.Kind)
		return nil
	}
	g.emit(ctx, domain.OrderGroup(id), event)
	return nil
}

func (g *Gateway) handleOrderPlaced(ctx context.Context, event domain.Event) error {
	if _, ok := orderID(event.Payload); !ok {
		g.logger.Warn("dropping event without order id", "kind", event.Kind)
		return nil
	}
	g.emit(ctx, domain.AdminGroup, event)
	return nil
}

func (g *Gateway) emit(ctx context.Context, group string, event domain.Event) {
	frame, err := EncodeMessage(string(event.Kind), event.Payload)
	if err != nil {
		g.logger.Error("failed to encode event", "kind", event.Kind, "error", err)
		return
	}

	if g.relay != nil {
		err := g.relay.Publish(ctx, group, frame)
		if err == nil {
			return
		}
		// Local members still get the frame when the relay is down.
		g.logger.Warn("relay publish failed, delivering locally",
			"kind", event.Kind,
			"group", group,
			"error", err,
		)
	}

	g.hub.EmitToGroup(group, frame)
}

func (g *Gateway) deliverLocal(group string, frame []byte) {
	if !domain.IsValidGroup(group) {
		g.logger.Warn("dropping relayed frame for invalid group", "group", group)
		return
	}
	g.hub.EmitToGroup(group, frame)
}

func orderID(payload any) (int64, bool) {
	identified, ok := payload.(domain.OrderIdentified)
	if !ok {
		return 0, false
	}
	id := identified.OrderID()
	return id, id > 0
}
