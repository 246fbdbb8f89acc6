// Package bus is the in-process notification bus that carries order
// state changes from the services to their subscribers.
package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lorrc/pizza-orders-backend/internal/core/domain"
	"github.com/lorrc/pizza-orders-backend/internal/core/ports"
)

// SubscriberPolicy controls what Subscribe does when a kind already has
// a subscriber.
type SubscriberPolicy int

const (
	// PolicyAppend keeps every subscriber, invoked in registration order.
	PolicyAppend SubscriberPolicy = iota
	// PolicyReplace keeps exactly one subscriber per kind; the last one wins.
	PolicyReplace
)

// ParseSubscriberPolicy maps a config value to a policy.
func ParseSubscriberPolicy(s string) (SubscriberPolicy, error) {
	switch s {
	case "", "append":
		return PolicyAppend, nil
	case "replace":
		return PolicyReplace, nil
	default:
		return PolicyAppend, fmt.Errorf("unknown subscriber policy %q", s)
	}
}

// Option configures a Bus.
type Option func(*Bus)

// WithSubscriberPolicy sets the subscriber policy.
func WithSubscriberPolicy(p SubscriberPolicy) Option {
	return func(b *Bus) { b.policy = p }
}

// Bus is a synchronous publish/subscribe hub keyed by event kind.
//
// Publish runs every subscriber of the kind on the caller's goroutine.
// Dispatch is serialized: subscribers see events in exactly the order the
// Publish calls acquired the bus, and never run concurrently with each
// other. Subscribers must not call Publish.
type Bus struct {
	mu       sync.RWMutex
	handlers map[domain.EventKind][]ports.EventHandler
	policy   SubscriberPolicy

	dispatchMu sync.Mutex

	logger *slog.Logger
}

var _ ports.NotificationBus = (*Bus)(nil)

// New creates an empty bus.
func New(logger *slog.Logger, opts ...Option) *Bus {
	b := &Bus{
		handlers: make(map[domain.EventKind][]ports.EventHandler),
		policy:   PolicyAppend,
		logger:   logger.With("component", "notification_bus"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers handler for kind.
func (b *Bus) Subscribe(kind domain.EventKind, handler ports.EventHandler) {
	if handler == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.policy == PolicyReplace {
		b.handlers[kind] = []ports.EventHandler{handler}
	} else {
		b.handlers[kind] = append(b.handlers[kind], handler)
	}

	b.logger.Debug("subscriber registered",
		"kind", kind,
		"subscribers", len(b.handlers[kind]),
	)
}

// Subscribers returns how many subscribers kind has.
func (b *Bus) Subscribers(kind domain.EventKind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[kind])
}

// Publish delivers an event to the subscribers of kind. It never fails the
// caller: subscriber errors and panics are logged and dropped, and an event
// with no subscriber is discarded.
func (b *Bus) Publish(ctx context.Context, kind domain.EventKind, payload any) {
	b.dispatchMu.Lock()
	defer b.dispatchMu.Unlock()

	b.mu.RLock()
	handlers := append([]ports.EventHandler(nil), b.handlers[kind]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Debug("event dropped, no subscriber", "kind", kind)
		return
	}

	event := domain.Event{Kind: kind, Payload: payload}
	for i, handler := range handlers {
		if err := b.invoke(ctx, handler, event); err != nil {
			b.logger.Warn("subscriber failed",
				"kind", kind,
				"subscriber", i,
				"error", err,
			)
		}
	}
}

func (b *Bus) invoke(ctx context.Context, handler ports.EventHandler, event domain.Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("subscriber panic: %v", p)
		}
	}()
	return handler(ctx, event)
}
