package email

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/pizza-orders-backend/internal/core/domain"
	"github.com/lorrc/pizza-orders-backend/internal/core/ports"
)

const defaultSendTimeout = 10 * time.Second

// MockSMTPNotifier is a secondary adapter that mocks sending emails.
// It listens on the notification bus and logs the email it would send.
// Recipient lookups run in the background so bus dispatch is never held up.
type MockSMTPNotifier struct {
	userRepo    ports.UserRepository
	orderRepo   ports.OrderRepository
	sendTimeout time.Duration
	logger      *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NotifierOption configures a MockSMTPNotifier.
type NotifierOption func(*MockSMTPNotifier)

// WithSendTimeout bounds the lookups behind a single email.
func WithSendTimeout(d time.Duration) NotifierOption {
	return func(n *MockSMTPNotifier) {
		if d > 0 {
			n.sendTimeout = d
		}
	}
}

// NewMockSMTPNotifier creates a new mock notifier.
// It requires repositories to resolve the recipient of each order.
func NewMockSMTPNotifier(userRepo ports.UserRepository, orderRepo ports.OrderRepository, logger *slog.Logger, opts ...NotifierOption) *MockSMTPNotifier {
	n := &MockSMTPNotifier{
		userRepo:    userRepo,
		orderRepo:   orderRepo,
		sendTimeout: defaultSendTimeout,
		logger:      logger.With("component", "email_notifier"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Subscribe registers the notifier for both order events.
func (n *MockSMTPNotifier) Subscribe(bus ports.NotificationBus) {
	bus.Subscribe(domain.EventOrderPlaced, n.handleOrderPlaced)
	bus.Subscribe(domain.EventOrderUpdated, n.handleOrderUpdated)
}

// Shutdown stops accepting events and waits for pending emails.
func (n *MockSMTPNotifier) Shutdown() {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
	n.wg.Wait()
}

func (n *MockSMTPNotifier) handleOrderPlaced(ctx context.Context, evt domain.Event) error {
	summary, ok := evt.Payload.(domain.OrderSummary)
	if !ok {
		return fmt.Errorf("unexpected %s payload %T", evt.Kind, evt.Payload)
	}

	customerID, err := uuid.Parse(summary.CustomerID)
	if err != nil {
		return fmt.Errorf("order %d: bad customer id: %w", summary.ID, err)
	}

	n.dispatch(ctx, func(ctx context.Context) error {
		return n.send(ctx, customerID,
			fmt.Sprintf("Order #%d received", summary.ID),
			"order_id", summary.ID,
			"total", summary.Total,
		)
	})
	return nil
}

func (n *MockSMTPNotifier) handleOrderUpdated(ctx context.Context, evt domain.Event) error {
	change, ok := evt.Payload.(domain.OrderStatusChange)
	if !ok {
		return fmt.Errorf("unexpected %s payload %T", evt.Kind, evt.Payload)
	}

	n.dispatch(ctx, func(ctx context.Context) error {
		order, err := n.orderRepo.GetByID(ctx, change.ID)
		if err != nil {
			return fmt.Errorf("load order %d: %w", change.ID, err)
		}
		return n.send(ctx, order.CustomerID,
			fmt.Sprintf("Order #%d is now %s", change.ID, change.Status),
			"order_id", change.ID,
			"status", change.Status,
		)
	})
	return nil
}

// dispatch runs job in a tracked goroutine with a bounded context.
// Jobs arriving after Shutdown are dropped.
func (n *MockSMTPNotifier) dispatch(ctx context.Context, job func(context.Context) error) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		n.logger.WarnContext(ctx, "notifier stopped, email dropped")
		return
	}
	n.wg.Add(1)
	n.mu.Unlock()

	// The event outlives the publishing request.
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, n.sendTimeout)
		defer cancel()

		if err := job(ctx); err != nil {
			n.logger.ErrorContext(ctx, "failed to send email", "error", err)
		}
	}()
}

// send logs the mock email instead of delivering it.
func (n *MockSMTPNotifier) send(ctx context.Context, recipient uuid.UUID, subject string, attrs ...any) error {
	user, err := n.userRepo.GetByID(ctx, recipient)
	if err != nil {
		return fmt.Errorf("get recipient %s: %w", recipient, err)
	}

	n.logger.InfoContext(ctx, "mock email sent",
		append([]any{
			"to_name", user.Name,
			"to_email", user.Email,
			"subject", subject,
		}, attrs...)...,
	)
	return nil
}
