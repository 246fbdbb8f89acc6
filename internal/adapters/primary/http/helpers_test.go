package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	wsAdapter "github.com/lorrc/pizza-orders-backend/internal/adapters/primary/websocket"
	"github.com/lorrc/pizza-orders-backend/internal/auth"
	"github.com/lorrc/pizza-orders-backend/internal/config"
	"github.com/lorrc/pizza-orders-backend/internal/core/bus"
	"github.com/lorrc/pizza-orders-backend/internal/core/domain"
	"github.com/lorrc/pizza-orders-backend/internal/core/mocks"
)

const testUploadsPrefix = "/uploads"

type stubChecker struct{ err error }

func (s stubChecker) Ping(context.Context) error { return s.err }

// testEnv is a fully wired router backed by mocked services and a real
// bus, hub and gateway.
type testEnv struct {
	router     chi.Router
	tm         *auth.TokenManager
	authSvc    *mocks.MockAuthService
	authzSvc   *mocks.MockAuthorizationService
	orderSvc   *mocks.MockOrderService
	menuSvc    *mocks.MockMenuService
	bus        *bus.Bus
	hub        *wsAdapter.Hub
	uploadsDir string
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := testLogger()

	env := &testEnv{
		tm:         auth.NewTokenManager("test-secret", time.Hour),
		authSvc:    mocks.NewMockAuthService(),
		authzSvc:   mocks.NewMockAuthorizationService(),
		orderSvc:   mocks.NewMockOrderService(),
		menuSvc:    mocks.NewMockMenuService(),
		bus:        bus.New(logger),
		uploadsDir: t.TempDir(),
	}

	env.hub = wsAdapter.NewHub(wsAdapter.NewOwnershipAuthorizer(env.orderSvc), logger)
	t.Cleanup(env.hub.Close)
	wsAdapter.NewGateway(env.hub, logger).Subscribe(env.bus)

	cfg := &config.Config{
		App: config.AppConfig{Environment: "test"},
		WebSocket: config.WebSocketConfig{
			PingInterval: 54 * time.Second,
			PongWait:     60 * time.Second,
			WriteWait:    time.Second,
			SendBuffer:   16,
		},
	}

	errorHandler := NewErrorHandler(logger)
	env.router = NewRouter(RouterDeps{
		Auth:          NewAuthHandler(env.authSvc, env.tm, errorHandler, logger),
		Me:            NewMeHandler(env.authzSvc, errorHandler, logger),
		Menu:          NewMenuHandler(env.menuSvc, testUploadsPrefix, 1<<10, errorHandler, logger),
		Orders:        NewOrderHandler(env.orderSvc, errorHandler, logger),
		WebSocket:     NewWebSocketHandler(env.hub, env.tm, cfg, logger),
		Health:        NewHealthHandler("test", Dependency{Name: "database", Checker: stubChecker{}}),
		TokenManager:  env.tm,
		Logger:        logger,
		CORSOrigins:   []string{"*"},
		UploadsDir:    env.uploadsDir,
		UploadsPrefix: testUploadsPrefix,
	})
	return env
}

func (e *testEnv) token(t *testing.T, userID uuid.UUID, role domain.Role) string {
	t.Helper()
	token, err := e.tm.GenerateToken(userID, role)
	require.NoError(t, err)
	return token
}

// do sends a request through the router. An empty token sends none.
func (e *testEnv) do(t *testing.T, method, target, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(t *testing.T, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	return e.do(t, method, target, token, reader, "application/json")
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func sampleOrder(id int64, customerID uuid.UUID) *domain.Order {
	return &domain.Order{
		ID:         id,
		CustomerID: customerID,
		Items: []domain.OrderItem{
			{ItemID: 1, Name: "Margherita", Size: domain.SizeMedium, PriceCents: 899, Quantity: 2},
		},
		Phone:       "555-0100",
		Address:     "1 Main St",
		PaymentType: domain.PaymentCOD,
		Status:      domain.StatusPlaced,
		CreatedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

var errBoom = errors.New("boom")
