package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	mw "github.com/lorrc/pizza-orders-backend/internal/adapters/primary/http/middleware"
	"github.com/lorrc/pizza-orders-backend/internal/auth"
	apperrors "github.com/lorrc/pizza-orders-backend/internal/core/errors"
)

// RouterDeps holds everything the HTTP router mounts. Nil limiters are skipped.
type RouterDeps struct {
	Auth      *AuthHandler
	Me        *MeHandler
	Menu      *MenuHandler
	Orders    *OrderHandler
	WebSocket http.Handler
	Health    *HealthHandler

	TokenManager *auth.TokenManager
	Logger       *slog.Logger

	GeneralLimiter *mw.RateLimiter
	AuthLimiter    *mw.RateLimiter
	OrderLimiter   *mw.RateLimitByKey

	CORSOrigins   []string
	UploadsDir    string
	UploadsPrefix string
}

// NewRouter builds the chi router for the REST API, the realtime endpoint
// and the uploaded images.
func NewRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(deps.Logger))
	r.Use(mw.RecoveryLogger(deps.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mw.RequestIDHeader},
		ExposedHeaders:   []string{mw.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if deps.GeneralLimiter != nil {
		r.Use(deps.GeneralLimiter.Middleware)
	}

	errorHandler := NewErrorHandler(deps.Logger)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errorHandler.Handle(w, r, apperrors.NewNotFoundError(apperrors.ErrNotFound, "Route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errorHandler.Handle(w, r, apperrors.NewMethodNotAllowedError(r.Method))
	})

	// Health check endpoints (outside /api/v1 for standard probe paths)
	if deps.Health != nil {
		deps.Health.RegisterRoutes(r)
	}

	if deps.UploadsDir != "" {
		prefix := "/" + strings.Trim(deps.UploadsPrefix, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix, noDirListing(http.FileServer(http.Dir(deps.UploadsDir)))))
	}

	jwt := mw.JWTMiddleware(deps.TokenManager)

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes with stricter rate limiting
		r.Group(func(r chi.Router) {
			if deps.AuthLimiter != nil {
				r.Use(deps.AuthLimiter.Middleware)
			}
			r.Route("/auth", deps.Auth.RegisterRoutes)
		})

		// WebSocket route (authentication is handled inside the handler)
		r.Method(http.MethodGet, "/ws", deps.WebSocket)

		// The menu is public to read and admin-only to change
		r.Route("/menu", func(r chi.Router) {
			deps.Menu.RegisterPublicRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(jwt)
				r.Use(mw.RequireAdmin)
				deps.Menu.RegisterAdminRoutes(r)
			})
		})

		// Protected REST routes
		r.Group(func(r chi.Router) {
			r.Use(jwt)
			r.Route("/me", deps.Me.RegisterRoutes)

			var placeLimit func(http.Handler) http.Handler
			if deps.OrderLimiter != nil {
				placeLimit = deps.OrderLimiter.PerUser
			}
			r.Route("/orders", func(r chi.Router) {
				deps.Orders.RegisterRoutes(r, placeLimit, mw.RequireAdmin)
			})
		})
	})

	return r
}

// noDirListing answers directory requests with 404 instead of an index.
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
