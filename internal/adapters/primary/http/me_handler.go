package http

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	mw "github.com/lorrc/pizza-orders-backend/internal/adapters/primary/http/middleware"
	"github.com/lorrc/pizza-orders-backend/internal/auth"
	"github.com/lorrc/pizza-orders-backend/internal/core/ports"
)

// PermissionsResponse defines the JSON response for user permissions.
type PermissionsResponse struct {
	Permissions []string `json:"permissions"`
}

// MeResponse describes the authenticated caller.
type MeResponse struct {
	ID          string   `json:"id"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// MeHandler handles HTTP requests for the authenticated user.
type MeHandler struct {
	authzService ports.AuthorizationService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewMeHandler creates a new MeHandler.
func NewMeHandler(
	authzService ports.AuthorizationService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *MeHandler {
	return &MeHandler{
		authzService: authzService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "me"),
	}
}

// RegisterRoutes registers the /me routes.
func (h *MeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleMe)
	r.Get("/permissions", h.HandlePermissions)
}

// HandleMe handles GET /me.
func (h *MeHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	permissions, err := h.permissions(r, claims)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, MeResponse{
		ID:          claims.UserID.String(),
		Role:        string(claims.Role),
		Permissions: permissions,
	})
}

// HandlePermissions handles GET /me/permissions.
func (h *MeHandler) HandlePermissions(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	permissions, err := h.permissions(r, claims)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, PermissionsResponse{
		Permissions: permissions,
	})
}

func (h *MeHandler) permissions(r *http.Request, claims *auth.Claims) ([]string, error) {
	permissions, err := h.authzService.GetPermissions(r.Context(), claims.UserID)
	if err != nil {
		return nil, err
	}
	if permissions == nil {
		permissions = []string{}
	}
	sort.Strings(permissions)
	return permissions, nil
}

// getClaims extracts and validates user claims from the request context.
func getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		writeUnauthorized(w)
		return nil, false
	}
	return claims, true
}
