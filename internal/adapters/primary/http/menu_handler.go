package http

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lorrc/pizza-orders-backend/internal/adapters/primary/validation"
	"github.com/lorrc/pizza-orders-backend/internal/core/domain"
	apperrors "github.com/lorrc/pizza-orders-backend/internal/core/errors"
	"github.com/lorrc/pizza-orders-backend/internal/core/ports"
)

// multipartOverhead leaves room for the non-file form fields.
const multipartOverhead = 1 << 20

// MenuHandler handles HTTP requests for menu items.
type MenuHandler struct {
	menuService   ports.MenuService
	uploadsPrefix string
	maxUpload     int64
	errorHandler  *ErrorHandler
	logger        *slog.Logger
}

// NewMenuHandler creates a new menu handler. maxUpload bounds the image size.
func NewMenuHandler(
	menuService ports.MenuService,
	uploadsPrefix string,
	maxUpload int64,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *MenuHandler {
	return &MenuHandler{
		menuService:   menuService,
		uploadsPrefix: uploadsPrefix,
		maxUpload:     maxUpload,
		errorHandler:  errorHandler,
		logger:        logger.With("handler", "menu"),
	}
}

// RegisterPublicRoutes registers the read-only menu routes.
func (h *MenuHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/", h.HandleListItems)
}

// RegisterAdminRoutes registers the menu write routes. The caller applies auth.
func (h *MenuHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/", h.HandleCreateItem)
	r.Put("/{itemID}", h.HandleUpdateItem)
}

// menuForm is the multipart body of a create or update request.
type menuForm struct {
	Name       string
	PriceCents int64
	Size       domain.ItemSize
	File       multipart.File
	Filename   string
}

// HandleListItems handles GET /menu
func (h *MenuHandler) HandleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.menuService.ListItems(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, toMenuItemDTOs(items, h.uploadsPrefix))
}

// HandleCreateItem handles POST /menu
func (h *MenuHandler) HandleCreateItem(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	form, err := h.parseForm(w, r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	defer form.close()

	item, err := h.menuService.CreateItem(r.Context(), form.params(claims.UserID))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "menu item created", "item_id", item.ID)
	WriteCreated(w, toMenuItemDTO(item, h.uploadsPrefix))
}

// HandleUpdateItem handles PUT /menu/{itemID}
func (h *MenuHandler) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	itemID, err := validation.ParseID("itemID", chi.URLParam(r, "itemID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	form, err := h.parseForm(w, r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	defer form.close()

	item, err := h.menuService.UpdateItem(r.Context(), itemID, form.params(claims.UserID))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "menu item updated", "item_id", item.ID)
	WriteJSON(w, http.StatusOK, toMenuItemDTO(item, h.uploadsPrefix))
}

// parseForm reads the multipart fields. The file is optional here; the
// service decides whether one is required.
func (h *MenuHandler) parseForm(w http.ResponseWriter, r *http.Request) (*menuForm, error) {
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)
	}
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			v := validation.NewValidator()
			v.Custom("file", false, "Image is too large")
			return nil, v.Errors()
		}
		return nil, apperrors.NewBadRequestError(err, "Expected a multipart form")
	}

	v := validation.NewValidator()
	form := &menuForm{
		Name: strings.TrimSpace(r.FormValue("name")),
		Size: domain.ItemSize(strings.ToLower(strings.TrimSpace(r.FormValue("size")))),
	}

	v.Required("name", form.Name).
		MaxLength("name", form.Name, domain.MaxItemNameLength)
	v.Required("size", string(form.Size)).
		OneOf("size", string(form.Size), []string{string(domain.SizeSmall), string(domain.SizeMedium), string(domain.SizeLarge)})

	rawPrice := r.FormValue("price")
	v.Required("price", rawPrice)
	if rawPrice != "" {
		cents, ok := validation.ParseAmountCents(rawPrice)
		v.Custom("price", ok && cents > 0, "Price must be a positive amount with at most two decimals")
		form.PriceCents = cents
	}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		form.File = file
		form.Filename = header.Filename
	case errors.Is(err, http.ErrMissingFile):
	default:
		v.Custom("file", false, "Could not read uploaded file")
	}

	if v.HasErrors() {
		form.close()
		return nil, v.Errors()
	}
	return form, nil
}

func (f *menuForm) params(actorID uuid.UUID) ports.SaveMenuItemParams {
	params := ports.SaveMenuItemParams{
		ActorID:    actorID,
		Name:       f.Name,
		PriceCents: f.PriceCents,
		Size:       f.Size,
	}
	if f.File != nil {
		params.Image = &ports.ImageUpload{Filename: f.Filename, Content: f.File}
	}
	return params
}

func (f *menuForm) close() {
	if f.File != nil {
		_ = f.File.Close()
	}
}
