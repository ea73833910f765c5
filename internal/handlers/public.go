package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dkotama/jastip-api/internal/platform/httpx"
	"github.com/dkotama/jastip-api/internal/platform/pagination"
	"github.com/dkotama/jastip-api/internal/services"
)

var catalogPageOptions = pagination.Options{
	DefaultLimit: 20,
	MaxLimit:     100,
}

// PublicHandlers serves the unauthenticated storefront surface: the config
// snapshot, the published catalog, and stored item photos.
type PublicHandlers struct {
	settings services.SettingsService
	catalog  services.CatalogService
	assets   services.AssetService
}

// NewPublicHandlers constructs the public storefront handlers.
func NewPublicHandlers(settings services.SettingsService, catalog services.CatalogService, assets services.AssetService) *PublicHandlers {
	return &PublicHandlers{
		settings: settings,
		catalog:  catalog,
		assets:   assets,
	}
}

// Routes registers the public endpoints on the provided router.
func (h *PublicHandlers) Routes(r chi.Router) {
	r.Get("/config", h.Config)
	r.Get("/items", h.ListItems)
	r.Get("/items/{itemID}", h.GetItem)
	r.Post("/items/{itemID}/view", h.RecordView)
	r.Get("/photos/*", h.GetPhoto)
}

// Config reports the ordering cycle state shown before sign-in.
func (h *PublicHandlers) Config(w http.ResponseWriter, r *http.Request) {
	config, err := h.settings.PublicConfig(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, toPublicConfigResponse(config))
}

// ListItems returns the published catalog, optionally filtered by search term.
func (h *PublicHandlers) ListItems(w http.ResponseWriter, r *http.Request) {
	query := services.CatalogQuery{
		Storefront: true,
		Search:     strings.TrimSpace(r.URL.Query().Get("search")),
	}

	page, err := pagination.FromRequest(r, catalogPageOptions)
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	query.Limit = page.Limit
	query.Offset = page.Offset

	items, err := h.catalog.ListItems(r.Context(), query)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, toItemResponses(items))
}

// GetItem returns one published catalog item. Drafts and hidden items stay
// invisible on this surface.
func (h *PublicHandlers) GetItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	item, err := h.catalog.GetItem(r.Context(), itemID, true)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, toItemResponse(item))
}

// RecordView bumps an item's view counter and returns the new value.
func (h *PublicHandlers) RecordView(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	count, err := h.catalog.RecordView(r.Context(), itemID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, map[string]any{"viewCount": count})
}

// GetPhoto streams a stored catalog photo.
func (h *PublicHandlers) GetPhoto(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	photo, err := h.assets.GetPhoto(r.Context(), key)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	defer photo.Body.Close()

	if photo.ContentType != "" {
		w.Header().Set("Content-Type", photo.ContentType)
	}
	if photo.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(photo.ContentLength, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, photo.Body)
}
