package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dkotama/jastip-api/internal/platform/httpx"
	"github.com/dkotama/jastip-api/internal/services"
)

// AdminHandlersDeps configures NewAdminHandlers.
type AdminHandlersDeps struct {
	Settings services.SettingsService
	Catalog  services.CatalogService
	Tokens   services.TokenService
	Orders   services.OrderService
	Assets   services.AssetService
	// RequireAdmin guards every endpoint except login.
	RequireAdmin func(http.Handler) http.Handler
}

// AdminHandlers serves the admin console API: settings, catalog management,
// invite tokens, and order fulfilment.
type AdminHandlers struct {
	settings     services.SettingsService
	catalog      services.CatalogService
	tokens       services.TokenService
	orders       services.OrderService
	assets       services.AssetService
	requireAdmin func(http.Handler) http.Handler
}

// NewAdminHandlers validates deps and constructs the admin handlers.
func NewAdminHandlers(deps AdminHandlersDeps) (*AdminHandlers, error) {
	if deps.Settings == nil {
		return nil, errors.New("admin handlers: settings service is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("admin handlers: catalog service is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("admin handlers: token service is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("admin handlers: order service is required")
	}
	if deps.Assets == nil {
		return nil, errors.New("admin handlers: asset service is required")
	}
	return &AdminHandlers{
		settings:     deps.Settings,
		catalog:      deps.Catalog,
		tokens:       deps.Tokens,
		orders:       deps.Orders,
		assets:       deps.Assets,
		requireAdmin: deps.RequireAdmin,
	}, nil
}

// Routes registers the admin endpoints on the provided router. Login stays
// outside the credential check; everything else sits behind it.
func (h *AdminHandlers) Routes(r chi.Router) {
	r.Post("/login", h.Login)

	r.Group(func(admin chi.Router) {
		if h.requireAdmin != nil {
			admin.Use(h.requireAdmin)
		}

		admin.Get("/settings", h.GetSettings)
		admin.Patch("/settings", h.UpdateSettings)

		admin.Post("/items", h.CreateItem)
		admin.Get("/items", h.ListItems)
		admin.Get("/items/{itemID}", h.GetItem)
		admin.Patch("/items/{itemID}", h.UpdateItem)
		admin.Delete("/items/{itemID}", h.DeleteItem)
		admin.Post("/photos", h.UploadPhoto)

		admin.Post("/tokens", h.CreateToken)
		admin.Get("/tokens", h.ListTokens)
		admin.Delete("/tokens/{tokenID}", h.RevokeToken)

		admin.Get("/orders", h.ListOrders)
		admin.Get("/orders/{orderID}", h.GetOrder)
		admin.Patch("/orders/{orderID}/status", h.UpdateOrderStatus)
		admin.Patch("/orders/{orderID}/details", h.UpdateOrderDetails)
	})
}

type adminLoginRequest struct {
	Password string `json:"password"`
}

// Login checks the admin password. The password itself is the bearer
// credential for subsequent requests.
func (h *AdminHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "request body must be valid JSON")
		return
	}
	if strings.TrimSpace(req.Password) == "" {
		writeBadRequest(w, r, "password is required")
		return
	}

	if err := h.settings.VerifyAdminPassword(r.Context(), req.Password); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteData(w, http.StatusOK, map[string]any{
		"token":     req.Password,
		"tokenType": "Bearer",
	})
}

// GetSettings returns the full settings row, password hash excluded.
func (h *AdminHandlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Get(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, toSettingsResponse(settings))
}

type updateSettingsRequest struct {
	ExchangeRate           *float64  `json:"exchangeRate"`
	DefaultMarginPercent   *float64  `json:"defaultMarginPercent"`
	TotalBaggageQuotaGrams *int64    `json:"totalBaggageQuotaGrams"`
	JastipStatus           *string   `json:"jastipStatus"`
	JastipCloseDate        *string   `json:"jastipCloseDate"`
	EstimatedArrivalDate   *string   `json:"estimatedArrivalDate"`
	AdminPassword          *string   `json:"adminPassword"`
	ItemCategories         *[]string `json:"itemCategories"`
}

// UpdateSettings patches the settings row. An explicit empty close date clears
// the stored one.
func (h *AdminHandlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "request body must be valid JSON")
		return
	}

	cmd := services.UpdateSettingsCommand{
		ExchangeRate:           req.ExchangeRate,
		DefaultMarginPercent:   req.DefaultMarginPercent,
		TotalBaggageQuotaGrams: req.TotalBaggageQuotaGrams,
		JastipStatus:           req.JastipStatus,
		EstimatedArrivalDate:   req.EstimatedArrivalDate,
		AdminPassword:          req.AdminPassword,
		ItemCategories:         req.ItemCategories,
	}

	if req.JastipCloseDate != nil {
		raw := strings.TrimSpace(*req.JastipCloseDate)
		if raw == "" {
			cmd.ClearJastipCloseDate = true
		} else {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				writeBadRequest(w, r, "jastipCloseDate must be an RFC3339 timestamp")
				return
			}
			cmd.JastipCloseDate = &parsed
		}
	}

	settings, err := h.settings.Update(r.Context(), cmd)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, toSettingsResponse(settings))
}
