package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/dkotama/jastip-api/internal/domain"
	"github.com/dkotama/jastip-api/internal/platform/auth"
	"github.com/dkotama/jastip-api/internal/platform/httpx"
	"github.com/dkotama/jastip-api/internal/services"
)

// OrderHandlers serves the buyer-facing order endpoints. Every route requires
// a signed-in user.
type OrderHandlers struct {
	orders         services.OrderService
	requireSession func(http.Handler) http.Handler
	extra          []func(http.Handler) http.Handler
}

// NewOrderHandlers constructs the buyer order handlers. Extra middleware runs
// after the session guard so it can read the resolved identity.
func NewOrderHandlers(orders services.OrderService, requireSession func(http.Handler) http.Handler, extra ...func(http.Handler) http.Handler) *OrderHandlers {
	return &OrderHandlers{
		orders:         orders,
		requireSession: requireSession,
		extra:          extra,
	}
}

// Routes registers the order endpoints on the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	if h.requireSession != nil {
		r.Use(h.requireSession)
	}
	for _, mw := range h.extra {
		if mw != nil {
			r.Use(mw)
		}
	}
	r.Post("/", h.PlaceOrder)
	r.Get("/", h.ListOrders)
	r.Get("/{orderID}", h.GetOrder)
}

type orderLineRequest struct {
	ItemID     string `json:"itemId"`
	Quantity   int64  `json:"quantity"`
	IsCustom   bool   `json:"isCustom"`
	CustomName string `json:"customName"`
	CustomURL  string `json:"customUrl"`
	CustomNote string `json:"customNote"`
	Source     string `json:"source"`
}

type placeOrderRequest struct {
	Note  string             `json:"note"`
	Items []orderLineRequest `json:"items"`
}

// PlaceOrder submits a new order for the signed-in buyer.
func (h *OrderHandlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "session required", http.StatusUnauthorized))
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "request body must be valid JSON")
		return
	}

	lines := make([]services.OrderLineInput, 0, len(req.Items))
	for _, line := range req.Items {
		lines = append(lines, services.OrderLineInput{
			ItemID:     line.ItemID,
			Quantity:   line.Quantity,
			IsCustom:   line.IsCustom,
			CustomName: line.CustomName,
			CustomURL:  line.CustomURL,
			CustomNote: line.CustomNote,
			Source:     line.Source,
		})
	}

	order, err := h.orders.PlaceOrder(r.Context(), services.PlaceOrderCommand{
		UserID: identity.UserID,
		Note:   req.Note,
		Lines:  lines,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteData(w, http.StatusCreated, toOrderResponse(order))
}

// ListOrders returns the signed-in buyer's orders, newest first.
func (h *OrderHandlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "session required", http.StatusUnauthorized))
		return
	}

	query := services.OrderQuery{UserID: identity.UserID}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := domain.OrderStatus(raw)
		if !domain.ValidOrderStatus(status) {
			writeBadRequest(w, r, "unknown order status")
			return
		}
		query.Status = &status
	}

	orders, err := h.orders.ListOrders(r.Context(), query)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, toOrderResponses(orders))
}

// GetOrder returns one of the signed-in buyer's orders. Orders belonging to
// other buyers read as not found.
func (h *OrderHandlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "session required", http.StatusUnauthorized))
		return
	}

	order, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "orderID"), identity.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, toOrderResponse(order))
}
