package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/dkotama/jastip-api/internal/domain"
	"github.com/dkotama/jastip-api/internal/platform/httpx"
	"github.com/dkotama/jastip-api/internal/services"
)

// ListOrders returns orders across all buyers, optionally filtered by buyer
// or status.
func (h *AdminHandlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	query := services.OrderQuery{
		UserID: strings.TrimSpace(r.URL.Query().Get("userId")),
	}
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

// GetOrder returns any buyer's order.
func (h *AdminHandlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "orderID"), "")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, toOrderResponse(order))
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus moves an order through the fulfilment workflow. Cancelling
// releases the item slots the order held.
func (h *AdminHandlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "request body must be valid JSON")
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), services.OrderStatusCommand{
		OrderID: chi.URLParam(r, "orderID"),
		Status:  strings.TrimSpace(req.Status),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, toOrderResponse(order))
}

type orderLineCorrectionRequest struct {
	ID          string `json:"id"`
	PriceRp     *int64 `json:"priceRp"`
	WeightGrams *int64 `json:"weightGrams"`
}

type updateOrderDetailsRequest struct {
	TotalPriceRp     *int64                       `json:"totalPriceRp"`
	TotalPriceYen    *int64                       `json:"totalPriceYen"`
	TotalWeightGrams *int64                       `json:"totalWeightGrams"`
	Note             *string                      `json:"note"`
	Items            []orderLineCorrectionRequest `json:"items"`
}

// UpdateOrderDetails corrects totals and line values after the real-world
// purchase.
func (h *AdminHandlers) UpdateOrderDetails(w http.ResponseWriter, r *http.Request) {
	var req updateOrderDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "request body must be valid JSON")
		return
	}

	lines := make([]services.OrderLineCorrection, 0, len(req.Items))
	for _, line := range req.Items {
		lines = append(lines, services.OrderLineCorrection{
			OrderItemID: line.ID,
			PriceRp:     line.PriceRp,
			WeightGrams: line.WeightGrams,
		})
	}

	order, err := h.orders.UpdateDetails(r.Context(), services.OrderDetailsCommand{
		OrderID:          chi.URLParam(r, "orderID"),
		TotalPriceRp:     req.TotalPriceRp,
		TotalPriceYen:    req.TotalPriceYen,
		TotalWeightGrams: req.TotalWeightGrams,
		Note:             req.Note,
		Lines:            lines,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, toOrderResponse(order))
}
