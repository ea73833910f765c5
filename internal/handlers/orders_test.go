package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/dkotama/jastip-api/internal/domain"
	"github.com/dkotama/jastip-api/internal/platform/auth"
	"github.com/dkotama/jastip-api/internal/platform/idempotency"
	"github.com/dkotama/jastip-api/internal/services"
)

func orderTestRouter(orders services.OrderService) chi.Router {
	h := NewOrderHandlers(orders, identityMiddleware(auth.Identity{UserID: "u1", Email: "ani@example.com"}))
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func sampleOrder() services.Order {
	return services.Order{
		ID:     "order-001",
		UserID: "u1",
		Status: domain.OrderWaitingPayment,
		Items: []domain.OrderItem{
			{ID: "line-1", ItemID: "item-001", Name: "Tokyo Banana", Quantity: 2, PriceRp: 59675, WeightGrams: 300},
		},
		TotalPriceRp:     119350,
		TotalWeightGrams: 600,
		CreatedAt:        time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt:        time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestPlaceOrderSubmitsForSignedInBuyer(t *testing.T) {
	orders := &stubOrderService{order: sampleOrder()}
	router := orderTestRouter(orders)

	req := jsonRequest(t, http.MethodPost, "/", map[string]any{
		"note": "please pick the fresh batch",
		"items": []map[string]any{
			{"itemId": "item-001", "quantity": 2},
			{"isCustom": true, "customName": "Shiroi Koibito", "customUrl": "https://example.jp/p/1"},
		},
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}
	if orders.lastPlace == nil {
		t.Fatal("expected order placement to reach the service")
	}
	if orders.lastPlace.UserID != "u1" {
		t.Fatalf("expected buyer u1, got %q", orders.lastPlace.UserID)
	}
	if len(orders.lastPlace.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(orders.lastPlace.Lines))
	}
	if !orders.lastPlace.Lines[1].IsCustom || orders.lastPlace.Lines[1].CustomName != "Shiroi Koibito" {
		t.Fatalf("unexpected custom line %+v", orders.lastPlace.Lines[1])
	}

	data := dataField(t, rr)
	if data["status"] != "waiting_payment" {
		t.Fatalf("expected waiting_payment, got %v", data["status"])
	}
	if data["totalPriceRp"] != float64(119350) {
		t.Fatalf("expected total 119350, got %v", data["totalPriceRp"])
	}
}

func TestPlaceOrderMapsQuotaExhaustion(t *testing.T) {
	orders := &stubOrderService{err: services.ErrOrderQuotaExceeded}
	router := orderTestRouter(orders)

	req := jsonRequest(t, http.MethodPost, "/", map[string]any{
		"items": []map[string]any{{"itemId": "item-001"}},
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
	body := decodeEnvelope(t, rr)
	if body["error"] != "quota_exceeded" {
		t.Fatalf("expected quota_exceeded, got %v", body["error"])
	}
}

func TestPlaceOrderRejectsMalformedBody(t *testing.T) {
	router := orderTestRouter(&stubOrderService{})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestListOrdersScopesToBuyer(t *testing.T) {
	orders := &stubOrderService{orders: []services.Order{sampleOrder()}}
	router := orderTestRouter(orders)

	req := httptest.NewRequest(http.MethodGet, "/?status=waiting_payment", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if orders.lastQuery == nil {
		t.Fatal("expected list query to reach the service")
	}
	if orders.lastQuery.UserID != "u1" {
		t.Fatalf("expected buyer scope u1, got %q", orders.lastQuery.UserID)
	}
	if orders.lastQuery.Status == nil || *orders.lastQuery.Status != domain.OrderWaitingPayment {
		t.Fatalf("expected waiting_payment filter, got %v", orders.lastQuery.Status)
	}
}

func TestListOrdersRejectsUnknownStatus(t *testing.T) {
	router := orderTestRouter(&stubOrderService{})

	req := httptest.NewRequest(http.MethodGet, "/?status=teleported", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestGetOrderPassesRequester(t *testing.T) {
	orders := &stubOrderService{order: sampleOrder()}
	router := orderTestRouter(orders)

	req := httptest.NewRequest(http.MethodGet, "/order-001", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if orders.lastGetID != "order-001" || orders.lastGetUser != "u1" {
		t.Fatalf("expected scoped read, got %q/%q", orders.lastGetID, orders.lastGetUser)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	orders := &stubOrderService{err: services.ErrOrderNotFound}
	router := orderTestRouter(orders)

	req := httptest.NewRequest(http.MethodGet, "/order-999", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestPlaceOrderReplaysIdempotentRequest(t *testing.T) {
	orders := &stubOrderService{order: sampleOrder()}
	h := NewOrderHandlers(orders,
		identityMiddleware(auth.Identity{UserID: "u1", Email: "ani@example.com"}),
		idempotency.Middleware(idempotency.NewMemoryStore()),
	)
	router := chi.NewRouter()
	h.Routes(router)

	payload := map[string]any{
		"items": []map[string]any{{"itemId": "item-001", "quantity": 2}},
	}

	first := jsonRequest(t, http.MethodPost, "/", payload)
	first.Header.Set("Idempotency-Key", "order-key-1")
	firstRec := httptest.NewRecorder()
	router.ServeHTTP(firstRec, first)

	if firstRec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", firstRec.Code)
	}
	if orders.lastPlace == nil {
		t.Fatal("expected first placement to reach the service")
	}

	orders.lastPlace = nil
	second := jsonRequest(t, http.MethodPost, "/", payload)
	second.Header.Set("Idempotency-Key", "order-key-1")
	secondRec := httptest.NewRecorder()
	router.ServeHTTP(secondRec, second)

	if secondRec.Code != http.StatusCreated {
		t.Fatalf("expected replayed status 201, got %d", secondRec.Code)
	}
	if secondRec.Header().Get("X-Idempotent-Replay") != "true" {
		t.Fatal("expected replay marker header")
	}
	if orders.lastPlace != nil {
		t.Fatal("expected replay to skip the service")
	}
	body := dataField(t, secondRec)
	if body["id"] != "order-001" {
		t.Fatalf("expected replayed order id, got %v", body["id"])
	}
}
