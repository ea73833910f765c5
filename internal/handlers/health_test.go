package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domain "github.com/dkotama/jastip-api/internal/domain"
	"github.com/dkotama/jastip-api/internal/services"
)

type stubSystemService struct {
	report services.SystemHealthReport
	err    error
}

func (s *stubSystemService) HealthReport(context.Context) (services.SystemHealthReport, error) {
	return s.report, s.err
}

func TestHealthHandlersHealthz(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	handlers := NewHealthHandlers(nil, WithHealthClock(func() time.Time { return now }))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	handlers.Healthz(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	data := dataField(t, rr)
	if data["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", data["status"])
	}
	if data["timestamp"] != "2025-03-01T09:00:00Z" {
		t.Fatalf("unexpected timestamp %v", data["timestamp"])
	}
}

func TestHealthHandlersReadyzWithoutSystemServiceFallsBackToLiveness(t *testing.T) {
	handlers := NewHealthHandlers(nil)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rr := httptest.NewRecorder()
	handlers.Readyz(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}

func TestHealthHandlersReadyzReportsChecks(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := &stubSystemService{
		report: services.SystemHealthReport{
			Status:      domain.HealthStatusDegraded,
			GeneratedAt: now,
			Checks: map[string]domain.SystemHealthCheck{
				"postgres": {Status: domain.HealthStatusOK, Latency: 12 * time.Millisecond},
				"storage":  {Status: domain.HealthStatusDegraded, Detail: "slow responses"},
			},
		},
	}
	handlers := NewHealthHandlers(svc)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rr := httptest.NewRecorder()
	handlers.Readyz(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 for degraded, got %d", rr.Code)
	}
	data := dataField(t, rr)
	if data["status"] != "degraded" {
		t.Fatalf("expected degraded, got %v", data["status"])
	}
	checks, ok := data["checks"].(map[string]any)
	if !ok {
		t.Fatalf("expected checks map, got %T", data["checks"])
	}
	storage, ok := checks["storage"].(map[string]any)
	if !ok {
		t.Fatalf("expected storage check, got %v", checks)
	}
	if storage["detail"] != "slow responses" {
		t.Fatalf("expected storage detail, got %v", storage["detail"])
	}
}

func TestHealthHandlersReadyzFailsOnError(t *testing.T) {
	svc := &stubSystemService{
		report: services.SystemHealthReport{
			Status: domain.HealthStatusError,
			Checks: map[string]domain.SystemHealthCheck{
				"postgres": {Status: domain.HealthStatusError, Error: "connection refused"},
			},
		},
	}
	handlers := NewHealthHandlers(svc)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rr := httptest.NewRecorder()
	handlers.Readyz(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}

func TestHealthHandlersReadyzReportCollectionFailure(t *testing.T) {
	handlers := NewHealthHandlers(&stubSystemService{err: errors.New("boom")})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rr := httptest.NewRecorder()
	handlers.Readyz(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
	body := decodeEnvelope(t, rr)
	if body["error"] != "health_check_failed" {
		t.Fatalf("expected health_check_failed, got %v", body["error"])
	}
}
