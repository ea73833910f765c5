package services

import (
	"context"
	"testing"
	"time"

	domain "github.com/dkotama/jastip-api/internal/domain"
)

func TestSystemServiceHealthReportDerivesStatus(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &stubHealthRepository{report: domain.SystemHealthReport{
		Checks: map[string]domain.SystemHealthCheck{
			"postgres": {Status: domain.HealthStatusOK},
			"storage":  {Status: domain.HealthStatusDegraded},
		},
	}}

	svc, err := NewSystemService(SystemServiceDeps{HealthRepository: repo, Clock: fixedClock(now)})
	if err != nil {
		t.Fatalf("new system service: %v", err)
	}

	report, err := svc.HealthReport(context.Background())
	if err != nil {
		t.Fatalf("health report: %v", err)
	}
	if report.Status != domain.HealthStatusDegraded {
		t.Fatalf("expected degraded overall, got %s", report.Status)
	}
	if !report.GeneratedAt.Equal(now) {
		t.Fatalf("expected generated at %v, got %v", now, report.GeneratedAt)
	}
}

func TestSystemServiceHealthReportErrorWins(t *testing.T) {
	repo := &stubHealthRepository{report: domain.SystemHealthReport{
		Checks: map[string]domain.SystemHealthCheck{
			"postgres": {Status: domain.HealthStatusError},
			"storage":  {Status: domain.HealthStatusDegraded},
		},
	}}

	svc, err := NewSystemService(SystemServiceDeps{HealthRepository: repo})
	if err != nil {
		t.Fatalf("new system service: %v", err)
	}

	report, err := svc.HealthReport(context.Background())
	if err != nil {
		t.Fatalf("health report: %v", err)
	}
	if report.Status != domain.HealthStatusError {
		t.Fatalf("expected error overall, got %s", report.Status)
	}
}

func TestSystemServiceHealthReportEmptyChecks(t *testing.T) {
	svc, err := NewSystemService(SystemServiceDeps{HealthRepository: &stubHealthRepository{}})
	if err != nil {
		t.Fatalf("new system service: %v", err)
	}

	report, err := svc.HealthReport(context.Background())
	if err != nil {
		t.Fatalf("health report: %v", err)
	}
	if report.Status != domain.HealthStatusOK {
		t.Fatalf("expected ok with no checks, got %s", report.Status)
	}
	if report.Checks == nil {
		t.Fatalf("expected checks map initialised")
	}
}
