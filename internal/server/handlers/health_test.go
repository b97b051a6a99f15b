package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	gferrors "github.com/fulmenhq/gofulmen/errors"
)

type stubChecker struct {
	err error
}

func (s stubChecker) CheckHealth(ctx context.Context) error {
	return s.err
}

func TestHealthHandlerReturnsHealthyStatus(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("ok", stubChecker{err: nil})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	manager.HealthHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Status != "healthy" {
		t.Fatalf("expected healthy status, got %s", resp.Status)
	}

	if resp.Version != "1.2.3" {
		t.Fatalf("expected version 1.2.3, got %s", resp.Version)
	}

	if resp.Checks["ok"] != "healthy" {
		t.Fatalf("expected ok check to be healthy, got %s", resp.Checks["ok"])
	}
}

func TestHealthHandlerReturnsServiceUnavailableWhenUnhealthy(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("db", stubChecker{err: errors.New("down")})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	manager.HealthHandler(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}

	var resp map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp["code"] != "SERVICE_UNAVAILABLE" {
		t.Fatalf("expected SERVICE_UNAVAILABLE error code, got %v", resp["code"])
	}

	checks, ok := resp["checks"].([]interface{})
	if !ok || len(checks) != 1 {
		t.Fatalf("expected checks in error body, got %v", resp["checks"])
	}

	if checks[0] != "db=unhealthy" {
		t.Fatalf("expected db check to be unhealthy, got %v", checks[0])
	}

	failing, ok := resp["unhealthy_checks"].([]interface{})
	if !ok || len(failing) != 1 || failing[0] != "db" {
		t.Fatalf("expected db in unhealthy_checks, got %v", resp["unhealthy_checks"])
	}
}

func TestEnrichHealthEnvelopeKeepsEveryKey(t *testing.T) {
	envelope := gferrors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "readiness probe failed")
	checks := map[string]string{
		"credential": StatusDegraded,
		"telemetry":  StatusHealthy,
		"upstream":   StatusUnhealthy,
	}

	enriched := enrichHealthEnvelope(envelope, "ready", StatusUnhealthy, checks)

	for _, key := range []string{"status", "probe", "checks", "unhealthy_checks"} {
		if _, ok := enriched.Context[key]; !ok {
			t.Fatalf("expected %q in envelope context, got %v", key, enriched.Context)
		}
	}

	want := []string{"credential=degraded", "telemetry=healthy", "upstream=unhealthy"}
	got, ok := enriched.Context["checks"].([]string)
	if !ok || len(got) != len(want) {
		t.Fatalf("expected checks %v, got %v", want, enriched.Context["checks"])
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected checks %v, got %v", want, got)
		}
	}

	failing, ok := enriched.Context["unhealthy_checks"].([]string)
	if !ok || len(failing) != 2 || failing[0] != "credential" || failing[1] != "upstream" {
		t.Fatalf("expected credential and upstream failing, got %v", enriched.Context["unhealthy_checks"])
	}
}

func TestDetermineOverallStatusTreatsTimeoutAsDegraded(t *testing.T) {
	manager := NewHealthManager("dev")

	status := manager.determineOverallStatus(map[string]string{
		"db": "timeout",
	})

	if status != "degraded" {
		t.Fatalf("expected degraded status, got %s", status)
	}
}

func TestHealthHandlerReportsDegradedCredential(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("ok", stubChecker{})
	manager.RegisterChecker("credential", CredentialChecker{Present: func() bool { return false }})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	manager.HealthHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("expected no-store, got %q", rec.Header().Get("Cache-Control"))
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != StatusDegraded {
		t.Fatalf("expected degraded status, got %s", resp.Status)
	}
	if resp.Checks["credential"] != StatusDegraded || resp.Checks["ok"] != StatusHealthy {
		t.Fatalf("unexpected checks: %v", resp.Checks)
	}
}

func TestRegisterCheckerReplacesByName(t *testing.T) {
	manager := NewHealthManager("dev")
	manager.RegisterChecker("upstream", stubChecker{err: errors.New("bad url")})
	manager.RegisterChecker("upstream", HealthCheckerFunc(func(ctx context.Context) error { return nil }))

	checks := manager.runHealthChecks(context.Background())
	if checks["upstream"] != StatusHealthy {
		t.Fatalf("expected replaced checker to be healthy, got %s", checks["upstream"])
	}
}

func TestRunHealthChecksReportsTimeoutAfterDeadline(t *testing.T) {
	manager := NewHealthManager("dev")
	manager.RegisterChecker("a", stubChecker{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	checks := manager.runHealthChecks(ctx)
	if checks["a"] != StatusTimeout {
		t.Fatalf("expected timeout, got %s", checks["a"])
	}
}

func TestProbeHandlersWithoutManager(t *testing.T) {
	globalHealthMu.Lock()
	saved := globalHealthManager
	globalHealthManager = nil
	globalHealthMu.Unlock()
	t.Cleanup(func() {
		globalHealthMu.Lock()
		globalHealthManager = saved
		globalHealthMu.Unlock()
	})

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	ReadinessHandler(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["probe"] != "ready" {
		t.Fatalf("expected probe ready, got %v", resp["probe"])
	}
}
