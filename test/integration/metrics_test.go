package integration

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limitlens/limitlens/internal/limits"
	"github.com/limitlens/limitlens/internal/observability"
	"github.com/limitlens/limitlens/internal/server"
	"github.com/limitlens/limitlens/internal/server/handlers"
)

const globalpingLimits = `{"rateLimit":{"measurements":{"create":{"type":"user","limit":500,"remaining":350,"reset":600}}}}`

// cleanupMetrics tears down global telemetry state so each test starts clean.
// This matters in sandboxes where lingering exporters can block future binds.
func cleanupMetrics(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		_ = observability.StopMetrics()
	})
}

// isPermissionError normalizes OS-specific permission errors (macOS/Linux/BSD)
// so we can gracefully skip when loopback sockets are blocked.
func isPermissionError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{"permission denied", "operation not permitted", "not permitted"} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}

	return false
}

// initMetricsOrSkip attempts to start the metrics exporter; if the environment
// forbids network binds we skip instead of failing the entire suite.
func initMetricsOrSkip(t *testing.T) {
	t.Helper()

	if err := observability.InitMetrics("test", 0, "test"); err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping metrics tests due to sandbox permissions: %v", err)
		}
		require.NoError(t, err)
	}

	cleanupMetrics(t)
}

// listenOrSkip binds IPv4 loopback explicitly (avoiding IPv6-only defaults)
// and skips when the sandbox refuses to open sockets.
func listenOrSkip(t *testing.T) net.Listener {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping server setup: %v", err)
		}
		require.NoError(t, err)
	}
	return listener
}

// newUpstream serves a fixed Globalping limits response and counts calls.
func newUpstream(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	calls := &atomic.Int64{}
	ts := &httptest.Server{
		Listener: listenOrSkip(t),
		Config: &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			if r.Header.Get("Authorization") != "Bearer integration-token" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		})},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts, calls
}

func newTestServer(t *testing.T, upstreamURL string) (*httptest.Server, *http.Client) {
	t.Helper()

	var opts []server.Option
	if upstreamURL != "" {
		opts = append(opts, server.WithLimitsService(limits.NewService(&limits.Client{
			URL:    upstreamURL,
			APIKey: "integration-token",
		})))
	}
	srv := server.New("127.0.0.1", 0, opts...)

	ts := &httptest.Server{
		Listener: listenOrSkip(t),
		Config:   &http.Server{Handler: srv.Handler()},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts, ts.Client()
}

func TestLimitsEndpoint_Integration(t *testing.T) {
	observability.InitCLILogger("test", false)
	observability.InitServerLogger("test", "info")

	initMetricsOrSkip(t)

	handlers.InitHealthManager("test")

	upstream, calls := newUpstream(t, http.StatusOK, globalpingLimits)
	ts, client := newTestServer(t, upstream.URL)

	const numRequests = 40
	const numWorkers = 8

	requestChan := make(chan int, numRequests)
	for i := 0; i < numRequests; i++ {
		requestChan <- i
	}
	close(requestChan)

	start := time.Now()

	var wg sync.WaitGroup
	var limitsOK atomic.Int64
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			for reqNum := range requestChan {
				path := "/api/limits"
				switch reqNum % 4 {
				case 1:
					path = "/"
				case 2:
					path = "/health"
				}

				resp, err := client.Get(ts.URL + path)
				if err != nil {
					continue
				}
				if path == "/api/limits" && resp.StatusCode == http.StatusOK {
					var snap limits.Snapshot
					if json.NewDecoder(resp.Body).Decode(&snap) == nil &&
						snap == (limits.Snapshot{Limit: 500, Remaining: 350, Reset: 600}) {
						limitsOK.Add(1)
					}
				}
				_ = resp.Body.Close()
			}
		}()
	}
	wg.Wait()

	elapsed := time.Since(start)

	// Requests 0 and 3 of every four hit /api/limits; each one calls upstream once.
	assert.Equal(t, int64(numRequests/2), limitsOK.Load())
	assert.Equal(t, int64(numRequests/2), calls.Load())

	resp, err := client.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, readErr)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	metricsContent := string(body)
	assert.Contains(t, metricsContent, "test_http_requests_total", "Should have HTTP request metrics")
	assert.Contains(t, metricsContent, "test_http_request_duration_ms", "Should have duration metrics")
	assert.Contains(t, metricsContent, "upstream_requests_total", "Should count upstream calls")
	assert.True(t, elapsed < 5*time.Second, "Load test should complete in reasonable time")
	t.Logf("Load test completed: %d requests in %v (%.2f req/s)", numRequests, elapsed, float64(numRequests)/elapsed.Seconds())
}

func TestLimitsEndpoint_UpstreamFailure(t *testing.T) {
	observability.InitCLILogger("test", false)
	observability.InitServerLogger("test", "info")

	upstream, _ := newUpstream(t, http.StatusServiceUnavailable, `{"error":"maintenance"}`)
	ts, client := newTestServer(t, upstream.URL)

	resp, err := client.Get(ts.URL + "/api/limits")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, handlers.MessageUpstreamFailed, body["error"])
	assert.Equal(t, float64(http.StatusServiceUnavailable), body["status"])
	assert.Equal(t, `{"error":"maintenance"}`, body["details"])
	assert.Equal(t, resp.Header.Get("X-Request-ID"), body["request_id"])
}

// scrapeSamples maps every sample line of a text exposition to its value.
func scrapeSamples(t *testing.T, exposition string) map[string]float64 {
	t.Helper()
	samples := make(map[string]float64)
	for _, line := range strings.Split(exposition, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cut := strings.LastIndexByte(line, ' ')
		require.Greater(t, cut, 0, "malformed sample line %q", line)
		value, err := strconv.ParseFloat(line[cut+1:], 64)
		require.NoError(t, err, "sample value in %q", line)
		samples[line[:cut]] = value
	}
	return samples
}

func TestMetricsEndpoint_PrometheusFormat(t *testing.T) {
	observability.InitCLILogger("test", false)
	observability.InitServerLogger("test", "info")
	initMetricsOrSkip(t)
	handlers.InitHealthManager("test")

	upstream, _ := newUpstream(t, http.StatusOK, globalpingLimits)
	ts, client := newTestServer(t, upstream.URL)

	resp, err := client.Get(ts.URL + "/api/limits")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, readErr)

	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain; version=0.0.4"),
		"Expected Prometheus content type, got: %s", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	samples := scrapeSamples(t, string(body))
	require.NotEmpty(t, samples)

	var upstreamOK float64
	for series, value := range samples {
		if strings.Contains(series, "upstream_requests_total") && strings.Contains(series, `outcome="ok"`) {
			upstreamOK += value
		}
	}
	assert.GreaterOrEqual(t, upstreamOK, float64(1), "expected an ok upstream sample")
}

func TestMetricsEndpoint_WithTelemetryDisabled(t *testing.T) {
	observability.InitCLILogger("test", false)
	observability.InitServerLogger("test", "info")

	originalExporter := observability.PrometheusExporter
	originalTelemetry := observability.TelemetrySystem
	observability.PrometheusExporter = nil
	observability.TelemetrySystem = nil
	t.Cleanup(func() {
		observability.PrometheusExporter = originalExporter
		observability.TelemetrySystem = originalTelemetry
	})

	t.Setenv("LIMITLENS_METRICS_ENABLED", "false")

	handlers.InitHealthManager("test")

	ts, client := newTestServer(t, "")

	serverURL := ts.URL

	resp, err := client.Get(serverURL + "/")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(serverURL + "/metrics")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
