package handlers

import (
	"context"
	stderrors "errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/limitlens/limitlens/internal/observability"
)

// Check results reported per checker and in aggregate.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusTimeout   = "timeout"
)

// ErrDegraded marks a checker failure that leaves the service usable. Wrap it
// to report "degraded" instead of "unhealthy".
var ErrDegraded = stderrors.New("degraded")

// HealthResponse represents the aggregate health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProbeResponse represents individual probe response
type ProbeResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthChecker defines interface for health checkable components
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// HealthCheckerFunc adapts a function to HealthChecker.
type HealthCheckerFunc func(ctx context.Context) error

func (f HealthCheckerFunc) CheckHealth(ctx context.Context) error {
	return f(ctx)
}

// CredentialChecker reports degraded while no upstream API key is configured.
// The page and /health keep working; only /api/limits fails.
type CredentialChecker struct {
	Present func() bool
}

func (c CredentialChecker) CheckHealth(ctx context.Context) error {
	if c.Present == nil || !c.Present() {
		return stderrors.Join(ErrDegraded, stderrors.New("no upstream credential configured"))
	}
	return nil
}

type probe struct {
	name    string
	timeout time.Duration
	failure string
}

var (
	probeAggregate = probe{name: "aggregate", timeout: 5 * time.Second, failure: "aggregate health check failed"}
	probeLive      = probe{name: "live", timeout: 2 * time.Second, failure: "liveness probe failed"}
	probeReady     = probe{name: "ready", timeout: 5 * time.Second, failure: "readiness probe failed"}
	probeStartup   = probe{name: "startup", timeout: 3 * time.Second, failure: "startup probe failed"}
)

// HealthManager runs the registered checkers for /health and the k8s probes.
// Checkers may be replaced while serving (config reload).
type HealthManager struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	version  string
}

// NewHealthManager creates a new health manager
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		checkers: make(map[string]HealthChecker),
		version:  version,
	}
}

// RegisterChecker registers a checker, replacing any with the same name.
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checkers[name] = checker
}

// runHealthChecks executes the checkers in name order. Once ctx ends the
// remaining checkers are reported as timeouts.
func (hm *HealthManager) runHealthChecks(ctx context.Context) map[string]string {
	hm.mu.RLock()
	names := make([]string, 0, len(hm.checkers))
	for name := range hm.checkers {
		names = append(names, name)
	}
	checkers := make(map[string]HealthChecker, len(hm.checkers))
	for name, checker := range hm.checkers {
		checkers[name] = checker
	}
	hm.mu.RUnlock()
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	for _, name := range names {
		if ctx.Err() != nil {
			checks[name] = StatusTimeout
			continue
		}
		err := checkers[name].CheckHealth(ctx)
		switch {
		case err == nil:
			checks[name] = StatusHealthy
		case stderrors.Is(err, ErrDegraded):
			checks[name] = StatusDegraded
		default:
			checks[name] = StatusUnhealthy
		}
	}
	return checks
}

// determineOverallStatus: any unhealthy check wins, then degraded or timeout.
func (hm *HealthManager) determineOverallStatus(checks map[string]string) string {
	degraded := false
	for _, status := range checks {
		if status == StatusUnhealthy {
			return StatusUnhealthy
		}
		if status == StatusDegraded || status == StatusTimeout {
			degraded = true
		}
	}
	if degraded {
		return StatusDegraded
	}
	return StatusHealthy
}

func (hm *HealthManager) serveProbe(w http.ResponseWriter, r *http.Request, p probe) {
	checkCtx, cancel := context.WithTimeout(r.Context(), p.timeout)
	defer cancel()

	checks := hm.runHealthChecks(checkCtx)
	status := hm.determineOverallStatus(checks)

	if status == StatusUnhealthy {
		envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", p.failure)
		respondWithError(w, r, enrichHealthEnvelope(envelope, p.name, status, checks))
		return
	}

	var body interface{} = ProbeResponse{Status: status, Timestamp: time.Now().UTC()}
	if p == probeAggregate {
		body = HealthResponse{
			Status:    status,
			Version:   hm.version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    checks,
		}
	}

	writeJSON(w, http.StatusOK, body)
}

// HealthHandler reports every check with the aggregate status.
func (hm *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveProbe(w, r, probeAggregate)
}

// LivenessHandler indicates if the application is running
func (hm *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveProbe(w, r, probeLive)
}

// ReadinessHandler indicates if the application is ready to serve traffic
func (hm *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveProbe(w, r, probeReady)
}

// StartupHandler indicates if the application has completed initialization
func (hm *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveProbe(w, r, probeStartup)
}

// enrichHealthEnvelope adds the probe outcome to envelope. Envelope context only
// holds scalars and string slices, so checks are reported as "name=status".
func enrichHealthEnvelope(envelope *errors.ErrorEnvelope, probe, status string, checks map[string]string) *errors.ErrorEnvelope {
	if envelope == nil {
		return nil
	}

	contextData := map[string]interface{}{
		"status": status,
		"probe":  probe,
	}
	if len(checks) > 0 {
		results := make([]string, 0, len(checks))
		var failing []string
		for name, result := range checks {
			results = append(results, name+"="+result)
			if result != StatusHealthy {
				failing = append(failing, name)
			}
		}
		sort.Strings(results)
		contextData["checks"] = results

		sort.Strings(failing)
		if len(failing) > 0 {
			contextData["unhealthy_checks"] = failing
		}
	}

	envelope, err := envelope.WithContext(contextData)
	if err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Health error context incomplete",
			zap.String("probe", probe),
			zap.Error(err))
	}
	return envelope
}

var (
	globalHealthMu      sync.RWMutex
	globalHealthManager *HealthManager
)

// InitHealthManager initializes the global health manager
func InitHealthManager(version string) {
	globalHealthMu.Lock()
	defer globalHealthMu.Unlock()
	globalHealthManager = NewHealthManager(version)
}

// GetHealthManager returns the global health manager
func GetHealthManager() *HealthManager {
	globalHealthMu.RLock()
	defer globalHealthMu.RUnlock()
	return globalHealthManager
}

func serveGlobalProbe(w http.ResponseWriter, r *http.Request, p probe) {
	if hm := GetHealthManager(); hm != nil {
		hm.serveProbe(w, r, p)
		return
	}
	envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "health manager not initialized")
	respondWithError(w, r, enrichHealthEnvelope(envelope, p.name, "unknown", nil))
}

// HealthHandler serves /health from the global manager.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	serveGlobalProbe(w, r, probeAggregate)
}

// LivenessHandler serves /health/live from the global manager.
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	serveGlobalProbe(w, r, probeLive)
}

// ReadinessHandler serves /health/ready from the global manager.
func ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	serveGlobalProbe(w, r, probeReady)
}

// StartupHandler serves /health/startup from the global manager.
func StartupHandler(w http.ResponseWriter, r *http.Request) {
	serveGlobalProbe(w, r, probeStartup)
}
