package metrics

import (
	"strconv"
	"time"

	"github.com/limitlens/limitlens/internal/observability"
)

// Application-level metrics following Prometheus conventions
const (
	// Upstream proxy metrics
	UpstreamRequestsTotal   = "upstream_requests_total"
	UpstreamRequestDuration = "upstream_request_duration_ms"

	// Normalization metrics
	NormalizationTotal = "limits_normalization_total"
	FieldSourceTotal   = "limits_field_source_total"

	// Refresh controller metrics (watch mode)
	RefreshCyclesTotal = "refresh_cycles_total"
	RefreshTimerStarts = "refresh_timer_starts_total"

	// Server lifecycle metrics
	ServerStartTime = "app_server_start_time_seconds"
)

// RecordUpstreamRequest records one outbound call to the limits endpoint.
// outcome is one of ok, http_error, transport_error, config_error.
func RecordUpstreamRequest(outcome string, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	_ = observability.TelemetrySystem.Counter(
		UpstreamRequestsTotal,
		1,
		map[string]string{
			"outcome": outcome,
		},
	)

	if duration > 0 {
		_ = observability.TelemetrySystem.Histogram(
			UpstreamRequestDuration,
			duration,
			map[string]string{
				"outcome": outcome,
			},
		)
	}
}

// RecordNormalization records whether a payload produced a complete snapshot
func RecordNormalization(found bool) {
	result := "found"
	if !found {
		result = "not_found"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			NormalizationTotal,
			1,
			map[string]string{
				"result": result,
			},
		)
	}
}

// RecordFieldSource records where a snapshot field was read from
func RecordFieldSource(field, source string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			FieldSourceTotal,
			1,
			map[string]string{
				"field":  field,
				"source": source,
			},
		)
	}
}

// RecordRefreshCycle records one fetch-and-render cycle
func RecordRefreshCycle(success bool, stale bool) {
	status := "success"
	switch {
	case stale:
		status = "stale"
	case !success:
		status = "failure"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RefreshCyclesTotal,
			1,
			map[string]string{
				"status": status,
			},
		)
	}
}

// RecordTimerStart records a (re)scheduled refresh timer
func RecordTimerStart(interval time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RefreshTimerStarts,
			1,
			map[string]string{
				"interval_ms": strconv.FormatInt(interval.Milliseconds(), 10),
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}
