package metrics

import (
	"strconv"

	"github.com/limitlens/limitlens/internal/observability"
)

// Error metric names
const (
	ErrorsTotalName      = "errors_total"
	PanicsTotalName      = "panics_total"
	ErrorsByEndpointName = "errors_by_endpoint"
)

// upstreamFacing reports whether code is caused by the Globalping side.
func upstreamFacing(code string) bool {
	switch code {
	case "EXTERNAL_SERVICE_ERROR", "UPSTREAM_PAYLOAD_INVALID":
		return true
	}
	return false
}

// RecordError counts an error response by code and status. Codes caused by
// the upstream carry source=upstream so they can be alerted on apart from
// local faults.
func RecordError(errorCode string, httpStatus int) {
	sys := observability.TelemetrySystem
	if sys == nil {
		return
	}

	source := "local"
	if upstreamFacing(errorCode) {
		source = "upstream"
	}
	_ = sys.Counter(ErrorsTotalName, 1, map[string]string{
		"error_code":  errorCode,
		"http_status": strconv.Itoa(httpStatus),
		"source":      source,
	})
}

// RecordPanic counts a recovered handler panic.
func RecordPanic() {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Counter(PanicsTotalName, 1, nil)
	}
}

// RecordErrorByEndpoint counts an error response against its route.
func RecordErrorByEndpoint(endpoint string, errorCode string) {
	if endpoint == "" {
		endpoint = "unknown"
	}
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Counter(ErrorsByEndpointName, 1, map[string]string{
			"endpoint":   endpoint,
			"error_code": errorCode,
		})
	}
}
