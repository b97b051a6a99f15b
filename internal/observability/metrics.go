package observability

import (
	"net"
	"strconv"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/fulmenhq/gofulmen/telemetry/exporters"
)

// DefaultMetricsPort is reported when the exporter was asked for port 0 and
// its bound address cannot be read back.
const DefaultMetricsPort = 9090

var (
	// TelemetrySystem receives every counter, gauge and histogram. Nil
	// disables recording.
	TelemetrySystem *telemetry.System

	// PrometheusExporter serves the text exposition on its own port.
	PrometheusExporter *exporters.PrometheusExporter

	metricsPort int
)

// InitMetrics starts the Prometheus exporter on port (0 picks a free one)
// and routes telemetry to it. Metric names are prefixed with namespace, or
// with serviceName when no namespace is given. A running exporter is
// stopped first.
func InitMetrics(serviceName string, port int, namespace ...string) error {
	if err := StopMetrics(); err != nil {
		return err
	}
	if port < 0 {
		port = 0
	}

	prefix := serviceName
	if len(namespace) > 0 && namespace[0] != "" {
		prefix = namespace[0]
	}

	exporter := exporters.NewPrometheusExporter(prefix, net.JoinHostPort("", strconv.Itoa(port)))
	if err := exporter.Start(); err != nil {
		return err
	}

	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: exporter})
	if err != nil {
		_ = exporter.Stop()
		return err
	}

	PrometheusExporter = exporter
	TelemetrySystem = sys
	metricsPort = boundPort(exporter.GetAddr(), port)
	return nil
}

// StopMetrics stops the exporter and drops the telemetry system. Recording
// becomes a no-op afterwards.
func StopMetrics() error {
	TelemetrySystem = nil
	exporter := PrometheusExporter
	PrometheusExporter = nil
	metricsPort = 0
	if exporter == nil {
		return nil
	}
	return exporter.Stop()
}

// GetMetricsPort returns the exporter's port, 0 when none is running.
func GetMetricsPort() int {
	return metricsPort
}

// boundPort reads the port from addr, falling back to the requested one.
func boundPort(addr string, requested int) int {
	if _, portStr, err := net.SplitHostPort(addr); err == nil {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			return port
		}
	}
	if requested == 0 {
		return DefaultMetricsPort
	}
	return requested
}
