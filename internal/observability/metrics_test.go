package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundPort(t *testing.T) {
	assert.Equal(t, 41234, boundPort("[::]:41234", 0))
	assert.Equal(t, 9191, boundPort("", 9191))
	assert.Equal(t, DefaultMetricsPort, boundPort("not-an-addr", 0))
}

func TestStopMetricsWithoutExporter(t *testing.T) {
	TelemetrySystem, PrometheusExporter, metricsPort = nil, nil, 0

	require.NoError(t, StopMetrics())
	assert.Nil(t, TelemetrySystem)
	assert.Equal(t, 0, GetMetricsPort())
}
