package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/demand-service/internal/config"
)

func TestInitTracingWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), config.TracingConfig{}, "demand-service")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
	require.NotNil(t, Tracer())
}

func TestEndpointHost(t *testing.T) {
	require.Equal(t, "collector:4317", endpointHost("http://collector:4317"))
	require.Equal(t, "collector:4317", endpointHost("https://collector:4317/"))
	require.Equal(t, "collector:4317", endpointHost("collector:4317"))
}
