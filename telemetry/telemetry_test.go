package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/amp-labs/imperative/envutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnvDefaults(t *testing.T) { //nolint:paralleltest // uses t.Setenv
	t.Setenv("KUBERNETES_SERVICE_HOST", "")

	ctx := envutil.WithEnvOverride(context.Background(), "OTEL_SERVICE_NAME", "adrdemo")

	cfg, err := LoadConfigFromEnv(ctx, "dev")
	require.NoError(t, err)

	assert.Equal(t, "adrdemo", cfg.ServiceName)
	assert.Equal(t, defaultServiceVersion, cfg.ServiceVersion)
	assert.Equal(t, defaultTimeout, cfg.Timeout)
	assert.Equal(t, "dev", cfg.Environment)
}

func TestLoadConfigFromEnvOverrides(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ctx = envutil.WithEnvOverride(ctx, "OTEL_ENABLED", "true")
	ctx = envutil.WithEnvOverride(ctx, "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "http://collector:4318")
	ctx = envutil.WithEnvOverride(ctx, "OTEL_EXPORTER_OTLP_TRACES_TIMEOUT", "2s")

	cfg, err := LoadConfigFromEnv(ctx, "prod")
	require.NoError(t, err)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "http://collector:4318", cfg.Endpoint)
	assert.Equal(t, "http://collector:4318", cfg.LogsEndpoint, "logs endpoint defaults to the traces endpoint")
	assert.Equal(t, 2*time.Second, cfg.Timeout)
}

func TestInitializeDisabled(t *testing.T) {
	t.Parallel()

	require.NoError(t, Initialize(context.Background(), &Config{Enabled: false}))
}
