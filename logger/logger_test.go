package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/amp-labs/imperative/envutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:paralleltest // modifies the default slog logger
func TestGetCarriesContextValues(t *testing.T) {
	var buf bytes.Buffer

	ConfigureLoggingWithOptions(Options{
		Subsystem: "scheduler",
		JSON:      true,
		MinLevel:  slog.LevelDebug,
		Output:    &buf,
	})

	ctx := With(context.Background(), "state", "ramp_up")
	ctx = With(ctx, "position", 3)

	Get(ctx).Info("statement executed")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))

	assert.Equal(t, "scheduler", rec["subsystem"])
	assert.Equal(t, "ramp_up", rec["state"])
	assert.InDelta(t, 3, rec["position"], 0)
}

//nolint:paralleltest // modifies the default slog logger
func TestSubsystemOverrideAndMute(t *testing.T) {
	var buf bytes.Buffer

	ConfigureLoggingWithOptions(Options{Subsystem: "default", Output: &buf})

	Get(WithSubsystem(context.Background(), "world")).Info("hello")
	assert.Contains(t, buf.String(), "subsystem=world")

	buf.Reset()
	Get(WithMuted(context.Background(), true)).Error("should not appear")
	assert.Empty(t, buf.String())
}

//nolint:paralleltest // modifies the default slog logger
func TestConfigureLoggingFromEnv(t *testing.T) {
	var buf bytes.Buffer

	ctx := envutil.WithEnvOverride(context.Background(), "LOG_LEVEL", "warn")
	ConfigureLogging(ctx, "demo", WithOutput(&buf))

	Get().Info("filtered")
	Get().Warn("kept")

	out := buf.String()
	assert.False(t, strings.Contains(out, "filtered"))
	assert.Contains(t, out, "kept")
}
