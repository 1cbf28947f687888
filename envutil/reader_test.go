package envutil_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/amp-labs/imperative/envutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTooSmall = errors.New("too small")

func TestReaderMissing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, err := envutil.String(ctx, "IMPERATIVE_TEST_SURELY_UNSET").Value()
	require.ErrorIs(t, err, envutil.ErrEnvVarMissing)

	val := envutil.Int(ctx, "IMPERATIVE_TEST_SURELY_UNSET", envutil.Default(7)).ValueOrElse(0)
	assert.Equal(t, 7, val)
}

func TestReaderContextOverride(t *testing.T) {
	t.Parallel()

	ctx := envutil.WithEnvOverride(context.Background(), "TICK_PERIOD", "0.5")

	period, err := envutil.Duration(ctx, "TICK_PERIOD").Value()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, period)

	ctx = envutil.WithEnvOverride(ctx, "TICK_PERIOD", "250ms")

	period, err = envutil.Duration(ctx, "TICK_PERIOD").Value()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, period)
}

func TestReaderParseError(t *testing.T) {
	t.Parallel()

	ctx := envutil.WithEnvOverride(context.Background(), "WORKERS", "many")

	rdr := envutil.Int(ctx, "WORKERS", envutil.Default(4))

	_, err := rdr.Value()
	require.ErrorIs(t, err, envutil.ErrBadEnvVar)
	assert.Equal(t, 4, rdr.ValueOrElse(4))
	assert.False(t, rdr.HasValue())
}

func TestReaderValidate(t *testing.T) {
	t.Parallel()

	ctx := envutil.WithEnvOverride(context.Background(), "WORKERS", "0")

	_, err := envutil.Int(ctx, "WORKERS", envutil.Validate(func(n int) error {
		if n < 1 {
			return errTooSmall
		}

		return nil
	})).Value()
	require.ErrorIs(t, err, errTooSmall)
}

func TestSlogLevel(t *testing.T) {
	t.Parallel()

	ctx := envutil.WithEnvOverride(context.Background(), "LOG_LEVEL", " debug ")

	lvl, err := envutil.SlogLevel(ctx, "LOG_LEVEL").Value()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	ctx = envutil.WithEnvOverride(ctx, "LOG_LEVEL", "loud")

	_, err = envutil.SlogLevel(ctx, "LOG_LEVEL").Value()
	require.Error(t, err)
}

func TestBoolFromProcessEnv(t *testing.T) { //nolint:paralleltest // uses t.Setenv
	t.Setenv("IMPERATIVE_TEST_FLAG", "true")

	assert.True(t, envutil.Bool(context.Background(), "IMPERATIVE_TEST_FLAG").ValueOrElse(false))
}
