package clock_test

import (
	"context"
	"testing"
	"time"

	"github.com/amp-labs/imperative/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeSleepAdvances(t *testing.T) {
	t.Parallel()

	fc := clock.FromSeconds(10.2)

	require.NoError(t, fc.Sleep(context.Background(), 800*time.Millisecond))
	assert.Equal(t, clock.Seconds(11), fc.Now())
	assert.Equal(t, []time.Duration{800 * time.Millisecond}, fc.Sleeps())
}

func TestFakeSleepHonorsCancellation(t *testing.T) {
	t.Parallel()

	fc := clock.FromSeconds(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, fc.Sleep(ctx, time.Second), context.Canceled)
	assert.Equal(t, clock.Seconds(0), fc.Now())
}

func TestUntil(t *testing.T) {
	t.Parallel()

	fc := clock.FromSeconds(3)

	require.NoError(t, clock.Until(context.Background(), fc, clock.Seconds(5.5)))
	assert.Equal(t, clock.Seconds(5.5), fc.Now())
}

func TestRealSleepCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := clock.Real{}.Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}
