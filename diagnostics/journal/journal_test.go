package journal_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/amp-labs/imperative/diagnostics"
	"github.com/amp-labs/imperative/diagnostics/journal"
	"github.com/amp-labs/imperative/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	jr, err := journal.Open(ctx, filepath.Join(t.TempDir(), "runs", "journal.db"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = jr.Close() })

	start := time.Unix(100, 0).UTC()

	for pos := range 3 {
		jr.Record(ctx, diagnostics.Event{
			RunID:       "run-a",
			Machine:     "adr",
			State:       "soak",
			Position:    pos,
			Statement:   pos,
			Label:       "hold",
			Fingerprint: 0xdeadbeef,
			Elapsed:     time.Duration(pos) * time.Second,
			At:          start.Add(time.Duration(pos) * time.Second),
			View:        world.NewView(start, map[string]any{"current_a": 9.5}),
			Completed:   pos == 2,
			Successor:   map[bool]string{true: "ramp_down"}[pos == 2],
		})
	}

	runs, err := jr.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	assert.Equal(t, "soak", runs[0].State)
	assert.Equal(t, "adr", runs[0].Machine)
	assert.Equal(t, uint64(0xdeadbeef), runs[0].Fingerprint)
	assert.Equal(t, 3, runs[0].Steps)
	assert.Equal(t, start, runs[0].StartedAt)

	steps, err := jr.Steps(ctx, "run-a")
	require.NoError(t, err)
	require.Len(t, steps, 3)

	assert.Equal(t, 2*time.Second, steps[2].Elapsed)
	assert.True(t, steps[2].Completed)
	assert.Equal(t, "ramp_down", steps[2].Successor)
	assert.InDelta(t, 9.5, steps[0].View["current_a"], 1e-9)
	assert.Equal(t, steps[0].ViewHash, steps[1].ViewHash)
}

func TestJournalViewChanges(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	jr, err := journal.Open(ctx, ":memory:")
	require.NoError(t, err)

	t.Cleanup(func() { _ = jr.Close() })

	start := time.Unix(100, 0).UTC()
	currents := []float64{0, 0, 0.5, 0.5, 1}

	for pos, current := range currents {
		require.NoError(t, jr.Write(ctx, diagnostics.Event{
			RunID:    "run-b",
			Machine:  "adr",
			State:    "ramp_up",
			Position: pos,
			Label:    "wait 1s",
			At:       start.Add(time.Duration(pos) * time.Second),
			Elapsed:  time.Duration(pos) * time.Second,
			View:     world.NewView(start, map[string]any{"current_a": current}),
		}))
	}

	changes, err := jr.ViewChanges(ctx, "run-b")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 4}, changes)

	none, err := jr.ViewChanges(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestJournalEmptyPath(t *testing.T) {
	t.Parallel()

	_, err := journal.Open(context.Background(), "")
	require.ErrorIs(t, err, journal.ErrEmptyPath)
}

func TestJournalWriteAfterClose(t *testing.T) {
	t.Parallel()

	jr, err := journal.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NoError(t, jr.Close())
	require.NoError(t, jr.Close())

	require.NoError(t, jr.Write(context.Background(), diagnostics.Event{RunID: "x"}))
}
