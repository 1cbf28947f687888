package diagnostics_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/amp-labs/imperative/diagnostics"
	"github.com/amp-labs/imperative/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(state string, pos int) diagnostics.Event {
	return diagnostics.Event{
		RunID:     "run-1",
		State:     state,
		Position:  pos,
		Statement: pos,
		Elapsed:   time.Duration(pos) * time.Second,
		View:      world.NewView(time.Unix(10, 0), map[string]any{"temp_k": 0.1, "heat_switch": true}),
		At:        time.Unix(10, 0),
	}
}

func TestMultiAndRecorder(t *testing.T) {
	t.Parallel()

	first := &diagnostics.Recorder{}
	second := &diagnostics.Recorder{}

	multi := diagnostics.Multi{first, nil, second}
	multi.Record(context.Background(), event("soak", 0))
	multi.Record(context.Background(), event("soak", 1))
	multi.Record(context.Background(), event("ramp_up", 0))

	assert.Equal(t, []int{0, 1}, first.Positions("soak"))
	assert.Len(t, second.Events(), 3)
	require.NoError(t, multi.Close())
}

func TestAsyncSinkPreservesOrderWithOneWorker(t *testing.T) {
	t.Parallel()

	rec := &diagnostics.Recorder{}
	sink := diagnostics.NewAsyncSink(rec, 1)

	for i := range 50 {
		sink.Record(context.Background(), event("soak", i))
	}

	require.NoError(t, sink.Close())

	want := make([]int, 50)
	for i := range want {
		want[i] = i
	}

	assert.Equal(t, want, rec.Positions("soak"))

	sink.Record(context.Background(), event("soak", 50))
	assert.Equal(t, int64(1), sink.Dropped())
	assert.Len(t, rec.Events(), 50)
}

func TestAsyncSinkCountsEveryEventDuringClose(t *testing.T) {
	t.Parallel()

	const (
		writers   = 8
		perWriter = 200
	)

	rec := &diagnostics.Recorder{}
	sink := diagnostics.NewAsyncSink(rec, 2)

	var wg sync.WaitGroup

	for w := range writers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range perWriter {
				sink.Record(context.Background(), event("soak", w*perWriter+i))
			}
		}()
	}

	require.NoError(t, sink.Close())
	wg.Wait()

	assert.Equal(t, int64(writers*perWriter), int64(len(rec.Events()))+sink.Dropped())
}

func TestLogSink(t *testing.T) { //nolint:paralleltest // swaps the default logger
	var buf bytes.Buffer

	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	t.Cleanup(func() { slog.SetDefault(prev) })

	diagnostics.LogSink{Level: slog.LevelInfo, ViewKeys: []string{"temp_k"}}.
		Record(context.Background(), event("soak", 3))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))

	assert.Equal(t, "statement executed", rec["msg"])
	assert.Equal(t, "soak", rec["state"])
	assert.InDelta(t, 3.0, rec["position"], 0)

	view, ok := rec["view"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 0.1, view["temp_k"], 1e-9)
	assert.NotContains(t, view, "heat_switch")
}
