package trace_test

import (
	"context"
	"testing"
	"time"

	"github.com/amp-labs/imperative/diagnostics"
	"github.com/amp-labs/imperative/diagnostics/trace"
	"github.com/amp-labs/imperative/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterCodecs(t *testing.T) {
	t.Parallel()

	for _, codec := range []trace.Codec{trace.CodecNone, trace.CodecZstd, trace.CodecLZ4, trace.CodecBrotli} {
		t.Run(string(codec), func(t *testing.T) {
			t.Parallel()

			now := time.Unix(1_700_000_000, 0)

			w, err := trace.Create(t.TempDir(), "adr", codec, now)
			require.NoError(t, err)

			for pos := range 20 {
				w.Record(context.Background(), diagnostics.Event{
					RunID:     "run-1",
					State:     "ramp_up",
					Position:  pos,
					Statement: pos % 4,
					Elapsed:   time.Duration(pos) * time.Second,
					At:        now.Add(time.Duration(pos) * time.Second),
					View:      world.NewView(now, map[string]any{"current_a": float64(pos) / 2}),
				})
			}

			assert.Equal(t, 20, w.Len())
			require.NoError(t, w.Close())
			require.NoError(t, w.Close())

			recs, err := trace.ReadFile(w.Path())
			require.NoError(t, err)
			require.Len(t, recs, 20)

			assert.Equal(t, 19, recs[19].Position)
			assert.Equal(t, 3, recs[19].Statement)
			assert.InDelta(t, 9.5, recs[19].View["current_a"], 1e-9)
			assert.InDelta(t, 19.0, recs[19].ElapsedS, 1e-9)
		})
	}
}

func TestParseCodec(t *testing.T) {
	t.Parallel()

	c, err := trace.ParseCodec("")
	require.NoError(t, err)
	assert.Equal(t, trace.CodecZstd, c)

	c, err = trace.ParseCodec(" LZ4 ")
	require.NoError(t, err)
	assert.Equal(t, trace.CodecLZ4, c)

	_, err = trace.ParseCodec("gzip")
	require.ErrorIs(t, err, trace.ErrUnknownCodec)

	_, err = trace.CodecForPath("trace.txt")
	require.ErrorIs(t, err, trace.ErrUnknownCodec)
}
