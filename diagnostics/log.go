package diagnostics

import (
	"context"
	"log/slog"

	"github.com/amp-labs/imperative/logger"
)

// LogSink writes each event as a structured log record.
type LogSink struct {
	Level slog.Level
	// ViewKeys limits which view values are logged. Empty logs all of them.
	ViewKeys []string
}

func (s LogSink) Record(ctx context.Context, ev Event) {
	log := logger.Get(ctx)
	if !log.Enabled(ctx, s.Level) {
		return
	}

	attrs := []any{
		"run_id", ev.RunID,
		"state", ev.State,
		"position", ev.Position,
		"statement", ev.Statement,
		"label", ev.Label,
		"elapsed_s", ev.Elapsed.Seconds(),
	}

	if ev.Machine != "" {
		attrs = append(attrs, "machine", ev.Machine)
	}

	if ev.Completed {
		attrs = append(attrs, "successor", ev.Successor)
	}

	keys := s.ViewKeys
	if len(keys) == 0 {
		keys = ev.View.Keys()
	}

	view := make([]any, 0, len(keys)*2) //nolint:mnd

	for _, k := range keys {
		if v, ok := ev.View.Get(k); ok {
			view = append(view, k, v)
		}
	}

	if len(view) > 0 {
		attrs = append(attrs, slog.Group("view", view...))
	}

	log.Log(ctx, s.Level, "statement executed", attrs...)
}
