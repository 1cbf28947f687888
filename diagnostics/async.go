package diagnostics

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/amp-labs/imperative/logger"
	"go.uber.org/atomic"
)

// AsyncSink hands events to a worker pool so a slow sink (a file or a
// database) never stalls the scheduler. With one worker, events reach the
// inner sink in the order they were recorded.
type AsyncSink struct {
	inner Sink
	pool  pond.Pool
	once  sync.Once

	// mu makes the closed check and the submit atomic with Close.
	mu        sync.Mutex
	closed    bool
	submitted atomic.Int64
	dropped   atomic.Int64
}

// NewAsyncSink wraps inner with a pool of workers. Values below one mean
// one worker.
func NewAsyncSink(inner Sink, workers int) *AsyncSink {
	if workers < 1 {
		workers = 1
	}

	return &AsyncSink{
		inner: OrNop(inner),
		pool:  pond.NewPool(workers),
	}
}

func (a *AsyncSink) Record(ctx context.Context, ev Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		a.dropped.Inc()
		logger.Get(ctx).Warn("diagnostics event dropped after close", "state", ev.State, "position", ev.Position)

		return
	}

	detached := context.WithoutCancel(ctx)

	a.submitted.Inc()
	a.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Get(detached).Error("diagnostics sink panicked", "panic", r)
			}
		}()

		a.inner.Record(detached, ev)
	})
}

// Dropped returns the number of events recorded after Close.
func (a *AsyncSink) Dropped() int64 {
	return a.dropped.Load()
}

// Close drains pending events and closes the inner sink if it holds
// resources.
func (a *AsyncSink) Close() error {
	var err error

	a.once.Do(func() {
		a.mu.Lock()
		a.closed = true
		a.mu.Unlock()

		a.pool.StopAndWait()

		if c, ok := a.inner.(Closer); ok {
			err = c.Close()
		}

		slog.Debug("diagnostics async sink closed", "submitted", a.submitted.Load())
	})

	return err
}
