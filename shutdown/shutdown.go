// Package shutdown turns SIGINT/SIGTERM into context cancellation. The
// runtimes in this module only observe cancellation between iterations,
// so a signal always lets the current statement finish and the exit hooks
// run before the process winds down.
package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var (
	mut     sync.Mutex         //nolint:gochecknoglobals
	hooks   []func()           //nolint:gochecknoglobals
	trigger context.CancelFunc //nolint:gochecknoglobals
)

// BeforeShutdown registers h to run once the shutdown begins, before the
// returned context is canceled.
func BeforeShutdown(h func()) {
	mut.Lock()
	defer mut.Unlock()

	hooks = append(hooks, h)
}

// Shutdown starts the shutdown programmatically.
func Shutdown() {
	mut.Lock()
	cancel := trigger
	mut.Unlock()

	if cancel != nil {
		cancel()
	}
}

// SetupHandler returns a context derived from parent that is canceled on
// SIGINT, SIGTERM or a call to Shutdown. Registered hooks run first.
func SetupHandler(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	signals := make(chan os.Signal, 1)

	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	var once sync.Once

	stop := func() {
		once.Do(func() {
			signal.Stop(signals)
			runHooks()
			cancel()
		})
	}

	mut.Lock()
	trigger = stop
	mut.Unlock()

	go func() {
		select {
		case sig := <-signals:
			slog.Warn("Received " + sig.String() + ", shutting down...")
			stop()
		case <-ctx.Done():
			stop()
		}
	}()

	return ctx
}

func runHooks() {
	mut.Lock()
	pending := hooks
	hooks = nil
	mut.Unlock()

	for _, h := range pending {
		h()
	}
}
