package statemachine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amp-labs/imperative/clock"
	"github.com/amp-labs/imperative/logger"
	"github.com/amp-labs/imperative/world"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/atomic"
)

// Runner drives a top-level State against a World until the state
// completes, fails or the context is cancelled.
type Runner struct {
	top      State
	world    world.World
	clock    clock.Clock
	interval time.Duration

	iterations atomic.Int64
	actions    atomic.Int64

	lastUpdate time.Time
	hasUpdate  bool
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithClock sets the clock used for pacing and elapsed time.
func WithClock(c clock.Clock) RunnerOption {
	return func(r *Runner) {
		r.clock = c
	}
}

// WithInterval sleeps d between iterations.
func WithInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.interval = d
	}
}

// NewRunner returns a runner for top against w.
func NewRunner(top State, w world.World, opts ...RunnerOption) (*Runner, error) {
	if top == nil {
		return nil, ErrNilState
	}

	if w == nil {
		return nil, ErrNilWorld
	}

	r := &Runner{top: top, world: w, clock: clock.Real{}}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Iterations returns the number of loop iterations run so far.
func (r *Runner) Iterations() int64 {
	return r.iterations.Load()
}

// Actions returns the number of world actions performed so far.
func (r *Runner) Actions() int64 {
	return r.actions.Load()
}

// Run enters the world and the top state, then loops: poll the world,
// take a view, send it to the top state and act on the command. The exit
// hooks of the top state and the world run exactly once on every way out,
// and their errors are joined with the run error. Cancellation is checked
// between iterations and is not an error.
func (r *Runner) Run(ctx context.Context) (err error) {
	name := r.top.Name()
	ctx = logger.With(ctx, "machine", name)
	log := logger.Get(ctx)

	ctx, span := startRunSpan(ctx, name)
	started := r.clock.Now()

	defer func() {
		runDuration.WithLabelValues(name, outcome(err)).Observe(r.clock.Now().Sub(started).Seconds())

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "finished")
		}

		span.End()
	}()

	if err := r.world.OnEnter(ctx); err != nil {
		return fmt.Errorf("world enter: %w", err)
	}

	view := r.world.View()

	defer func() {
		err = errors.Join(err, r.exit(ctx, view))
	}()

	if err := r.top.OnEnter(ctx, view); err != nil {
		return WrapStateError(name, err)
	}

	log.Info("runner started")

	for {
		if ctx.Err() != nil {
			log.Info("runner cancelled", "iterations", r.iterations.Load())

			return nil
		}

		r.iterations.Inc()

		if err := r.poll(ctx); err != nil {
			return err
		}

		view = r.world.View()

		cmd, err := r.top.Send(ctx, view)
		if err != nil {
			return err
		}

		commandsTotal.WithLabelValues(name, CommandName(cmd)).Inc()

		done, err := r.apply(ctx, cmd)
		if err != nil || done {
			return err
		}

		if r.interval > 0 {
			if err := r.clock.Sleep(ctx, r.interval); err != nil {
				if ctx.Err() != nil {
					continue
				}

				return err
			}
		}
	}
}

func (r *Runner) apply(ctx context.Context, cmd Command) (bool, error) {
	switch c := cmd.(type) {
	case nil:
		return false, nil
	case WorldAction:
		r.actions.Inc()

		if err := r.world.Do(ctx, c.Action); err != nil {
			return false, fmt.Errorf("world action %s: %w", c.Action.Name, err)
		}

		return false, nil
	case Complete:
		logger.Get(ctx).Info("runner complete", "iterations", r.iterations.Load())

		return true, nil
	case ChangeState:
		return false, fmt.Errorf("%w: %s", ErrUnhandledTransition, c.Next)
	default:
		return false, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
}

func (r *Runner) poll(ctx context.Context) error {
	if err := r.world.Update(ctx); err != nil {
		return fmt.Errorf("world update: %w", err)
	}

	now := r.clock.Now()

	if r.hasUpdate {
		if err := r.world.UpdateWithElapsed(ctx, now.Sub(r.lastUpdate)); err != nil {
			return fmt.Errorf("world update with elapsed: %w", err)
		}
	}

	r.lastUpdate = now
	r.hasUpdate = true

	return nil
}

func (r *Runner) exit(ctx context.Context, view world.View) error {
	ctx = context.WithoutCancel(ctx)

	stateErr := WrapStateError(r.top.Name(), r.top.OnExit(ctx, view))

	var worldErr error
	if err := r.world.OnExit(ctx); err != nil {
		worldErr = fmt.Errorf("world exit: %w", err)
	}

	return errors.Join(stateErr, worldErr)
}
