// Package scheduler drives procedure executions statement by statement
// against a polled World. Every scheduling instant either polls the world
// or runs one statement, never both.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amp-labs/imperative/clock"
	"github.com/amp-labs/imperative/diagnostics"
	"github.com/amp-labs/imperative/logger"
	"github.com/amp-labs/imperative/procedure"
	"github.com/amp-labs/imperative/world"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/atomic"
)

// DefaultTickPeriod is the world polling cadence used when none is set.
const DefaultTickPeriod = time.Second

var (
	// ErrInvalidTickPeriod is returned for a tick period that is not positive.
	ErrInvalidTickPeriod = errors.New("tick period must be positive")
	// ErrNilWorld is returned when a scheduler is built without a world.
	ErrNilWorld = errors.New("world is required")
	// ErrNilRegistry is returned when a scheduler is built without definitions.
	ErrNilRegistry = errors.New("registry is required")
	// ErrNotStarted is returned by Step before a state has been started.
	ErrNotStarted = errors.New("scheduler has no active state")
)

// Stats are running totals. Instants always equals Updates plus Advances.
type Stats struct {
	Instants   int64
	Updates    int64
	Advances   int64
	Statements int64
	Waits      int64
	Actions    int64
}

// Scheduler owns a World and runs the procedures of a Registry one at a
// time, following successors until a procedure completes without one.
type Scheduler struct {
	name   string
	reg    *procedure.Registry
	world  world.World
	clock  clock.Clock
	period time.Duration
	sink   diagnostics.Sink

	exec    *procedure.Execution
	state   string
	started time.Time
	view    world.View
	visited []string

	lastUpdate  time.Time
	hasUpdate   bool
	deadline    time.Time
	hasDeadline bool

	instants   atomic.Int64
	updates    atomic.Int64
	advances   atomic.Int64
	statements atomic.Int64
	waits      atomic.Int64
	actions    atomic.Int64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock used for pacing, waits and timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// WithTickPeriod sets the world polling cadence.
func WithTickPeriod(d time.Duration) Option {
	return func(s *Scheduler) {
		s.period = d
	}
}

// WithSink reports every executed statement to sink.
func WithSink(sink diagnostics.Sink) Option {
	return func(s *Scheduler) {
		s.sink = sink
	}
}

// WithName sets the name used in logs, metrics and diagnostics events.
func WithName(name string) Option {
	return func(s *Scheduler) {
		s.name = name
	}
}

// New returns a scheduler over reg and w.
func New(reg *procedure.Registry, w world.World, opts ...Option) (*Scheduler, error) {
	if reg == nil {
		return nil, ErrNilRegistry
	}

	if w == nil {
		return nil, ErrNilWorld
	}

	s := &Scheduler{
		name:   "scheduler",
		reg:    reg,
		world:  w,
		clock:  clock.Real{},
		period: DefaultTickPeriod,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.period <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTickPeriod, s.period)
	}

	s.sink = diagnostics.OrNop(s.sink)

	return s, nil
}

// Name returns the scheduler name.
func (s *Scheduler) Name() string {
	return s.name
}

// Current returns the active state name, empty when none is active.
func (s *Scheduler) Current() string {
	return s.state
}

// Execution returns the active execution.
func (s *Scheduler) Execution() *procedure.Execution {
	return s.exec
}

// Visited returns the states started so far, in order.
func (s *Scheduler) Visited() []string {
	out := make([]string, len(s.visited))
	copy(out, s.visited)

	return out
}

func (s *Scheduler) Stats() Stats {
	return Stats{
		Instants:   s.instants.Load(),
		Updates:    s.updates.Load(),
		Advances:   s.advances.Load(),
		Statements: s.statements.Load(),
		Waits:      s.waits.Load(),
		Actions:    s.actions.Load(),
	}
}

// Run enters the world, starts initial and schedules until a procedure
// completes without a successor, an error occurs or ctx is cancelled.
// The world's exit hook runs on every way out and its error is joined
// with the run error. Cancellation is checked between instants and is not
// an error.
func (s *Scheduler) Run(ctx context.Context, initial string) (err error) {
	ctx = logger.With(ctx, "scheduler", s.name)
	log := logger.Get(ctx)

	ctx, span := startRunSpan(ctx, s.name, initial)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "finished")
		}

		span.End()
	}()

	if err := s.world.OnEnter(ctx); err != nil {
		return fmt.Errorf("world enter: %w", err)
	}

	defer func() {
		if exitErr := s.world.OnExit(context.WithoutCancel(ctx)); exitErr != nil {
			err = errors.Join(err, fmt.Errorf("world exit: %w", exitErr))
		}
	}()

	s.view = s.world.View()

	if err := s.Start(ctx, initial); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			log.Info("scheduler cancelled", "state", s.state, "position", s.exec.Position())
			stateRunsTotal.WithLabelValues(s.name, s.state, outcomeAbandoned).Inc()

			return nil
		}

		_, done, err := s.Step(ctx)
		if err != nil {
			return err
		}

		if done {
			log.Info("scheduler finished", "states", s.visited, "instants", s.instants.Load())

			return nil
		}
	}
}

// Start makes name the active state with a fresh execution. Run calls it
// for the initial state and for every successor.
func (s *Scheduler) Start(ctx context.Context, name string) error {
	def, err := s.reg.Lookup(name)
	if err != nil {
		return fmt.Errorf("scheduler %s: %w", s.name, err)
	}

	s.exec = procedure.Start(def, handle{s: s})
	s.state = name
	s.started = s.clock.Now()
	s.hasDeadline = false
	s.visited = append(s.visited, name)

	stateRunsTotal.WithLabelValues(s.name, name, outcomeStarted).Inc()
	logger.Get(ctx).Info("state started", "state", name, "run_id", s.exec.RunID().String())

	return nil
}

// Step runs one scheduling instant and reports what it did. done is true
// once the active procedure completed without a successor.
func (s *Scheduler) Step(ctx context.Context) (Decision, bool, error) {
	if s.exec == nil {
		return RunNextStatement, false, ErrNotStarted
	}

	s.instants.Inc()

	out := Decide(Input{
		Now:           s.clock.Now(),
		Period:        s.period,
		LastUpdate:    s.lastUpdate,
		HasLastUpdate: s.hasUpdate,
		Deadline:      s.deadline,
		HasDeadline:   s.hasDeadline,
	})

	decisionsTotal.WithLabelValues(s.name, out.Decision.String()).Inc()

	if out.Sleep > 0 {
		sleepSeconds.WithLabelValues(s.name).Observe(out.Sleep.Seconds())

		if err := s.clock.Sleep(ctx, out.Sleep); err != nil {
			if ctx.Err() != nil {
				// The instant is abandoned; Run notices the cancellation.
				return out.Decision, false, nil
			}

			return out.Decision, false, fmt.Errorf("pacing sleep: %w", err)
		}
	}

	if out.ClearDeadline {
		s.hasDeadline = false
	}

	if out.Decision == RunWorldUpdate {
		return out.Decision, false, s.runWorldUpdate(ctx)
	}

	done, err := s.runNextStatement(ctx)

	return out.Decision, done, err
}

func (s *Scheduler) runWorldUpdate(ctx context.Context) error {
	s.updates.Inc()

	if err := s.world.Update(ctx); err != nil {
		return fmt.Errorf("world update: %w", err)
	}

	now := s.clock.Now()

	if s.hasUpdate {
		if err := s.world.UpdateWithElapsed(ctx, now.Sub(s.lastUpdate)); err != nil {
			return fmt.Errorf("world update with elapsed: %w", err)
		}
	}

	s.lastUpdate = now
	s.hasUpdate = true
	s.view = s.world.View()

	return nil
}

func (s *Scheduler) runNextStatement(ctx context.Context) (bool, error) {
	s.advances.Inc()

	ctx, span := startStatementSpan(ctx, s.state, s.exec.Position())
	defer span.End()

	res, err := s.exec.Advance(ctx)
	if res.Executed() {
		s.statements.Inc()
		statementsTotal.WithLabelValues(s.name, s.state).Inc()
		span.SetAttributes(attribute.Int("statement", res.Statement), attribute.String("label", res.Label))
		s.report(ctx, res)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		stateRunsTotal.WithLabelValues(s.name, s.state, outcomeFailed).Inc()

		return false, err
	}

	if res.Status != procedure.Completed {
		return false, nil
	}

	stateRunsTotal.WithLabelValues(s.name, s.state, outcomeCompleted).Inc()
	logger.Get(ctx).Info("state completed", "state", s.state, "successor", res.Successor,
		"statements", s.exec.Position())

	if !res.HasSuccessor() {
		return true, nil
	}

	return false, s.Start(ctx, res.Successor)
}

func (s *Scheduler) report(ctx context.Context, res procedure.StepResult) {
	now := s.clock.Now()

	s.sink.Record(ctx, diagnostics.Event{
		RunID:       s.exec.RunID().String(),
		Machine:     s.name,
		State:       s.state,
		Position:    res.Position,
		Statement:   res.Statement,
		Label:       res.Label,
		Fingerprint: s.exec.Definition().Fingerprint(),
		Elapsed:     now.Sub(s.started),
		View:        s.view,
		At:          now,
		Successor:   res.Successor,
		Completed:   res.Status == procedure.Completed,
	})
}

// handle is what an execution sees of the scheduler.
type handle struct {
	s *Scheduler
}

func (h handle) View() world.View {
	return h.s.view
}

// RequestWait sets the pending deadline. It does not suspend anything; the
// next Decide withholds statements until the deadline passes.
func (h handle) RequestWait(d time.Duration) {
	h.s.deadline = h.s.clock.Now().Add(d)
	h.s.hasDeadline = true
	h.s.waits.Inc()
	waitsTotal.WithLabelValues(h.s.name, h.s.state).Inc()
}

func (h handle) Act(ctx context.Context, action world.Action) error {
	h.s.actions.Inc()
	worldActionsTotal.WithLabelValues(h.s.name, action.Name).Inc()

	if err := h.s.world.Do(ctx, action); err != nil {
		return fmt.Errorf("world action %s: %w", action.Name, err)
	}

	return nil
}
