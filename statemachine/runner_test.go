package statemachine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amp-labs/imperative/clock"
	"github.com/amp-labs/imperative/statemachine"
	"github.com/amp-labs/imperative/statemachine/smtest"
	"github.com/amp-labs/imperative/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errBoom     = errors.New("boom")
	errActuator = errors.New("actuator jammed")
)

// cancellingWorld cancels its context once it has been polled after times.
type cancellingWorld struct {
	*world.Dummy

	cancel context.CancelFunc
	after  int64
}

func (w *cancellingWorld) Update(ctx context.Context) error {
	if err := w.Dummy.Update(ctx); err != nil {
		return err
	}

	if w.Updates() >= w.after {
		w.cancel()
	}

	return nil
}

func nestedCounters(t *testing.T) *statemachine.Machine {
	t.Helper()

	top, err := statemachine.NewBuilder("sm2").
		AddCounter("ABC", 3, "sm1").
		AddMachine(statemachine.NewBuilder("sm1").
			AddCounter("c1", 10, "c2").
			AddCounter("c2", 2, statemachine.CompleteTarget)).
		Build()
	require.NoError(t, err)

	return top
}

func TestRunnerNestedCountersComplete(t *testing.T) {
	t.Parallel()

	fake := clock.FromSeconds(1000)
	dummy := world.NewDummy(fake)

	runner, err := statemachine.NewRunner(nestedCounters(t), dummy,
		statemachine.WithClock(fake), statemachine.WithInterval(time.Second))
	require.NoError(t, err)

	require.NoError(t, runner.Run(context.Background()))

	assert.Equal(t, int64(18), runner.Iterations())
	assert.Equal(t, int64(18), dummy.Updates())
	assert.Equal(t, 17*time.Second, dummy.Elapsed())
	assert.Len(t, fake.Sleeps(), 17)
	assert.Equal(t, 1, dummy.Entered())
	assert.Equal(t, 1, dummy.Exited())
}

func TestRunnerCancellationRunsExitHooksOnce(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr := &smtest.Trace{}
	top, err := statemachine.NewMachine("top", []statemachine.State{smtest.NewProbe("wait", tr)})
	require.NoError(t, err)

	w := &cancellingWorld{Dummy: world.NewDummy(clock.FromSeconds(0)), cancel: cancel, after: 3}

	runner, err := statemachine.NewRunner(top, w)
	require.NoError(t, err)

	require.NoError(t, runner.Run(ctx))

	assert.Equal(t, int64(3), runner.Iterations())
	assert.Equal(t, 3, tr.Count(smtest.Send, "wait"))
	smtest.RequireHooks(t, tr, "enter:wait exit:wait")
	assert.Equal(t, 1, w.Exited())
}

func TestRunnerJoinsExitErrors(t *testing.T) {
	t.Parallel()

	tr := &smtest.Trace{}
	probe := smtest.NewProbe("p", tr)
	probe.SendErr = errBoom
	probe.ExitErr = errExit

	dummy := world.NewDummy(clock.FromSeconds(0))

	runner, err := statemachine.NewRunner(probe, dummy)
	require.NoError(t, err)

	err = runner.Run(context.Background())
	require.ErrorIs(t, err, errBoom)
	require.ErrorIs(t, err, errExit)
	assert.Equal(t, 1, dummy.Exited())
	smtest.RequireSymmetric(t, tr)
}

func TestRunnerPerformsWorldActions(t *testing.T) {
	t.Parallel()

	tr := &smtest.Trace{}
	open := world.NewAction("open_heat_switch")
	top := smtest.NewProbe("p", tr, statemachine.WorldAction{Action: open}, nil, statemachine.Complete{})
	dummy := world.NewDummy(clock.FromSeconds(0))

	runner, err := statemachine.NewRunner(top, dummy)
	require.NoError(t, err)

	require.NoError(t, runner.Run(context.Background()))
	assert.Equal(t, []world.Action{open}, dummy.Actions())
	assert.Equal(t, int64(1), runner.Actions())
	assert.Equal(t, int64(3), runner.Iterations())
}

func TestRunnerWorldActionFailure(t *testing.T) {
	t.Parallel()

	tr := &smtest.Trace{}
	top := smtest.NewProbe("p", tr, statemachine.WorldAction{Action: world.NewAction("ramp")})
	dummy := world.NewDummy(clock.FromSeconds(0))
	dummy.FailAction("ramp", errActuator)

	runner, err := statemachine.NewRunner(top, dummy)
	require.NoError(t, err)

	require.ErrorIs(t, runner.Run(context.Background()), errActuator)
	assert.Equal(t, 1, dummy.Exited())
}

func TestRunnerRejectsTopLevelTransition(t *testing.T) {
	t.Parallel()

	tr := &smtest.Trace{}
	top := smtest.NewProbe("p", tr, statemachine.ChangeState{Next: "elsewhere"})

	runner, err := statemachine.NewRunner(top, world.NewDummy(nil))
	require.NoError(t, err)

	require.ErrorIs(t, runner.Run(context.Background()), statemachine.ErrUnhandledTransition)
}

func TestNewRunnerValidation(t *testing.T) {
	t.Parallel()

	_, err := statemachine.NewRunner(nil, world.NewDummy(nil))
	require.ErrorIs(t, err, statemachine.ErrNilState)

	_, err = statemachine.NewRunner(statemachine.NewIdle(""), nil)
	require.ErrorIs(t, err, statemachine.ErrNilWorld)
}
