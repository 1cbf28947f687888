package statemachine_test

import (
	"context"
	"testing"
	"time"

	"github.com/amp-labs/imperative/clock"
	"github.com/amp-labs/imperative/diagnostics"
	"github.com/amp-labs/imperative/procedure"
	"github.com/amp-labs/imperative/statemachine"
	"github.com/amp-labs/imperative/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcedureStateWaitsActsAndTransitions(t *testing.T) {
	t.Parallel()

	fake := clock.FromSeconds(100)
	rec := &diagnostics.Recorder{}
	closeSwitch := world.NewAction("close_heat_switch")

	def := procedure.MustNew("cooldown",
		procedure.Do("mark", func(env *procedure.Env) error {
			env.Scope().Set("marked", true)

			return nil
		}),
		procedure.Wait(2*time.Second),
		procedure.Do("after_wait", func(*procedure.Env) error { return nil }),
		procedure.Act(closeSwitch),
		procedure.ExitTo("hold"),
	)

	m, err := statemachine.NewBuilder("adr").
		AddProcedure(def, statemachine.WithProcedureClock(fake), statemachine.WithSink(rec)).
		AddIdle("hold").
		Build()
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, m.OnEnter(ctx, world.View{}))

	step := func() statemachine.Command {
		cmd, err := m.Send(ctx, world.View{})
		require.NoError(t, err)

		return cmd
	}

	assert.Nil(t, step()) // mark
	assert.Nil(t, step()) // wait
	assert.Nil(t, step()) // still waiting
	assert.Equal(t, []int{0, 1}, rec.Positions("cooldown"))

	fake.Advance(2 * time.Second)

	assert.Nil(t, step())
	assert.Equal(t, statemachine.WorldAction{Action: closeSwitch}, step())
	assert.Equal(t, "cooldown", m.Current().Name())

	assert.Nil(t, step())
	assert.Equal(t, "hold", m.Current().Name())

	events := rec.Events()
	require.Len(t, events, 5)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, rec.Positions("cooldown"))

	last := events[len(events)-1]
	assert.True(t, last.Completed)
	assert.Equal(t, "hold", last.Successor)
	assert.Equal(t, "adr", last.Machine)
	assert.Equal(t, def.Fingerprint(), last.Fingerprint)
	assert.Equal(t, 2*time.Second, last.Elapsed)

	for _, ev := range events {
		assert.Equal(t, events[0].RunID, ev.RunID)
	}
}

func TestProcedureStateCompletesWithoutSuccessor(t *testing.T) {
	t.Parallel()

	ps := statemachine.NewProcedureState(procedure.MustNew("short",
		procedure.Do("only", func(*procedure.Env) error { return nil }),
	), statemachine.WithStateName("renamed"))

	assert.Equal(t, "renamed", ps.Name())

	ctx := context.Background()
	require.NoError(t, ps.OnEnter(ctx, world.View{}))

	cmd, err := ps.Send(ctx, world.View{})
	require.NoError(t, err)
	assert.Nil(t, cmd)

	cmd, err = ps.Send(ctx, world.View{})
	require.NoError(t, err)
	assert.Equal(t, statemachine.Complete{}, cmd)

	// Completion is sticky until the state is re-entered.
	cmd, err = ps.Send(ctx, world.View{})
	require.NoError(t, err)
	assert.Equal(t, statemachine.Complete{}, cmd)
	assert.Equal(t, 1, ps.Runs())

	require.NoError(t, ps.OnExit(ctx, world.View{}))
	assert.Nil(t, ps.Execution())

	require.NoError(t, ps.OnEnter(ctx, world.View{}))
	assert.Equal(t, 2, ps.Runs())
	assert.Equal(t, 0, ps.Execution().Position())
}

func TestProcedureStateStatementError(t *testing.T) {
	t.Parallel()

	ps := statemachine.NewProcedureState(procedure.MustNew("faulty",
		procedure.Do("explode", func(*procedure.Env) error { return errBoom }),
	))

	m, err := statemachine.NewMachine("m", []statemachine.State{ps})
	require.NoError(t, err)

	_, err = m.Send(context.Background(), world.View{})
	require.ErrorIs(t, err, errBoom)

	var se *procedure.StatementError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "explode", se.Label)

	var ste *statemachine.StateError
	require.ErrorAs(t, err, &ste)
	assert.Equal(t, "faulty", ste.State)
}

func TestProcedureStateUnderRunner(t *testing.T) {
	t.Parallel()

	fake := clock.FromSeconds(0)
	dummy := world.NewDummy(fake)

	def := procedure.MustNew("pulse",
		procedure.Repeat("pulses", 2,
			procedure.Act(world.NewAction("pulse")),
			procedure.Wait(time.Second),
		),
	)

	top, err := statemachine.NewBuilder("pulser").
		AddProcedure(def, statemachine.WithProcedureClock(fake)).
		Build()
	require.NoError(t, err)

	runner, err := statemachine.NewRunner(top, dummy,
		statemachine.WithClock(fake), statemachine.WithInterval(500*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, runner.Run(context.Background()))
	assert.Len(t, dummy.Actions(), 2)
	assert.Equal(t, int64(2), runner.Actions())
}
