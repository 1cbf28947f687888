package scheduler_test

import (
	"testing"
	"time"

	"github.com/amp-labs/imperative/clock"
	"github.com/amp-labs/imperative/scheduler"
	"github.com/stretchr/testify/assert"
)

func TestNextTick(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		now     float64
		last    float64
		hasLast bool
		period  time.Duration
		want    float64
	}{
		{name: "first tick rounds up", now: 10.2, period: time.Second, want: 11},
		{name: "first tick on boundary", now: 10, period: time.Second, want: 10},
		{name: "sub-second cadence", now: 10.2, period: 500 * time.Millisecond, want: 10.5},
		{name: "anchored to last poll", now: 10.2, last: 10, hasLast: true, period: time.Second, want: 11},
		{name: "late poll rounds down", now: 11.9, last: 10.7, hasLast: true, period: time.Second, want: 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := scheduler.NextTick(clock.Seconds(tt.now), clock.Seconds(tt.last), tt.hasLast, tt.period)
			assert.Equal(t, clock.Seconds(tt.want), got)
		})
	}
}

func TestDecideRunsStatementWhenNothingIsPending(t *testing.T) {
	t.Parallel()

	out := scheduler.Decide(scheduler.Input{Now: clock.Seconds(10.2), Period: time.Second})

	assert.Equal(t, scheduler.RunNextStatement, out.Decision)
	assert.Equal(t, clock.Seconds(11), out.NextTick)
	assert.Zero(t, out.Sleep)
	assert.False(t, out.ClearDeadline)
}

func TestDecideClearsPassedDeadline(t *testing.T) {
	t.Parallel()

	out := scheduler.Decide(scheduler.Input{
		Now:         clock.Seconds(10.2),
		Period:      time.Second,
		Deadline:    clock.Seconds(10.1),
		HasDeadline: true,
	})

	assert.Equal(t, scheduler.RunNextStatement, out.Decision)
	assert.True(t, out.ClearDeadline)
	assert.Zero(t, out.Sleep)
}

func TestDecideSleepsUntilTickWhileWaiting(t *testing.T) {
	t.Parallel()

	out := scheduler.Decide(scheduler.Input{
		Now:         clock.Seconds(10.2),
		Period:      time.Second,
		Deadline:    clock.Seconds(12),
		HasDeadline: true,
	})

	assert.Equal(t, scheduler.RunWorldUpdate, out.Decision)
	assert.Equal(t, clock.Seconds(11), out.NextTick)
	assert.Equal(t, 800*time.Millisecond, out.Sleep)
	assert.False(t, out.ClearDeadline)
}

func TestDecideDueTickWins(t *testing.T) {
	t.Parallel()

	out := scheduler.Decide(scheduler.Input{
		Now:           clock.Seconds(10.2),
		Period:        time.Second,
		LastUpdate:    clock.Seconds(9.5),
		HasLastUpdate: true,
		Deadline:      clock.Seconds(10),
		HasDeadline:   true,
	})

	assert.Equal(t, scheduler.RunWorldUpdate, out.Decision)
	assert.Zero(t, out.Sleep)
	assert.False(t, out.ClearDeadline)
}

func TestDecisionString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "world_update", scheduler.RunWorldUpdate.String())
	assert.Equal(t, "next_statement", scheduler.RunNextStatement.String())
}
