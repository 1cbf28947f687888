package scheduler

import (
	"time"
)

// Decision is what one scheduling instant does. Exactly one of the two
// runs per instant.
type Decision int

const (
	// RunWorldUpdate polls the world.
	RunWorldUpdate Decision = iota
	// RunNextStatement advances the active execution by one statement.
	RunNextStatement
)

func (d Decision) String() string {
	switch d {
	case RunWorldUpdate:
		return "world_update"
	case RunNextStatement:
		return "next_statement"
	default:
		return "unknown"
	}
}

// Input is everything Decide looks at.
type Input struct {
	Now    time.Time
	Period time.Duration

	LastUpdate    time.Time
	HasLastUpdate bool

	Deadline    time.Time
	HasDeadline bool
}

// Outcome is the result of Decide. When Sleep is positive the caller must
// block that long before carrying out Decision.
type Outcome struct {
	Decision      Decision
	NextTick      time.Time
	Sleep         time.Duration
	ClearDeadline bool
}

// NextTick returns the next polling boundary. Before the first poll it is
// now rounded up to a multiple of period; after that it is the previous
// poll plus period, rounded down. Rounding is relative to the zero time,
// which for periods dividing a day matches the Unix epoch.
func NextTick(now, last time.Time, hasLast bool, period time.Duration) time.Time {
	if !hasLast {
		tick := now.Truncate(period)
		if tick.Before(now) {
			tick = tick.Add(period)
		}

		return tick
	}

	return last.Add(period).Truncate(period)
}

// Decide picks the action of one scheduling instant:
//
//  1. a due tick always polls the world;
//  2. with no pending wait the next statement runs at once;
//  3. a wait whose deadline has passed is cleared and the next statement runs;
//  4. otherwise sleep until the next tick and poll.
//
// A wait deadline is only checked here, so a wait that straddles a tick is
// resolved at the first instant after that tick.
func Decide(in Input) Outcome {
	next := NextTick(in.Now, in.LastUpdate, in.HasLastUpdate, in.Period)
	out := Outcome{NextTick: next}

	switch {
	case !next.After(in.Now):
		out.Decision = RunWorldUpdate
	case !in.HasDeadline:
		out.Decision = RunNextStatement
	case !in.Now.Before(in.Deadline):
		out.Decision = RunNextStatement
		out.ClearDeadline = true
	default:
		out.Decision = RunWorldUpdate
		out.Sleep = next.Sub(in.Now)
	}

	return out
}
