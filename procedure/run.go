package procedure

import (
	"context"
	"errors"
)

// RunToCompletion advances a fresh execution of def until it completes and
// returns the positions it reported along with the successor. Waits are
// requested on handle but not honored; pacing is the scheduler's job.
func RunToCompletion(ctx context.Context, def *Definition, handle Handle) ([]int, string, error) {
	exec := Start(def, handle)

	var positions []int

	for {
		if err := ctx.Err(); err != nil {
			return positions, "", err
		}

		res, err := exec.Advance(ctx)
		if res.Executed() {
			positions = append(positions, res.Position)
		}

		if err != nil {
			return positions, "", err
		}

		if res.Status == Completed {
			return positions, res.Successor, nil
		}
	}
}

// RunChain runs initial to completion, then its successor, and so on until
// a state completes with no successor. It returns the names of the states
// run, in order. Cancellation ends the chain without error.
func RunChain(ctx context.Context, reg *Registry, initial string, handle Handle) ([]string, error) {
	var visited []string

	next := initial
	for next != "" {
		def, err := reg.Lookup(next)
		if err != nil {
			return visited, err
		}

		visited = append(visited, next)

		_, next, err = RunToCompletion(ctx, def, handle)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return visited, nil
		}

		if err != nil {
			return visited, err
		}
	}

	return visited, nil
}
