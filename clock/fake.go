package clock

import (
	"context"
	"math"
	"sync"
	"time"
)

// Fake is a manually driven clock. Sleep never blocks: it advances the
// clock by the requested duration and records the call.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

// NewFake returns a fake clock reading start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// FromSeconds returns a fake clock at the given Unix time in seconds,
// which keeps fixtures readable ("now=10.2").
func FromSeconds(secs float64) *Fake {
	return NewFake(Seconds(secs))
}

// Seconds converts Unix seconds to a time.Time.
func Seconds(secs float64) time.Time {
	return time.Unix(0, int64(math.Round(secs*float64(time.Second)))).UTC()
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.now
}

func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.sleeps = append(f.sleeps, d)

	if d > 0 {
		f.now = f.now.Add(d)
	}

	return nil
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.now = f.now.Add(d)
}

// Set moves the clock to t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.now = t
}

// Sleeps returns every duration passed to Sleep so far.
func (f *Fake) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]time.Duration, len(f.sleeps))
	copy(out, f.sleeps)

	return out
}
