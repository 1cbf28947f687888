// Package diagnostics receives one Event per executed statement. Sinks are
// pure consumers: nothing they do feeds back into control flow, and a sink
// error is logged, never returned to the runtime.
package diagnostics

import (
	"context"
	"sync"
	"time"

	"github.com/amp-labs/imperative/closer"
	"github.com/amp-labs/imperative/world"
)

// Event describes one executed statement.
type Event struct {
	RunID     string
	Machine   string
	State     string
	Position  int
	Statement int
	Label     string
	// Fingerprint identifies the definition layout that produced the event.
	Fingerprint uint64
	// Elapsed is the time since the run of State started.
	Elapsed time.Duration
	View    world.View
	At      time.Time
	// Successor is set on the event of a statement that completed the run.
	Successor string
	Completed bool
}

// Sink consumes events.
type Sink interface {
	Record(ctx context.Context, ev Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event)

func (f SinkFunc) Record(ctx context.Context, ev Event) {
	f(ctx, ev)
}

// Nop discards events.
type Nop struct{}

func (Nop) Record(context.Context, Event) {}

// OrNop returns s, or Nop when s is nil.
func OrNop(s Sink) Sink { //nolint:ireturn
	if s == nil {
		return Nop{}
	}

	return s
}

// Multi fans an event out to every sink in order.
type Multi []Sink

func (m Multi) Record(ctx context.Context, ev Event) {
	for _, s := range m {
		if s != nil {
			s.Record(ctx, ev)
		}
	}
}

// Closer is implemented by sinks holding resources.
type Closer interface {
	Close() error
}

// Close closes every sink in m that implements Closer. A panicking sink
// does not stop the others from closing.
func (m Multi) Close() error {
	all := closer.NewCloser()

	for _, s := range m {
		if c, ok := s.(Closer); ok {
			all.Add(closer.HandlePanic(c))
		}
	}

	return all.Close()
}

// Recorder keeps events in memory. Useful in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Record(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, len(r.events))
	copy(out, r.events)

	return out
}

// Positions returns the Position of every recorded event for state.
func (r *Recorder) Positions(state string) []int {
	var out []int

	for _, ev := range r.Events() {
		if ev.State == state {
			out = append(out, ev.Position)
		}
	}

	return out
}
