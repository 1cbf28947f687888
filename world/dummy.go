package world

import (
	"context"
	"sync"
	"time"

	"github.com/amp-labs/imperative/clock"
	"github.com/amp-labs/imperative/logger"
	"go.uber.org/atomic"
)

// Dummy is a world with no physics. It counts polls and records the actions
// it is asked to perform, which is all most runtime tests need.
type Dummy struct {
	clock clock.Clock

	updates atomic.Int64
	elapsed atomic.Duration
	entered atomic.Int32
	exited  atomic.Int32

	mu      sync.Mutex
	actions []Action
	failOn  map[string]error
}

var _ World = (*Dummy)(nil)

// NewDummy returns a Dummy reading time from c.
func NewDummy(c clock.Clock) *Dummy {
	if c == nil {
		c = clock.Real{}
	}

	return &Dummy{clock: c, failOn: map[string]error{}}
}

// FailAction makes Do return err for actions named name.
func (d *Dummy) FailAction(name string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.failOn[name] = err
}

func (d *Dummy) Update(ctx context.Context) error {
	n := d.updates.Inc()

	logger.Get(ctx).Debug("dummy world updated", "update_count", n)

	return nil
}

func (d *Dummy) UpdateWithElapsed(_ context.Context, elapsed time.Duration) error {
	d.elapsed.Add(elapsed)

	return nil
}

func (d *Dummy) View() View {
	return NewView(d.clock.Now(), map[string]any{
		"update_count": d.updates.Load(),
		"elapsed":      d.elapsed.Load().Seconds(),
		"action_count": int64(len(d.Actions())),
	})
}

func (d *Dummy) Do(ctx context.Context, action Action) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.failOn[action.Name]; err != nil {
		return err
	}

	d.actions = append(d.actions, action)

	logger.Get(ctx).Info("dummy world action", "action", action.Name)

	return nil
}

func (d *Dummy) OnEnter(ctx context.Context) error {
	d.entered.Inc()
	logger.Get(ctx).Info("dummy world entered")

	return nil
}

func (d *Dummy) OnExit(ctx context.Context) error {
	d.exited.Inc()
	logger.Get(ctx).Info("dummy world exited")

	return nil
}

// Updates returns the number of Update calls.
func (d *Dummy) Updates() int64 {
	return d.updates.Load()
}

// Elapsed returns the total elapsed time reported through UpdateWithElapsed.
func (d *Dummy) Elapsed() time.Duration {
	return d.elapsed.Load()
}

// Entered returns how many times OnEnter ran.
func (d *Dummy) Entered() int {
	return int(d.entered.Load())
}

// Exited returns how many times OnExit ran.
func (d *Dummy) Exited() int {
	return int(d.exited.Load())
}

// Actions returns a copy of the actions performed so far.
func (d *Dummy) Actions() []Action {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Action, len(d.actions))
	copy(out, d.actions)

	return out
}
