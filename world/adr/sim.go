// Package adr simulates an adiabatic demagnetization refrigerator and
// provides the procedures that cycle and regulate it.
//
// The model is deliberately coarse: a superconducting magnet whose current
// ramps toward a target at a fixed rate, a heat switch to the bath, and a
// salt pill whose temperature follows the magnet adiabatically while the
// switch is open and relaxes toward the bath while it is closed.
package adr

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/amp-labs/imperative/clock"
	"github.com/amp-labs/imperative/logger"
	"github.com/amp-labs/imperative/world"
	"go.uber.org/atomic"
)

// Action names understood by Sim.
const (
	ActionRampTo          = "ramp_to"
	ActionSetRampRate     = "set_ramp_rate"
	ActionStopRamp        = "stop_ramp"
	ActionOpenHeatSwitch  = "open_heat_switch"
	ActionCloseHeatSwitch = "close_heat_switch"
)

// Action parameters.
const (
	ParamTarget = "target_a"
	ParamRate   = "rate_a_per_s"
)

// View keys published by Sim.
const (
	KeyCurrent          = "current_a"
	KeyTarget           = "target_a"
	KeyRampRate         = "ramp_rate_a_per_s"
	KeyRamping          = "ramping"
	KeyHeatSwitchClosed = "heat_switch_closed"
	KeyTemperature      = "temperature_k"
	KeyUpdates          = "update_count"
)

// currentEpsilon is the tolerance below which the magnet counts as at
// its target.
const currentEpsilon = 1e-6

// Physics holds the constants of the simulated cryostat.
type Physics struct {
	BathTemp    float64       `yaml:"bathTempK"`
	MinTemp     float64       `yaml:"minTempK"`
	MaxCurrent  float64       `yaml:"maxCurrentA"`
	MaxRampRate float64       `yaml:"maxRampRateAPerS"`
	SwitchTau   time.Duration `yaml:"switchTau"`
	// HeatLeak warms the pill while the switch is open, in K/s.
	HeatLeak float64 `yaml:"heatLeakKPerS"`
}

// DefaultPhysics is a small lab ADR on a 4 K bath.
func DefaultPhysics() Physics {
	return Physics{
		BathTemp:    4.0,
		MinTemp:     0.05,
		MaxCurrent:  9.5,
		MaxRampRate: 0.1,
		SwitchTau:   5 * time.Second,
		HeatLeak:    0.0002,
	}
}

// Sim is a world.World. The control runtime owns it; procedures read it
// through views and change it only with actions.
type Sim struct {
	physics Physics
	clock   clock.Clock

	mu          sync.Mutex
	current     float64
	target      float64
	rampRate    float64
	switchClose bool
	temperature float64

	updates atomic.Int64
	actions atomic.Int64
}

var _ world.World = (*Sim)(nil)

// NewSim returns a cold-started cryostat: magnet off, switch closed, pill
// at the bath temperature.
func NewSim(physics Physics, c clock.Clock) *Sim {
	if c == nil {
		c = clock.Real{}
	}

	return &Sim{
		physics:     physics,
		clock:       c,
		rampRate:    physics.MaxRampRate,
		switchClose: true,
		temperature: physics.BathTemp,
	}
}

func (s *Sim) OnEnter(ctx context.Context) error {
	logger.Get(ctx).Info("adr world online",
		"bath_temp_k", s.physics.BathTemp, "max_current_a", s.physics.MaxCurrent)

	return nil
}

func (s *Sim) OnExit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger.Get(ctx).Info("adr world offline",
		"current_a", s.current, "temperature_k", s.temperature, "updates", s.updates.Load())

	return nil
}

// Update polls the instruments. The simulation has nothing to read, so it
// only counts.
func (s *Sim) Update(context.Context) error {
	s.updates.Inc()

	return nil
}

// UpdateWithElapsed integrates the model over elapsed.
func (s *Sim) UpdateWithElapsed(_ context.Context, elapsed time.Duration) error {
	if elapsed <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dt := elapsed.Seconds()
	prev := s.current

	step := s.rampRate * dt
	switch {
	case s.target > s.current:
		s.current = math.Min(s.target, s.current+step)
	case s.target < s.current:
		s.current = math.Max(s.target, s.current-step)
	}

	if s.switchClose {
		relax := 1 - math.Exp(-dt/s.physics.SwitchTau.Seconds())
		s.temperature += (s.physics.BathTemp - s.temperature) * relax
	} else {
		if prev > currentEpsilon {
			s.temperature *= s.current / prev
		}

		s.temperature = math.Min(s.physics.BathTemp, s.temperature+s.physics.HeatLeak*dt)
	}

	s.temperature = math.Max(s.physics.MinTemp, s.temperature)

	return nil
}

func (s *Sim) View() world.View {
	s.mu.Lock()
	defer s.mu.Unlock()

	return world.NewView(s.clock.Now(), map[string]any{
		KeyCurrent:          s.current,
		KeyTarget:           s.target,
		KeyRampRate:         s.rampRate,
		KeyRamping:          math.Abs(s.target-s.current) > currentEpsilon,
		KeyHeatSwitchClosed: s.switchClose,
		KeyTemperature:      s.temperature,
		KeyUpdates:          s.updates.Load(),
	})
}

// Do applies an actuator command. Targets and rates outside the physical
// limits are rejected with world.ErrInvalidAction.
func (s *Sim) Do(ctx context.Context, action world.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch action.Name {
	case ActionRampTo:
		target, ok := action.Float(ParamTarget)
		if !ok || target < 0 || target > s.physics.MaxCurrent {
			return fmt.Errorf("%w: %s %s=%v", world.ErrInvalidAction, action.Name, ParamTarget, action.Params[ParamTarget])
		}

		s.target = target
	case ActionSetRampRate:
		rate, ok := action.Float(ParamRate)
		if !ok || rate <= 0 || rate > s.physics.MaxRampRate {
			return fmt.Errorf("%w: %s %s=%v", world.ErrInvalidAction, action.Name, ParamRate, action.Params[ParamRate])
		}

		s.rampRate = rate
	case ActionStopRamp:
		s.target = s.current
	case ActionOpenHeatSwitch:
		s.switchClose = false
	case ActionCloseHeatSwitch:
		s.switchClose = true
	default:
		return fmt.Errorf("%w: %s", world.ErrUnknownAction, action.Name)
	}

	s.actions.Inc()

	logger.Get(ctx).Debug("adr action", "action", action.Name, "params", action.Params)

	return nil
}

// Updates returns the number of polls.
func (s *Sim) Updates() int64 {
	return s.updates.Load()
}

// Actions returns the number of accepted actions.
func (s *Sim) Actions() int64 {
	return s.actions.Load()
}

// Current returns the magnet current in amperes.
func (s *Sim) Current() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current
}

// Temperature returns the pill temperature in kelvin.
func (s *Sim) Temperature() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.temperature
}

// HeatSwitchClosed reports the heat switch position.
func (s *Sim) HeatSwitchClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.switchClose
}
