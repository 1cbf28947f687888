package adr

import (
	"errors"
	"fmt"
	"time"

	"github.com/amp-labs/imperative/procedure"
	"github.com/amp-labs/imperative/world"
	"go.uber.org/atomic"
)

// Control states.
const (
	StateUnknown           = "unknown_state"
	StateOpenLoop          = "open_loop"
	StateRampUp            = "ramp_up"
	StateSoak              = "soak"
	StateRampDown          = "ramp_down"
	StateAfterRampDown     = "after_ramp_down_chill"
	StateTempControl       = "temp_control"
	StateEndingTempControl = "ending_temp_control"
)

// ErrInvalidPlan is returned for a plan that cannot be run.
var ErrInvalidPlan = errors.New("invalid adr plan")

// tolerance is how close, in amperes, the magnet must be to count as
// having reached a setpoint.
const tolerance = 1e-3

// Plan parameterizes a cycle.
type Plan struct {
	MaxCurrent  float64       `yaml:"maxCurrentA"`
	RampRate    float64       `yaml:"rampRateAPerS"`
	Poll        time.Duration `yaml:"poll"`
	SoakTime    time.Duration `yaml:"soak"`
	ChillTime   time.Duration `yaml:"chill"`
	TargetTemp  float64       `yaml:"targetTempK"`
	AbortTemp   float64       `yaml:"abortTempK"`
	ControlTime time.Duration `yaml:"control"`
	// Cycles is how many magnetization cycles to run before open loop
	// stops the run.
	Cycles int `yaml:"cycles"`
}

// DefaultPlan is one full cycle followed by five minutes of regulation
// at 100 mK.
func DefaultPlan() Plan {
	return Plan{
		MaxCurrent:  9,
		RampRate:    0.05,
		Poll:        time.Second,
		SoakTime:    time.Minute,
		ChillTime:   30 * time.Second,
		TargetTemp:  0.1,
		AbortTemp:   4.5,
		ControlTime: 5 * time.Minute,
		Cycles:      1,
	}
}

// Validate checks the plan for values no cycle can run with.
func (p Plan) Validate() error {
	switch {
	case p.MaxCurrent <= 0:
		return fmt.Errorf("%w: maxCurrentA must be positive", ErrInvalidPlan)
	case p.RampRate <= 0:
		return fmt.Errorf("%w: rampRateAPerS must be positive", ErrInvalidPlan)
	case p.Poll <= 0:
		return fmt.Errorf("%w: poll must be positive", ErrInvalidPlan)
	case p.SoakTime < 0 || p.ChillTime < 0 || p.ControlTime < 0:
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidPlan)
	case p.TargetTemp <= 0 || p.AbortTemp <= p.TargetTemp:
		return fmt.Errorf("%w: need 0 < targetTempK < abortTempK", ErrInvalidPlan)
	case p.Cycles < 0:
		return fmt.Errorf("%w: cycles must not be negative", ErrInvalidPlan)
	}

	return nil
}

// Controller owns the state shared between control procedures: how many
// cycles have run and whether the pill is cold and awaiting regulation.
type Controller struct {
	plan Plan

	cycles      atomic.Int64
	controlling atomic.Bool
}

// NewController validates plan.
func NewController(plan Plan) (*Controller, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	return &Controller{plan: plan}, nil
}

// Plan returns the controller's plan.
func (c *Controller) Plan() Plan {
	return c.plan
}

// Cycles returns the number of completed magnetization cycles.
func (c *Controller) Cycles() int {
	return int(c.cycles.Load())
}

// Registry returns every control state as a procedure definition.
func (c *Controller) Registry() (*procedure.Registry, error) {
	defs := []func() (*procedure.Definition, error){
		c.unknown, c.openLoop, c.rampUp, c.soak, c.rampDown,
		c.afterRampDown, c.tempControl, c.endingTempControl,
	}

	reg, _ := procedure.NewRegistry()

	for _, build := range defs {
		def, err := build()
		if err != nil {
			return nil, err
		}

		if err := reg.Add(def); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

const evaluateSource = `
if current > tolerance {
	return "temp_control"
}
return "open_loop"
`

func (c *Controller) unknown() (*procedure.Definition, error) {
	return procedure.NewWithOptions(StateUnknown, []procedure.Option{
		procedure.WithDescription("classify a cryostat of unknown state"),
		procedure.WithSource(evaluateSource),
	},
		procedure.ExitWith("evaluate", func(env *procedure.Env) string {
			if current(env) > tolerance {
				c.controlling.Store(true)

				return StateTempControl
			}

			return StateOpenLoop
		}),
	)
}

const chooseSource = `
if controlling {
	return "temp_control"
}
if cycles < plan.Cycles {
	return "ramp_up"
}
return
`

func (c *Controller) openLoop() (*procedure.Definition, error) {
	return procedure.NewWithOptions(StateOpenLoop, []procedure.Option{
		procedure.WithDescription("idle with the magnet off and pick the next activity"),
		procedure.WithSource(chooseSource),
	},
		procedure.ExitWith("choose", func(*procedure.Env) string {
			switch {
			case c.controlling.Load():
				return StateTempControl
			case c.cycles.Load() < int64(c.plan.Cycles):
				return StateRampUp
			default:
				return ""
			}
		}),
	)
}

func (c *Controller) rampUp() (*procedure.Definition, error) {
	return procedure.NewWithOptions(StateRampUp, []procedure.Option{
		procedure.WithDescription("magnetize the salt pill with the heat switch closed"),
	},
		procedure.Act(world.NewAction(ActionCloseHeatSwitch)),
		procedure.Act(world.NewAction(ActionSetRampRate, ParamRate, c.plan.RampRate)),
		procedure.Act(world.NewAction(ActionRampTo, ParamTarget, c.plan.MaxCurrent)),
		procedure.While("ramping", func(env *procedure.Env) bool {
			return !c.overheated(env) && current(env) < c.plan.MaxCurrent-tolerance
		}, procedure.Wait(c.plan.Poll)),
		procedure.If("overheated", c.overheated, procedure.ExitTo(StateRampDown)),
		procedure.ExitTo(StateSoak),
	)
}

func (c *Controller) soak() (*procedure.Definition, error) {
	return procedure.NewWithOptions(StateSoak, []procedure.Option{
		procedure.WithDescription("hold full field while the pill thermalizes to the bath"),
	},
		procedure.Repeat("soaking", int(c.plan.SoakTime/c.plan.Poll),
			procedure.If("overheated", c.overheated, procedure.ExitTo(StateRampDown)),
			procedure.Wait(c.plan.Poll),
		),
		procedure.ExitTo(StateRampDown),
	)
}

func (c *Controller) rampDown() (*procedure.Definition, error) {
	return procedure.NewWithOptions(StateRampDown, []procedure.Option{
		procedure.WithDescription("demagnetize adiabatically until the pill reaches the target temperature"),
	},
		procedure.Act(world.NewAction(ActionOpenHeatSwitch)),
		procedure.Act(world.NewAction(ActionRampTo, ParamTarget, 0.0)),
		procedure.While("demagnetizing", func(env *procedure.Env) bool {
			return temperature(env) > c.plan.TargetTemp && current(env) > tolerance
		}, procedure.Wait(c.plan.Poll)),
		procedure.Act(world.NewAction(ActionStopRamp)),
		procedure.ExitTo(StateAfterRampDown),
	)
}

func (c *Controller) afterRampDown() (*procedure.Definition, error) {
	return procedure.NewWithOptions(StateAfterRampDown, []procedure.Option{
		procedure.WithDescription("let the pill settle after demagnetization"),
	},
		procedure.Wait(c.plan.ChillTime),
		procedure.Do("cycle_done", func(env *procedure.Env) error {
			n := c.cycles.Inc()
			c.controlling.Store(true)
			env.Scope().Set("cycle", n)

			return nil
		}),
		procedure.ExitTo(StateOpenLoop),
	)
}

func (c *Controller) tempControl() (*procedure.Definition, error) {
	return procedure.NewWithOptions(StateTempControl, []procedure.Option{
		procedure.WithDescription("regulate the pill temperature with the magnet current"),
	},
		procedure.Repeat("regulating", int(c.plan.ControlTime/c.plan.Poll),
			procedure.ActWith("regulate", c.regulate),
			procedure.Wait(c.plan.Poll),
		),
		procedure.ExitTo(StateEndingTempControl),
	)
}

func (c *Controller) endingTempControl() (*procedure.Definition, error) {
	return procedure.NewWithOptions(StateEndingTempControl, []procedure.Option{
		procedure.WithDescription("discharge the magnet and reconnect the bath"),
	},
		procedure.Act(world.NewAction(ActionRampTo, ParamTarget, 0.0)),
		procedure.While("discharging", func(env *procedure.Env) bool {
			return current(env) > tolerance
		}, procedure.Wait(c.plan.Poll)),
		procedure.Act(world.NewAction(ActionCloseHeatSwitch)),
		procedure.Do("control_done", func(*procedure.Env) error {
			c.controlling.Store(false)

			return nil
		}),
		procedure.ExitTo(StateOpenLoop),
	)
}

// regulate scales the current by the ratio of target to measured
// temperature, which is exact for an ideal adiabatic pill.
func (c *Controller) regulate(env *procedure.Env) world.Action {
	cur, temp := current(env), temperature(env)

	target := cur
	if temp > 0 {
		target = cur * c.plan.TargetTemp / temp
	}

	target = min(max(target, 0), c.plan.MaxCurrent)

	return world.NewAction(ActionRampTo, ParamTarget, target)
}

func (c *Controller) overheated(env *procedure.Env) bool {
	return temperature(env) > c.plan.AbortTemp
}

func current(env *procedure.Env) float64 {
	v, _ := env.View().Float(KeyCurrent)

	return v
}

func temperature(env *procedure.Env) float64 {
	v, _ := env.View().Float(KeyTemperature)

	return v
}
