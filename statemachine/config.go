package statemachine

import (
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/amp-labs/imperative/procedure"
	"gopkg.in/yaml.v3"
)

// State types understood by Config.
const (
	StateTypeCounter   = "counter"
	StateTypeIdle      = "idle"
	StateTypeMachine   = "machine"
	StateTypeProcedure = "procedure"
	StateTypeCatalog   = "catalog"
)

// Config describes a machine tree in YAML.
type Config struct {
	Name        string             `json:"name"        yaml:"name"`
	States      []StateConfig      `json:"states"      yaml:"states"`
	Completions []CompletionConfig `json:"completions" yaml:"completions"`
	// Resume keeps the current state when the machine is re-entered.
	Resume bool `json:"resume" yaml:"resume"`
}

// StateConfig describes one state. Machine states carry their own States
// and Completions.
type StateConfig struct {
	Name        string             `json:"name"        yaml:"name"`
	Type        string             `json:"type"        yaml:"type"`
	MaxCount    int                `json:"maxCount"    yaml:"maxCount"`
	Next        string             `json:"next"        yaml:"next"`
	Ref         string             `json:"ref"         yaml:"ref"`
	States      []StateConfig      `json:"states"      yaml:"states"`
	Completions []CompletionConfig `json:"completions" yaml:"completions"`
	Resume      bool               `json:"resume"      yaml:"resume"`
	Metadata    map[string]any     `json:"metadata"    yaml:"metadata"`
}

// CompletionConfig maps a child's completion to a transition.
type CompletionConfig struct {
	Child string `json:"child" yaml:"child"`
	Next  string `json:"next"  yaml:"next"`
}

// LoadConfig loads a machine configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Intentional path-based loading
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	return LoadConfigFromBytes(data)
}

// LoadConfigFromFS loads a configuration from an embedded filesystem.
func LoadConfigFromFS(fsys fs.FS, path string) (*Config, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config from FS: %w", err)
	}

	return LoadConfigFromBytes(data)
}

// LoadConfigFromBytes parses and validates YAML.
func LoadConfigFromBytes(data []byte) (*Config, error) {
	var config Config

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks names, types and counter parameters. Uniqueness is
// checked per machine level, matching NewMachine.
func (c *Config) Validate() error {
	if c.Name == "" {
		return ErrConfigNameRequired
	}

	return validateStates(c.Name, c.States)
}

func validateStates(machine string, states []StateConfig) error {
	if len(states) == 0 {
		return fmt.Errorf("%w: machine %s: %w", ErrInvalidConfig, machine, ErrNoStates)
	}

	seen := make(map[string]bool, len(states))

	for i, st := range states {
		if st.Name == "" {
			return fmt.Errorf("%w: machine %s: state %d: %w", ErrInvalidConfig, machine, i, ErrStateNameRequired)
		}

		if seen[st.Name] {
			return fmt.Errorf("%w: machine %s: %w: %s", ErrInvalidConfig, machine, ErrDuplicateStateName, st.Name)
		}

		seen[st.Name] = true

		switch strings.ToLower(st.Type) {
		case StateTypeCounter:
			if st.MaxCount < 0 || st.Next == "" {
				return fmt.Errorf("%w: counter %s needs maxCount >= 0 and next", ErrInvalidConfig, st.Name)
			}
		case StateTypeMachine:
			if err := validateStates(st.Name, st.States); err != nil {
				return err
			}
		case StateTypeIdle, StateTypeProcedure, StateTypeCatalog:
		default:
			return fmt.Errorf("%w: state %s: %w %q", ErrInvalidConfig, st.Name, ErrUnknownStateType, st.Type)
		}
	}

	return nil
}

// Catalog supplies the states a Config refers to by name: procedure
// definitions and arbitrary state factories.
type Catalog struct {
	procedures *procedure.Registry
	factories  map[string]func() State
	procOpts   []ProcedureOption
}

// NewCatalog returns a catalog resolving procedure states through reg,
// which may be nil. opts are applied to every procedure state built.
func NewCatalog(reg *procedure.Registry, opts ...ProcedureOption) *Catalog {
	if reg == nil {
		reg, _ = procedure.NewRegistry()
	}

	return &Catalog{
		procedures: reg,
		factories:  make(map[string]func() State),
		procOpts:   opts,
	}
}

// Register adds a state factory under name.
func (c *Catalog) Register(name string, factory func() State) {
	c.factories[name] = factory
}

func (c *Catalog) procedureState(machine, name string) (State, error) { //nolint:ireturn
	def, err := c.procedures.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotInCatalog, err)
	}

	opts := append([]ProcedureOption{WithMachineLabel(machine)}, c.procOpts...)

	return NewProcedureState(def, opts...), nil
}

func (c *Catalog) factoryState(name string) (State, error) { //nolint:ireturn
	factory, ok := c.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotInCatalog, name)
	}

	return factory(), nil
}

// Build constructs the machine tree described by config.
func Build(config *Config, catalog *Catalog) (*Machine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if catalog == nil {
		catalog = NewCatalog(nil)
	}

	return buildMachine(config.Name, config.States, config.Completions, config.Resume, catalog)
}

func buildMachine(
	name string, states []StateConfig, completions []CompletionConfig, resume bool, catalog *Catalog,
) (*Machine, error) {
	built := make([]State, 0, len(states))

	for _, sc := range states {
		st, err := buildState(name, sc, catalog)
		if err != nil {
			return nil, err
		}

		built = append(built, st)
	}

	opts := make([]MachineOption, 0, len(completions)+1)
	for _, cc := range completions {
		opts = append(opts, WithCompletionTransition(cc.Child, cc.Next))
	}

	if resume {
		opts = append(opts, WithResume())
	}

	return NewMachine(name, built, opts...)
}

func buildState(machine string, sc StateConfig, catalog *Catalog) (State, error) { //nolint:ireturn
	ref := sc.Ref
	if ref == "" {
		ref = sc.Name
	}

	switch strings.ToLower(sc.Type) {
	case StateTypeCounter:
		return NewCounter(sc.Name, sc.MaxCount, sc.Next), nil
	case StateTypeIdle:
		return NewIdle(sc.Name), nil
	case StateTypeMachine:
		return buildMachine(sc.Name, sc.States, sc.Completions, sc.Resume, catalog)
	case StateTypeProcedure:
		st, err := catalog.procedureState(machine, ref)
		if err != nil {
			return nil, err
		}

		if ref != sc.Name {
			if ps, ok := st.(*ProcedureState); ok {
				ps.name = sc.Name
			}
		}

		return st, nil
	case StateTypeCatalog:
		return catalog.factoryState(ref)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStateType, sc.Type)
	}
}
