// Package config loads the runtime configuration of the ADR demo: a YAML
// file named by IMPERATIVE_CONFIG, then individual environment overrides.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/amp-labs/imperative/diagnostics/trace"
	"github.com/amp-labs/imperative/envutil"
	"github.com/amp-labs/imperative/scheduler"
	"github.com/amp-labs/imperative/statemachine"
	"github.com/amp-labs/imperative/world/adr"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvConfigPath   = "IMPERATIVE_CONFIG"
	EnvTickPeriod   = "TICK_PERIOD"
	EnvInitialState = "INITIAL_STATE"
	EnvJournalPath  = "JOURNAL_PATH"
	EnvTraceDir     = "TRACE_DIR"
	EnvTraceCodec   = "TRACE_CODEC"
	EnvDiagWorkers  = "DIAG_WORKERS"
)

var (
	ErrInitialStateRequired = errors.New("initial state is required")
	ErrNegativeWorkers      = errors.New("diagnostics workers must not be negative")
)

// Config is the full runtime configuration.
type Config struct {
	TickPeriod   time.Duration `yaml:"tickPeriod"`
	InitialState string        `yaml:"initialState"`

	Plan    adr.Plan    `yaml:"plan"`
	Physics adr.Physics `yaml:"physics"`

	// Machine optionally describes a nested machine to run after the
	// scheduled cycle.
	Machine *statemachine.Config `yaml:"machine"`

	Diagnostics Diagnostics `yaml:"diagnostics"`
}

// Diagnostics configures where statement events go.
type Diagnostics struct {
	// JournalPath is a sqlite database; empty disables the journal.
	JournalPath string `yaml:"journalPath"`
	// TraceDir receives compressed JSONL traces; empty disables them.
	TraceDir   string `yaml:"traceDir"`
	TraceCodec string `yaml:"traceCodec"`
	// Workers sizes the async sink pool; zero records synchronously.
	Workers int `yaml:"workers"`
	// Gauges are view keys exported as Prometheus gauges.
	Gauges []string `yaml:"gauges"`
	// LogEvents logs every statement event at debug level.
	LogEvents bool `yaml:"logEvents"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		TickPeriod:   scheduler.DefaultTickPeriod,
		InitialState: adr.StateUnknown,
		Plan:         adr.DefaultPlan(),
		Physics:      adr.DefaultPhysics(),
		Diagnostics: Diagnostics{
			TraceCodec: string(trace.CodecZstd),
			Workers:    2, //nolint:mnd
			Gauges:     []string{adr.KeyCurrent, adr.KeyTemperature},
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file and
// the environment, in that order, and validates the result.
func Load(ctx context.Context) (*Config, error) {
	cfg := Default()

	if path := envutil.String(ctx, EnvConfigPath).ValueOrElse(""); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(ctx); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// FromBytes parses YAML over the defaults and validates the result.
func FromBytes(data []byte) (*Config, error) {
	cfg := Default()

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // Intentional path-based loading
	if err != nil {
		return fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %q: %w", path, err)
	}

	return nil
}

func (c *Config) applyEnv(ctx context.Context) error {
	return errors.Join(
		override(ctx, EnvTickPeriod, envutil.Duration, &c.TickPeriod),
		override(ctx, EnvInitialState, envutil.String, &c.InitialState),
		override(ctx, EnvJournalPath, envutil.String, &c.Diagnostics.JournalPath),
		override(ctx, EnvTraceDir, envutil.String, &c.Diagnostics.TraceDir),
		override(ctx, EnvTraceCodec, envutil.String, &c.Diagnostics.TraceCodec),
		override(ctx, EnvDiagWorkers, envutil.Int, &c.Diagnostics.Workers),
	)
}

// override stores the value of key in dst. Unset and empty variables
// leave dst alone; a malformed one is an error.
func override[T any](
	ctx context.Context, key string, read func(context.Context, string, ...envutil.Option[T]) envutil.Reader[T], dst *T,
) error {
	if strings.TrimSpace(envutil.String(ctx, key).ValueOrElse("")) == "" {
		return nil
	}

	val, err := read(ctx, key).Value()
	if err != nil {
		return err
	}

	*dst = val

	return nil
}

// Validate checks the configuration as a whole.
func (c *Config) Validate() error {
	if c.TickPeriod <= 0 {
		return fmt.Errorf("%w: %s", scheduler.ErrInvalidTickPeriod, c.TickPeriod)
	}

	if c.InitialState == "" {
		return ErrInitialStateRequired
	}

	if err := c.Plan.Validate(); err != nil {
		return err
	}

	if _, err := trace.ParseCodec(c.Diagnostics.TraceCodec); err != nil {
		return err
	}

	if c.Diagnostics.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeWorkers, c.Diagnostics.Workers)
	}

	if c.Machine != nil {
		if err := c.Machine.Validate(); err != nil {
			return fmt.Errorf("machine: %w", err)
		}
	}

	return nil
}

// Codec returns the parsed trace codec.
func (c *Config) Codec() trace.Codec {
	codec, _ := trace.ParseCodec(c.Diagnostics.TraceCodec)

	return codec
}
