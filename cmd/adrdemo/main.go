// Command adrdemo runs a simulated adiabatic demagnetization refrigerator
// through a magnetization cycle and temperature regulation, driven by the
// statement-paced scheduler. With -nested it then runs a nested state
// machine under the runner; with -diagram it prints the control graph and
// exits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/amp-labs/imperative/cli"
	"github.com/amp-labs/imperative/clock"
	"github.com/amp-labs/imperative/closer"
	"github.com/amp-labs/imperative/config"
	"github.com/amp-labs/imperative/diagnostics"
	"github.com/amp-labs/imperative/diagnostics/journal"
	"github.com/amp-labs/imperative/diagnostics/trace"
	"github.com/amp-labs/imperative/envutil"
	"github.com/amp-labs/imperative/introspect"
	"github.com/amp-labs/imperative/logger"
	"github.com/amp-labs/imperative/procedure"
	"github.com/amp-labs/imperative/scheduler"
	"github.com/amp-labs/imperative/shutdown"
	"github.com/amp-labs/imperative/startup"
	"github.com/amp-labs/imperative/statemachine"
	"github.com/amp-labs/imperative/telemetry"
	"github.com/amp-labs/imperative/world"
	"github.com/amp-labs/imperative/world/adr"
	"github.com/manifoldco/promptui"
)

const app = "adrdemo"

type flags struct {
	diagram bool
	nested  bool
	fast    bool
	pick    bool
}

func main() {
	var f flags

	flag.BoolVar(&f.diagram, "diagram", false, "print the control graph as Mermaid and exit")
	flag.BoolVar(&f.nested, "nested", false, "run the nested counter machine after the cycle")
	flag.BoolVar(&f.fast, "fast", false, "run on a simulated clock instead of wall time")
	flag.BoolVar(&f.pick, "pick", false, "choose the initial state interactively")
	flag.Parse()

	ctx := shutdown.SetupHandler(context.Background())
	ctx = logger.WithSubsystem(ctx, app)

	if err := startup.ConfigureEnvironment(ctx); err != nil {
		slog.Error("loading env files", "error", err)
		os.Exit(1)
	}

	logger.ConfigureLogging(ctx, app)

	if err := run(ctx, f); err != nil {
		logger.Get(ctx).Error("adrdemo failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags) (err error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	ctrl, err := adr.NewController(cfg.Plan)
	if err != nil {
		return err
	}

	reg, err := ctrl.Registry()
	if err != nil {
		return err
	}

	if f.diagram {
		return printDiagram(reg, cfg.InitialState)
	}

	if f.pick {
		if cfg.InitialState, err = pickState(reg, cfg.InitialState); err != nil {
			return err
		}
	}

	env := envutil.String(ctx, "ENVIRONMENT", envutil.Default("local")).ValueOrElse("local")

	telCfg, err := telemetry.LoadConfigFromEnv(ctx, env)
	if err != nil {
		return err
	}

	if err := telemetry.Initialize(ctx, telCfg); err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, telemetry.Shutdown(context.WithoutCancel(ctx)))
	}()

	var clk clock.Clock = clock.Real{}
	if f.fast {
		clk = clock.NewFake(time.Now())
	}

	sink, err := buildSink(ctx, cfg, clk)
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, sink.Close())
	}()

	sim := adr.NewSim(cfg.Physics, clk)

	sched, err := scheduler.New(reg, sim,
		scheduler.WithClock(clk),
		scheduler.WithTickPeriod(cfg.TickPeriod),
		scheduler.WithSink(sink),
		scheduler.WithName("adr"),
	)
	if err != nil {
		return err
	}

	fmt.Print(cli.BannerAutoWidth(ctx, cli.KeyValues(
		"adr demo", "starting",
		"initial state", cfg.InitialState,
		"tick period", cfg.TickPeriod,
		"cycles", cfg.Plan.Cycles,
	), cli.AlignLeft))

	if err := sched.Run(ctx, cfg.InitialState); err != nil {
		return err
	}

	stats := sched.Stats()
	fmt.Print(cli.BannerAutoWidth(ctx, cli.KeyValues(
		"states", len(sched.Visited()),
		"statements", stats.Statements,
		"world updates", stats.Updates,
		"waits", stats.Waits,
		"actions", stats.Actions,
		"cycles", ctrl.Cycles(),
		"temperature", fmt.Sprintf("%.3f K", sim.Temperature()),
	), cli.AlignLeft))

	if ctx.Err() != nil || (!f.nested && cfg.Machine == nil) {
		return nil
	}

	return runMachine(ctx, cfg, reg, clk, sink)
}

// eventSink is the composed diagnostics sink; closing it flushes and
// closes every file-backed sink.
type eventSink interface {
	diagnostics.Sink
	diagnostics.Closer
}

func buildSink(ctx context.Context, cfg *config.Config, clk clock.Clock) (eventSink, error) {
	diag := cfg.Diagnostics
	sinks := diagnostics.Multi{diagnostics.MetricsSink{Gauges: diag.Gauges}}

	if diag.LogEvents {
		sinks = append(sinks, diagnostics.LogSink{Level: slog.LevelDebug, ViewKeys: diag.Gauges})
	}

	files := closer.NewCloser()

	cleanup, keep := closer.CancelableCloser(files)
	defer cleanup.Close() //nolint:errcheck

	if diag.JournalPath != "" {
		j, err := journal.Open(ctx, diag.JournalPath)
		if err != nil {
			return nil, err
		}

		files.Add(j)
		sinks = append(sinks, j)
	}

	if diag.TraceDir != "" {
		w, err := trace.Create(diag.TraceDir, app, cfg.Codec(), clk.Now())
		if err != nil {
			return nil, err
		}

		logger.Get(ctx).Info("writing statement trace", "path", w.Path())

		files.Add(w)
		sinks = append(sinks, w)
	}

	keep()

	if diag.Workers > 0 {
		return diagnostics.NewAsyncSink(sinks, diag.Workers), nil
	}

	return sinks, nil
}

func printDiagram(reg *procedure.Registry, initial string) error {
	describers := make([]introspect.Describer, 0, reg.Len())
	for _, def := range reg.Definitions() {
		describers = append(describers, def)
	}

	g := introspect.FromDescribers(initial, describers...)

	diagram, err := introspect.MermaidWithOptions(g, introspect.DefaultOptions())
	if err != nil {
		return err
	}

	fmt.Println(diagram)

	res := introspect.Validate(g)
	for _, f := range append(res.Errors, res.Warnings...) {
		fmt.Printf("%s %s: %s\n", f.Severity, f.Code, f.Message)
	}

	if !res.Valid {
		return fmt.Errorf("control graph has %d errors", len(res.Errors))
	}

	return nil
}

func pickState(reg *procedure.Registry, current string) (string, error) {
	names := reg.Names()

	prompt := promptui.Select{
		Label:     "Initial state",
		Items:     names,
		CursorPos: max(slices.Index(names, current), 0),
		Size:      len(names),
	}

	_, name, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("choosing initial state: %w", err)
	}

	return name, nil
}

// runMachine runs cfg.Machine, or the nested counter demo when none is
// configured, against a dummy world.
func runMachine(
	ctx context.Context, cfg *config.Config, reg *procedure.Registry, clk clock.Clock, sink diagnostics.Sink,
) error {
	var (
		top *statemachine.Machine
		err error
	)

	if cfg.Machine != nil {
		catalog := statemachine.NewCatalog(reg, statemachine.WithProcedureClock(clk), statemachine.WithSink(sink))
		top, err = statemachine.Build(cfg.Machine, catalog)
	} else {
		top, err = statemachine.NewBuilder("sm2").
			AddCounter("ABC", 3, "sm1").
			AddMachine(statemachine.NewBuilder("sm1").
				AddCounter("Counter1", 10, "Counter2").
				AddCounter("Counter2", 2, statemachine.CompleteTarget)).
			WithOptions(statemachine.WithLogger(logger.Get(ctx))).
			Build()
	}

	if err != nil {
		return err
	}

	runner, err := statemachine.NewRunner(top, world.NewDummy(clk),
		statemachine.WithClock(clk), statemachine.WithInterval(cfg.TickPeriod))
	if err != nil {
		return err
	}

	if err := runner.Run(ctx); err != nil {
		return err
	}

	logger.Get(ctx).Info("machine finished", "machine", top.Name(), "iterations", runner.Iterations())

	return nil
}
