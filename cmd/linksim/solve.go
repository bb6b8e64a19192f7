package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/linksim/internal/analysis"
	"github.com/san-kum/linksim/internal/automation"
	"github.com/san-kum/linksim/internal/dynamo"
	"github.com/san-kum/linksim/internal/experiment"
	"github.com/san-kum/linksim/internal/export"
	"github.com/san-kum/linksim/internal/metrics"
	"github.com/san-kum/linksim/internal/optim"
	"github.com/san-kum/linksim/internal/physics"
	"github.com/san-kum/linksim/internal/storage"
	"github.com/san-kum/linksim/internal/viz"
)

var (
	noPlot      bool
	sweepParam  string
	sweepFrom   float64
	sweepTo     float64
	sweepSteps  int
	sweepMetric string
	parallelism int
	trials      int
	perturb     float64
	seed        int64
)

func newSolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "integrate the spring pendulum and store the run",
		Args:  cobra.NoArgs,
		RunE:  runSolve,
	}
	addSolverFlags(cmd)
	addPlotFlags(cmd)
	cmd.Flags().BoolVar(&noPlot, "no-plot", false, "skip the terminal panels")
	return cmd
}

func runSolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger("solve")

	st, err := openStore()
	if err != nil {
		return err
	}

	exp, err := experiment.Build(experiment.NewRegistry(), experiment.FromConfig(cfg))
	if err != nil {
		return err
	}

	exp.Simulator().AddObserver(&progress{logger: logger, step: cfg.Solver.Duration / 10})

	level.Info(logger).Log("msg", "solving", "integrator", cfg.Integrator, "adaptive", cfg.Solver.Adaptive, "duration", cfg.Solver.Duration)
	start := time.Now()
	res, err := exp.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("solve: %w", err)
	}
	elapsed := time.Since(start)

	p, ok := exp.System().(*physics.SpringPendulum)
	if !ok {
		return fmt.Errorf("solve: unsupported model %T", exp.System())
	}
	energy := metrics.EnergyTrace(p, res.States)
	runID, err := st.Save(exp.RunSpec(), res, energy)
	if err != nil {
		return err
	}
	level.Debug(logger).Log("msg", "run stored", "run", runID, "dir", st.Dir())

	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("completed in %v\n", elapsed)
	printSummary(res, energy)

	return showPanels(analysis.Panels(res, p))
}

// progress logs the integration time at every tenth of the horizon.
type progress struct {
	logger kitlog.Logger
	step   float64
	next   float64
}

func (p *progress) OnStep(x dynamo.State, u dynamo.Control, t float64) {
	if t < p.next {
		return
	}
	level.Debug(p.logger).Log("msg", "progress", "t", t, "theta", x[physics.Theta], "mu", x[physics.Mu])
	p.next = t + p.step
}

func printSummary(res *dynamo.Result, energy []float64) {
	fmt.Printf("samples: %d  steps: %d  rejected: %d  evaluations: %d\n",
		len(res.States), res.StepsTaken, res.Rejected, res.Evaluations)

	drift := metrics.DriftStats(energy)
	fmt.Printf("energy: initial %.10f  final %.10f\n", drift.Initial, drift.Final)
	fmt.Printf("drift: max |ΔE| %.3e  rms %.3e  mean %.3e\n", drift.MaxAbs, drift.RMS, drift.Mean)

	if len(res.Metrics) > 0 {
		fmt.Println("\nmetrics:")
		names := make([]string, 0, len(res.Metrics))
		for name := range res.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %s: %.6g\n", name, res.Metrics[name])
		}
	}
	fmt.Println()
}

func showPanels(panels []analysis.Panel) error {
	if !noPlot {
		fmt.Print(viz.RenderPanels(panels, width, height))
	}
	if pngPath != "" {
		if err := export.SavePanelsPNG(pngPath, panels, export.DefaultFigureOptions()); err != nil {
			return err
		}
		fmt.Printf("figure written to %s\n", pngPath)
	}
	return nil
}

func newPlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot [run_id|latest]",
		Short: "plot the six panels of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, res, p, err := loadRun(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("run: %s (%s, %s)\n", meta.ID, meta.Model, meta.Integrator)
			printSummary(res, metrics.EnergyTrace(p, res.States))
			return showPanels(analysis.Panels(res, p))
		},
	}
	addPlotFlags(cmd)
	cmd.Flags().BoolVar(&noPlot, "no-plot", false, "skip the terminal panels")
	return cmd
}

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [integrator...]",
		Short: "compare integrators on the same configuration",
		RunE:  runCompare,
	}
	addSolverFlags(cmd)
	return cmd
}

type comparison struct {
	name    string
	res     *dynamo.Result
	elapsed time.Duration
	err     error
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	reg := experiment.NewRegistry()
	names := args
	if len(names) == 0 {
		names = reg.ListIntegrators()
	}

	rows := make([]comparison, len(names))
	g, ctx := errgroup.WithContext(cmd.Context())
	for i, name := range names {
		i, name := i, name
		expCfg := experiment.FromConfig(cfg)
		expCfg.Integrator = name
		g.Go(func() error {
			rows[i].name = name
			exp, err := experiment.Build(reg, expCfg)
			if err != nil {
				rows[i].err = err
				return nil
			}
			start := time.Now()
			rows[i].res, rows[i].err = exp.Run(ctx)
			rows[i].elapsed = time.Since(start)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	mode := "adaptive"
	if !cfg.Solver.Adaptive {
		mode = fmt.Sprintf("fixed dt=%g", cfg.Solver.Dt)
	}
	fmt.Printf("comparing integrators (%s, duration=%gs)\n\n", mode, cfg.Solver.Duration)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tFINAL θ\tENERGY DRIFT\tSTEPS\tREJECTED\tEVALS\tTIME")
	for _, r := range rows {
		if r.err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", r.name, r.err)
			continue
		}
		fmt.Fprintf(w, "%s\t%+.6f\t%.3e\t%d\t%d\t%d\t%v\n",
			r.name, r.res.Final()[physics.Theta], r.res.EnergyDrift,
			r.res.StepsTaken, r.res.Rejected, r.res.Evaluations, r.elapsed.Round(time.Microsecond))
	}
	return w.Flush()
}

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "run a parameter sweep in parallel and report energy loss",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addSolverFlags(cmd)
	f := cmd.Flags()
	f.StringVar(&sweepParam, "param", "damping", "oscillator parameter to vary")
	f.Float64Var(&sweepFrom, "from", 0, "first value")
	f.Float64Var(&sweepTo, "to", 1, "last value")
	f.IntVar(&sweepSteps, "steps", 6, "number of values")
	f.StringVar(&sweepMetric, "metric", optim.EnergyLoss, "metric to minimise")
	f.IntVar(&parallelism, "parallel", 0, "simulations in flight (0: all)")
	return cmd
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if sweepSteps < 2 {
		return fmt.Errorf("sweep needs at least 2 steps, got %d", sweepSteps)
	}
	logger := newLogger("sweep")

	base := experiment.FromConfig(cfg)
	reg := experiment.NewRegistry()
	build := func(params map[string]float64) (*experiment.Experiment, error) {
		c := base
		c.Params = make(map[string]float64, len(base.Params))
		for k, v := range base.Params {
			c.Params[k] = v
		}
		for k, v := range params {
			c.Params[k] = v
		}
		return experiment.Build(reg, c)
	}

	values := floats.Span(make([]float64, sweepSteps), sweepFrom, sweepTo)
	level.Info(logger).Log("msg", "sweeping", "param", sweepParam, "from", sweepFrom, "to", sweepTo, "steps", sweepSteps)

	points, err := optim.Sweep(cmd.Context(), sweepParam, values, parallelism, build)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tENERGY LOSS\tMAX DRIFT\tSPRING LOAD\tFINAL θ\n", strings.ToUpper(sweepParam))
	for _, p := range points {
		fmt.Fprintf(w, "%.4g\t%.6e\t%.3e\t%.3f\t%+.6f\n",
			p.Params[sweepParam], p.Metrics[optim.EnergyLoss], p.Metrics["energy_drift"],
			p.Metrics["spring_load"], p.Final[physics.Theta])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	best, val, err := optim.Best(points, sweepMetric)
	if err != nil {
		return err
	}
	fmt.Printf("\nlowest %s: %.6e at %s = %.4g\n", sweepMetric, val, sweepParam, best[sweepParam])
	return nil
}

func newScenarioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenario [file]",
		Short: "run the solve steps listed in a YAML scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := automation.LoadScenario(args[0])
			if err != nil {
				return err
			}
			st, err := openStore()
			if err != nil {
				return err
			}

			fmt.Printf("scenario: %s\n", sc.Name)
			if sc.Description != "" {
				fmt.Printf("%s\n", sc.Description)
			}
			fmt.Println()

			results, err := automation.RunScenario(cmd.Context(), sc, experiment.NewRegistry(), st, newLogger("scenario"))
			printScenario(results)
			return err
		},
	}
}

func printScenario(results []automation.StepResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tRUN\tSAMPLES\tINITIAL E\tFINAL E\tMAX |ΔE|")
	for _, r := range results {
		run := r.RunID
		if run == "" {
			run = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.8f\t%.8f\t%.3e\n",
			r.Name, run, len(r.Result.States), r.Drift.Initial, r.Drift.Final, r.Drift.MaxAbs)
	}
	w.Flush()
}

func newMonteCarloCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "run perturbed initial states and count bounded trajectories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			results, err := automation.RunMonteCarlo(cmd.Context(), automation.MonteCarloConfig{
				Base:         cfg,
				Perturbation: perturb,
				NumTrials:    trials,
				Seed:         seed,
				Parallelism:  parallelism,
			}, experiment.NewRegistry())
			if err != nil {
				return err
			}

			stable, unstable := automation.MonteCarloStats(results)
			drifts := make([]float64, len(results))
			for i, r := range results {
				drifts[i] = r.Drift
			}
			fmt.Printf("trials: %d  stable: %d  unstable: %d\n", len(results), stable, unstable)
			fmt.Printf("energy drift: max %.3e  min %.3e\n", floats.Max(drifts), floats.Min(drifts))
			return nil
		},
	}
	addSolverFlags(cmd)
	f := cmd.Flags()
	f.IntVar(&trials, "trials", 20, "number of trials")
	f.Float64Var(&perturb, "perturbation", 0.1, "half-width of the uniform perturbation")
	f.Int64Var(&seed, "seed", 0, "random seed (0: time based)")
	f.IntVar(&parallelism, "parallel", 0, "simulations in flight (0: all)")
	return cmd
}

// storedEnergy recomputes the energy trace of a stored run.
func storedEnergy(meta *storage.RunMetadata, res *dynamo.Result, p *physics.SpringPendulum) []float64 {
	if meta.Model != experiment.SpringPendulum {
		return nil
	}
	return metrics.EnergyTrace(p, res.States)
}
