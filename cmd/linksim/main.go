package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	kitlog "github.com/go-kit/kit/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/san-kum/linksim/internal/config"
	"github.com/san-kum/linksim/internal/dynamo"
	"github.com/san-kum/linksim/internal/logging"
	"github.com/san-kum/linksim/internal/physics"
	"github.com/san-kum/linksim/internal/storage"
)

var (
	preset     string
	integrator string
	duration   float64
	samples    int
	dt         float64
	fixedStep  bool
	theta      float64
	thetaDot   float64
	mu         float64
	muDot      float64
	damping    float64
	barLength  float64

	pngPath string
	svgPath string
	width   int
	height  int
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "linksim",
		Short:        "linkage animation and spring pendulum solver",
		SilenceUsage: true,
		RunE:         runAnimate,
	}

	pf := rootCmd.PersistentFlags()
	pf.String("data", ".linksim", "data directory")
	pf.String("log-level", "info", "log level (debug, info, warn, error, none)")
	pf.String("config", "", "config file (yaml or toml)")
	pf.StringVar(&preset, "preset", "", "apply a named preset")
	viper.BindPFlags(pf)
	viper.SetEnvPrefix("LINKSIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(
		newAnimateCmd(), newWindowCmd(), newFramesCmd(),
		newSolveCmd(), newPlotCmd(), newCompareCmd(), newSweepCmd(),
		newScenarioCmd(), newMonteCarloCmd(),
		newListCmd(), newExportJSONCmd(), newExportCSVCmd(), newAnalyzeCmd(),
		newPresetsCmd(), newInitConfigCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func addLinkageFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&barLength, "bar-length", 0, "bar length L (overrides config)")
}

func addSolverFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator (euler, rk4, rk45)")
	f.Float64Var(&duration, "time", config.DefaultDuration, "integration horizon")
	f.IntVar(&samples, "samples", config.DefaultSamples, "number of output samples")
	f.Float64Var(&dt, "dt", config.DefaultDt, "initial or fixed timestep")
	f.BoolVar(&fixedStep, "fixed", false, "disable adaptive stepping")
	f.Float64Var(&theta, "theta", 0, "initial angle")
	f.Float64Var(&thetaDot, "theta-dot", 0, "initial angular velocity")
	f.Float64Var(&mu, "mu", 0, "initial mass displacement")
	f.Float64Var(&muDot, "mu-dot", 0, "initial mass velocity")
	f.Float64Var(&damping, "damping", 0, "angular damping")
}

func addPlotFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&pngPath, "png", "", "also write the figure to this PNG file")
	cmd.Flags().IntVar(&width, "width", 80, "terminal plot width")
	cmd.Flags().IntVar(&height, "height", 8, "terminal plot height")
}

// loadConfig builds the configuration: the config file (or defaults), then
// the preset, then any flag set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path := viper.GetString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if preset != "" {
		apply, ok := config.Presets[preset]
		if !ok {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		apply(cfg)
	}

	f := cmd.Flags()
	if f.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if f.Changed("time") {
		cfg.Solver.Duration = duration
	}
	if f.Changed("samples") {
		cfg.Solver.Samples = samples
	}
	if f.Changed("dt") {
		cfg.Solver.Dt = dt
	}
	if f.Changed("fixed") {
		cfg.Solver.Adaptive = !fixedStep
	}
	if f.Changed("theta") {
		cfg.Initial.Theta = theta
	}
	if f.Changed("theta-dot") {
		cfg.Initial.ThetaDot = thetaDot
	}
	if f.Changed("mu") {
		cfg.Initial.Mu = mu
	}
	if f.Changed("mu-dot") {
		cfg.Initial.MuDot = muDot
	}
	if f.Changed("damping") {
		cfg.Oscillator.Damping = damping
	}
	if f.Changed("bar-length") {
		cfg.Linkage.BarLength = barLength
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(subsys string) kitlog.Logger {
	logger, err := logging.Stderr(viper.GetString("log-level"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v, logging at info\n", err)
		logger, _ = logging.Stderr("info")
	}
	return logging.Subsystem(logger, subsys)
}

func openStore() (*storage.Store, error) {
	st := storage.New(viper.GetString("data"))
	return st, st.Init()
}

// resolveRun accepts a run id or "latest".
func resolveRun(st *storage.Store, id string) (string, error) {
	if id == "latest" {
		return st.Latest()
	}
	return id, nil
}

// pendulumFromParams rebuilds the oscillator a stored run was produced with.
func pendulumFromParams(params map[string]float64) (*physics.SpringPendulum, error) {
	p := physics.NewSpringPendulum()
	for k, v := range params {
		if err := p.SetParam(k, v); err != nil {
			return nil, err
		}
	}
	return p, p.Validate()
}

// loadRun reads a stored run with its oscillator.
func loadRun(id string) (*storage.RunMetadata, *dynamo.Result, *physics.SpringPendulum, error) {
	st := storage.New(viper.GetString("data"))
	runID, err := resolveRun(st, id)
	if err != nil {
		return nil, nil, nil, err
	}
	meta, res, err := st.LoadResult(runID)
	if err != nil {
		return nil, nil, nil, err
	}
	p, err := pendulumFromParams(meta.Params)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return meta, res, p, nil
}
