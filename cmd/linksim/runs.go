package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/san-kum/linksim/internal/analysis"
	"github.com/san-kum/linksim/internal/config"
	"github.com/san-kum/linksim/internal/experiment"
	"github.com/san-kum/linksim/internal/export"
	"github.com/san-kum/linksim/internal/physics"
	"github.com/san-kum/linksim/internal/storage"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(viper.GetString("data"))
			runs, err := st.List()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs stored")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tINTEGRATOR\tMODE\tDURATION\tSAMPLES\tSTEPS\tENERGY DRIFT\tTIME")
			for _, r := range runs {
				mode := "adaptive"
				if !r.Adaptive {
					mode = fmt.Sprintf("dt=%g", r.Dt)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%d\t%d\t%.3e\t%s\n",
					r.ID, r.Integrator, mode, r.Duration, r.Samples, r.StepsTaken,
					r.EnergyDrift, r.Timestamp.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
}

func newExportJSONCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-json [run_id|latest]",
		Short: "write a stored run as JSON to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, res, p, err := loadRun(args[0])
			if err != nil {
				return err
			}
			return storage.ExportJSON(os.Stdout, meta, res, storedEnergy(meta, res, p))
		},
	}
}

func newExportCSVCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-csv [run_id|latest]",
		Short: "write a stored run as CSV to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, res, p, err := loadRun(args[0])
			if err != nil {
				return err
			}
			return storage.WriteCSV(os.Stdout, res, storedEnergy(meta, res, p))
		},
	}
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [run_id|latest]",
		Short: "spectrum, Lyapunov estimate and phase portrait of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze,
	}
	cmd.Flags().StringVar(&svgPath, "svg", "", "write the θ/θ̇ phase portrait to this SVG file")
	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	meta, res, p, err := loadRun(args[0])
	if err != nil {
		return err
	}
	if len(res.States) < 4 {
		return fmt.Errorf("run %s has too few samples to analyze", meta.ID)
	}

	thetas := make([]float64, len(res.States))
	for i, s := range res.States {
		thetas[i] = s[physics.Theta]
	}
	dt := res.Times[1] - res.Times[0]

	fmt.Printf("run: %s (%s)\n\n", meta.ID, meta.Integrator)

	freq, period := analysis.DominantFrequency(thetas, dt)
	fmt.Printf("dominant θ frequency: %.5f Hz  (ω = %.5f rad/s, period %.4f)\n",
		freq, analysis.AngularFrequency(freq), period)

	spec := analysis.PowerSpectrum(thetas, dt)
	if n := min(len(spec.Power), 120); n > 1 {
		fmt.Println(asciigraph.Plot(spec.Power[1:n],
			asciigraph.Height(8),
			asciigraph.Caption("θ power spectrum (low bins)")))
	}

	integ, err := experiment.NewRegistry().GetIntegrator("rk4")
	if err != nil {
		return err
	}
	horizon := min(meta.Duration, 100)
	lambda := analysis.LyapunovExponent(p, integ, res.States[0], 0.01, horizon, 1e-8)
	fmt.Printf("\nlargest Lyapunov exponent (rk4, t=%g): %.5f\n\n", horizon, lambda)

	portrait := analysis.PhasePortrait(res, physics.Theta, physics.ThetaDot)
	fmt.Println("phase portrait (θ, θ̇):")
	fmt.Println(analysis.PhasePortraitToASCII(portrait, 60, 20))

	section := analysis.NewPoincareSection(res, physics.MuDot, 0, physics.Theta, physics.ThetaDot)
	fmt.Printf("poincaré section at μ̇ = 0 (%d crossings):\n", len(section.Points))
	fmt.Println(analysis.PoincareSectionToASCII(section, 60, 16))

	if svgPath != "" && portrait != nil {
		svg := export.TrajectoryToSVG(portrait.Points, 600, 600, "#1f77b4")
		if err := os.WriteFile(svgPath, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("phase portrait written to %s\n", svgPath)
	}
	return nil
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list configuration presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PRESET\tINTEGRATOR\tMODE\tDURATION\tDAMPING\tθ0\tBAR LENGTH")
			for _, name := range config.ListPresets() {
				c := config.GetPreset(name)
				mode := "adaptive"
				if !c.Solver.Adaptive {
					mode = fmt.Sprintf("dt=%g", c.Solver.Dt)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%g\t%g\t%g\n",
					name, c.Integrator, mode, c.Solver.Duration, c.Oscillator.Damping,
					c.Initial.Theta, c.Linkage.BarLength)
			}
			w.Flush()
		},
	}
}

func newInitConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [path]",
		Short: "write the default configuration (.toml or .yaml)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "linksim.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.Save(path, config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
}
