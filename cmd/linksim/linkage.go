package main

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-kit/kit/log/level"
	"github.com/spf13/cobra"

	"github.com/san-kum/linksim/internal/config"
	"github.com/san-kum/linksim/internal/export"
	"github.com/san-kum/linksim/internal/gui"
	"github.com/san-kum/linksim/internal/linkage"
	"github.com/san-kum/linksim/internal/viz"
)

var (
	themeName  string
	gifPath    string
	frameCount int
	frameEvery int
	frameAt    int
	frameCSV   bool
)

func newAnimateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "animate",
		Short: "animate the linkage in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runAnimate,
	}
	addLinkageFlags(cmd)
	cmd.Flags().StringVar(&themeName, "theme", "classic", "color theme (classic, retro, ocean)")
	cmd.Flags().StringVar(&gifPath, "gif", "linkage.gif", "file written by GIF recording (g key)")
	cmd.Flags().StringVar(&svgPath, "svg", "", "write the last drawn canvas to this SVG file on exit")
	return cmd
}

func newWindowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "window",
		Short: "animate the linkage in a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return gui.Run(gui.Options{
				Params:   cfg.Linkage,
				View:     viewport(cfg),
				Interval: interval(cfg),
				Frames:   cfg.Animation.Frames,
				History:  cfg.Animation.History,
				Logger:   newLogger("window"),
			})
		},
	}
	addLinkageFlags(cmd)
	return cmd
}

func viewport(cfg *config.Config) viz.Viewport {
	a := cfg.Animation
	return viz.Viewport{XMin: a.XMin, XMax: a.XMax, YMin: a.YMin, YMax: a.YMax}
}

func interval(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Animation.IntervalMS) * time.Millisecond
}

func runAnimate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger("animate")

	m, err := viz.NewModel(viz.Options{
		Params:   cfg.Linkage,
		View:     viewport(cfg),
		Interval: interval(cfg),
		Frames:   cfg.Animation.Frames,
		History:  cfg.Animation.History,
		Theme:    themeName,
		GIFPath:  gifPath,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	level.Debug(logger).Log("msg", "starting animation", "frames", cfg.Animation.Frames, "interval_ms", cfg.Animation.IntervalMS)
	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
	if err != nil {
		return err
	}

	if svgPath != "" {
		last, ok := final.(viz.Model)
		if !ok {
			return nil
		}
		if err := os.WriteFile(svgPath, []byte(export.CanvasToSVG(last.Canvas(), 4)), 0644); err != nil {
			return err
		}
		fmt.Printf("canvas written to %s\n", svgPath)
	}
	return nil
}

func newFramesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frames",
		Short: "print computed linkage frames",
		Args:  cobra.NoArgs,
		RunE:  runFrames,
	}
	addLinkageFlags(cmd)
	f := cmd.Flags()
	f.IntVar(&frameCount, "count", 0, "number of frames (default: animation.frames)")
	f.IntVar(&frameEvery, "every", 50, "table row every n frames")
	f.BoolVar(&frameCSV, "csv", false, "write every frame as CSV")
	f.IntVar(&frameAt, "at", 0, "frame drawn by --png and --svg")
	f.StringVar(&pngPath, "png", "", "draw frame --at to this PNG file")
	f.StringVar(&svgPath, "svg", "", "draw frame --at to this SVG file")
	return cmd
}

func runFrames(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	link, err := linkage.New(cfg.Linkage)
	if err != nil {
		return err
	}

	n := frameCount
	if n <= 0 {
		n = cfg.Animation.Frames
	}
	frames := link.Trace(n)

	if pngPath != "" || svgPath != "" {
		f := link.Update(float64(frameAt))
		view := export.View(viewport(cfg))
		if pngPath != "" {
			if err := export.SaveFramePNG(pngPath, f, view, export.DefaultFigureOptions()); err != nil {
				return err
			}
			fmt.Printf("frame %d written to %s\n", frameAt, pngPath)
		}
		if svgPath != "" {
			if err := os.WriteFile(svgPath, []byte(export.FrameToSVG(f, view, 600, 800)), 0644); err != nil {
				return err
			}
			fmt.Printf("frame %d written to %s\n", frameAt, svgPath)
		}
		return nil
	}

	if frameCSV {
		return writeFramesCSV(frames)
	}

	every := max(frameEvery, 1)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FRAME\tX\tDX\tDY\tVERTICAL\tTHETA(deg)")
	for i := 0; i < len(frames); i += every {
		f := frames[i]
		fmt.Fprintf(w, "%d\t%+.4f\t%+.4f\t%.4f\t%.4f\t%.3f\n", i, f.X, f.DX, f.DY, f.VerticalLength, f.Theta*180/math.Pi)
	}
	return w.Flush()
}

func writeFramesCSV(frames []linkage.Frame) error {
	w := csv.NewWriter(os.Stdout)
	if err := w.Write([]string{"frame", "x", "dx", "dy", "vertical_length", "theta", "lower_end_y"}); err != nil {
		return err
	}
	for i, f := range frames {
		row := []string{strconv.Itoa(i)}
		for _, v := range []float64{f.X, f.DX, f.DY, f.VerticalLength, f.Theta, f.LowerEnd.Y} {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
