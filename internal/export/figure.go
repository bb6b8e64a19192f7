package export

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/linksim/internal/analysis"
	"github.com/san-kum/linksim/internal/linkage"
)

// FigureOptions sizes a rendered PNG. Width and Height are in inches.
type FigureOptions struct {
	Width  float64
	Height float64
	DPI    int
}

func DefaultFigureOptions() FigureOptions {
	return FigureOptions{Width: 12, Height: 10, DPI: 150}
}

func limitedTicker(maxLabels int, labelFmt string) plot.Ticker {
	if maxLabels < 2 {
		maxLabels = 2
	}
	return plot.TickerFunc(func(min, max float64) []plot.Tick {
		if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
			return nil
		}
		if min == max {
			return []plot.Tick{{Value: min, Label: fmt.Sprintf(labelFmt, min)}}
		}
		step := (max - min) / float64(maxLabels-1)
		ticks := make([]plot.Tick, 0, maxLabels)
		for i := 0; i < maxLabels; i++ {
			v := min + float64(i)*step
			ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf(labelFmt, v)})
		}
		return ticks
	})
}

func stylePlot(p *plot.Plot) {
	p.Title.TextStyle.Font.Size = vg.Points(13)
	p.Title.Padding = vg.Points(6)

	p.X.Label.TextStyle.Font.Size = vg.Points(11)
	p.Y.Label.TextStyle.Font.Size = vg.Points(11)

	p.X.Tick.Label.Font.Size = vg.Points(9)
	p.Y.Tick.Label.Font.Size = vg.Points(9)

	p.X.Tick.Marker = limitedTicker(6, "%.0f")
	p.Y.Tick.Marker = limitedTicker(5, "%.3g")

	p.Add(plotter.NewGrid())
}

func panelPlot(panel analysis.Panel) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = panel.Title
	p.X.Label.Text = "τ"
	p.Y.Label.Text = panel.YLabel
	stylePlot(p)

	for i, s := range panel.Series {
		pts := make(plotter.XYs, len(s.Values))
		for k, v := range s.Values {
			pts[k].X = panel.Times[k]
			pts[k].Y = v
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("panel %q: %w", panel.Title, err)
		}
		line.LineStyle.Width = vg.Points(1.2)
		line.LineStyle.Color = plotutil.Color(i)
		p.Add(line)
		if len(panel.Series) > 1 {
			p.Legend.Add(s.Name, line)
		}
	}
	p.Legend.Top = true
	return p, nil
}

// WritePanelsPNG lays the panels out two per row and encodes the figure.
func WritePanelsPNG(w io.Writer, panels []analysis.Panel, opts FigureOptions) error {
	if len(panels) == 0 {
		return fmt.Errorf("no panels to draw")
	}

	const cols = 2
	rows := (len(panels) + cols - 1) / cols

	plots := make([][]*plot.Plot, rows)
	for j := range plots {
		plots[j] = make([]*plot.Plot, cols)
	}
	for i, panel := range panels {
		p, err := panelPlot(panel)
		if err != nil {
			return err
		}
		plots[i/cols][i%cols] = p
	}

	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(opts.Width)*vg.Inch, vg.Length(opts.Height)*vg.Inch),
		vgimg.UseDPI(opts.DPI),
	)
	dc := draw.New(c)

	tiles := draw.Tiles{
		Rows:      rows,
		Cols:      cols,
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}

	canvases := plot.Align(plots, tiles, dc)
	for j := range plots {
		for i, p := range plots[j] {
			if p != nil {
				p.Draw(canvases[j][i])
			}
		}
	}

	bw := bufio.NewWriter(w)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}

// SavePanelsPNG writes the figure to filename, creating its directory.
func SavePanelsPNG(filename string, panels []analysis.Panel, opts FigureOptions) error {
	return saveFile(filename, func(w io.Writer) error {
		return WritePanelsPNG(w, panels, opts)
	})
}

// View is the visible area of a linkage drawing.
type View struct {
	XMin, XMax, YMin, YMax float64
}

// WriteFramePNG draws the linkage at one frame inside view.
func WriteFramePNG(w io.Writer, f linkage.Frame, view View, opts FigureOptions) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Linkage at frame %.0f", f.T)
	stylePlot(p)
	p.X.Min, p.X.Max = view.XMin, view.XMax
	p.Y.Min, p.Y.Max = view.YMin, view.YMax
	p.X.Tick.Marker = limitedTicker(4, "%.0f")
	p.Y.Tick.Marker = limitedTicker(7, "%.0f")

	segments := []struct {
		from, to linkage.Point
		color    int
	}{
		{linkage.Point{X: f.X, Y: f.Y}, f.LineEnd, 0},
		{linkage.Point{X: f.X, Y: f.Y}, f.BarEnd, 1},
		{f.BarEnd, f.LowerEnd, 2},
	}
	for _, s := range segments {
		line, err := plotter.NewLine(plotter.XYs{{X: s.from.X, Y: s.from.Y}, {X: s.to.X, Y: s.to.Y}})
		if err != nil {
			return err
		}
		line.LineStyle.Width = vg.Points(2)
		line.LineStyle.Color = plotutil.Color(s.color)
		p.Add(line)
	}

	joints, err := plotter.NewScatter(plotter.XYs{
		{X: f.X, Y: f.Y},
		{X: f.BarEnd.X, Y: f.BarEnd.Y},
		{X: f.LowerEnd.X, Y: f.LowerEnd.Y},
	})
	if err != nil {
		return err
	}
	joints.GlyphStyle.Radius = vg.Points(5)
	joints.GlyphStyle.Shape = draw.CircleGlyph{}
	joints.GlyphStyle.Color = plotutil.Color(3)
	p.Add(joints)

	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(opts.Width)*vg.Inch, vg.Length(opts.Height)*vg.Inch),
		vgimg.UseDPI(opts.DPI),
	)
	p.Draw(draw.New(c))

	bw := bufio.NewWriter(w)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}

func SaveFramePNG(filename string, f linkage.Frame, view View, opts FigureOptions) error {
	return saveFile(filename, func(w io.Writer) error {
		return WriteFramePNG(w, f, view, opts)
	})
}

func saveFile(filename string, write func(io.Writer) error) error {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create directory: %w", err)
		}
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()

	if err := write(f); err != nil {
		return err
	}
	return f.Close()
}
