package viz

import (
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/linksim/internal/linkage"
)

const (
	canvasWidth   = 60
	canvasHeight  = 26
	trailCapacity = 150

	minZoom = 0.5
	maxZoom = 4.0
)

// Options configure the animation.
type Options struct {
	Params   linkage.Params
	View     Viewport
	Interval time.Duration
	// Frames per loop; the frame index wraps to 0 after it. Zero never wraps.
	Frames  int
	History int
	Theme   string
	GIFPath string
	Logger  kitlog.Logger
}

type TickMsg time.Time

// Model animates the linkage. Each tick advances the frame index by one and
// recomputes the frame from scratch.
type Model struct {
	opts    Options
	link    *linkage.Linkage
	params  linkage.Params
	initial linkage.Params
	frame   int
	current linkage.Frame
	trends  *linkage.Trends
	canvas  *Canvas
	trail   []linkage.Point
	running bool

	spring     harmonica.Spring
	zoom       float64
	zoomVel    float64
	zoomTarget float64

	paramKeys []string
	selected  int

	theme  Theme
	styles styles

	recording bool
	gifFrames []*image.Paletted
	status    string
	showHelp  bool
	logger    kitlog.Logger
}

// NewModel validates the linkage parameters and positions the animation at
// frame 0.
func NewModel(opts Options) (Model, error) {
	link, err := linkage.New(opts.Params)
	if err != nil {
		return Model{}, err
	}
	if opts.Interval <= 0 {
		opts.Interval = 20 * time.Millisecond
	}
	if opts.History <= 0 {
		opts.History = 200
	}
	if opts.GIFPath == "" {
		opts.GIFPath = "linkage.gif"
	}
	logger := opts.Logger
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}

	keys := make([]string, 0, 4)
	for k := range opts.Params.Fields() {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fps := int(math.Round(float64(time.Second) / float64(opts.Interval)))
	theme := GetTheme(opts.Theme)

	m := Model{
		opts:       opts,
		link:       link,
		params:     opts.Params,
		initial:    opts.Params,
		trends:     linkage.NewTrends(opts.History),
		canvas:     NewCanvas(canvasWidth, canvasHeight),
		trail:      make([]linkage.Point, 0, trailCapacity),
		running:    true,
		spring:     harmonica.NewSpring(harmonica.FPS(fps), 6.0, 0.8),
		zoom:       1,
		zoomTarget: 1,
		paramKeys:  keys,
		theme:      theme,
		styles:     newStyles(theme),
		logger:     logger,
	}
	m.show(0)
	return m, nil
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.opts.Interval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Frame returns the frame currently shown.
func (m Model) Frame() linkage.Frame { return m.current }

// Update handles input events and advances the animation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.recording {
				m.stopRecording()
			}
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "[":
			if !m.running {
				m.show(m.frame - 1)
			}
		case "]":
			if !m.running {
				m.show(m.frame + 1)
			}
		case "+", "=":
			m.zoomTarget = math.Min(maxZoom, m.zoomTarget*1.25)
		case "-", "_":
			m.zoomTarget = math.Max(minZoom, m.zoomTarget/1.25)
		case "tab":
			m.selected = (m.selected + 1) % len(m.paramKeys)
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		case "t":
			m.theme = nextTheme(m.theme.Name)
			m.styles = newStyles(m.theme)
		case "g":
			if m.recording {
				m.stopRecording()
			} else {
				m.recording = true
				m.gifFrames = make([]*image.Paletted, 0)
				m.status = "recording"
			}
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.show(m.frame + 1)
		}
		m.zoom, m.zoomVel = m.spring.Update(m.zoom, m.zoomVel, m.zoomTarget)
		m.draw()
		if m.recording {
			m.captureFrame()
		}
		return m, m.tick()
	}
	return m, nil
}

// show computes frame i, wrapping at the loop length, and records its
// trends.
func (m *Model) show(i int) {
	if n := m.opts.Frames; n > 0 {
		i = ((i % n) + n) % n
	} else if i < 0 {
		i = 0
	}
	m.frame = i
	m.current = m.link.Update(float64(i))
	m.trends.Record(m.current)

	m.trail = append(m.trail, m.current.LowerEnd)
	if len(m.trail) > trailCapacity {
		m.trail = m.trail[1:]
	}
}

func (m *Model) reset() {
	m.params = m.initial
	m.link, _ = linkage.New(m.params)
	m.trends.Reset()
	m.trail = m.trail[:0]
	m.zoomTarget = 1
	m.status = ""
	m.show(0)
}

func (m *Model) adjustParam(factor float64) {
	key := m.paramKeys[m.selected]
	next := m.params
	if err := next.Set(key, next.Fields()[key]*factor); err != nil {
		m.status = err.Error()
		return
	}

	link, err := linkage.New(next)
	if err != nil {
		m.status = err.Error()
		return
	}
	m.params, m.link = next, link
	m.trail = m.trail[:0]
	m.current = m.link.Update(float64(m.frame))
}

func (m Model) viewport() Viewport {
	return m.opts.View.Zoomed(m.zoom)
}

// draw renders the current frame: the horizontal line, the bar, the
// vertical segment, their joints and the trail of the lower end.
func (m *Model) draw() {
	c, v, f := m.canvas, m.viewport(), m.current
	c.Clear()

	for _, pt := range m.trail {
		c.Set(c.Project(v, pt.X, pt.Y))
	}

	x0, y0 := c.Project(v, f.X, f.Y)
	lx, ly := c.Project(v, f.LineEnd.X, f.LineEnd.Y)
	bx, by := c.Project(v, f.BarEnd.X, f.BarEnd.Y)
	ex, ey := c.Project(v, f.LowerEnd.X, f.LowerEnd.Y)

	c.DrawLine(x0, y0, lx, ly)
	c.DrawLine(x0, y0, bx, by)
	c.DrawLine(bx, by, ex, ey)

	c.Dot(x0, y0, 2)
	c.Dot(bx, by, 1)
	c.Dot(ex, ey, 1)
}

// View renders the TUI interface.
func (m Model) View() string {
	m.draw()
	st := m.styles
	f := m.current

	var s strings.Builder
	s.WriteString(st.header.Render("LINKAGE") + "\n")

	status := "RUNNING"
	if !m.running {
		status = "PAUSED"
	}
	if m.recording {
		status += " ● REC"
	}
	s.WriteString(status + "\n\n")

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Frame", fmt.Sprintf("%d", m.frame))
	row("x", fmt.Sprintf("%+.3f", f.X))
	row("Bar end y", fmt.Sprintf("%.3f", f.DY))
	row("Vertical", fmt.Sprintf("%.3f", f.VerticalLength))
	row("Angle", fmt.Sprintf("%.2f°", f.Theta*180/math.Pi))
	row("Zoom", fmt.Sprintf("%s %.2fx", ProgressBar((m.zoom-minZoom)/(maxZoom-minZoom), 10), m.zoom))

	if vals := m.trends.Theta.Values(); len(vals) > 1 {
		deg := make([]float64, len(vals))
		for i, v := range vals {
			deg[i] = v * 180 / math.Pi
		}
		chart := asciigraph.Plot(deg, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Angle (deg)"))
		s.WriteString(st.graph.Render(chart) + "\n")
	}
	if vals := m.trends.Vertical.Values(); len(vals) > 1 {
		chart := asciigraph.Plot(vals, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Vertical length"))
		s.WriteString(st.graph.Render(chart) + "\n")
	}

	s.WriteString("\nPARAMETERS\n")
	fields := m.params.Fields()
	initial := m.initial.Fields()
	for i, k := range m.paramKeys {
		ratio := 0.5
		if initial[k] != 0 {
			ratio = fields[k] / (2 * initial[k])
		}
		line := fmt.Sprintf("%-11s %s %.3f", k, ProgressBar(ratio, 8), fields[k])
		if i == m.selected {
			s.WriteString(st.active.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + st.label.Render(line) + "\n")
		}
	}

	if m.status != "" {
		s.WriteString("\n" + st.warning.Render(m.status) + "\n")
	}
	s.WriteString(st.help.Render("SP:Pause R:Reset Q:Quit ?:Help\n[ ]:Step +/-:Zoom Tab ↑↓:Tune"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, st.canvas.Render(m.canvas.String()), st.stats.Render(s.String()))
	if m.showHelp {
		return helpText + "\n\n" + mainView
	}
	return mainView
}

const helpText = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume animation   ║
║  R        - Restart from frame 0     ║
║  Q        - Quit                     ║
║  [ ]      - Step frame (paused)      ║
║  + -      - Zoom in/out              ║
║  Tab      - Cycle parameters         ║
║  Up/K     - Increase parameter (+5%) ║
║  Down/J   - Decrease parameter (-5%) ║
║  G        - Toggle GIF recording     ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝`

func (m *Model) captureFrame() {
	const dot = 4
	imgW, imgH := m.canvas.Width*2*dot, m.canvas.Height*4*dot
	img := image.NewPaletted(image.Rect(0, 0, imgW, imgH), color.Palette{color.Black, color.White})

	for y := 0; y < m.canvas.Height*4; y++ {
		for x := 0; x < m.canvas.Width*2; x++ {
			if !m.canvas.IsSet(x, y) {
				continue
			}
			for py := 0; py < dot; py++ {
				for px := 0; px < dot; px++ {
					img.SetColorIndex(x*dot+px, y*dot+py, 1)
				}
			}
		}
	}
	m.gifFrames = append(m.gifFrames, img)
}

func (m *Model) stopRecording() {
	m.recording = false
	if err := m.saveGIF(); err != nil {
		level.Error(m.logger).Log("msg", "gif not saved", "path", m.opts.GIFPath, "err", err)
		m.status = "gif: " + err.Error()
	} else {
		level.Info(m.logger).Log("msg", "gif saved", "path", m.opts.GIFPath, "frames", len(m.gifFrames))
		m.status = "saved " + m.opts.GIFPath
	}
	m.gifFrames = nil
}

func (m *Model) saveGIF() error {
	if len(m.gifFrames) == 0 {
		return fmt.Errorf("no frames recorded")
	}
	delay := int(m.opts.Interval / (10 * time.Millisecond))
	if delay < 1 {
		delay = 1
	}

	anim := gif.GIF{LoopCount: 0}
	for _, frame := range m.gifFrames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, delay)
	}

	f, err := os.Create(m.opts.GIFPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := gif.EncodeAll(f, &anim); err != nil {
		return err
	}
	return f.Close()
}

// Canvas exposes the drawing surface, mainly for snapshot export.
func (m Model) Canvas() *Canvas {
	m.draw()
	return m.canvas
}
