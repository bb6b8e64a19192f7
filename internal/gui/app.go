package gui

import (
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/san-kum/linksim/internal/linkage"
	"github.com/san-kum/linksim/internal/viz"
)

// Monochrome palette
var (
	ColBg      = rl.NewColor(10, 10, 10, 255)
	ColAccent  = rl.NewColor(180, 180, 180, 255)
	ColSelect  = rl.NewColor(255, 255, 255, 255)
	ColText    = rl.NewColor(140, 140, 140, 255)
	ColTextDim = rl.NewColor(60, 60, 60, 255)
	ColGrid    = rl.NewColor(30, 30, 30, 255)
)

const (
	screenWidth  = 1280
	screenHeight = 720
	plotWidth    = 900

	maxTrail = 150

	minZoom = 0.5
	maxZoom = 4
)

type Options struct {
	Params   linkage.Params
	View     viz.Viewport
	Interval time.Duration
	Frames   int
	History  int
	Logger   kitlog.Logger
}

type App struct {
	Link    *linkage.Linkage
	Params  linkage.Params
	Initial linkage.Params
	Frame   linkage.Frame
	Index   int
	Running bool

	InConfig  bool
	ParamKeys []string
	ParamSel  int

	View       viz.Viewport
	Zoom       float32
	ZoomTarget float32

	Trail     []linkage.Point
	Telemetry *linkage.History

	Font rl.Font

	opts    Options
	elapsed float32
	logger  kitlog.Logger
}

func initWindow() {
	rl.InitWindow(screenWidth, screenHeight, "linksim")
	rl.SetTargetFPS(60)
	rl.SetExitKey(0)
}

// loadFont loads Liberation Mono when installed, otherwise raylib's default
// font.
func loadFont() rl.Font {
	const path = "/usr/share/fonts/liberation/LiberationMono-Regular.ttf"
	if _, err := os.Stat(path); err != nil {
		return rl.GetFontDefault()
	}
	font := rl.LoadFontEx(path, 32, nil, 0)
	rl.SetTextureFilter(font.Texture, rl.FilterBilinear)
	return font
}

// NewApp validates the parameters and positions the linkage at frame 0. It
// needs an open window for the font.
func NewApp(opts Options) (*App, error) {
	a, err := newApp(opts)
	if err != nil {
		return nil, err
	}
	a.Font = loadFont()
	return a, nil
}

func newApp(opts Options) (*App, error) {
	link, err := linkage.New(opts.Params)
	if err != nil {
		return nil, err
	}
	if opts.Interval <= 0 {
		opts.Interval = 20 * time.Millisecond
	}
	if opts.History <= 0 {
		opts.History = 200
	}
	logger := opts.Logger
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}

	keys := make([]string, 0, 8)
	for k := range opts.Params.Fields() {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	a := &App{
		Link:       link,
		Params:     opts.Params,
		Initial:    opts.Params,
		Running:    true,
		ParamKeys:  keys,
		View:       opts.View,
		Zoom:       1,
		ZoomTarget: 1,
		Trail:      make([]linkage.Point, 0, maxTrail),
		Telemetry:  linkage.NewHistory(opts.History),
		opts:       opts,
		logger:     logger,
	}
	a.show(0)
	return a, nil
}

// Run opens the window and animates the linkage until it is closed or Q is
// pressed.
func Run(opts Options) error {
	initWindow()
	defer rl.CloseWindow()

	app, err := NewApp(opts)
	if err != nil {
		return err
	}
	level.Info(app.logger).Log("msg", "window opened", "frames", opts.Frames, "interval", app.opts.Interval)
	app.RunLoop()
	return nil
}

func (a *App) RunLoop() {
	for !rl.WindowShouldClose() {
		if !a.Update() {
			return
		}
		a.Draw()
	}
}

func (a *App) show(i int) {
	if n := a.opts.Frames; n > 0 {
		i = ((i % n) + n) % n
	} else if i < 0 {
		i = 0
	}
	a.Index = i
	a.Frame = a.Link.Update(float64(i))
	a.Telemetry.Push(a.Frame.VerticalLength)

	a.Trail = append(a.Trail, a.Frame.LowerEnd)
	if len(a.Trail) > maxTrail {
		a.Trail = a.Trail[1:]
	}
}

func (a *App) reset() {
	a.Params = a.Initial
	a.Link, _ = linkage.New(a.Params)
	a.Trail = a.Trail[:0]
	a.Telemetry.Reset()
	a.ZoomTarget = 1
	a.show(0)
}

// apply rebuilds the linkage from the edited parameters. Invalid values are
// logged and the previous linkage is kept.
func (a *App) apply() {
	link, err := linkage.New(a.Params)
	if err != nil {
		level.Warn(a.logger).Log("msg", "parameters rejected", "err", err)
		a.Params = a.Link.Params()
		return
	}
	a.Link = link
	a.Trail = a.Trail[:0]
	a.Frame = a.Link.Update(float64(a.Index))
}

// Update processes input and advances the animation. It returns false when
// the user quits.
func (a *App) Update() bool {
	if rl.IsKeyPressed(rl.KeyQ) {
		return false
	}

	if a.InConfig {
		a.updateConfig()
		return true
	}

	if rl.IsKeyPressed(rl.KeyTab) {
		a.InConfig = true
		a.Running = false
		return true
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		a.Running = !a.Running
	}
	if rl.IsKeyPressed(rl.KeyR) {
		a.reset()
	}
	if !a.Running {
		if rl.IsKeyPressed(rl.KeyRightBracket) {
			a.show(a.Index + 1)
		}
		if rl.IsKeyPressed(rl.KeyLeftBracket) {
			a.show(a.Index - 1)
		}
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		a.zoomBy(1 + 0.1*wheel)
	}
	if rl.IsKeyPressed(rl.KeyEqual) {
		a.zoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) {
		a.zoomBy(1 / 1.25)
	}

	a.advance(rl.GetFrameTime())
	return true
}

func (a *App) zoomBy(factor float32) {
	a.ZoomTarget = min(max(a.ZoomTarget*factor, minZoom), maxZoom)
}

// advance moves the zoom towards its target and, while running, shows one
// frame per elapsed interval.
func (a *App) advance(dt float32) {
	lerp := min(5*dt, 1)
	a.Zoom += (a.ZoomTarget - a.Zoom) * lerp

	if !a.Running {
		return
	}
	a.elapsed += dt
	step := float32(a.opts.Interval.Seconds())
	for a.elapsed >= step {
		a.elapsed -= step
		a.show(a.Index + 1)
	}
}

func (a *App) selectParam(delta int) {
	n := len(a.ParamKeys)
	a.ParamSel = ((a.ParamSel+delta)%n + n) % n
}

// adjustParam changes the selected parameter; apply validates it.
func (a *App) adjustParam(delta float64) {
	key := a.ParamKeys[a.ParamSel]
	_ = a.Params.Set(key, a.Params.Fields()[key]+delta)
}

func (a *App) updateConfig() {
	if rl.IsKeyPressed(rl.KeyEscape) || rl.IsKeyPressed(rl.KeyTab) {
		a.InConfig = false
		return
	}
	if rl.IsKeyPressed(rl.KeyEnter) {
		a.apply()
		a.InConfig = false
		a.Running = true
		return
	}

	if rl.IsKeyPressed(rl.KeyDown) || rl.IsKeyPressed(rl.KeyJ) {
		a.selectParam(1)
	}
	if rl.IsKeyPressed(rl.KeyUp) || rl.IsKeyPressed(rl.KeyK) {
		a.selectParam(-1)
	}

	step := 0.1
	if rl.IsKeyDown(rl.KeyLeftShift) {
		step = 1.0
	}
	if rl.IsKeyPressed(rl.KeyRight) || rl.IsKeyPressed(rl.KeyL) {
		a.adjustParam(step)
	}
	if rl.IsKeyPressed(rl.KeyLeft) || rl.IsKeyPressed(rl.KeyH) {
		a.adjustParam(-step)
	}
}

func (a *App) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(ColBg)

	if a.InConfig {
		a.drawConfig()
	} else {
		a.drawLinkage()
		a.DrawHUD()
	}

	rl.EndDrawing()
}

func (a *App) DrawHUD() {
	a.drawText("linksim", 30, 30, 24, ColSelect)

	status := "RUNNING"
	col := ColSelect
	if !a.Running {
		status = "PAUSED"
		col = ColTextDim
	}
	a.drawText(status, 1150, 30, 16, col)

	f := a.Frame
	x, y := plotWidth+30, 100
	for _, row := range []struct {
		label string
		value string
	}{
		{"frame", fmt.Sprintf("%d", a.Index)},
		{"x", fmt.Sprintf("%+.3f", f.X)},
		{"bar end y", fmt.Sprintf("%.3f", f.DY)},
		{"vertical", fmt.Sprintf("%.3f", f.VerticalLength)},
		{"angle", fmt.Sprintf("%.2f deg", f.Theta*180/math.Pi)},
		{"zoom", fmt.Sprintf("%.2fx", a.Zoom)},
	} {
		a.drawText(fmt.Sprintf("%-10s %s", row.label, row.value), x, y, 16, ColText)
		y += 24
	}

	a.DrawTelemetry()

	a.drawText("[SPACE] PAUSE  [ ] STEP  [R] RESET  [TAB] PARAMS  [Q] QUIT", 600, 680, 14, ColTextDim)
	a.drawText(fmt.Sprintf("%d FPS", int32(rl.GetFPS())), 30, 680, 14, ColTextDim)
}

func (a *App) drawText(text string, x, y int, size int, color rl.Color) {
	rl.DrawTextEx(a.Font, text, rl.NewVector2(float32(x), float32(y)), float32(size), 1, color)
}

func (a *App) drawConfig() {
	a.drawText("linksim", 50, 50, 40, ColTextDim)
	a.drawText("configure", 240, 65, 20, ColSelect)

	fields := a.Params.Fields()
	y := 180
	for i, key := range a.ParamKeys {
		line := fmt.Sprintf("%-15s %.2f", key, fields[key])
		if i == a.ParamSel {
			a.drawText("> "+line, 50, y, 20, ColSelect)
		} else {
			a.drawText("  "+line, 50, y, 20, ColText)
		}
		y += 28
	}

	a.drawText("ARROWS: ADJUST  ENTER: APPLY  ESC: BACK", 840, 680, 14, ColTextDim)
}
