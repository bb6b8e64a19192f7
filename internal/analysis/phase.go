package analysis

import (
	"math"
	"strings"

	"github.com/san-kum/linksim/internal/dynamo"
)

type Point struct {
	X, Y float64
}

// PhasePortrait2D holds data for a 2D phase space plot
type PhasePortrait2D struct {
	XIndex, YIndex int
	Points         []Point
}

// PhasePortrait projects a recorded trajectory onto two state components.
func PhasePortrait(res *dynamo.Result, xIdx, yIdx int) *PhasePortrait2D {
	if res == nil || len(res.States) == 0 {
		return nil
	}
	if xIdx >= len(res.States[0]) || yIdx >= len(res.States[0]) {
		return nil
	}

	portrait := &PhasePortrait2D{
		XIndex: xIdx,
		YIndex: yIdx,
		Points: make([]Point, len(res.States)),
	}
	for i, x := range res.States {
		portrait.Points[i] = Point{X: x[xIdx], Y: x[yIdx]}
	}
	return portrait
}

// PhasePortraitToASCII converts phase portrait to ASCII art
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX, minY, maxY := bounds(portrait.Points)

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for _, p := range portrait.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))

		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	// Axes, where they cross the visible area.
	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}

func bounds(points []Point) (minX, maxX, minY, maxY float64) {
	minX, maxX = math.Inf(1), math.Inf(-1)
	minY, maxY = math.Inf(1), math.Inf(-1)
	for _, p := range points {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	return minX, maxX, minY, maxY
}

// PoincareSection records points when a trajectory crosses a plane
type PoincareSection struct {
	Points []Point
}

// NewPoincareSection collects (recordX, recordY) wherever component
// crossIdx of the recorded trajectory rises through threshold. Samples are
// linearly interpolated to the crossing.
func NewPoincareSection(res *dynamo.Result, crossIdx int, threshold float64, recordX, recordY int) *PoincareSection {
	if res == nil || len(res.States) == 0 {
		return nil
	}
	dim := len(res.States[0])
	if crossIdx >= dim || recordX >= dim || recordY >= dim {
		return nil
	}

	section := &PoincareSection{Points: make([]Point, 0)}
	for i := 1; i < len(res.States); i++ {
		prev, curr := res.States[i-1], res.States[i]
		a, b := prev[crossIdx], curr[crossIdx]
		if !(a < threshold && b >= threshold) {
			continue
		}

		frac := (threshold - a) / (b - a)
		section.Points = append(section.Points, Point{
			X: prev[recordX] + frac*(curr[recordX]-prev[recordX]),
			Y: prev[recordY] + frac*(curr[recordY]-prev[recordY]),
		})
	}
	return section
}

// PoincareSectionToASCII converts section data to ASCII plot
func PoincareSectionToASCII(section *PoincareSection, width, height int) string {
	if section == nil || len(section.Points) == 0 {
		return "No crossings detected"
	}
	return PhasePortraitToASCII(&PhasePortrait2D{Points: section.Points}, width, height)
}
