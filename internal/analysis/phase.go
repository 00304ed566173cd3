package analysis

import (
	"strings"

	"github.com/san-kum/crosstrack/internal/dynamo"
)

// PhasePortrait2D holds points for a 2D phase plot.
type PhasePortrait2D struct {
	Points []struct{ X, Y float64 }
}

// ErrorPortrait plots one axis error against its derivative term. A spiral
// into the origin is a settling loop; a closed orbit is sustained oscillation.
func ErrorPortrait(snaps []dynamo.Snapshot, axis dynamo.Axis) *PhasePortrait2D {
	portrait := &PhasePortrait2D{
		Points: make([]struct{ X, Y float64 }, 0, len(snaps)),
	}
	for _, s := range snaps {
		if s.Tick == 0 {
			continue
		}
		e, d := s.ErrorX, s.X.Derivative
		if axis == dynamo.AxisY {
			e, d = s.ErrorY, s.Y.Derivative
		}
		portrait.Points = append(portrait.Points, struct{ X, Y float64 }{X: e, Y: d})
	}
	return portrait
}

// PhasePortraitToASCII converts a phase portrait to ASCII art.
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	minX, maxX := portrait.Points[0].X, portrait.Points[0].X
	minY, maxY := portrait.Points[0].Y, portrait.Points[0].Y

	for _, p := range portrait.Points {
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}

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

	// axes through the origin
	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if col >= 0 && col < width && canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if row >= 0 && row < height && canvas[row][col] == ' ' {
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
