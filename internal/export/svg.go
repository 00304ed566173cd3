// Package export renders stored runs as SVG images.
package export

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/crosstrack/internal/dynamo"
	"github.com/san-kum/crosstrack/internal/viz"
	"github.com/san-kum/crosstrack/internal/vmath"
)

var ErrTooShort = errors.New("need at least two snapshots")

const (
	background  = "#0a0a0a"
	arrayColor  = "#00ff00"
	targetColor = "#ff5f5f"
	sensorColor = "#5fafff"
)

// CanvasToSVG converts a Braille canvas to SVG, one circle per lit dot.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	width := float64(canvas.Width) * scale * 2
	height := float64(canvas.Height) * scale * 4

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
<g fill="%s">
`, width, height, width, height, background, arrayColor)

	dotRadius := scale * 0.4
	pw, ph := canvas.PixelSize()
	for y := 0; y < ph; y++ {
		for x := 0; x < pw; x++ {
			if !canvas.IsSet(x, y) {
				continue
			}
			cx := float64(x)*scale + scale/2
			cy := float64(y)*scale + scale/2
			fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, dotRadius)
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// bounds is the padded world rectangle mapped onto the image.
type bounds struct {
	min, max vmath.Vec2
}

func fitBounds(points []vmath.Vec2) bounds {
	b := bounds{min: vmath.V2(math.Inf(1), math.Inf(1)), max: vmath.V2(math.Inf(-1), math.Inf(-1))}
	for _, p := range points {
		if !p.IsFinite() {
			continue
		}
		b.min = vmath.V2(min(b.min.X, p.X), min(b.min.Y, p.Y))
		b.max = vmath.V2(max(b.max.X, p.X), max(b.max.Y, p.Y))
	}
	if !b.min.IsFinite() {
		return bounds{max: vmath.V2(1, 1)}
	}

	rx := b.max.X - b.min.X
	ry := b.max.Y - b.min.Y
	if rx == 0 {
		rx = 1
	}
	if ry == 0 {
		ry = 1
	}
	b.min = b.min.Sub(vmath.V2(rx*0.1, ry*0.1))
	b.max = b.max.Add(vmath.V2(rx*0.1, ry*0.1))
	return b
}

// project maps a world point to image coordinates. Both use y down.
func (b bounds) project(p vmath.Vec2, width, height int) (float64, float64) {
	x := (p.X - b.min.X) / (b.max.X - b.min.X) * float64(width)
	y := (p.Y - b.min.Y) / (b.max.Y - b.min.Y) * float64(height)
	return x, y
}

func writePath(sb *strings.Builder, b bounds, points []vmath.Vec2, width, height int, stroke, extra string) {
	fmt.Fprintf(sb, `<path fill="none" stroke="%s" stroke-width="1.5"%s d="`, stroke, extra)
	first := true
	for _, p := range points {
		if !p.IsFinite() {
			continue
		}
		x, y := b.project(p, width, height)
		if first {
			fmt.Fprintf(sb, "M%.1f,%.1f", x, y)
			first = false
		} else {
			fmt.Fprintf(sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString("\"/>\n")
}

func paths(snaps []dynamo.Snapshot) (array, target []vmath.Vec2) {
	array = make([]vmath.Vec2, len(snaps))
	target = make([]vmath.Vec2, len(snaps))
	for i, s := range snaps {
		array[i] = s.Position
		target[i] = s.Target
	}
	return array, target
}

// RunToSVG draws the array path, the dashed target path and the final
// sensor cross of a run at the given offset.
func RunToSVG(snaps []dynamo.Snapshot, offset float64, width, height int) (string, error) {
	if len(snaps) < 2 {
		return "", ErrTooShort
	}

	array, target := paths(snaps)
	final := snaps[len(snaps)-1]
	sensors := crossAt(final.Position, offset)

	all := make([]vmath.Vec2, 0, 2*len(snaps)+len(sensors))
	all = append(all, array...)
	all = append(all, target...)
	all = append(all, sensors[:]...)
	b := fitBounds(all)

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)

	writePath(&sb, b, target, width, height, targetColor, ` stroke-dasharray="4 3"`)
	writePath(&sb, b, array, width, height, arrayColor, "")

	if final.Position.IsFinite() {
		cx, cy := b.project(final.Position, width, height)
		fmt.Fprintf(&sb, "<g stroke=\"%s\" fill=\"%s\">\n", sensorColor, sensorColor)
		for _, s := range sensors {
			x, y := b.project(s, width, height)
			fmt.Fprintf(&sb, "<line x1=\"%.1f\" y1=\"%.1f\" x2=\"%.1f\" y2=\"%.1f\"/>\n", cx, cy, x, y)
			fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"3\"/>\n", x, y)
		}
		sb.WriteString("</g>\n")
	}
	if final.Target.IsFinite() {
		x, y := b.project(final.Target, width, height)
		fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"4\" fill=\"%s\"/>\n", x, y, targetColor)
	}

	sb.WriteString("</svg>")
	return sb.String(), nil
}

// RunToCanvas plots the array and target paths onto a Braille canvas.
func RunToCanvas(snaps []dynamo.Snapshot, width, height int) (*viz.Canvas, error) {
	if len(snaps) < 2 {
		return nil, ErrTooShort
	}

	canvas := viz.NewCanvas(width, height)
	pw, ph := canvas.PixelSize()
	array, target := paths(snaps)
	b := fitBounds(append(append([]vmath.Vec2{}, array...), target...))

	for _, pts := range [][]vmath.Vec2{target, array} {
		var prevX, prevY int
		have := false
		for _, p := range pts {
			if !p.IsFinite() {
				have = false
				continue
			}
			fx, fy := b.project(p, pw-1, ph-1)
			x, y := int(math.Round(fx)), int(math.Round(fy))
			if have {
				canvas.DrawLine(prevX, prevY, x, y)
			} else {
				canvas.Set(x, y)
			}
			prevX, prevY, have = x, y, true
		}
	}
	return canvas, nil
}

func crossAt(p vmath.Vec2, offset float64) [4]vmath.Vec2 {
	return [4]vmath.Vec2{
		p.Add(vmath.V2(0, -offset)),
		p.Add(vmath.V2(offset, 0)),
		p.Add(vmath.V2(0, offset)),
		p.Add(vmath.V2(-offset, 0)),
	}
}
