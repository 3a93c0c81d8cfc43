package export

import (
	"fmt"
	"strings"

	"github.com/golang/geo/r3"

	"github.com/san-kum/reach/internal/viz"
)

// CanvasToSVG converts a braille canvas to SVG, one circle per lit dot.
func CanvasToSVG(canvas *viz.Canvas, scale float64, fill string) string {
	if canvas == nil {
		return ""
	}

	width := float64(canvas.Width) * scale * 2
	height := float64(canvas.Height) * scale * 4

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="%s">
`, width, height, width, height, fill))

	dotRadius := scale * 0.4
	for y := 0; y < canvas.Height*4; y++ {
		for x := 0; x < canvas.Width*2; x++ {
			if !canvas.IsSet(x, y) {
				continue
			}
			cx := float64(x)*scale + scale/2
			cy := float64(y)*scale + scale/2
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f"/>
`, cx, cy, dotRadius))
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// PathStyle colors a trajectory SVG.
type PathStyle struct {
	Path   string
	Target string
}

var DefaultPathStyle = PathStyle{Path: "#00ffff", Target: "#ff00ff"}

// TrajectoryToSVG draws the end-effector path in the x-z plane with each
// distinct target marked. Fewer than two points yields "".
func TrajectoryToSVG(ee, targets []r3.Vector, width, height int, style PathStyle) string {
	if len(ee) < 2 {
		return ""
	}

	minX, maxX := ee[0].X, ee[0].X
	minY, maxY := ee[0].Z, ee[0].Z
	grow := func(p r3.Vector) {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Z), max(maxY, p.Z)
	}
	for _, p := range ee {
		grow(p)
	}
	marks := distinct(targets)
	for _, p := range marks {
		grow(p)
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

	project := func(p r3.Vector) (float64, float64) {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Z-minY)/rangeY*float64(height)
		return x, y
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, style.Path))

	for i, p := range ee {
		x, y := project(p)
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}
	sb.WriteString("\"/>\n")

	for _, p := range marks {
		x, y := project(p)
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="5" fill="none" stroke="%s" stroke-width="2"/>
`, x, y, style.Target))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// distinct drops consecutive repeats, leaving one entry per target.
func distinct(track []r3.Vector) []r3.Vector {
	var out []r3.Vector
	for i, p := range track {
		if i == 0 || p != track[i-1] {
			out = append(out, p)
		}
	}
	return out
}
