package plotting

import (
	"github.com/golang/geo/r3"
	"github.com/guptarohit/asciigraph"
)

// Terminal draws the end-effector x and z coordinates and the distance to
// target over the run. Series longer than width are resampled.
func Terminal(ee []r3.Vector, dist []float64, width, height int) string {
	if len(ee) == 0 {
		return ""
	}
	xs := make([]float64, len(ee))
	zs := make([]float64, len(ee))
	for i, p := range ee {
		xs[i], zs[i] = p.X, p.Z
	}

	coords := asciigraph.PlotMany([][]float64{resample(xs, width), resample(zs, width)},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Green),
		asciigraph.Caption("end-effector x (blue), z (green)"),
	)
	if len(dist) == 0 {
		return coords
	}
	errs := asciigraph.Plot(resample(dist, width),
		asciigraph.Height(height/2+1),
		asciigraph.Width(width),
		asciigraph.SeriesColors(asciigraph.Red),
		asciigraph.Caption("distance to target (m)"),
	)
	return coords + "\n\n" + errs
}

// resample picks evenly spaced points so asciigraph does not interpolate
// tens of thousands of samples.
func resample(v []float64, n int) []float64 {
	if n <= 0 || len(v) <= n {
		return v
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = v[i*(len(v)-1)/(n-1)]
	}
	return out
}
