// Package plotting renders recorded reach trajectories as PNG (gonum/plot),
// HTML (go-echarts) and terminal (asciigraph) charts. All views use the
// x-z plane the one-link arm moves in.
package plotting
