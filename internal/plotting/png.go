package plotting

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var ErrEmpty = errors.New("plotting: no samples")

var (
	eeColor     = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	targetColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	circleColor = color.RGBA{R: 150, G: 150, B: 150, A: 255}
)

// Circle describes the reachable path drawn behind the trajectory.
type Circle struct {
	Center r3.Vector
	Radius float64
}

func xz(track []r3.Vector) plotter.XYs {
	pts := make(plotter.XYs, len(track))
	for i, p := range track {
		pts[i] = plotter.XY{X: p.X, Y: p.Z}
	}
	return pts
}

func stylePlot(p *plot.Plot) {
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Title.Padding = vg.Points(8)
	p.X.Label.TextStyle.Font.Size = vg.Points(12)
	p.Y.Label.TextStyle.Font.Size = vg.Points(12)
	p.X.Padding = vg.Points(10)
	p.Y.Padding = vg.Points(10)
	p.Legend.Top = true
}

// TrajectoryPlot builds the x-z plot of the end-effector path and targets.
// A zero reach circle is not drawn.
func TrajectoryPlot(ee, target []r3.Vector, reach Circle) (*plot.Plot, error) {
	if len(ee) == 0 {
		return nil, ErrEmpty
	}

	p := plot.New()
	p.Title.Text = "End-effector trajectory"
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "z (m)"
	stylePlot(p)

	if reach.Radius > 0 {
		circle := make(plotter.XYs, 181)
		for i := range circle {
			a := 2 * math.Pi * float64(i) / float64(len(circle)-1)
			circle[i] = plotter.XY{
				X: reach.Center.X + reach.Radius*math.Sin(a),
				Y: reach.Center.Z + reach.Radius*math.Cos(a),
			}
		}
		path, err := plotter.NewLine(circle)
		if err != nil {
			return nil, fmt.Errorf("plotting: reach circle: %w", err)
		}
		path.Color = circleColor
		path.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		p.Add(path)
	}

	line, err := plotter.NewLine(xz(ee))
	if err != nil {
		return nil, fmt.Errorf("plotting: trajectory: %w", err)
	}
	line.Color = eeColor
	line.Width = vg.Points(2)
	p.Add(line)
	p.Legend.Add("end-effector", line)

	if marks := distinct(target); len(marks) > 0 {
		sc, err := plotter.NewScatter(xz(marks))
		if err != nil {
			return nil, fmt.Errorf("plotting: targets: %w", err)
		}
		sc.GlyphStyle.Color = targetColor
		sc.GlyphStyle.Shape = draw.CrossGlyph{}
		sc.GlyphStyle.Radius = vg.Points(6)
		p.Add(sc)
		p.Legend.Add("target", sc)
	}

	start, err := plotter.NewScatter(xz(ee[:1]))
	if err != nil {
		return nil, err
	}
	start.GlyphStyle.Shape = draw.CircleGlyph{}
	start.GlyphStyle.Color = eeColor
	p.Add(start)

	p.Add(plotter.NewGrid())
	return p, nil
}

// DistancePlot builds the distance-to-target series against iteration.
func DistancePlot(dist []float64, threshold float64) (*plot.Plot, error) {
	if len(dist) == 0 {
		return nil, ErrEmpty
	}

	p := plot.New()
	p.Title.Text = "Distance to target"
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "distance (m)"
	stylePlot(p)

	pts := make(plotter.XYs, len(dist))
	for i, d := range dist {
		pts[i] = plotter.XY{X: float64(i), Y: d}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("plotting: distance: %w", err)
	}
	line.Color = eeColor
	p.Add(line)

	if threshold > 0 {
		th, err := plotter.NewLine(plotter.XYs{{X: 0, Y: threshold}, {X: float64(len(dist) - 1), Y: threshold}})
		if err != nil {
			return nil, err
		}
		th.Color = targetColor
		th.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
		p.Add(th)
		p.Legend.Add("threshold", th)
	}
	p.Add(plotter.NewGrid())
	return p, nil
}

// Trajectory writes the x-z trajectory plot to path. The image format
// follows the file extension.
func Trajectory(ee, target []r3.Vector, path string) error {
	return TrajectoryWithReach(ee, target, Circle{}, path)
}

func TrajectoryWithReach(ee, target []r3.Vector, reach Circle, path string) error {
	p, err := TrajectoryPlot(ee, target, reach)
	if err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}

// Distance writes the distance plot to path.
func Distance(dist []float64, threshold float64, path string) error {
	p, err := DistancePlot(dist, threshold)
	if err != nil {
		return err
	}
	return p.Save(10*vg.Inch, 4*vg.Inch, path)
}

func distinct(track []r3.Vector) []r3.Vector {
	var out []r3.Vector
	for i, p := range track {
		if i == 0 || p != track[i-1] {
			out = append(out, p)
		}
	}
	return out
}
