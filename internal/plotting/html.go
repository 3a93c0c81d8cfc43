package plotting

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/golang/geo/r3"
)

// maxHTMLPoints bounds the series sent to the browser.
const maxHTMLPoints = 4000

// HTML renders an interactive report: the x-z trajectory with targets and
// the distance-to-target series.
func HTML(w io.Writer, title string, ee, target []r3.Vector, dist []float64) error {
	if len(ee) == 0 {
		return ErrEmpty
	}
	stride := len(ee)/maxHTMLPoints + 1

	path := make([]opts.ScatterData, 0, len(ee)/stride+1)
	for i := 0; i < len(ee); i += stride {
		path = append(path, opts.ScatterData{Value: []interface{}{ee[i].X, ee[i].Z, i}})
	}
	marks := make([]opts.ScatterData, 0, 2)
	for _, p := range distinct(target) {
		marks = append(marks, opts.ScatterData{Value: []interface{}{p.X, p.Z}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "720px", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: "End-effector trajectory", Subtitle: fmt.Sprintf("samples=%d stride=%d", len(ee), stride)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "x (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "z (m)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("end-effector", path, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	scatter.AddSeries("targets", marks, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 14}))

	xs := make([]int, 0, len(dist)/stride+1)
	ys := make([]opts.LineData, 0, len(dist)/stride+1)
	for i := 0; i < len(dist); i += stride {
		xs = append(xs, i)
		ys = append(ys, opts.LineData{Value: dist[i]})
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: "100%", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{Title: "Distance to target"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "iteration"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "m"}),
	)
	line.SetXAxis(xs).AddSeries("distance", ys)

	page := components.NewPage()
	page.AddCharts(scatter, line)
	return page.Render(w)
}
