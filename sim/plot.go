package sim

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// NewTrajectoryPlot creates new plot of simulated state and control histories
// sampled every dt.
// It returns error if the plot fails to be created. This can be due to either of the following conditions:
// * the result is nil or has no history
// * dt is not positive
// * gonum plot fails to be created
func NewTrajectoryPlot(res *Result, dt float64) (*plot.Plot, error) {
	if res == nil || res.States == nil || res.Controls == nil {
		return nil, fmt.Errorf("invalid data supplied")
	}

	if dt <= 0 {
		return nil, fmt.Errorf("invalid sampling time: %f", dt)
	}

	rs, nx := res.States.Dims()
	rc, nu := res.Controls.Dims()
	if rs < 2 || rc < 1 {
		return nil, fmt.Errorf("invalid data dimensions")
	}

	p := plot.New()

	p.Title.Text = "Receding horizon control"
	p.X.Label.Text = "time"
	p.Y.Label.Text = "value"

	legend := plot.NewLegend()
	legend.Top = true
	p.Legend = legend

	for j := 0; j < nx; j++ {
		line, err := plotter.NewLine(makePoints(res.States, j, dt))
		if err != nil {
			return nil, err
		}
		line.Color = plotutil.Color(j)
		line.Width = vg.Points(1.5)

		p.Add(line)
		p.Legend.Add(fmt.Sprintf("x[%d]", j), line)
	}

	for j := 0; j < nu; j++ {
		scatter, err := plotter.NewScatter(makePoints(res.Controls, j, dt))
		if err != nil {
			return nil, fmt.Errorf("failed to create scatter: %v", err)
		}
		scatter.GlyphStyle.Color = plotutil.Color(nx + j)
		scatter.Shape = draw.CrossGlyph{}
		scatter.GlyphStyle.Radius = vg.Points(2)

		p.Add(scatter)
		p.Legend.Add(fmt.Sprintf("u[%d]", j), scatter)
	}

	return p, nil
}

func makePoints(m *mat.Dense, col int, dt float64) plotter.XYs {
	r, _ := m.Dims()
	pts := make(plotter.XYs, r)
	for i := 0; i < r; i++ {
		pts[i].X = float64(i) * dt
		pts[i].Y = m.At(i, col)
	}

	return pts
}
