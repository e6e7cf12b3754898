package export

import (
	"fmt"
	"image/color"
	"sort"

	"github.com/LdDl/ptrack-go/ptrack"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotTrajectories draws every trajectory of the table over a width x height field of view.
// Y axis points down as in image coordinates. Output format follows the file extension.
func PlotTrajectories(path string, rows []ptrack.Row, width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.Errorf("bad field of view %dx%d", width, height)
	}
	p := plot.New()
	p.Title.Text = "Particle trajectories"
	p.X.Label.Text = "X position (pixels)"
	p.Y.Label.Text = "Y position (pixels)"
	p.X.Min, p.X.Max = 0, float64(width)
	p.Y.Min, p.Y.Max = 0, float64(height)
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
	p.Y.Tick.Marker = plot.DefaultTicks{}

	tracks := ptrack.GroupRows(rows)
	ids := make([]int, 0, len(tracks))
	for id := range tracks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	colors := palette(len(ids))
	for i, id := range ids {
		pts := make(plotter.XYs, len(tracks[id]))
		for j, pt := range tracks[id] {
			pts[j] = plotter.XY{X: pt.X, Y: pt.Y}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return errors.Wrapf(err, "can't draw trajectory %d", id)
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
	}

	plotWidth := 8 * vg.Inch
	plotHeight := plotWidth * vg.Length(height) / vg.Length(width)
	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return errors.Wrapf(err, "can't save %s", path)
	}
	return nil
}

// PlotMSD draws ensemble MSD on log-log axes. Non-nil fit adds the fitted line 4*D*t + Offset
func PlotMSD(path string, msd []ptrack.MSDPoint, fit *ptrack.DiffusionFit) error {
	pts := make(plotter.XYs, 0, len(msd))
	for _, m := range msd {
		// Log scale can't show zeros
		if m.LagTime > 0 && m.MSD > 0 {
			pts = append(pts, plotter.XY{X: m.LagTime, Y: m.MSD})
		}
	}
	if len(pts) == 0 {
		return errors.New("no positive MSD points to plot")
	}

	p := plot.New()
	p.Title.Text = "Ensemble mean squared displacement"
	p.X.Label.Text = "Lag time (s)"
	p.Y.Label.Text = "MSD (µm²)"
	p.X.Scale = plot.LogScale{}
	p.Y.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "can't draw MSD")
	}
	scatter.GlyphStyle.Color = color.RGBA{R: 30, G: 30, B: 30, A: 255}
	p.Add(scatter)
	p.Legend.Add("MSD", scatter)

	if fit != nil {
		fitted := make(plotter.XYs, 0, len(pts))
		for _, pt := range pts {
			y := 4*fit.D*pt.X + fit.Offset
			if y > 0 {
				fitted = append(fitted, plotter.XY{X: pt.X, Y: y})
			}
		}
		if len(fitted) > 1 {
			line, err := plotter.NewLine(fitted)
			if err != nil {
				return errors.Wrap(err, "can't draw fit")
			}
			line.Color = color.RGBA{R: 200, G: 30, B: 30, A: 255}
			line.Width = vg.Points(1)
			p.Add(line)
			p.Legend.Add(fmt.Sprintf("D = %.4g µm²/s, α = %.3g", fit.D, fit.Alpha), line)
		}
	}
	p.Legend.Top = true
	p.Legend.Left = true

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "can't save %s", path)
	}
	return nil
}

// palette returns n distinct colours evenly spread over the hue circle
func palette(n int) []color.Color {
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := 360.0 * float64(i) / float64(maxInt(n, 1))
		colors[i] = colorful.Hsl(hue, 0.7, 0.5).Clamped()
	}
	return colors
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
