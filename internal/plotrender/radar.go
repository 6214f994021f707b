package plotrender

import (
	"fmt"
	"image/color"
	"log/slog"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"nmescli/pkg/contracts/domain"
)

// radar geometry: questionnaire scores in [1, 5] map linearly onto the
// unit disc, with the outermost reference ring at score 5.
const (
	radarMinScore = 1.0
	radarMaxScore = 5.0
)

// RadarChart renders per-group mean acceptability sub-scores as two
// overlaid polygons over the eight questionnaire dimensions, with reference
// rings at every integer score.
func RadarChart(table *domain.ObservationTable, path string) error {
	dims := domain.AcceptabilityDimensions
	angles := spokeAngles(len(dims))

	p := plot.New()
	p.Title.Text = "Acceptability by dimension"
	p.HideAxes()

	// Reference rings from the minimum to the maximum score.
	ringColor := color.NRGBA{R: 0xbb, G: 0xbb, B: 0xbb, A: 0xff}
	for score := radarMinScore; score <= radarMaxScore; score++ {
		ring, err := closedLine(angles, uniformRadii(len(dims), radarRadius(score)))
		if err != nil {
			return err
		}
		ring.Color = ringColor
		ring.Width = vg.Points(0.5)
		p.Add(ring)
	}

	// Spokes with dimension labels just outside the outer ring.
	var labelXYs plotter.XYs
	labels := make([]string, len(dims))
	for k, angle := range angles {
		spoke, err := plotter.NewLine(plotter.XYs{
			{X: 0, Y: 0},
			{X: math.Cos(angle), Y: math.Sin(angle)},
		})
		if err != nil {
			return err
		}
		spoke.Color = ringColor
		spoke.Width = vg.Points(0.5)
		p.Add(spoke)

		labelXYs = append(labelXYs, plotter.XY{
			X: 1.18 * math.Cos(angle),
			Y: 1.18 * math.Sin(angle),
		})
		labels[k] = dims[k]
	}
	dimLabels, err := plotter.NewLabels(plotter.XYLabels{XYs: labelXYs, Labels: labels})
	if err != nil {
		return err
	}
	p.Add(dimLabels)

	// One polygon per protocol arm.
	arms := []struct {
		group domain.Group
		line  color.Color
		fill  color.Color
	}{
		{domain.GroupControl, controlColor, controlFill},
		{domain.GroupNMES, nmesColor, nmesFill},
	}
	for _, arm := range arms {
		radii, err := groupRadii(table, arm.group, dims)
		if err != nil {
			return err
		}
		poly, err := radarPolygon(angles, radii)
		if err != nil {
			return err
		}
		poly.Color = arm.fill
		poly.LineStyle.Color = arm.line
		poly.LineStyle.Width = vg.Points(1.5)
		p.Add(poly)
	}

	if err := addGroupLegend(p); err != nil {
		return err
	}

	p.X.Min, p.X.Max = -1.7, 1.7
	p.Y.Min, p.Y.Max = -1.5, 1.5

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save radar chart: %w", err)
	}

	slog.Info("rendered acceptability radar chart", slog.String("path", path))
	return nil
}

// spokeAngles distributes n spokes around the circle starting at the top,
// proceeding clockwise.
func spokeAngles(n int) []float64 {
	angles := make([]float64, n)
	for k := 0; k < n; k++ {
		angles[k] = math.Pi/2 - 2*math.Pi*float64(k)/float64(n)
	}
	return angles
}

// radarRadius maps a questionnaire score onto the plot radius.
func radarRadius(score float64) float64 {
	return score / radarMaxScore
}

func uniformRadii(n int, r float64) []float64 {
	radii := make([]float64, n)
	for i := range radii {
		radii[i] = r
	}
	return radii
}

// groupRadii computes the plot radius of each dimension's group mean.
func groupRadii(table *domain.ObservationTable, g domain.Group, dims []string) ([]float64, error) {
	radii := make([]float64, len(dims))
	for k, dim := range dims {
		var values []float64
		for _, row := range table.FilterGroup(g) {
			v, err := row.NumericValue(dim)
			if err != nil {
				return nil, err
			}
			if !math.IsNaN(v) {
				values = append(values, v)
			}
		}
		cs := cellStat(dim, values)
		if cs.N == 0 {
			return nil, fmt.Errorf("group %s has no observations for dimension %s", g, dim)
		}
		radii[k] = radarRadius(cs.Mean)
	}
	return radii, nil
}

// closedLine builds a closed polyline through the spoke endpoints.
func closedLine(angles, radii []float64) (*plotter.Line, error) {
	pts := make(plotter.XYs, 0, len(angles)+1)
	for k, angle := range angles {
		pts = append(pts, plotter.XY{
			X: radii[k] * math.Cos(angle),
			Y: radii[k] * math.Sin(angle),
		})
	}
	pts = append(pts, pts[0])
	return plotter.NewLine(pts)
}

// radarPolygon builds the filled group polygon through the spoke endpoints.
func radarPolygon(angles, radii []float64) (*plotter.Polygon, error) {
	pts := make(plotter.XYs, 0, len(angles))
	for k, angle := range angles {
		pts = append(pts, plotter.XY{
			X: radii[k] * math.Cos(angle),
			Y: radii[k] * math.Sin(angle),
		})
	}
	return plotter.NewPolygon(pts)
}
