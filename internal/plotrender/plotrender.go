// Package plotrender renders the study's summary figures: an
// acceptability radar chart, grouped bar charts of cell means with
// standard-error bars and significance brackets, and a per-outcome
// pre/post bar chart reused across the mobility outcomes.
//
// Renderers are pure functions over the observation table: they take data
// and a destination path, never global state. Bars, error whiskers and
// brackets are drawn as explicit polygons and lines in data coordinates so
// annotations land exactly where the statistics say they should.
package plotrender

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"nmescli/pkg/contracts/domain"
)

// Figure colors follow the manuscript palette: slate for the control arm,
// burnt orange for the stimulation arm.
var (
	controlColor = color.NRGBA{R: 0x4c, G: 0x72, B: 0xb0, A: 0xff}
	nmesColor    = color.NRGBA{R: 0xdd, G: 0x84, B: 0x52, A: 0xff}
	controlFill  = color.NRGBA{R: 0x4c, G: 0x72, B: 0xb0, A: 0x55}
	nmesFill     = color.NRGBA{R: 0xdd, G: 0x84, B: 0x52, A: 0x55}
	whiskerColor = color.NRGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
)

// CellStat is the mean and standard error of one plotted cell.
type CellStat struct {
	Label string
	Mean  float64
	SEM   float64
	N     int
}

// cellStat computes mean and standard error of the mean over the
// non-missing values.
func cellStat(label string, values []float64) CellStat {
	observed := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			observed = append(observed, v)
		}
	}

	cs := CellStat{Label: label, N: len(observed)}
	if len(observed) == 0 {
		cs.Mean, cs.SEM = math.NaN(), math.NaN()
		return cs
	}
	cs.Mean = stat.Mean(observed, nil)
	if len(observed) > 1 {
		cs.SEM = stat.StdDev(observed, nil) / math.Sqrt(float64(len(observed)))
	}
	return cs
}

// columnByTime extracts a column's values for one timepoint.
func columnByTime(table *domain.ObservationTable, column string, tp domain.Timepoint) ([]float64, error) {
	var values []float64
	for _, row := range table.FilterTime(tp) {
		v, err := row.NumericValue(column)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// columnByGroupTime extracts a column's values for one group x time cell.
func columnByGroupTime(table *domain.ObservationTable, column string, g domain.Group, tp domain.Timepoint) ([]float64, error) {
	var values []float64
	for _, row := range table.FilterGroup(g) {
		if row.Time != tp {
			continue
		}
		v, err := row.NumericValue(column)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// bar appends a filled rectangle centered at x with the given half-width,
// from the baseline to height.
func bar(p *plot.Plot, x, halfWidth, height float64, fill color.Color) error {
	pts := plotter.XYs{
		{X: x - halfWidth, Y: 0},
		{X: x + halfWidth, Y: 0},
		{X: x + halfWidth, Y: height},
		{X: x - halfWidth, Y: height},
	}
	poly, err := plotter.NewPolygon(pts)
	if err != nil {
		return err
	}
	poly.Color = fill
	poly.LineStyle.Color = whiskerColor
	poly.LineStyle.Width = vg.Points(0.5)
	p.Add(poly)
	return nil
}

// whisker appends a vertical standard-error whisker with end caps.
func whisker(p *plot.Plot, x, mean, sem, capHalfWidth float64) error {
	if sem == 0 || math.IsNaN(sem) {
		return nil
	}
	segments := []plotter.XYs{
		{{X: x, Y: mean - sem}, {X: x, Y: mean + sem}},
		{{X: x - capHalfWidth, Y: mean - sem}, {X: x + capHalfWidth, Y: mean - sem}},
		{{X: x - capHalfWidth, Y: mean + sem}, {X: x + capHalfWidth, Y: mean + sem}},
	}
	for _, seg := range segments {
		line, err := plotter.NewLine(seg)
		if err != nil {
			return err
		}
		line.Color = whiskerColor
		line.Width = vg.Points(1)
		p.Add(line)
	}
	return nil
}

// bracket appends a significance bracket between x1 and x2 at height y,
// with the annotation text centered above it.
func bracket(p *plot.Plot, x1, x2, y, tick float64, text string) error {
	seg := plotter.XYs{
		{X: x1, Y: y - tick},
		{X: x1, Y: y},
		{X: x2, Y: y},
		{X: x2, Y: y - tick},
	}
	line, err := plotter.NewLine(seg)
	if err != nil {
		return err
	}
	line.Color = whiskerColor
	line.Width = vg.Points(1)
	p.Add(line)

	labels, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    plotter.XYs{{X: (x1 + x2) / 2, Y: y + tick/2}},
		Labels: []string{text},
	})
	if err != nil {
		return err
	}
	p.Add(labels)
	return nil
}

// nominalTicks builds a fixed tick set for categorical X axes.
func nominalTicks(positions []float64, labels []string) plot.ConstantTicks {
	ticks := make([]plot.Tick, len(positions))
	for i, x := range positions {
		ticks[i] = plot.Tick{Value: x, Label: labels[i]}
	}
	return plot.ConstantTicks(ticks)
}

// maxUpper returns the largest mean+SEM across cells, used to size the
// annotation headroom.
func maxUpper(cells []CellStat) float64 {
	top := math.Inf(-1)
	for _, c := range cells {
		if u := c.Mean + c.SEM; !math.IsNaN(u) && u > top {
			top = u
		}
	}
	if math.IsInf(top, -1) {
		return 1
	}
	return top
}

// addGroupLegend adds CONTROL/NMES legend entries. Thumbnails are drawn
// as colored lines.
func addGroupLegend(p *plot.Plot) error {
	entries := []struct {
		name string
		col  color.Color
	}{
		{string(domain.GroupControl), controlColor},
		{string(domain.GroupNMES), nmesColor},
	}
	for _, e := range entries {
		line, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 0}})
		if err != nil {
			return err
		}
		line.Color = e.col
		line.Width = vg.Points(3)
		p.Legend.Add(e.name, line)
	}
	p.Legend.Top = true
	return nil
}

func checkCells(cells []CellStat, column string) error {
	for _, c := range cells {
		if c.N == 0 {
			return fmt.Errorf("column %s has no observations in cell %s", column, c.Label)
		}
	}
	return nil
}
