package plotrender

import (
	"fmt"
	"image/color"
	"log/slog"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"nmescli/pkg/contracts/domain"
)

// TimeBarOptions configures the generic pre/post bar chart.
type TimeBarOptions struct {
	Title  string
	YLabel string

	// Annotation, when non-empty, draws a bracket between the two bars
	// with the given text (typically a formatted p-value).
	Annotation string
}

// TimeBarChart renders mean ± SEM of one outcome column across the two
// timepoints. It is parameterized by column name so the mobility outcomes
// share one layout.
func TimeBarChart(table *domain.ObservationTable, column, path string, opts TimeBarOptions) error {
	cells := make([]CellStat, 2)
	for i, tp := range []domain.Timepoint{domain.TimePre, domain.TimePost} {
		values, err := columnByTime(table, column, tp)
		if err != nil {
			return err
		}
		cells[i] = cellStat(tp.DisplayLabel(), values)
	}
	if err := checkCells(cells, column); err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = opts.Title
	if p.Title.Text == "" {
		p.Title.Text = column
	}
	p.Y.Label.Text = opts.YLabel
	p.X.Tick.Marker = nominalTicks([]float64{0, 1}, []string{cells[0].Label, cells[1].Label})

	const halfWidth = 0.3
	fills := []color.Color{controlFill, nmesFill}
	for i, c := range cells {
		x := float64(i)
		if err := bar(p, x, halfWidth, c.Mean, fills[i]); err != nil {
			return err
		}
		if err := whisker(p, x, c.Mean, c.SEM, halfWidth/2); err != nil {
			return err
		}
	}

	top := maxUpper(cells)
	if opts.Annotation != "" {
		if err := bracket(p, 0, 1, top*1.1, top*0.03, opts.Annotation); err != nil {
			return err
		}
		top *= 1.2
	}

	p.X.Min, p.X.Max = -0.7, 1.7
	p.Y.Min, p.Y.Max = 0, top*1.15

	if err := p.Save(4*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save %s chart: %w", column, err)
	}

	slog.Info("rendered time bar chart",
		slog.String("column", column),
		slog.String("path", path))

	return nil
}

// GroupedBarOptions configures the group x time bar chart.
type GroupedBarOptions struct {
	Title  string
	YLabel string

	// Bracket endpoints index the four cells in order
	// CONTROL/pre, CONTROL/post, NMES/pre, NMES/post.
	BracketFrom int
	BracketTo   int
	PValue      string
}

// groupedBarX holds the fixed bar centers: two clusters of two bars.
var groupedBarX = []float64{0, 1, 2.8, 3.8}

// GroupedBarChart renders mean ± SEM for the four group x time cells of
// one outcome, with a significance bracket between two of the bars.
func GroupedBarChart(table *domain.ObservationTable, column, path string, opts GroupedBarOptions) error {
	groups := []domain.Group{domain.GroupControl, domain.GroupNMES}
	times := []domain.Timepoint{domain.TimePre, domain.TimePost}

	cells := make([]CellStat, 0, 4)
	for _, g := range groups {
		for _, tp := range times {
			values, err := columnByGroupTime(table, column, g, tp)
			if err != nil {
				return err
			}
			cells = append(cells, cellStat(fmt.Sprintf("%s/%s", g, tp.DisplayLabel()), values))
		}
	}
	if err := checkCells(cells, column); err != nil {
		return err
	}

	if opts.PValue != "" {
		if opts.BracketFrom < 0 || opts.BracketFrom > 3 || opts.BracketTo < 0 || opts.BracketTo > 3 ||
			opts.BracketFrom == opts.BracketTo {
			return fmt.Errorf("invalid bracket cells: %d and %d", opts.BracketFrom, opts.BracketTo)
		}
	}

	p := plot.New()
	p.Title.Text = opts.Title
	if p.Title.Text == "" {
		p.Title.Text = column
	}
	p.Y.Label.Text = opts.YLabel
	p.X.Tick.Marker = nominalTicks(groupedBarX, []string{"pre", "post", "pre", "post"})

	const halfWidth = 0.35
	for i, c := range cells {
		fill := controlFill
		if i >= 2 {
			fill = nmesFill
		}
		if err := bar(p, groupedBarX[i], halfWidth, c.Mean, fill); err != nil {
			return err
		}
		if err := whisker(p, groupedBarX[i], c.Mean, c.SEM, halfWidth/2); err != nil {
			return err
		}
	}

	top := maxUpper(cells)
	if opts.PValue != "" {
		x1 := groupedBarX[opts.BracketFrom]
		x2 := groupedBarX[opts.BracketTo]
		if err := bracket(p, x1, x2, top*1.12, top*0.03, opts.PValue); err != nil {
			return err
		}
		top *= 1.2
	}

	if err := addGroupLegend(p); err != nil {
		return err
	}

	p.X.Min, p.X.Max = -0.8, 4.6
	p.Y.Min, p.Y.Max = 0, top*1.15

	if err := p.Save(5*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save %s chart: %w", column, err)
	}

	slog.Info("rendered grouped bar chart",
		slog.String("column", column),
		slog.String("path", path))

	return nil
}
