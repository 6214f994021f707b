package plotrender

import (
	"fmt"
	"log/slog"
	"os"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"nmescli/internal/dataset"
)

// MissingnessChart renders the per-column missing-data percentages as a
// bar chart, a data-quality companion to the statistical figures.
func MissingnessChart(report []dataset.ColumnMissingness, path string) error {
	if len(report) == 0 {
		return fmt.Errorf("missingness report is empty")
	}

	bars := make([]chart.Value, 0, len(report))
	for _, col := range report {
		bars = append(bars, chart.Value{
			Value: col.MissingPct,
			Label: col.Column,
			Style: chart.Style{
				FillColor:   drawing.Color{R: 0x4c, G: 0x72, B: 0xb0, A: 0xff},
				StrokeColor: drawing.Color{R: 0x33, G: 0x33, B: 0x33, A: 0xff},
				StrokeWidth: 0.5,
			},
		})
	}

	graph := chart.BarChart{
		Title:      "Missing data by column (%)",
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 60}},
		Width:      40 * len(bars),
		Height:     512,
		BarWidth:   24,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
		},
		Bars: bars,
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create missingness chart file: %w", err)
	}
	defer f.Close()

	if err := graph.Render(chart.PNG, f); err != nil {
		return fmt.Errorf("failed to render missingness chart: %w", err)
	}

	slog.Info("rendered missingness chart",
		slog.String("path", path),
		slog.Int("columns", len(report)))

	return nil
}
