package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaths(t *testing.T) {
	base := filepath.Join(string(filepath.Separator), "study")
	paths := NewPaths(base, Default().Paths)

	assert.Equal(t, base, paths.BaseDir)
	assert.Equal(t, filepath.Join(base, "data"), paths.DataDir)
	assert.Equal(t, filepath.Join(base, "outputs"), paths.OutputsDir)
	assert.Equal(t, filepath.Join(base, "outputs", "tables"), paths.TablesDir)
	assert.Equal(t, filepath.Join(base, "outputs", "figures"), paths.FiguresDir)
	assert.Equal(t, filepath.Join(base, "logs"), paths.LogsDir)
	assert.Equal(t, filepath.Join(base, "data", "NMES.xlsx"), paths.InputWorkbook)

	// The four mobility panels and the figure they tile into.
	figures := paths.FiguresDir
	assert.Equal(t, filepath.Join(figures, "5XSTS.png"), paths.FiveXSTSFigure)
	assert.Equal(t, filepath.Join(figures, "6mwt.png"), paths.SixMWTFigure)
	assert.Equal(t, filepath.Join(figures, "Tinetti.png"), paths.TinettiFigure)
	assert.Equal(t, filepath.Join(figures, "TUG_DT.png"), paths.TUGDTFigure)
	assert.Equal(t, filepath.Join(figures, "combined_figure.png"), paths.CombinedFigure)
	assert.Equal(t, filepath.Join(figures, "acceptability_radar.png"), paths.RadarFigure)
	assert.Equal(t, filepath.Join(figures, "switch_errors.png"), paths.SwitchBarFigure)
	assert.Equal(t, filepath.Join(figures, "missingness.png"), paths.MissingFigure)
}

func TestNewPaths_CustomConfig(t *testing.T) {
	cfg := PathsConfig{
		DataDir:       "inputs",
		OutputsDir:    "results",
		LogsDir:       "log",
		InputWorkbook: "pilot.xlsx",
	}
	paths := NewPaths("/work", cfg)

	assert.Equal(t, filepath.Join("/work", "inputs", "pilot.xlsx"), paths.InputWorkbook)
	assert.Equal(t, filepath.Join("/work", "results", "tables"), paths.TablesDir)
	assert.Equal(t, filepath.Join("/work", "log"), paths.LogsDir)
}

func TestMobilityFigure(t *testing.T) {
	paths := NewPaths(t.TempDir(), Default().Paths)

	tests := []struct {
		column string
		want   string
	}{
		{"FiveXSTS", paths.FiveXSTSFigure},
		{"SixMWT", paths.SixMWTFigure},
		{"Tinetti", paths.TinettiFigure},
		{"TUGDT", paths.TUGDTFigure},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			got, err := paths.MobilityFigure(tt.column)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unknown column", func(t *testing.T) {
		_, err := paths.MobilityFigure("SwitchErrors")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no figure path")
	})
}

func TestGetTableAndFigurePaths(t *testing.T) {
	paths := NewPaths("/work", Default().Paths)

	assert.Equal(t, filepath.Join(paths.TablesDir, "descriptives.csv"), paths.GetTablePath("descriptives.csv"))
	assert.Equal(t, filepath.Join(paths.FiguresDir, "radar.png"), paths.GetFigurePath("radar.png"))
}

func TestEnsureDirectories(t *testing.T) {
	paths := NewPaths(t.TempDir(), Default().Paths)
	require.NoError(t, paths.EnsureDirectories())

	for _, dir := range []string{paths.DataDir, paths.OutputsDir, paths.TablesDir, paths.FiguresDir, paths.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	// Idempotent on an already-built tree.
	require.NoError(t, paths.EnsureDirectories())
}
