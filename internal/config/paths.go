package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the pipeline file locations.
// This is the single source of truth for ALL file paths in the application.
type Paths struct {
	BaseDir    string
	DataDir    string
	OutputsDir string
	TablesDir  string
	FiguresDir string
	LogsDir    string

	// Input workbook
	InputWorkbook string

	// Well-known figure files consumed or produced by the pipeline.
	// The four mobility charts are tiled into the combined figure.
	FiveXSTSFigure  string
	SixMWTFigure    string
	TinettiFigure   string
	TUGDTFigure     string
	CombinedFigure  string
	RadarFigure     string
	SwitchBarFigure string
	MissingFigure   string
}

// NewPaths builds the path layout rooted at baseDir.
// Directory structure:
//
//	base/
//	  ├── data/
//	  │   └── NMES.xlsx          (input workbook)
//	  ├── outputs/
//	  │   ├── tables/            (CSV/JSON report tables)
//	  │   └── figures/           (rendered charts + combined figure)
//	  └── logs/                  (pipeline logs)
func NewPaths(baseDir string, cfg PathsConfig) *Paths {
	dataDir := filepath.Join(baseDir, cfg.DataDir)
	outputsDir := filepath.Join(baseDir, cfg.OutputsDir)
	figuresDir := filepath.Join(outputsDir, "figures")

	return &Paths{
		BaseDir:    baseDir,
		DataDir:    dataDir,
		OutputsDir: outputsDir,
		TablesDir:  filepath.Join(outputsDir, "tables"),
		FiguresDir: figuresDir,
		LogsDir:    filepath.Join(baseDir, cfg.LogsDir),

		InputWorkbook: filepath.Join(dataDir, cfg.InputWorkbook),

		FiveXSTSFigure:  filepath.Join(figuresDir, "5XSTS.png"),
		SixMWTFigure:    filepath.Join(figuresDir, "6mwt.png"),
		TinettiFigure:   filepath.Join(figuresDir, "Tinetti.png"),
		TUGDTFigure:     filepath.Join(figuresDir, "TUG_DT.png"),
		CombinedFigure:  filepath.Join(figuresDir, "combined_figure.png"),
		RadarFigure:     filepath.Join(figuresDir, "acceptability_radar.png"),
		SwitchBarFigure: filepath.Join(figuresDir, "switch_errors.png"),
		MissingFigure:   filepath.Join(figuresDir, "missingness.png"),
	}
}

// MobilityFigure returns the figure path for a mobility outcome column.
func (p *Paths) MobilityFigure(column string) (string, error) {
	switch column {
	case "FiveXSTS":
		return p.FiveXSTSFigure, nil
	case "SixMWT":
		return p.SixMWTFigure, nil
	case "Tinetti":
		return p.TinettiFigure, nil
	case "TUGDT":
		return p.TUGDTFigure, nil
	}
	return "", fmt.Errorf("no figure path for column: %s", column)
}

// GetTablePath returns the full path for a report table file.
func (p *Paths) GetTablePath(filename string) string {
	return filepath.Join(p.TablesDir, filename)
}

// GetFigurePath returns the full path for a figure file.
func (p *Paths) GetFigurePath(filename string) string {
	return filepath.Join(p.FiguresDir, filename)
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	dirs := []string{
		p.DataDir,
		p.OutputsDir,
		p.TablesDir,
		p.FiguresDir,
		p.LogsDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// LogPathResolution logs the resolved paths for debugging
func (p *Paths) LogPathResolution() {
	slog.Info("Resolved pipeline paths",
		slog.String("base_dir", p.BaseDir),
		slog.String("input_workbook", p.InputWorkbook),
		slog.String("tables_dir", p.TablesDir),
		slog.String("figures_dir", p.FiguresDir),
		slog.String("logs_dir", p.LogsDir))
}
