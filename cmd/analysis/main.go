package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"nmescli/internal/config"
	"nmescli/internal/dataset"
	"nmescli/internal/diagnostics"
	"nmescli/internal/exporter"
	"nmescli/internal/figures"
	"nmescli/internal/hypotest"
	"nmescli/internal/infrastructure"
	"nmescli/internal/mixedmodel"
	"nmescli/internal/plotrender"
	"nmescli/internal/validation"
	"nmescli/pkg/contracts"
	"nmescli/pkg/contracts/domain"
)

// modelledOutcome pairs an outcome column with its covariate set.
type modelledOutcome struct {
	Column     string
	Covariates []string
}

// mobilityModels are fitted with the mobility covariate set. TUGDT is
// charted but not modelled.
var mobilityModels = []modelledOutcome{
	{Column: "SixMWT", Covariates: mixedmodel.MobilityCovariates},
	{Column: "FiveXSTS", Covariates: mixedmodel.MobilityCovariates},
	{Column: "Tinetti", Covariates: mixedmodel.MobilityCovariates},
}

var cognitiveModels = []modelledOutcome{
	{Column: "SRT", Covariates: mixedmodel.CognitiveCovariates},
	{Column: "Accuracy", Covariates: mixedmodel.CognitiveCovariates},
	{Column: "GNGRT", Covariates: mixedmodel.CognitiveCovariates},
	{Column: "SwitchErrors", Covariates: mixedmodel.CognitiveCovariates},
}

func main() {
	inFile := flag.String("in", "", "input NMES workbook (defaults to data/NMES.xlsx under the base directory)")
	baseDir := flag.String("out", ".", "base directory for data/, outputs/ and logs/")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}

	base, err := filepath.Abs(*baseDir)
	if err != nil {
		slog.Error("Failed to resolve base directory", "dir", *baseDir, "error", err)
		os.Exit(1)
	}
	paths := config.NewPaths(base, cfg.Paths)
	if *inFile != "" {
		paths.InputWorkbook = *inFile
	}

	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	if cfg.Logging.Output != "console" {
		cfg.Logging.FilePath = filepath.Join(paths.LogsDir, "analysis.log")
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	// One trace ID per run so all log lines of a run can be correlated.
	ctx := infrastructure.ContextWithTraceID(context.Background())
	logger = logger.With(slog.String("trace_id", infrastructure.GetTraceID(ctx)))

	logger.Info("Starting NMES pilot analysis",
		slog.String("version", contracts.Version),
		slog.String("input_workbook", paths.InputWorkbook),
		slog.String("tables_dir", paths.TablesDir),
		slog.String("figures_dir", paths.FiguresDir))
	paths.LogPathResolution()

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateWorkbook(paths.InputWorkbook); err != nil {
		logger.Error("Input workbook validation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	table, err := dataset.LoadWorkbook(paths.InputWorkbook)
	if err != nil {
		logger.Error("Failed to load workbook", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Workbook loaded",
		slog.Int("rows", len(table.Rows)),
		slog.Int("subjects", len(table.Subjects())))

	pre := dataset.NewPreprocessor(logger)
	if err := pre.ValidateRepeatedMeasures(table); err != nil {
		logger.Warn("Repeated-measures structure check", slog.String("error", err.Error()))
	}

	reports := exporter.NewReportWriter(exporter.NewCSVWriter(paths), logger)

	if err := writeSummaries(ctx, pre, table, reports, paths); err != nil {
		logger.Error("Failed to write data summaries", slog.String("error", err.Error()))
		os.Exit(1)
	}

	results, diags, err := fitModels(table, cfg, reports, logger)
	if err != nil {
		logger.Error("Model fitting failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := reports.WriteFitStatistics(results); err != nil {
		logger.Error("Failed to write fit statistics", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := reports.WriteDiagnostics(diags); err != nil {
		logger.Error("Failed to write diagnostics", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := baselineAcceptability(table, reports, logger); err != nil {
		logger.Error("Baseline acceptability tests failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := renderFigures(table, results, paths, validator, logger); err != nil {
		logger.Error("Figure rendering failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Analysis complete",
		slog.Int("models_fitted", len(results)),
		slog.String("combined_figure", paths.CombinedFigure))
	fmt.Println("Analysis complete")
}

// writeSummaries produces the preprocessing tables and the missingness chart.
func writeSummaries(ctx context.Context, pre *dataset.Preprocessor, table *domain.ObservationTable, reports *exporter.ReportWriter, paths *config.Paths) error {
	missing, err := pre.MissingnessReport(ctx, table)
	if err != nil {
		return fmt.Errorf("missingness report: %w", err)
	}
	if err := reports.WriteMissingness(missing); err != nil {
		return err
	}
	if err := plotrender.MissingnessChart(missing, paths.MissingFigure); err != nil {
		return fmt.Errorf("missingness chart: %w", err)
	}

	counts, err := pre.GroupCounts(ctx, table)
	if err != nil {
		return fmt.Errorf("group counts: %w", err)
	}
	if err := reports.WriteGroupCounts(counts); err != nil {
		return err
	}

	descriptives, err := pre.Describe(ctx, table)
	if err != nil {
		return fmt.Errorf("descriptives: %w", err)
	}
	return reports.WriteDescriptives(descriptives)
}

// fitModels fits every modelled outcome, writes its summary table, and runs
// the diagnostics battery on the fresh fit.
func fitModels(table *domain.ObservationTable, cfg *config.Config, reports *exporter.ReportWriter, logger *slog.Logger) ([]*mixedmodel.Result, []*diagnostics.Report, error) {
	outcomes := append(append([]modelledOutcome{}, mobilityModels...), cognitiveModels...)

	var results []*mixedmodel.Result
	var diags []*diagnostics.Report

	for _, outcome := range outcomes {
		design, err := mixedmodel.NewDesign(table, mixedmodel.Spec{
			Outcome:    outcome.Column,
			Covariates: outcome.Covariates,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("design for %s: %w", outcome.Column, err)
		}

		result, err := mixedmodel.Fit(design, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("fit for %s: %w", outcome.Column, err)
		}

		if err := reports.WriteModelSummary(result, cfg.Analysis.ConfidenceLevel); err != nil {
			return nil, nil, err
		}

		diag, err := diagnostics.Run(result, cfg.Analysis.OutlierThreshold, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("diagnostics for %s: %w", outcome.Column, err)
		}
		diags = append(diags, diag)

		if outcome.Column == "SwitchErrors" {
			mm := mixedmodel.EstimatedMarginalMeans(result)
			if err := reports.WriteMarginalMeans(outcome.Column, mm); err != nil {
				return nil, nil, err
			}
		}

		results = append(results, result)
	}

	return results, diags, nil
}

// baselineAcceptability compares the total acceptability score between the
// two arms before the intervention, with both a t-test and a rank-sum test.
func baselineAcceptability(table *domain.ObservationTable, reports *exporter.ReportWriter, logger *slog.Logger) error {
	control, nmes, err := hypotest.BaselineSamples(table, "Acceptability")
	if err != nil {
		return err
	}

	tres, err := hypotest.TwoSampleTTest(control, nmes)
	if err != nil {
		return fmt.Errorf("t-test: %w", err)
	}
	wres, err := hypotest.WilcoxonRankSum(control, nmes)
	if err != nil {
		return fmt.Errorf("rank-sum test: %w", err)
	}

	logger.Info("Baseline acceptability comparison",
		slog.Int("control_n", len(control)),
		slog.Int("nmes_n", len(nmes)),
		slog.Float64("t_p", tres.P),
		slog.Float64("wilcoxon_p", wres.P))

	return reports.WriteBaselineTests("Acceptability", tres, wres)
}

// renderFigures draws every chart and tiles the four mobility panels into
// the combined figure.
func renderFigures(table *domain.ObservationTable, results []*mixedmodel.Result, paths *config.Paths, validator *validation.FileValidator, logger *slog.Logger) error {
	interactionP := make(map[string]float64)
	for _, r := range results {
		if c, err := r.Coefficient("TimePost:GroupNMES"); err == nil {
			interactionP[r.Design.Spec.Outcome] = c.P
		}
	}

	// Per-outcome time bar charts for the four mobility panels.
	titles := map[string]struct{ title, ylabel string }{
		"SixMWT":   {"6-minute walk test", "Distance (m)"},
		"FiveXSTS": {"5x sit-to-stand", "Time (s)"},
		"Tinetti":  {"Tinetti balance assessment", "Score"},
		"TUGDT":    {"Timed up-and-go (dual task)", "Time (s)"},
	}
	for _, column := range domain.MobilityOutcomes {
		path, err := paths.MobilityFigure(column)
		if err != nil {
			return err
		}

		opts := plotrender.TimeBarOptions{
			Title:  titles[column].title,
			YLabel: titles[column].ylabel,
		}
		if p, ok := interactionP[column]; ok {
			opts.Annotation = fmt.Sprintf("p = %.3f", p)
		}

		if err := plotrender.TimeBarChart(table, column, path, opts); err != nil {
			return fmt.Errorf("time bar chart for %s: %w", column, err)
		}
		if err := validator.ValidateFigure(path); err != nil {
			return err
		}
		logger.Info("Figure rendered", slog.String("column", column), slog.String("path", path))
	}

	// Acceptability radar across the eight questionnaire dimensions.
	if err := plotrender.RadarChart(table, paths.RadarFigure); err != nil {
		return fmt.Errorf("radar chart: %w", err)
	}

	// Grouped bars for switching errors with the NMES pre-vs-post bracket.
	switchOpts := plotrender.GroupedBarOptions{
		Title:       "Task-switching errors",
		YLabel:      "Errors",
		BracketFrom: 2,
		BracketTo:   3,
	}
	if p, ok := interactionP["SwitchErrors"]; ok {
		switchOpts.PValue = fmt.Sprintf("p = %.3f", p)
	}
	if err := plotrender.GroupedBarChart(table, "SwitchErrors", paths.SwitchBarFigure, switchOpts); err != nil {
		return fmt.Errorf("grouped bar chart: %w", err)
	}

	layout := figures.PanelLayout{
		TopLeft:     paths.FiveXSTSFigure,
		TopRight:    paths.SixMWTFigure,
		BottomLeft:  paths.TinettiFigure,
		BottomRight: paths.TUGDTFigure,
	}
	if err := figures.Composite(layout, paths.CombinedFigure); err != nil {
		return fmt.Errorf("combined figure: %w", err)
	}
	if err := validator.ValidateFigure(paths.CombinedFigure); err != nil {
		return err
	}

	discovery := figures.NewDiscovery(paths.FiguresDir)
	if err := discovery.RequireFiles(
		paths.FiveXSTSFigure, paths.SixMWTFigure, paths.TinettiFigure, paths.TUGDTFigure,
		paths.RadarFigure, paths.SwitchBarFigure, paths.MissingFigure, paths.CombinedFigure,
	); err != nil {
		return fmt.Errorf("figure output check: %w", err)
	}
	rendered, err := discovery.FindPNGFiles()
	if err != nil {
		return err
	}
	logger.Info("All figures rendered", slog.Int("count", len(rendered)))
	return nil
}
