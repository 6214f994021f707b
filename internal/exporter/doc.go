// Package exporter writes the analysis tables produced by the pipeline.
//
// This package contains two main components:
//
// CSVWriter: Core CSV writing functionality with support for headers, streaming,
// and UTF-8 BOM for Excel compatibility. Relative paths resolve into the
// configured tables directory.
//
// ReportWriter: Typed writers for each pipeline artifact: missingness and
// group-count summaries, descriptive statistics, per-model fixed-effect
// tables with confidence intervals, estimated marginal means and contrasts,
// the diagnostics battery, and the baseline hypothesis tests.
//
// Example usage:
//
//	csvWriter := exporter.NewCSVWriter(paths)
//	reports := exporter.NewReportWriter(csvWriter, logger)
//
//	err := reports.WriteModelSummary(result, 0.95)
package exporter
