package exporter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"nmescli/internal/dataset"
	"nmescli/internal/diagnostics"
	"nmescli/internal/hypotest"
	"nmescli/internal/mixedmodel"
)

// ReportWriter turns pipeline results into the CSV and JSON tables under
// outputs/tables. Each table gets its own file so the analyst can open them
// independently in Excel or R.
type ReportWriter struct {
	csv    *CSVWriter
	logger *slog.Logger
}

// NewReportWriter creates a report writer backed by the given CSV writer.
func NewReportWriter(csv *CSVWriter, logger *slog.Logger) *ReportWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportWriter{csv: csv, logger: logger}
}

// WriteMissingness writes the per-column missingness table.
func (r *ReportWriter) WriteMissingness(report []dataset.ColumnMissingness) error {
	headers := []string{"Column", "MissingCount", "TotalRows", "MissingPct"}
	records := make([][]string, 0, len(report))
	for _, m := range report {
		records = append(records, []string{
			m.Column,
			formatInt(m.MissingCount),
			formatInt(m.TotalRows),
			formatFloat2(m.MissingPct),
		})
	}
	return r.csv.WriteSimpleCSV("missingness.csv", headers, records)
}

// WriteGroupCounts writes the group x sex x handedness count table.
func (r *ReportWriter) WriteGroupCounts(counts []dataset.GroupCount) error {
	headers := []string{"Group", "Sex", "Handedness", "Count"}
	records := make([][]string, 0, len(counts))
	for _, c := range counts {
		records = append(records, []string{
			string(c.Group),
			string(c.Sex),
			string(c.Handedness),
			formatInt(c.Count),
		})
	}
	return r.csv.WriteSimpleCSV("group_counts.csv", headers, records)
}

// WriteDescriptives writes the descriptive statistics table.
func (r *ReportWriter) WriteDescriptives(rows []dataset.ColumnDescriptives) error {
	headers := []string{"Column", "N", "Mean", "SD", "Median", "Min", "Max"}
	records := make([][]string, 0, len(rows))
	for _, d := range rows {
		records = append(records, []string{
			d.Column,
			formatInt(d.N),
			formatFloat2(d.Mean),
			formatFloat2(d.SD),
			formatFloat2(d.Median),
			formatFloat2(d.Min),
			formatFloat2(d.Max),
		})
	}
	return r.csv.WriteSimpleCSV("descriptives.csv", headers, records)
}

// WriteModelSummary writes the fixed-effect table and the confidence
// intervals of one fitted model into model_<outcome>.csv. Intervals are
// computed from the same fit whose coefficients appear in the table.
func (r *ReportWriter) WriteModelSummary(result *mixedmodel.Result, level float64) error {
	intervals, err := result.ConfInt(level)
	if err != nil {
		return fmt.Errorf("confidence intervals for %s: %w", result.Design.Spec.Outcome, err)
	}
	lower := make(map[string]float64, len(intervals))
	upper := make(map[string]float64, len(intervals))
	for _, ci := range intervals {
		lower[ci.Term] = ci.Lower
		upper[ci.Term] = ci.Upper
	}

	headers := []string{"Term", "Estimate", "StdErr", "Z", "P", "CILower", "CIUpper"}
	records := make([][]string, 0, len(result.Coefficients))
	for _, c := range result.Coefficients {
		records = append(records, []string{
			c.Term,
			formatFloat(c.Estimate),
			formatFloat(c.StdErr),
			formatFloat(c.Z),
			formatPValue(c.P),
			formatFloat(lower[c.Term]),
			formatFloat(upper[c.Term]),
		})
	}

	name := fmt.Sprintf("model_%s.csv", sanitizeName(result.Design.Spec.Outcome))
	if err := r.csv.WriteSimpleCSV(name, headers, records); err != nil {
		return err
	}

	r.logger.Info("Model summary written",
		slog.String("outcome", result.Design.Spec.Outcome),
		slog.Int("terms", len(result.Coefficients)),
		slog.Float64("aic", result.AIC))
	return nil
}

// WriteFitStatistics writes one row per fitted model with the variance
// components and information criteria.
func (r *ReportWriter) WriteFitStatistics(results []*mixedmodel.Result) error {
	headers := []string{"Outcome", "NObs", "NSubjects", "SigmaSubject2", "SigmaResid2", "LogLik", "AIC", "BIC"}
	records := make([][]string, 0, len(results))
	for _, res := range results {
		records = append(records, []string{
			res.Design.Spec.Outcome,
			formatInt(res.Design.NumObs()),
			formatInt(res.Design.NumSubjects()),
			formatFloat(res.SigmaSubject2),
			formatFloat(res.SigmaResid2),
			formatFloat(res.LogLik),
			formatFloat2(res.AIC),
			formatFloat2(res.BIC),
		})
	}
	return r.csv.WriteSimpleCSV("model_fit.csv", headers, records)
}

// WriteMarginalMeans writes the reference grid and the within-group
// Post-minus-Pre contrasts for one model.
func (r *ReportWriter) WriteMarginalMeans(outcome string, mm *mixedmodel.MarginalMeans) error {
	cellHeaders := []string{"Group", "Time", "Estimate", "StdErr"}
	cellRecords := make([][]string, 0, len(mm.Cells))
	for _, c := range mm.Cells {
		cellRecords = append(cellRecords, []string{
			string(c.Group),
			string(c.Time),
			formatFloat(c.Estimate),
			formatFloat(c.StdErr),
		})
	}
	name := fmt.Sprintf("emmeans_%s.csv", sanitizeName(outcome))
	if err := r.csv.WriteSimpleCSV(name, cellHeaders, cellRecords); err != nil {
		return err
	}

	cmpHeaders := []string{"Group", "Contrast", "Estimate", "StdErr", "Z", "P"}
	cmpRecords := make([][]string, 0, len(mm.Comparisons))
	for _, c := range mm.Comparisons {
		cmpRecords = append(cmpRecords, []string{
			string(c.Group),
			c.Contrast,
			formatFloat(c.Estimate),
			formatFloat(c.StdErr),
			formatFloat(c.Z),
			formatPValue(c.P),
		})
	}
	name = fmt.Sprintf("contrasts_%s.csv", sanitizeName(outcome))
	return r.csv.WriteSimpleCSV(name, cmpHeaders, cmpRecords)
}

// WriteDiagnostics writes the full diagnostics battery for all models as a
// single JSON document plus a flat CSV with the headline statistics.
func (r *ReportWriter) WriteDiagnostics(reports []*diagnostics.Report) error {
	jsonPath := r.csv.resolvePath("diagnostics.json")
	if err := os.MkdirAll(filepath.Dir(jsonPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	payload, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal diagnostics: %w", err)
	}
	if err := os.WriteFile(jsonPath, payload, 0644); err != nil {
		return fmt.Errorf("failed to write diagnostics: %w", err)
	}

	headers := []string{
		"Outcome", "ResidMean", "ResidSD", "Skewness", "Kurtosis",
		"JarqueBera", "JarqueBeraP", "BreuschPagan", "BreuschPaganP",
		"MaxVIF", "Outliers",
	}
	records := make([][]string, 0, len(reports))
	for _, rep := range reports {
		maxVIF := 0.0
		for _, v := range rep.VIFs {
			if v.Value > maxVIF {
				maxVIF = v.Value
			}
		}
		records = append(records, []string{
			rep.Outcome,
			formatFloat(rep.Residuals.Mean),
			formatFloat(rep.Residuals.SD),
			formatFloat(rep.Residuals.Skewness),
			formatFloat(rep.Residuals.Kurtosis),
			formatFloat(rep.Normality.Statistic),
			formatPValue(rep.Normality.P),
			formatFloat(rep.Heteroscedasticity.Statistic),
			formatPValue(rep.Heteroscedasticity.P),
			formatFloat2(maxVIF),
			formatInt(len(rep.Outliers)),
		})
	}
	return r.csv.WriteSimpleCSV("diagnostics.csv", headers, records)
}

// WriteBaselineTests writes the pre-intervention acceptability comparison:
// one row for the t-test and one for the Wilcoxon rank-sum test.
func (r *ReportWriter) WriteBaselineTests(column string, t hypotest.TTestResult, w hypotest.RankSumResult) error {
	headers := []string{"Column", "Test", "Statistic", "DF", "Z", "P", "MeanControl", "MeanNMES"}
	records := [][]string{
		{
			column,
			"t-test",
			formatFloat(t.Statistic),
			formatFloat2(t.DF),
			"NA",
			formatPValue(t.P),
			formatFloat(t.MeanA),
			formatFloat(t.MeanB),
		},
		{
			column,
			"wilcoxon",
			formatFloat(w.W),
			"NA",
			formatFloat(w.Z),
			formatPValue(w.P),
			"NA",
			"NA",
		},
	}
	return r.csv.WriteSimpleCSV("baseline_tests.csv", headers, records)
}

// sanitizeName lowercases an outcome name for use in a file name.
func sanitizeName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}
