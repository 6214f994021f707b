package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"nmescli/pkg/contracts/domain"
)

// Preprocessor provides the Single Source of Truth for data-quality
// summaries over the observation table: missingness, group counts and
// per-column descriptives.
type Preprocessor struct {
	logger *slog.Logger
}

// NewPreprocessor creates a new preprocessor.
func NewPreprocessor(logger *slog.Logger) *Preprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preprocessor{logger: logger}
}

// ColumnMissingness holds the per-column missing-data percentage.
type ColumnMissingness struct {
	Column       string  `json:"column" csv:"Column"`
	MissingCount int     `json:"missing_count" csv:"MissingCount"`
	TotalRows    int     `json:"total_rows" csv:"TotalRows"`
	MissingPct   float64 `json:"missing_pct" csv:"MissingPct"`
}

// GroupCount is one cell of the group x sex x handedness count summary.
type GroupCount struct {
	Group      domain.Group      `json:"group" csv:"Group"`
	Sex        domain.Sex        `json:"sex" csv:"Sex"`
	Handedness domain.Handedness `json:"handedness" csv:"Handedness"`
	Count      int               `json:"count" csv:"Count"`
}

// ColumnDescriptives holds basic descriptive statistics for one column.
type ColumnDescriptives struct {
	Column string  `json:"column" csv:"Column"`
	N      int     `json:"n" csv:"N"`
	Mean   float64 `json:"mean" csv:"Mean"`
	SD     float64 `json:"sd" csv:"SD"`
	Median float64 `json:"median" csv:"Median"`
	Min    float64 `json:"min" csv:"Min"`
	Max    float64 `json:"max" csv:"Max"`
}

// MissingnessReport computes missing% = nulls/rows * 100 for every numeric
// and categorical column, in registry order.
func (p *Preprocessor) MissingnessReport(ctx context.Context, table *domain.ObservationTable) ([]ColumnMissingness, error) {
	total := len(table.Rows)
	report := make([]ColumnMissingness, 0, len(domain.CategoricalColumns)+len(domain.NumericColumns))

	for _, col := range domain.CategoricalColumns {
		missing := 0
		for i := range table.Rows {
			v, err := table.Rows[i].CategoricalValue(col)
			if err != nil {
				return nil, err
			}
			if v == "" {
				missing++
			}
		}
		report = append(report, newMissingness(col, missing, total))
	}

	for _, col := range domain.NumericColumns {
		missing := 0
		for i := range table.Rows {
			v, err := table.Rows[i].NumericValue(col)
			if err != nil {
				return nil, err
			}
			if math.IsNaN(v) {
				missing++
			}
		}
		report = append(report, newMissingness(col, missing, total))
	}

	p.logger.InfoContext(ctx, "computed missingness report",
		slog.Int("columns", len(report)),
		slog.Int("rows", total))

	return report, nil
}

func newMissingness(col string, missing, total int) ColumnMissingness {
	pct := 0.0
	if total > 0 {
		pct = float64(missing) / float64(total) * 100
	}
	return ColumnMissingness{
		Column:       col,
		MissingCount: missing,
		TotalRows:    total,
		MissingPct:   pct,
	}
}

// GroupCounts counts rows for every (group, sex, handedness) combination.
// Rows with any of the three factors missing are dropped first, matching
// the complete-case convention used by the rest of the pipeline.
func (p *Preprocessor) GroupCounts(ctx context.Context, table *domain.ObservationTable) ([]GroupCount, error) {
	type cell struct {
		group domain.Group
		sex   domain.Sex
		hand  domain.Handedness
	}

	counts := make(map[cell]int)
	dropped := 0
	for _, row := range table.Rows {
		if row.Group == "" || row.Sex == "" || row.Handedness == "" {
			dropped++
			continue
		}
		counts[cell{row.Group, row.Sex, row.Handedness}]++
	}

	result := make([]GroupCount, 0, len(counts))
	for c, n := range counts {
		result = append(result, GroupCount{
			Group:      c.group,
			Sex:        c.sex,
			Handedness: c.hand,
			Count:      n,
		})
	}

	// Deterministic ordering for reports and tests.
	sort.Slice(result, func(i, j int) bool {
		if result[i].Group != result[j].Group {
			return result[i].Group < result[j].Group
		}
		if result[i].Sex != result[j].Sex {
			return result[i].Sex < result[j].Sex
		}
		return result[i].Handedness < result[j].Handedness
	})

	p.logger.InfoContext(ctx, "computed group counts",
		slog.Int("cells", len(result)),
		slog.Int("dropped_incomplete", dropped))

	return result, nil
}

// DescribeColumn computes descriptive statistics for one numeric column,
// ignoring missing values.
func (p *Preprocessor) DescribeColumn(table *domain.ObservationTable, column string) (ColumnDescriptives, error) {
	values, err := table.Column(column)
	if err != nil {
		return ColumnDescriptives{}, err
	}

	observed := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			observed = append(observed, v)
		}
	}

	desc := ColumnDescriptives{Column: column, N: len(observed)}
	if len(observed) == 0 {
		desc.Mean, desc.SD, desc.Median = math.NaN(), math.NaN(), math.NaN()
		desc.Min, desc.Max = math.NaN(), math.NaN()
		return desc, nil
	}

	if desc.Mean, err = stats.Mean(observed); err != nil {
		return ColumnDescriptives{}, fmt.Errorf("mean of %s: %w", column, err)
	}
	if desc.Median, err = stats.Median(observed); err != nil {
		return ColumnDescriptives{}, fmt.Errorf("median of %s: %w", column, err)
	}
	if desc.Min, err = stats.Min(observed); err != nil {
		return ColumnDescriptives{}, fmt.Errorf("min of %s: %w", column, err)
	}
	if desc.Max, err = stats.Max(observed); err != nil {
		return ColumnDescriptives{}, fmt.Errorf("max of %s: %w", column, err)
	}
	if len(observed) > 1 {
		if desc.SD, err = stats.StandardDeviationSample(observed); err != nil {
			return ColumnDescriptives{}, fmt.Errorf("sd of %s: %w", column, err)
		}
	}

	return desc, nil
}

// Describe computes descriptives for every numeric column.
func (p *Preprocessor) Describe(ctx context.Context, table *domain.ObservationTable) ([]ColumnDescriptives, error) {
	result := make([]ColumnDescriptives, 0, len(domain.NumericColumns))
	for _, col := range domain.NumericColumns {
		desc, err := p.DescribeColumn(table, col)
		if err != nil {
			return nil, err
		}
		result = append(result, desc)
	}

	p.logger.InfoContext(ctx, "computed column descriptives",
		slog.Int("columns", len(result)))

	return result, nil
}

// ValidationError reports a violated repeated-measures invariant for one
// subject.
type ValidationError struct {
	Subject string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("subject %s %s", e.Subject, e.Reason)
}

// ValidateRepeatedMeasures checks the repeated-measures invariants: each
// subject has at most one row per timepoint, and group, sex, education and
// handedness are constant within a subject across time.
func (p *Preprocessor) ValidateRepeatedMeasures(table *domain.ObservationTable) error {
	type subjectInfo struct {
		group     domain.Group
		sex       domain.Sex
		hand      domain.Handedness
		education float64
		seenTimes map[domain.Timepoint]bool
	}

	subjects := make(map[string]*subjectInfo)
	for i := range table.Rows {
		row := &table.Rows[i]
		info, seen := subjects[row.Subject]
		if !seen {
			subjects[row.Subject] = &subjectInfo{
				group:     row.Group,
				sex:       row.Sex,
				hand:      row.Handedness,
				education: row.Education,
				seenTimes: map[domain.Timepoint]bool{row.Time: true},
			}
			continue
		}

		if info.seenTimes[row.Time] {
			return &ValidationError{row.Subject, fmt.Sprintf("has duplicate rows for timepoint %s", row.Time)}
		}
		info.seenTimes[row.Time] = true

		if info.group != row.Group {
			return &ValidationError{row.Subject, fmt.Sprintf("changes group across timepoints (%s vs %s)",
				info.group, row.Group)}
		}
		if info.sex != row.Sex {
			return &ValidationError{row.Subject, "changes sex across timepoints"}
		}
		if info.hand != row.Handedness {
			return &ValidationError{row.Subject, "changes handedness across timepoints"}
		}
		if !bothNaN(info.education, row.Education) && info.education != row.Education {
			return &ValidationError{row.Subject, "changes education across timepoints"}
		}
	}

	return nil
}

func bothNaN(a, b float64) bool {
	return math.IsNaN(a) && math.IsNaN(b)
}
