package dataset

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nmescli/pkg/contracts/domain"
)

func sampleTable() *domain.ObservationTable {
	nan := math.NaN()
	return &domain.ObservationTable{Rows: []domain.Observation{
		{Subject: "S01", Group: domain.GroupControl, Time: domain.TimePre,
			Sex: domain.SexFemale, Handedness: domain.HandRight,
			Age: 68, Education: 12, BMI: 26.1, SixMWT: 395, Tinetti: 24, SRT: nan},
		{Subject: "S01", Group: domain.GroupControl, Time: domain.TimePost,
			Sex: domain.SexFemale, Handedness: domain.HandRight,
			Age: 68, Education: 12, BMI: 26.1, SixMWT: 401, Tinetti: 25, SRT: nan},
		{Subject: "S02", Group: domain.GroupNMES, Time: domain.TimePre,
			Sex: domain.SexMale, Handedness: domain.HandLeft,
			Age: 72, Education: 16, BMI: nan, SixMWT: nan, Tinetti: 22, SRT: nan},
		{Subject: "S02", Group: domain.GroupNMES, Time: domain.TimePost,
			Sex: domain.SexMale, Handedness: domain.HandLeft,
			Age: 72, Education: 16, BMI: nan, SixMWT: 410, Tinetti: 23, SRT: nan},
	}}
}

func TestMissingnessReport(t *testing.T) {
	pre := NewPreprocessor(nil)
	report, err := pre.MissingnessReport(context.Background(), sampleTable())
	require.NoError(t, err)
	require.Len(t, report, len(domain.CategoricalColumns)+len(domain.NumericColumns))

	byColumn := make(map[string]ColumnMissingness)
	for _, m := range report {
		byColumn[m.Column] = m
	}

	assert.Equal(t, 0, byColumn["Subject"].MissingCount)
	assert.Equal(t, 2, byColumn["BMI"].MissingCount)
	assert.InDelta(t, 50.0, byColumn["BMI"].MissingPct, 1e-9)
	assert.Equal(t, 1, byColumn["SixMWT"].MissingCount)
	assert.InDelta(t, 25.0, byColumn["SixMWT"].MissingPct, 1e-9)

	// Percentages stay within [0, 100] and totals match the table.
	for _, m := range report {
		assert.GreaterOrEqual(t, m.MissingPct, 0.0, m.Column)
		assert.LessOrEqual(t, m.MissingPct, 100.0, m.Column)
		assert.Equal(t, 4, m.TotalRows, m.Column)
	}
}

func TestMissingnessReport_EmptyTable(t *testing.T) {
	pre := NewPreprocessor(nil)
	report, err := pre.MissingnessReport(context.Background(), &domain.ObservationTable{})
	require.NoError(t, err)
	for _, m := range report {
		assert.Equal(t, 0.0, m.MissingPct, m.Column)
	}
}

func TestGroupCounts(t *testing.T) {
	pre := NewPreprocessor(nil)
	counts, err := pre.GroupCounts(context.Background(), sampleTable())
	require.NoError(t, err)
	require.Len(t, counts, 2)

	// Sorted by group, then sex, then handedness.
	assert.Equal(t, domain.GroupControl, counts[0].Group)
	assert.Equal(t, 2, counts[0].Count)
	assert.Equal(t, domain.GroupNMES, counts[1].Group)
	assert.Equal(t, 2, counts[1].Count)

	total := 0
	for _, c := range counts {
		total += c.Count
	}
	assert.Equal(t, 4, total, "cell counts must sum to the complete rows")
}

func TestGroupCounts_DropsIncompleteRows(t *testing.T) {
	table := sampleTable()
	table.Rows = append(table.Rows, domain.Observation{
		Subject: "S03", Group: domain.GroupNMES, Time: domain.TimePre,
		// Sex and handedness missing.
	})

	pre := NewPreprocessor(nil)
	counts, err := pre.GroupCounts(context.Background(), table)
	require.NoError(t, err)

	total := 0
	for _, c := range counts {
		total += c.Count
	}
	assert.Equal(t, 4, total, "incomplete row should be dropped, not counted")
}

func TestDescribeColumn(t *testing.T) {
	pre := NewPreprocessor(nil)
	desc, err := pre.DescribeColumn(sampleTable(), "Tinetti")
	require.NoError(t, err)

	assert.Equal(t, 4, desc.N)
	assert.InDelta(t, 23.5, desc.Mean, 1e-9)
	assert.InDelta(t, 23.5, desc.Median, 1e-9)
	assert.InDelta(t, 22.0, desc.Min, 1e-9)
	assert.InDelta(t, 25.0, desc.Max, 1e-9)
	assert.InDelta(t, 1.2909944487, desc.SD, 1e-6)
}

func TestDescribeColumn_IgnoresMissing(t *testing.T) {
	pre := NewPreprocessor(nil)
	desc, err := pre.DescribeColumn(sampleTable(), "SixMWT")
	require.NoError(t, err)

	assert.Equal(t, 3, desc.N, "NaN cells excluded from N")
	assert.InDelta(t, 402.0, desc.Mean, 1e-9)
}

func TestDescribeColumn_AllMissing(t *testing.T) {
	pre := NewPreprocessor(nil)
	desc, err := pre.DescribeColumn(sampleTable(), "SRT")
	require.NoError(t, err)

	assert.Equal(t, 0, desc.N)
	assert.True(t, math.IsNaN(desc.Mean))
	assert.True(t, math.IsNaN(desc.Median))
}

func TestDescribe_CoversNumericRegistry(t *testing.T) {
	pre := NewPreprocessor(nil)
	result, err := pre.Describe(context.Background(), sampleTable())
	require.NoError(t, err)
	require.Len(t, result, len(domain.NumericColumns))
	for i, col := range domain.NumericColumns {
		assert.Equal(t, col, result[i].Column)
	}
}

func TestValidateRepeatedMeasures(t *testing.T) {
	pre := NewPreprocessor(nil)

	t.Run("well-formed table passes", func(t *testing.T) {
		assert.NoError(t, pre.ValidateRepeatedMeasures(sampleTable()))
	})

	t.Run("duplicate timepoint", func(t *testing.T) {
		table := sampleTable()
		table.Rows = append(table.Rows, domain.Observation{
			Subject: "S01", Group: domain.GroupControl, Time: domain.TimePre,
			Sex: domain.SexFemale, Handedness: domain.HandRight, Education: 12,
		})
		err := pre.ValidateRepeatedMeasures(table)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate rows")

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "S01", vErr.Subject)
	})

	t.Run("group changes across time", func(t *testing.T) {
		table := sampleTable()
		table.Rows[1].Group = domain.GroupNMES
		err := pre.ValidateRepeatedMeasures(table)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "changes group")
	})

	t.Run("education changes across time", func(t *testing.T) {
		table := sampleTable()
		table.Rows[3].Education = 18
		err := pre.ValidateRepeatedMeasures(table)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "changes education")
	})

	t.Run("missing education on both rows is tolerated", func(t *testing.T) {
		table := sampleTable()
		table.Rows[2].Education = math.NaN()
		table.Rows[3].Education = math.NaN()
		assert.NoError(t, pre.ValidateRepeatedMeasures(table))
	})
}
