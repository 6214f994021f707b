// Package hypotest implements the two-group comparisons run on the
// pre-intervention acceptability score: a pooled-variance t-test and a
// Wilcoxon rank-sum test (normal approximation with tie and continuity
// corrections).
package hypotest

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"nmescli/pkg/contracts/domain"
)

// TTestResult reports the pooled two-sample t-test.
type TTestResult struct {
	Statistic float64 `json:"statistic" csv:"Statistic"`
	DF        float64 `json:"df" csv:"DF"`
	P         float64 `json:"p" csv:"P"`
	MeanA     float64 `json:"mean_a" csv:"MeanA"`
	MeanB     float64 `json:"mean_b" csv:"MeanB"`
}

// RankSumResult reports the Wilcoxon rank-sum test. W is the rank sum of
// the first sample; U is the equivalent Mann-Whitney statistic.
type RankSumResult struct {
	W float64 `json:"w" csv:"W"`
	U float64 `json:"u" csv:"U"`
	Z float64 `json:"z" csv:"Z"`
	P float64 `json:"p" csv:"P"`
}

// BaselineSamples filters the table to pre-intervention rows with a
// non-missing value in the given column and splits them by protocol arm.
func BaselineSamples(table *domain.ObservationTable, column string) (control, nmes []float64, err error) {
	for _, row := range table.FilterTime(domain.TimePre) {
		v, err := row.NumericValue(column)
		if err != nil {
			return nil, nil, err
		}
		if math.IsNaN(v) {
			continue
		}
		switch row.Group {
		case domain.GroupControl:
			control = append(control, v)
		case domain.GroupNMES:
			nmes = append(nmes, v)
		}
	}
	return control, nmes, nil
}

// TwoSampleTTest runs an equal-variance two-sample t-test.
func TwoSampleTTest(a, b []float64) (TTestResult, error) {
	na, nb := len(a), len(b)
	if na < 2 || nb < 2 {
		return TTestResult{}, fmt.Errorf("each group needs at least 2 observations (got %d and %d)", na, nb)
	}

	meanA := stat.Mean(a, nil)
	meanB := stat.Mean(b, nil)
	varA := stat.Variance(a, nil)
	varB := stat.Variance(b, nil)

	df := float64(na + nb - 2)
	pooled := (float64(na-1)*varA + float64(nb-1)*varB) / df
	if pooled <= 0 {
		return TTestResult{}, fmt.Errorf("pooled variance is zero; groups are constant")
	}

	se := math.Sqrt(pooled * (1/float64(na) + 1/float64(nb)))
	t := (meanA - meanB) / se

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.Survival(math.Abs(t))

	return TTestResult{
		Statistic: t,
		DF:        df,
		P:         p,
		MeanA:     meanA,
		MeanB:     meanB,
	}, nil
}

// WilcoxonRankSum runs the two-sided Wilcoxon rank-sum test using the
// normal approximation, with mid-ranks for ties, a tie-corrected variance
// and a 0.5 continuity correction.
func WilcoxonRankSum(a, b []float64) (RankSumResult, error) {
	na, nb := len(a), len(b)
	if na < 1 || nb < 1 {
		return RankSumResult{}, fmt.Errorf("both groups must be non-empty (got %d and %d)", na, nb)
	}

	type obs struct {
		value float64
		inA   bool
	}
	pooled := make([]obs, 0, na+nb)
	for _, v := range a {
		pooled = append(pooled, obs{v, true})
	}
	for _, v := range b {
		pooled = append(pooled, obs{v, false})
	}
	sort.Slice(pooled, func(i, j int) bool { return pooled[i].value < pooled[j].value })

	// Mid-ranks with tie bookkeeping for the variance correction.
	n := len(pooled)
	ranks := make([]float64, n)
	tieCorrection := 0.0
	for i := 0; i < n; {
		j := i
		for j < n && pooled[j].value == pooled[i].value {
			j++
		}
		midRank := float64(i+j+1) / 2 // average of ranks i+1..j
		for k := i; k < j; k++ {
			ranks[k] = midRank
		}
		tied := float64(j - i)
		tieCorrection += tied*tied*tied - tied
		i = j
	}

	w := 0.0
	for i, o := range pooled {
		if o.inA {
			w += ranks[i]
		}
	}
	u := w - float64(na*(na+1))/2

	nA, nB, nn := float64(na), float64(nb), float64(n)
	meanU := nA * nB / 2
	varU := nA * nB / 12 * (nn + 1 - tieCorrection/(nn*(nn-1)))
	if varU <= 0 {
		return RankSumResult{}, fmt.Errorf("rank variance is zero; all values tied")
	}

	// Continuity correction toward the mean.
	diff := u - meanU
	var z float64
	switch {
	case diff > 0:
		z = (diff - 0.5) / math.Sqrt(varU)
	case diff < 0:
		z = (diff + 0.5) / math.Sqrt(varU)
	default:
		z = 0
	}

	p := 2 * distuv.UnitNormal.Survival(math.Abs(z))
	if p > 1 {
		p = 1
	}

	return RankSumResult{W: w, U: u, Z: z, P: p}, nil
}
