// Package diagnostics runs the post-fit checking battery over a fitted
// mixed model: residual summary, normality, heteroscedasticity,
// collinearity and outlier flags. Everything here is read-only inspection
// of the fit; the model is never mutated.
package diagnostics

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"nmescli/internal/mixedmodel"
)

// ResidualSummary describes the marginal residual distribution.
type ResidualSummary struct {
	N        int     `json:"n" csv:"N"`
	Mean     float64 `json:"mean" csv:"Mean"`
	SD       float64 `json:"sd" csv:"SD"`
	Skewness float64 `json:"skewness" csv:"Skewness"`
	Kurtosis float64 `json:"kurtosis" csv:"Kurtosis"` // excess kurtosis
}

// NormalityTest is the Jarque-Bera test on residuals.
type NormalityTest struct {
	Statistic float64 `json:"statistic" csv:"Statistic"`
	DF        int     `json:"df" csv:"DF"`
	P         float64 `json:"p" csv:"P"`
}

// HeteroscedasticityTest is a Breusch-Pagan style LM test regressing
// squared residuals on fitted values.
type HeteroscedasticityTest struct {
	Statistic float64 `json:"statistic" csv:"Statistic"`
	DF        int     `json:"df" csv:"DF"`
	P         float64 `json:"p" csv:"P"`
}

// VIF is the variance inflation factor of one non-intercept fixed effect.
type VIF struct {
	Term  string  `json:"term" csv:"Term"`
	Value float64 `json:"value" csv:"Value"`
}

// OutlierFlag marks one design row whose standardized residual exceeds the
// threshold. TableRow indexes the original observation table.
type OutlierFlag struct {
	TableRow     int     `json:"table_row" csv:"TableRow"`
	Subject      string  `json:"subject" csv:"Subject"`
	Residual     float64 `json:"residual" csv:"Residual"`
	Standardized float64 `json:"standardized" csv:"Standardized"`
}

// Report is the full diagnostics battery for one fitted model.
type Report struct {
	Outcome            string                 `json:"outcome"`
	Residuals          ResidualSummary        `json:"residuals"`
	Normality          NormalityTest          `json:"normality"`
	Heteroscedasticity HeteroscedasticityTest `json:"heteroscedasticity"`
	VIFs               []VIF                  `json:"vifs"`
	Outliers           []OutlierFlag          `json:"outliers"`
}

// Run computes the full battery for a fitted model. outlierThreshold is the
// absolute standardized-residual cutoff (2.5 in the default configuration).
func Run(r *mixedmodel.Result, outlierThreshold float64, logger *slog.Logger) (*Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if outlierThreshold <= 0 {
		return nil, fmt.Errorf("outlier threshold must be positive: %f", outlierThreshold)
	}

	report := &Report{Outcome: r.Design.Spec.Outcome}

	report.Residuals = summarizeResiduals(r.Residuals)
	report.Normality = jarqueBera(r.Residuals)
	report.Heteroscedasticity = breuschPagan(r.Residuals, r.Fitted)

	vifs, err := varianceInflation(r.Design)
	if err != nil {
		return nil, err
	}
	report.VIFs = vifs

	report.Outliers = flagOutliers(r, outlierThreshold)

	logger.Info("ran model diagnostics",
		slog.String("outcome", report.Outcome),
		slog.Float64("normality_p", report.Normality.P),
		slog.Float64("heteroscedasticity_p", report.Heteroscedasticity.P),
		slog.Int("outliers", len(report.Outliers)))

	return report, nil
}

func summarizeResiduals(resid []float64) ResidualSummary {
	return ResidualSummary{
		N:        len(resid),
		Mean:     stat.Mean(resid, nil),
		SD:       stat.StdDev(resid, nil),
		Skewness: sampleSkewness(resid),
		Kurtosis: sampleExcessKurtosis(resid),
	}
}

// jarqueBera tests residual normality via third and fourth moments:
// JB = n/6 * (S^2 + K^2/4), chi-squared with 2 df under the null.
func jarqueBera(resid []float64) NormalityTest {
	n := float64(len(resid))
	s := sampleSkewness(resid)
	k := sampleExcessKurtosis(resid)
	jb := n / 6 * (s*s + k*k/4)

	chi2 := distuv.ChiSquared{K: 2}
	return NormalityTest{
		Statistic: jb,
		DF:        2,
		P:         chi2.Survival(jb),
	}
}

// breuschPagan regresses squared residuals on fitted values and tests
// LM = n*R^2 against chi-squared with 1 df.
func breuschPagan(resid, fitted []float64) HeteroscedasticityTest {
	n := len(resid)
	sq := make([]float64, n)
	for i, r := range resid {
		sq[i] = r * r
	}

	rho := stat.Correlation(fitted, sq, nil)
	r2 := rho * rho
	if math.IsNaN(r2) {
		r2 = 0
	}
	lm := float64(n) * r2

	chi2 := distuv.ChiSquared{K: 1}
	return HeteroscedasticityTest{
		Statistic: lm,
		DF:        1,
		P:         chi2.Survival(lm),
	}
}

// varianceInflation computes the VIF per non-intercept fixed effect by
// regressing each design column on the remaining columns.
func varianceInflation(d *mixedmodel.Design) ([]VIF, error) {
	n, p := d.X.Dims()

	var vifs []VIF
	for j := 1; j < p; j++ {
		// Auxiliary design: all columns except j.
		aux := mat.NewDense(n, p-1, nil)
		target := make([]float64, n)
		for i := 0; i < n; i++ {
			target[i] = d.X.At(i, j)
			col := 0
			for l := 0; l < p; l++ {
				if l == j {
					continue
				}
				aux.Set(i, col, d.X.At(i, l))
				col++
			}
		}

		r2, err := olsRSquared(aux, target)
		if err != nil {
			return nil, fmt.Errorf("VIF for %s: %w", d.Terms[j], err)
		}

		value := math.Inf(1)
		if r2 < 1 {
			value = 1 / (1 - r2)
		}
		vifs = append(vifs, VIF{Term: d.Terms[j], Value: value})
	}

	return vifs, nil
}

// olsRSquared fits y ~ X by least squares and returns the coefficient of
// determination.
func olsRSquared(x *mat.Dense, y []float64) (float64, error) {
	n, p := x.Dims()

	var xtx mat.Dense
	xtx.Mul(x.T(), x)

	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil {
		return 0, fmt.Errorf("auxiliary regression is singular: %w", err)
	}

	yVec := mat.NewVecDense(n, y)
	var xty mat.VecDense
	xty.MulVec(x.T(), yVec)

	var beta mat.VecDense
	beta.MulVec(&inv, &xty)

	mean := stat.Mean(y, nil)
	ssTot, ssRes := 0.0, 0.0
	for i := 0; i < n; i++ {
		pred := 0.0
		for j := 0; j < p; j++ {
			pred += x.At(i, j) * beta.AtVec(j)
		}
		ssRes += (y[i] - pred) * (y[i] - pred)
		ssTot += (y[i] - mean) * (y[i] - mean)
	}

	if ssTot == 0 {
		return 0, nil
	}
	return 1 - ssRes/ssTot, nil
}

func flagOutliers(r *mixedmodel.Result, threshold float64) []OutlierFlag {
	sd := stat.StdDev(r.Residuals, nil)
	if sd == 0 || math.IsNaN(sd) {
		return nil
	}

	var flags []OutlierFlag
	for i, res := range r.Residuals {
		std := res / sd
		if math.Abs(std) > threshold {
			flags = append(flags, OutlierFlag{
				TableRow:     r.Design.TableRows[i],
				Subject:      r.Design.Subjects[i],
				Residual:     res,
				Standardized: std,
			})
		}
	}
	return flags
}

// sampleSkewness computes the population-moment skewness used by the
// Jarque-Bera statistic.
func sampleSkewness(x []float64) float64 {
	n := float64(len(x))
	if n == 0 {
		return math.NaN()
	}
	mean := stat.Mean(x, nil)
	m2, m3 := 0.0, 0.0
	for _, v := range x {
		d := v - mean
		m2 += d * d
		m3 += d * d * d
	}
	m2 /= n
	m3 /= n
	if m2 == 0 {
		return 0
	}
	return m3 / math.Pow(m2, 1.5)
}

// sampleExcessKurtosis computes the population-moment excess kurtosis used
// by the Jarque-Bera statistic.
func sampleExcessKurtosis(x []float64) float64 {
	n := float64(len(x))
	if n == 0 {
		return math.NaN()
	}
	mean := stat.Mean(x, nil)
	m2, m4 := 0.0, 0.0
	for _, v := range x {
		d := v - mean
		m2 += d * d
		m4 += d * d * d * d
	}
	m2 /= n
	m4 /= n
	if m2 == 0 {
		return 0
	}
	return m4/(m2*m2) - 3
}
