package mixedmodel

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Coefficient is one row of the fixed-effect table.
type Coefficient struct {
	Term     string  `json:"term" csv:"Term"`
	Estimate float64 `json:"estimate" csv:"Estimate"`
	StdErr   float64 `json:"std_err" csv:"StdErr"`
	Z        float64 `json:"z" csv:"Z"`
	P        float64 `json:"p" csv:"P"`
}

// ConfidenceInterval is a Wald interval for one fixed-effect term.
type ConfidenceInterval struct {
	Term  string  `json:"term" csv:"Term"`
	Level float64 `json:"level" csv:"Level"`
	Lower float64 `json:"lower" csv:"Lower"`
	Upper float64 `json:"upper" csv:"Upper"`
}

// Result is a fitted linear mixed model with a random subject intercept,
// estimated by maximum likelihood so models with different fixed effects
// remain comparable.
type Result struct {
	Design *Design

	Coefficients []Coefficient

	// Variance components: residual variance and the between-subject
	// intercept variance; Theta is their ratio (subject/residual).
	SigmaResid2   float64
	SigmaSubject2 float64
	Theta         float64

	LogLik float64
	AIC    float64
	BIC    float64

	// Fitted values and marginal residuals (y - X*beta) in design-row order.
	Fitted    []float64
	Residuals []float64

	covBeta *mat.Dense
	beta    []float64
}

// golden-section bounds for the profiled variance-ratio search, on the
// log scale. Theta outside this range is indistinguishable from the
// boundary at pilot-study sample sizes.
const (
	thetaMin = 1e-6
	thetaMax = 1e4
)

// Fit estimates the mixed model for the given design. The likelihood is
// profiled: for a fixed variance ratio theta the GLS estimates of the fixed
// effects and the residual variance are closed-form (Woodbury identity per
// subject), leaving a one-dimensional deviance minimized by grid bracketing
// plus golden-section refinement.
func Fit(d *Design, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Bracket the optimum on a log-spaced grid, including the boundary
	// theta = 0 (no subject effect).
	const gridSize = 61
	bestTheta := 0.0
	bestDev, _, err := profileDeviance(d, 0)
	if err != nil {
		return nil, err
	}

	logStep := (math.Log(thetaMax) - math.Log(thetaMin)) / float64(gridSize-1)
	gridIdx := -1
	for i := 0; i < gridSize; i++ {
		theta := math.Exp(math.Log(thetaMin) + float64(i)*logStep)
		dev, _, err := profileDeviance(d, theta)
		if err != nil {
			return nil, err
		}
		if dev < bestDev {
			bestDev = dev
			bestTheta = theta
			gridIdx = i
		}
	}

	// Refine interior optima with golden-section search on log(theta).
	if gridIdx > 0 && gridIdx < gridSize-1 {
		lo := math.Log(thetaMin) + float64(gridIdx-1)*logStep
		hi := math.Log(thetaMin) + float64(gridIdx+1)*logStep
		bestTheta = goldenSection(func(u float64) float64 {
			dev, _, err := profileDeviance(d, math.Exp(u))
			if err != nil {
				return math.Inf(1)
			}
			return dev
		}, lo, hi)
	}

	dev, fit, err := profileDeviance(d, bestTheta)
	if err != nil {
		return nil, err
	}

	n := d.NumObs()
	p := d.NumTerms()
	k := float64(p + 2) // fixed effects + two variance components
	logLik := -dev / 2

	res := &Result{
		Design:        d,
		SigmaResid2:   fit.sigma2,
		SigmaSubject2: bestTheta * fit.sigma2,
		Theta:         bestTheta,
		LogLik:        logLik,
		AIC:           dev + 2*k,
		BIC:           dev + k*math.Log(float64(n)),
		beta:          fit.beta,
		covBeta:       fit.covBeta,
	}

	res.Coefficients = make([]Coefficient, p)
	for j, term := range d.Terms {
		est := fit.beta[j]
		se := math.Sqrt(fit.covBeta.At(j, j))
		z := est / se
		res.Coefficients[j] = Coefficient{
			Term:     term,
			Estimate: est,
			StdErr:   se,
			Z:        z,
			P:        2 * distuv.UnitNormal.Survival(math.Abs(z)),
		}
	}

	res.Fitted = make([]float64, n)
	res.Residuals = make([]float64, n)
	for i := 0; i < n; i++ {
		pred := 0.0
		for j := 0; j < p; j++ {
			pred += d.X.At(i, j) * fit.beta[j]
		}
		res.Fitted[i] = pred
		res.Residuals[i] = d.Y[i] - pred
	}

	logger.Info("fitted mixed model",
		slog.String("outcome", d.Spec.Outcome),
		slog.Int("observations", n),
		slog.Int("subjects", d.NumSubjects()),
		slog.Float64("theta", bestTheta),
		slog.Float64("log_lik", logLik))

	return res, nil
}

// ConfInt returns Wald confidence intervals for every fixed effect at the
// given level. The intervals always come from this fit, never from a model
// fitted earlier.
func (r *Result) ConfInt(level float64) ([]ConfidenceInterval, error) {
	if level <= 0 || level >= 1 {
		return nil, fmt.Errorf("confidence level must be in (0, 1): %f", level)
	}
	crit := distuv.UnitNormal.Quantile(0.5 + level/2)

	intervals := make([]ConfidenceInterval, len(r.Coefficients))
	for j, c := range r.Coefficients {
		intervals[j] = ConfidenceInterval{
			Term:  c.Term,
			Level: level,
			Lower: c.Estimate - crit*c.StdErr,
			Upper: c.Estimate + crit*c.StdErr,
		}
	}
	return intervals, nil
}

// Coefficient returns the fitted coefficient for a term.
func (r *Result) Coefficient(term string) (Coefficient, error) {
	for _, c := range r.Coefficients {
		if c.Term == term {
			return c, nil
		}
	}
	return Coefficient{}, fmt.Errorf("no such fixed-effect term: %s", term)
}

// profileFit holds the closed-form GLS quantities at a fixed theta.
type profileFit struct {
	beta    []float64
	covBeta *mat.Dense
	sigma2  float64
}

// profileDeviance computes -2 log L profiled over beta and sigma2 at the
// given variance ratio. Per subject i with n_i rows,
// V_i = I + theta*J and V_i^-1 = I - (theta/(1+n_i*theta))*J, so the
// weighted cross-products reduce to ordinary sums minus a per-subject
// correction on the row totals.
func profileDeviance(d *Design, theta float64) (float64, *profileFit, error) {
	n := d.NumObs()
	p := d.NumTerms()

	xtwx := mat.NewDense(p, p, nil)
	xtwy := make([]float64, p)
	logDet := 0.0

	sx := make([]float64, p)
	for _, rows := range d.Groups {
		ni := float64(len(rows))
		ci := theta / (1 + ni*theta)
		logDet += math.Log(1 + ni*theta)

		for j := range sx {
			sx[j] = 0
		}
		sy := 0.0
		for _, i := range rows {
			for j := 0; j < p; j++ {
				xij := d.X.At(i, j)
				sx[j] += xij
				xtwy[j] += xij * d.Y[i]
				for l := j; l < p; l++ {
					xtwx.Set(j, l, xtwx.At(j, l)+xij*d.X.At(i, l))
				}
			}
			sy += d.Y[i]
		}

		for j := 0; j < p; j++ {
			xtwy[j] -= ci * sx[j] * sy
			for l := j; l < p; l++ {
				xtwx.Set(j, l, xtwx.At(j, l)-ci*sx[j]*sx[l])
			}
		}
	}

	// Mirror the upper triangle.
	for j := 0; j < p; j++ {
		for l := j + 1; l < p; l++ {
			xtwx.Set(l, j, xtwx.At(j, l))
		}
	}

	var inv mat.Dense
	if err := inv.Inverse(xtwx); err != nil {
		return 0, nil, fmt.Errorf("design matrix is singular for outcome %s: %w", d.Spec.Outcome, err)
	}

	beta := make([]float64, p)
	for j := 0; j < p; j++ {
		for l := 0; l < p; l++ {
			beta[j] += inv.At(j, l) * xtwy[l]
		}
	}

	// Weighted residual sum of squares via the same per-subject correction.
	rss := 0.0
	for _, rows := range d.Groups {
		ni := float64(len(rows))
		ci := theta / (1 + ni*theta)
		sr := 0.0
		for _, i := range rows {
			r := d.Y[i]
			for j := 0; j < p; j++ {
				r -= d.X.At(i, j) * beta[j]
			}
			rss += r * r
			sr += r
		}
		rss -= ci * sr * sr
	}

	sigma2 := rss / float64(n)
	if sigma2 <= 0 {
		return 0, nil, fmt.Errorf("degenerate residual variance for outcome %s", d.Spec.Outcome)
	}

	dev := float64(n)*math.Log(2*math.Pi*sigma2) + logDet + float64(n)

	covBeta := mat.NewDense(p, p, nil)
	covBeta.Scale(sigma2, &inv)

	return dev, &profileFit{beta: beta, covBeta: covBeta, sigma2: sigma2}, nil
}

// goldenSection minimizes f on [lo, hi] and returns exp of the minimizer
// (the search runs on the log scale).
func goldenSection(f func(float64) float64, lo, hi float64) float64 {
	const (
		phi  = 0.6180339887498949
		iter = 80
	)
	a, b := lo, hi
	c := b - phi*(b-a)
	d := a + phi*(b-a)
	fc, fd := f(c), f(d)
	for i := 0; i < iter && math.Abs(b-a) > 1e-10; i++ {
		if fc < fd {
			b, d, fd = d, c, fc
			c = b - phi*(b-a)
			fc = f(c)
		} else {
			a, c, fc = c, d, fd
			d = a + phi*(b-a)
			fd = f(d)
		}
	}
	return math.Exp((a + b) / 2)
}
