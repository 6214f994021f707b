package mixedmodel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"nmescli/pkg/contracts/domain"
)

// Spec describes one model to fit: an outcome column, its covariate set and
// the random grouping factor (always the subject identifier in this study).
// The fixed-effect structure is always intercept + time + group +
// time:group + covariates.
type Spec struct {
	Outcome    string   `json:"outcome"`
	Covariates []string `json:"covariates"`
}

// MobilityCovariates is the covariate set for the mobility outcomes.
var MobilityCovariates = []string{"Age", "Sex", "BMI"}

// CognitiveCovariates is the covariate set for the cognitive outcomes.
var CognitiveCovariates = []string{"Age", "Sex", "Education"}

// Design is the numeric realization of a Spec over the observation table:
// the fixed-effect design matrix, response vector and subject grouping,
// restricted to complete cases.
type Design struct {
	Spec  Spec
	Terms []string // one per design-matrix column, intercept first

	X *mat.Dense
	Y []float64

	// Subjects[i] is the grouping key of row i of X; Groups holds the
	// row indices of each subject in first-seen order.
	Subjects []string
	Groups   [][]int

	// TableRows[i] is the index of row i in the source observation table,
	// kept so outlier flags can name original rows.
	TableRows []int
}

// NewDesign builds the fixed-effect design for the given spec. Rows with a
// missing outcome, covariate, or factor level are dropped (complete-case).
func NewDesign(table *domain.ObservationTable, spec Spec) (*Design, error) {
	if spec.Outcome == "" {
		return nil, fmt.Errorf("spec has no outcome column")
	}

	terms := []string{"(Intercept)", "TimePost", "GroupNMES", "TimePost:GroupNMES"}
	for _, cov := range spec.Covariates {
		terms = append(terms, covariateTerm(cov))
	}
	p := len(terms)

	var (
		rows      []float64
		y         []float64
		subjects  []string
		tableRows []int
	)

	for i := range table.Rows {
		obs := &table.Rows[i]

		outcome, err := obs.NumericValue(spec.Outcome)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(outcome) {
			continue
		}

		row := make([]float64, 0, p)
		timePost := float64(obs.Time.Order())
		groupNMES := 0.0
		if obs.Group == domain.GroupNMES {
			groupNMES = 1.0
		}
		row = append(row, 1.0, timePost, groupNMES, timePost*groupNMES)

		complete := true
		for _, cov := range spec.Covariates {
			v, err := covariateValue(obs, cov)
			if err != nil {
				return nil, err
			}
			if math.IsNaN(v) {
				complete = false
				break
			}
			row = append(row, v)
		}
		if !complete {
			continue
		}

		rows = append(rows, row...)
		y = append(y, outcome)
		subjects = append(subjects, obs.Subject)
		tableRows = append(tableRows, i)
	}

	n := len(y)
	if n < p+2 {
		return nil, fmt.Errorf("outcome %s: %d complete cases is too few for %d fixed effects",
			spec.Outcome, n, p)
	}

	d := &Design{
		Spec:      spec,
		Terms:     terms,
		X:         mat.NewDense(n, p, rows),
		Y:         y,
		Subjects:  subjects,
		TableRows: tableRows,
	}
	d.Groups = groupRows(subjects)

	return d, nil
}

// covariateTerm maps a covariate column to its design-matrix term name.
// Sex enters as a male dummy, everything else as-is.
func covariateTerm(cov string) string {
	if cov == "Sex" {
		return "SexM"
	}
	return cov
}

// covariateValue extracts a covariate as a numeric design column value.
func covariateValue(obs *domain.Observation, cov string) (float64, error) {
	if cov == "Sex" {
		switch obs.Sex {
		case domain.SexMale:
			return 1.0, nil
		case domain.SexFemale:
			return 0.0, nil
		}
		return math.NaN(), nil
	}
	return obs.NumericValue(cov)
}

// groupRows collects row indices per subject in first-seen order.
func groupRows(subjects []string) [][]int {
	index := make(map[string]int)
	var groups [][]int
	for i, s := range subjects {
		gi, seen := index[s]
		if !seen {
			gi = len(groups)
			index[s] = gi
			groups = append(groups, nil)
		}
		groups[gi] = append(groups[gi], i)
	}
	return groups
}

// NumObs returns the number of complete-case rows in the design.
func (d *Design) NumObs() int { return len(d.Y) }

// NumSubjects returns the number of distinct grouping levels.
func (d *Design) NumSubjects() int { return len(d.Groups) }

// NumTerms returns the number of fixed-effect columns.
func (d *Design) NumTerms() int { return len(d.Terms) }

// ColumnMeans returns the mean of every design column, used to hold
// covariates at their sample averages when building reference grids.
func (d *Design) ColumnMeans() []float64 {
	n, p := d.X.Dims()
	means := make([]float64, p)
	for j := 0; j < p; j++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += d.X.At(i, j)
		}
		means[j] = sum / float64(n)
	}
	return means
}
