package mixedmodel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nmescli/pkg/contracts/domain"
)

func designTable() *domain.ObservationTable {
	table := &domain.ObservationTable{}
	for i := 0; i < 10; i++ {
		group := domain.GroupControl
		if i%2 == 1 {
			group = domain.GroupNMES
		}
		sex := domain.SexFemale
		if i%3 == 0 {
			sex = domain.SexMale
		}
		subject := string(rune('A' + i))
		for _, tp := range []domain.Timepoint{domain.TimePre, domain.TimePost} {
			table.Rows = append(table.Rows, domain.Observation{
				Subject:  subject,
				Group:    group,
				Time:     tp,
				Age:     60 + float64(i),
				Sex:     sex,
				BMI:     22 + 0.5*float64(i),
				Tinetti: 20 + float64(i) + float64(tp.Order()),
			})
		}
	}
	return table
}

func TestNewDesign_Terms(t *testing.T) {
	d, err := NewDesign(designTable(), Spec{Outcome: "Tinetti", Covariates: MobilityCovariates})
	require.NoError(t, err)

	assert.Equal(t, []string{"(Intercept)", "TimePost", "GroupNMES", "TimePost:GroupNMES", "Age", "SexM", "BMI"}, d.Terms)
	assert.Equal(t, 20, d.NumObs())
	assert.Equal(t, 10, d.NumSubjects())
	assert.Equal(t, 7, d.NumTerms())
}

func TestNewDesign_FactorCoding(t *testing.T) {
	d, err := NewDesign(designTable(), Spec{Outcome: "Tinetti", Covariates: []string{"Sex"}})
	require.NoError(t, err)

	// Row 0: subject A, CONTROL, Pre, male (i=0 divisible by 3).
	assert.Equal(t, 1.0, d.X.At(0, 0), "intercept")
	assert.Equal(t, 0.0, d.X.At(0, 1), "pre codes 0")
	assert.Equal(t, 0.0, d.X.At(0, 2), "control codes 0")
	assert.Equal(t, 0.0, d.X.At(0, 3), "interaction")
	assert.Equal(t, 1.0, d.X.At(0, 4), "male dummy")

	// Row 3: subject B, NMES, Post, female.
	assert.Equal(t, 1.0, d.X.At(3, 1), "post codes 1")
	assert.Equal(t, 1.0, d.X.At(3, 2), "nmes codes 1")
	assert.Equal(t, 1.0, d.X.At(3, 3), "post x nmes")
	assert.Equal(t, 0.0, d.X.At(3, 4), "female dummy")
}

func TestNewDesign_CompleteCaseFiltering(t *testing.T) {
	table := designTable()
	table.Rows[0].Tinetti = math.NaN() // missing outcome
	table.Rows[3].BMI = math.NaN()     // missing covariate

	d, err := NewDesign(table, Spec{Outcome: "Tinetti", Covariates: MobilityCovariates})
	require.NoError(t, err)

	assert.Equal(t, 18, d.NumObs(), "rows with a missing outcome or covariate are dropped")

	// Original table positions survive for the kept rows.
	for _, idx := range d.TableRows {
		assert.NotEqual(t, 0, idx)
		assert.NotEqual(t, 3, idx)
	}
}

func TestNewDesign_MissingSexDropsRow(t *testing.T) {
	table := designTable()
	table.Rows[4].Sex = ""
	d, err := NewDesign(table, Spec{Outcome: "Tinetti", Covariates: MobilityCovariates})
	require.NoError(t, err)
	assert.Equal(t, 19, d.NumObs())
}

func TestNewDesign_Errors(t *testing.T) {
	t.Run("no outcome", func(t *testing.T) {
		_, err := NewDesign(designTable(), Spec{})
		assert.Error(t, err)
	})

	t.Run("unknown outcome column", func(t *testing.T) {
		_, err := NewDesign(designTable(), Spec{Outcome: "GripStrength"})
		assert.Error(t, err)
	})

	t.Run("too few complete cases", func(t *testing.T) {
		table := &domain.ObservationTable{Rows: designTable().Rows[:4]}
		_, err := NewDesign(table, Spec{Outcome: "Tinetti", Covariates: MobilityCovariates})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too few")
	})
}

func TestDesign_Grouping(t *testing.T) {
	d, err := NewDesign(designTable(), Spec{Outcome: "Tinetti"})
	require.NoError(t, err)

	require.Len(t, d.Groups, 10)
	for _, rows := range d.Groups {
		require.Len(t, rows, 2, "each subject contributes pre and post")
		assert.Equal(t, d.Subjects[rows[0]], d.Subjects[rows[1]])
	}
}

func TestDesign_ColumnMeans(t *testing.T) {
	d, err := NewDesign(designTable(), Spec{Outcome: "Tinetti", Covariates: []string{"Age"}})
	require.NoError(t, err)

	means := d.ColumnMeans()
	require.Len(t, means, 5)
	assert.InDelta(t, 1.0, means[0], 1e-12, "intercept column mean")
	assert.InDelta(t, 0.5, means[1], 1e-12, "balanced pre/post")
	assert.InDelta(t, 0.5, means[2], 1e-12, "balanced arms")
	assert.InDelta(t, 64.5, means[4], 1e-12, "mean age")
}
