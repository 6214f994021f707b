package mixedmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nmescli/pkg/contracts/domain"
)

func TestEstimatedMarginalMeans_Grid(t *testing.T) {
	r := fitSim(t, simOpts{
		Subjects:    30,
		TimeEffect:  10,
		Interaction: 20,
		SubjectSD:   5,
		NoiseSD:     2,
		Seed:        41,
	})

	mm := EstimatedMarginalMeans(r)
	require.Len(t, mm.Cells, 4)
	require.Len(t, mm.Comparisons, 2)

	// Grid order is CONTROL/pre, CONTROL/post, NMES/pre, NMES/post.
	assert.Equal(t, domain.GroupControl, mm.Cells[0].Group)
	assert.Equal(t, domain.TimePre, mm.Cells[0].Time)
	assert.Equal(t, domain.GroupNMES, mm.Cells[3].Group)
	assert.Equal(t, domain.TimePost, mm.Cells[3].Time)

	for _, cell := range mm.Cells {
		assert.Greater(t, cell.StdErr, 0.0)
	}
}

func TestEstimatedMarginalMeans_ContrastsMatchCoefficients(t *testing.T) {
	r := fitSim(t, simOpts{
		Subjects:    30,
		TimeEffect:  10,
		Interaction: 20,
		SubjectSD:   5,
		NoiseSD:     2,
		Seed:        41,
	})

	mm := EstimatedMarginalMeans(r)

	timeC, err := r.Coefficient("TimePost")
	require.NoError(t, err)
	interC, err := r.Coefficient("TimePost:GroupNMES")
	require.NoError(t, err)

	// In the control arm the Post - Pre contrast is the TimePost effect.
	control := mm.Comparisons[0]
	assert.Equal(t, domain.GroupControl, control.Group)
	assert.Equal(t, "Post - Pre", control.Contrast)
	assert.InDelta(t, timeC.Estimate, control.Estimate, 1e-9)
	assert.InDelta(t, timeC.StdErr, control.StdErr, 1e-9)

	// In the NMES arm it is TimePost + the interaction.
	nmes := mm.Comparisons[1]
	assert.Equal(t, domain.GroupNMES, nmes.Group)
	assert.InDelta(t, timeC.Estimate+interC.Estimate, nmes.Estimate, 1e-9)
	assert.Less(t, nmes.P, 0.01, "a 30-point within-arm change must be detected")
}

func TestEstimatedMarginalMeans_CellDifferences(t *testing.T) {
	r := fitSim(t, simOpts{
		Subjects:    30,
		TimeEffect:  10,
		Interaction: 20,
		SubjectSD:   5,
		NoiseSD:     2,
		Seed:        43,
	})

	mm := EstimatedMarginalMeans(r)

	// Cell estimates are consistent with the within-group contrasts.
	assert.InDelta(t, mm.Cells[1].Estimate-mm.Cells[0].Estimate, mm.Comparisons[0].Estimate, 1e-9)
	assert.InDelta(t, mm.Cells[3].Estimate-mm.Cells[2].Estimate, mm.Comparisons[1].Estimate, 1e-9)
}
