package verdict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RandomWalkLab/internal/model"
)

func lagResult(pByLag map[int]float64) model.LjungBoxResult {
	res := model.LjungBoxResult{N: 200}
	for _, lag := range []int{1, 3, 5, 7, 10, 15, 20, 30, 45, 60} {
		if p, ok := pByLag[lag]; ok {
			res.Lags = append(res.Lags, model.LagStat{Lag: lag, Statistic: 1, PValue: p})
		}
	}
	return res
}

func TestLjungBox_OnlyDecisionLagCounts(t *testing.T) {
	p := DefaultPolicy()

	v, err := p.LjungBox(lagResult(map[int]float64{1: 0.0001, 10: 0.001, 60: 0.2}))
	require.NoError(t, err)
	assert.Equal(t, model.Random, v)

	v, err = p.LjungBox(lagResult(map[int]float64{1: 0.9, 10: 0.8, 60: 0.01}))
	require.NoError(t, err)
	assert.Equal(t, model.NonRandom, v)
}

func TestLjungBox_Boundary(t *testing.T) {
	p := DefaultPolicy()
	v, err := p.LjungBox(lagResult(map[int]float64{60: 0.05}))
	require.NoError(t, err)
	assert.Equal(t, model.Random, v, "p == alpha is not a rejection")
}

func TestLjungBox_MissingLag(t *testing.T) {
	_, err := DefaultPolicy().LjungBox(lagResult(map[int]float64{1: 0.01}))
	assert.Error(t, err)
}

func TestLjungBox_SwappedLag(t *testing.T) {
	p := Policy{DecisionLag: 10, Alpha: 0.05, ZCritical: 1.96}
	v, err := p.LjungBox(lagResult(map[int]float64{10: 0.01, 60: 0.9}))
	require.NoError(t, err)
	assert.Equal(t, model.NonRandom, v)
}

func TestRuns_AllBoundaries(t *testing.T) {
	tests := []struct {
		z    float64
		want model.Verdict
	}{
		{0, model.Random},
		{1.5, model.Random},
		{1.96, model.Random},
		{-1.96, model.Random},
		{1.9601, model.NonRandom},
		{-2.5, model.NonRandom},
		{4.27, model.NonRandom},
	}
	p := DefaultPolicy()
	for _, tt := range tests {
		got := p.Runs(model.RunsTestResult{ZScore: tt.z})
		assert.Equal(t, tt.want, got, "z=%.4f", tt.z)
	}
}

func TestRuns_ZeroVarianceIsRandom(t *testing.T) {
	res := model.RunsTestResult{N: 30, Positive: 30, Runs: 1, ExpectedRuns: 1}
	assert.Equal(t, model.Random, DefaultPolicy().Runs(res))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())
	assert.Error(t, Policy{DecisionLag: 0, Alpha: 0.05, ZCritical: 1.96}.Validate())
	assert.Error(t, Policy{DecisionLag: 60, Alpha: 1.5, ZCritical: 1.96}.Validate())
	assert.Error(t, Policy{DecisionLag: 60, Alpha: 0.05, ZCritical: 0}.Validate())
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "Random", model.Random.String())
	assert.Equal(t, "Non-random", model.NonRandom.String())
}
