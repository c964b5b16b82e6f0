package calculator

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"

	"RandomWalkLab/internal/model"
)

func gaussianReturns(seed uint64, n int) model.ReturnSeries {
	dist := distuv.Normal{Mu: 0, Sigma: 0.01, Src: rand.NewPCG(seed, seed*7919+1)}
	out := make(model.ReturnSeries, n)
	for i := range out {
		out[i] = dist.Rand()
	}
	return out
}

func TestCalculateReturns_Length(t *testing.T) {
	for _, n := range []int{2, 3, 20, 250} {
		prices := make([]float64, n)
		for i := range prices {
			prices[i] = 100 + float64(i%7)
		}
		returns, err := CalculateReturns(prices)
		require.NoError(t, err)
		assert.Len(t, returns, n-1)
	}
}

func TestCalculateReturns_Values(t *testing.T) {
	returns, err := CalculateReturns([]float64{100, 110, 99, 99})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.1, -0.1, 0}, []float64(returns), 1e-12)
}

func TestCalculateReturns_Errors(t *testing.T) {
	_, err := CalculateReturns([]float64{100})
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = CalculateReturns([]float64{100, 0, 5})
	assert.ErrorIs(t, err, ErrNonPositivePrice)

	_, err = CalculateReturns([]float64{math.NaN(), 1})
	assert.ErrorIs(t, err, ErrNonPositivePrice)
}

func TestRunsTest_AllPositive(t *testing.T) {
	for _, n := range []int{2, 5, 30} {
		returns := make(model.ReturnSeries, n)
		for i := range returns {
			returns[i] = 0.01
		}
		res := RunsTest(returns)
		assert.Equal(t, 1, res.Runs)
		assert.Equal(t, n, res.Positive)
		assert.Equal(t, 0, res.Negative)
		assert.Equal(t, 0.0, res.Variance)
		assert.Equal(t, 0.0, res.ZScore)
		assert.InDelta(t, 1.0, res.ExpectedRuns, 1e-12)
	}
}

func TestRunsTest_Alternating(t *testing.T) {
	tests := []struct {
		n        int
		positive int
		expected float64
		variance float64
		z        float64
	}{
		{21, 11, 11.476190476190476, 4.963718820861678, 4.2747145053593725},
		{20, 10, 11.0, 4.7368421052631575, 4.135214625627066},
	}
	for _, tt := range tests {
		returns := make(model.ReturnSeries, tt.n)
		for i := range returns {
			if i%2 == 0 {
				returns[i] = 0.02
			} else {
				returns[i] = -0.02
			}
		}
		res := RunsTest(returns)
		assert.Equal(t, tt.n, res.Runs, "n=%d", tt.n)
		assert.Equal(t, tt.positive, res.Positive)
		assert.InDelta(t, tt.expected, res.ExpectedRuns, 1e-9)
		assert.InDelta(t, tt.variance, res.Variance, 1e-9)
		assert.InDelta(t, tt.z, res.ZScore, 1e-9)
	}
}

func TestRunsTest_ZeroIsNegative(t *testing.T) {
	res := RunsTest(model.ReturnSeries{0, -0.01, 0, 0.01})
	assert.Equal(t, 1, res.Positive)
	assert.Equal(t, 3, res.Negative)
	assert.Equal(t, 2, res.Runs)
}

func TestRunsTest_Degenerate(t *testing.T) {
	empty := RunsTest(nil)
	assert.Equal(t, 0, empty.Runs)
	assert.Equal(t, 0.0, empty.ExpectedRuns)

	single := RunsTest(model.ReturnSeries{-0.5})
	assert.Equal(t, 1, single.Runs)
	assert.Equal(t, 0.0, single.Variance)
	assert.Equal(t, 0.0, single.ZScore)
}

func TestAutocorrelation_Reference(t *testing.T) {
	x := []float64{0.01, -0.02, 0.015, 0.03, -0.01, 0.0, 0.02, -0.025, 0.005, 0.01, -0.005, 0.012}
	acf, err := Autocorrelation(x, 2)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, acf[0], 1e-12)
	assert.InDelta(t, -0.3856575768035899, acf[1], 1e-9)
	assert.InDelta(t, -0.35795650673110113, acf[2], 1e-9)
}

func TestLjungBox_Reference(t *testing.T) {
	x := model.ReturnSeries{0.01, -0.02, 0.015, 0.03, -0.01, 0.0, 0.02, -0.025, 0.005, 0.01, -0.005, 0.012}
	res, err := LjungBox(x, []int{5, 1, 3, 2, 3})
	require.NoError(t, err)
	require.Len(t, res.Lags, 4)

	want := []model.LagStat{
		{Lag: 1, Statistic: 2.2715397072482575, PValue: 0.13176893276133791},
		{Lag: 2, Statistic: 4.42417176719529, PValue: 0.10947206421512246},
		{Lag: 3, Statistic: 10.320911446119926, PValue: 0.016026294438776536},
		{Lag: 5, Statistic: 13.89162405169943, PValue: 0.016312689063037816},
	}
	for i, w := range want {
		assert.Equal(t, w.Lag, res.Lags[i].Lag)
		assert.InDelta(t, w.Statistic, res.Lags[i].Statistic, 1e-8)
		assert.InDelta(t, w.PValue, res.Lags[i].PValue, 1e-8)
	}
}

func TestLjungBox_ChiSquaredTail(t *testing.T) {
	// 18.307 is the 95% quantile of chi-squared with 10 degrees of freedom.
	p := distuv.ChiSquared{K: 10}.Survival(18.307038053275146)
	assert.InDelta(t, 0.05, p, 1e-9)
}

func TestLjungBox_GaussianNoise(t *testing.T) {
	rejections := 0
	const trials = 40
	for seed := uint64(1); seed <= trials; seed++ {
		res, err := LjungBox(gaussianReturns(seed, 500), DefaultLags)
		require.NoError(t, err)
		lag60, ok := res.At(60)
		require.True(t, ok)
		if lag60.PValue < 0.05 {
			rejections++
		}
	}
	// Expected rejection rate under the null is 5%.
	assert.Less(t, rejections, trials/4)
}

func TestLjungBox_SineWave(t *testing.T) {
	returns := make(model.ReturnSeries, 300)
	for i := range returns {
		returns[i] = 0.01 * math.Sin(2*math.Pi*float64(i)/25)
	}
	res, err := LjungBox(returns, DefaultLags)
	require.NoError(t, err)
	lag60, ok := res.At(60)
	require.True(t, ok)
	assert.Less(t, lag60.PValue, 0.05)
	assert.Len(t, res.Lags, len(DefaultLags))
}

func TestLjungBox_Errors(t *testing.T) {
	_, err := LjungBox(gaussianReturns(3, 60), DefaultLags)
	assert.ErrorIs(t, err, ErrLagTooLarge)

	flat := make(model.ReturnSeries, 100)
	_, err = LjungBox(flat, DefaultLags)
	assert.ErrorIs(t, err, ErrZeroVariance)

	_, err = LjungBox(gaussianReturns(3, 100), []int{0, 5})
	assert.ErrorIs(t, err, ErrInvalidLag)

	_, err = LjungBox(gaussianReturns(3, 100), nil)
	assert.ErrorIs(t, err, ErrInvalidLag)
}
