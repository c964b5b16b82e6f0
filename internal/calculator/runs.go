package calculator

import (
	"math"

	"RandomWalkLab/internal/model"
)

// Signs maps each return to true when strictly positive. A zero return counts as negative.
func Signs(returns model.ReturnSeries) []bool {
	signs := make([]bool, len(returns))
	for i, r := range returns {
		signs[i] = r > 0
	}
	return signs
}

// CountRuns returns 1 plus the number of adjacent sign changes, or 0 for an empty sequence.
func CountRuns(signs []bool) int {
	if len(signs) == 0 {
		return 0
	}
	runs := 1
	for i := 1; i < len(signs); i++ {
		if signs[i] != signs[i-1] {
			runs++
		}
	}
	return runs
}

// RunsTest performs the Wald-Wolfowitz sign-runs test.
// A zero variance (all signs equal, or n < 2) yields z = 0.
func RunsTest(returns model.ReturnSeries) model.RunsTestResult {
	signs := Signs(returns)
	n := len(signs)
	n1 := 0
	for _, s := range signs {
		if s {
			n1++
		}
	}
	n2 := n - n1

	res := model.RunsTestResult{
		N:        n,
		Positive: n1,
		Negative: n2,
		Runs:     CountRuns(signs),
	}

	fn, f1, f2 := float64(n), float64(n1), float64(n2)
	if n > 0 {
		res.ExpectedRuns = 2*f1*f2/fn + 1
	}
	if n > 1 {
		prod := 2 * f1 * f2
		res.Variance = prod * (prod - f1 - f2) / (fn * fn * (fn - 1))
	}
	if res.Variance > 0 {
		res.ZScore = (float64(res.Runs) - res.ExpectedRuns) / math.Sqrt(res.Variance)
	}
	return res
}
