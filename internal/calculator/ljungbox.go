package calculator

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"RandomWalkLab/internal/model"
)

// DefaultLags is the lag set reported for every ticker.
var DefaultLags = []int{1, 3, 5, 7, 10, 15, 20, 30, 45, 60}

// Autocorrelation returns the biased sample autocorrelation of x for lags 0..maxLag.
// acf[k] = sum_{t>=k} (x_t-m)(x_{t-k}-m) / sum_t (x_t-m)^2.
func Autocorrelation(x []float64, maxLag int) ([]float64, error) {
	n := len(x)
	if n == 0 {
		return nil, ErrInsufficientData
	}
	if maxLag < 0 {
		return nil, ErrInvalidLag
	}
	if maxLag >= n {
		return nil, fmt.Errorf("%w: lag %d with %d values", ErrLagTooLarge, maxLag, n)
	}
	if constant(x) {
		return nil, ErrZeroVariance
	}

	dev := slices.Clone(x)
	floats.AddConst(-stat.Mean(x, nil), dev)
	denom := floats.Dot(dev, dev)
	if denom == 0 {
		return nil, ErrZeroVariance
	}

	acf := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		acf[k] = floats.Dot(dev[k:], dev[:n-k]) / denom
	}
	return acf, nil
}

// NormalizeLags returns the lags sorted ascending without duplicates.
func NormalizeLags(lags []int) ([]int, error) {
	if len(lags) == 0 {
		return nil, fmt.Errorf("%w: empty lag set", ErrInvalidLag)
	}
	out := slices.Clone(lags)
	slices.Sort(out)
	out = slices.Compact(out)
	if out[0] <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLag, out[0])
	}
	return out, nil
}

// LjungBox computes Q(k) = n(n+2) * sum_{i=1..k} acf_i^2/(n-i) for every lag k
// and its upper-tail chi-squared p-value with k degrees of freedom.
// Every lag must be smaller than the number of returns.
func LjungBox(returns model.ReturnSeries, lags []int) (model.LjungBoxResult, error) {
	lags, err := NormalizeLags(lags)
	if err != nil {
		return model.LjungBoxResult{}, err
	}
	n := len(returns)
	maxLag := lags[len(lags)-1]
	if maxLag >= n {
		return model.LjungBoxResult{}, fmt.Errorf("%w: lag %d with %d returns", ErrLagTooLarge, maxLag, n)
	}

	acf, err := Autocorrelation(returns, maxLag)
	if err != nil {
		return model.LjungBoxResult{}, err
	}

	fn := float64(n)
	scale := fn * (fn + 2)
	result := model.LjungBoxResult{N: n, Lags: make([]model.LagStat, 0, len(lags))}
	cum := 0.0
	next := 0
	for k := 1; k <= maxLag && next < len(lags); k++ {
		cum += acf[k] * acf[k] / (fn - float64(k))
		if k != lags[next] {
			continue
		}
		q := scale * cum
		result.Lags = append(result.Lags, model.LagStat{
			Lag:       k,
			Statistic: q,
			PValue:    distuv.ChiSquared{K: float64(k)}.Survival(q),
		})
		next++
	}
	return result, nil
}

func constant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}
