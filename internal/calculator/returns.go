package calculator

import (
	"fmt"
	"math"

	"RandomWalkLab/internal/model"
)

// CalculateReturns computes simple percentage returns (p[t]-p[t-1])/p[t-1].
// The result has one element fewer than prices.
func CalculateReturns(prices []float64) (model.ReturnSeries, error) {
	if len(prices) < 2 {
		return nil, fmt.Errorf("%w: %d prices, need at least 2", ErrInsufficientData, len(prices))
	}
	returns := make(model.ReturnSeries, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev := prices[i-1]
		if !(prev > 0) || math.IsInf(prev, 0) {
			return nil, fmt.Errorf("%w at index %d: %v", ErrNonPositivePrice, i-1, prev)
		}
		returns[i-1] = (prices[i] - prev) / prev
	}
	return returns, nil
}

// SeriesReturns builds the ReturnSeries of a PriceSeries.
func SeriesReturns(s model.PriceSeries) (model.ReturnSeries, error) {
	return CalculateReturns(s.Closes())
}
