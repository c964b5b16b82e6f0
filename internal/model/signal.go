package model

// Verdict is the binary randomness classification of a ticker.
type Verdict int

const (
	Random Verdict = iota
	NonRandom
)

// String returns the label used in tables and exports.
func (v Verdict) String() string {
	if v == NonRandom {
		return "Non-random"
	}
	return "Random"
}

// LagStat is the Ljung-Box statistic and p-value at one lag.
type LagStat struct {
	Lag       int
	Statistic float64
	PValue    float64
}

// LjungBoxResult holds one LagStat per tested lag, ordered by lag ascending.
type LjungBoxResult struct {
	N    int
	Lags []LagStat
}

// At returns the statistic for the given lag.
func (r LjungBoxResult) At(lag int) (LagStat, bool) {
	for _, s := range r.Lags {
		if s.Lag == lag {
			return s, true
		}
	}
	return LagStat{}, false
}

// RunsTestResult is the outcome of the sign-runs test on one return series.
type RunsTestResult struct {
	N            int
	Positive     int
	Negative     int
	Runs         int
	ExpectedRuns float64
	Variance     float64
	ZScore       float64
}
