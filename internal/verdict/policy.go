package verdict

import (
	"fmt"
	"math"

	"RandomWalkLab/internal/model"
)

const (
	DefaultDecisionLag = 60
	DefaultAlpha       = 0.05
	DefaultZCritical   = 1.96
)

// Policy holds the thresholds that turn test statistics into verdicts.
// The Ljung-Box verdict reads a single designated lag; every other lag is
// reported only.
type Policy struct {
	DecisionLag int
	Alpha       float64
	ZCritical   float64
}

// DefaultPolicy returns lag 60 at 5% significance and |z| > 1.96.
func DefaultPolicy() Policy {
	return Policy{DecisionLag: DefaultDecisionLag, Alpha: DefaultAlpha, ZCritical: DefaultZCritical}
}

// Validate checks the thresholds.
func (p Policy) Validate() error {
	if p.DecisionLag <= 0 {
		return fmt.Errorf("decision lag must be positive, got %d", p.DecisionLag)
	}
	if !(p.Alpha > 0 && p.Alpha < 1) {
		return fmt.Errorf("alpha must be in (0, 1), got %v", p.Alpha)
	}
	if !(p.ZCritical > 0) {
		return fmt.Errorf("z critical value must be positive, got %v", p.ZCritical)
	}
	return nil
}

// PValueVerdict classifies a single p-value against alpha.
func (p Policy) PValueVerdict(pValue float64) model.Verdict {
	if pValue < p.Alpha {
		return model.NonRandom
	}
	return model.Random
}

// LjungBox classifies a result using the p-value at the decision lag only.
func (p Policy) LjungBox(res model.LjungBoxResult) (model.Verdict, error) {
	stat, ok := res.At(p.DecisionLag)
	if !ok {
		return model.Random, fmt.Errorf("decision lag %d not in result", p.DecisionLag)
	}
	if math.IsNaN(stat.PValue) {
		return model.Random, fmt.Errorf("p-value at lag %d is undefined", p.DecisionLag)
	}
	return p.PValueVerdict(stat.PValue), nil
}

// Runs classifies a runs test result by |z| > ZCritical. A zero-variance
// result has z = 0 and is therefore Random, even for a monotonic series.
func (p Policy) Runs(res model.RunsTestResult) model.Verdict {
	if math.Abs(res.ZScore) > p.ZCritical {
		return model.NonRandom
	}
	return model.Random
}
