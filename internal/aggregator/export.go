package aggregator

import (
	"fmt"
	"strconv"

	"RandomWalkLab/internal/model"
)

// LjungBoxHeader returns Category, Ticker, LB_Stat_Lag_*, P_Value_Lag_*, Randomness.
func (a *Aggregator) LjungBoxHeader() []string {
	header := []string{ColCategory, ColTicker}
	for _, lag := range a.opts.Lags {
		header = append(header, fmt.Sprintf("LB_Stat_Lag_%d", lag))
	}
	for _, lag := range a.opts.Lags {
		header = append(header, fmt.Sprintf("P_Value_Lag_%d", lag))
	}
	return append(header, "Randomness")
}

// LjungBoxRows flattens the Ljung-Box results of set, values ordered as LjungBoxHeader.
func (a *Aggregator) LjungBoxRows(set *model.CategoryResultSet) [][]string {
	var rows [][]string
	for _, category := range set.Categories() {
		for _, r := range set.Results(category) {
			if r.LjungBox == nil {
				continue
			}
			row := []string{category, r.Ticker}
			stats := make([]string, 0, len(a.opts.Lags))
			pvals := make([]string, 0, len(a.opts.Lags))
			for _, lag := range a.opts.Lags {
				s, ok := r.LjungBox.At(lag)
				if !ok {
					stats = append(stats, "")
					pvals = append(pvals, "")
					continue
				}
				stats = append(stats, formatFloat(s.Statistic))
				pvals = append(pvals, formatFloat(s.PValue))
			}
			row = append(row, stats...)
			row = append(row, pvals...)
			rows = append(rows, append(row, r.LjungBoxVerdict.String()))
		}
	}
	return rows
}

// RunsHeader returns the runs test export columns.
func (a *Aggregator) RunsHeader() []string {
	return []string{ColCategory, ColTicker, "Runs", "Expected Runs", "Z-score", "Randomness"}
}

// RunsRows flattens the runs test results of set.
func (a *Aggregator) RunsRows(set *model.CategoryResultSet) [][]string {
	var rows [][]string
	for _, category := range set.Categories() {
		for _, r := range set.Results(category) {
			if r.Runs == nil {
				continue
			}
			rows = append(rows, []string{
				category,
				r.Ticker,
				strconv.Itoa(r.Runs.Runs),
				formatFloat(r.Runs.ExpectedRuns),
				formatFloat(r.Runs.ZScore),
				r.RunsVerdict.String(),
			})
		}
	}
	return rows
}

// VerdictCounts tallies verdicts.
type VerdictCounts struct {
	Random    int
	NonRandom int
}

func (c *VerdictCounts) add(v model.Verdict) {
	if v == model.NonRandom {
		c.NonRandom++
	} else {
		c.Random++
	}
}

// Total returns the number of classified tickers.
func (c VerdictCounts) Total() int { return c.Random + c.NonRandom }

// NonRandomShare returns NonRandom/Total, or 0 when nothing was classified.
func (c VerdictCounts) NonRandomShare() float64 {
	if c.Total() == 0 {
		return 0
	}
	return float64(c.NonRandom) / float64(c.Total())
}

// LagSummary counts p < alpha at one lag.
type LagSummary struct {
	Lag int
	VerdictCounts
}

// CategorySummary aggregates the verdicts of one category.
// LjungBox and Runs are nil when that test was not run.
type CategorySummary struct {
	Category     string
	Tickers      int
	LjungBox     *VerdictCounts
	LjungBoxLags []LagSummary
	Runs         *VerdictCounts
}

// Summaries builds one CategorySummary per category of set, in sorted order.
func (a *Aggregator) Summaries(set *model.CategoryResultSet) []CategorySummary {
	var out []CategorySummary
	for _, category := range set.Categories() {
		results := set.Results(category)
		sum := CategorySummary{Category: category, Tickers: len(results)}
		if a.ljungBox {
			sum.LjungBox = &VerdictCounts{}
			for _, lag := range a.opts.SummaryLags {
				sum.LjungBoxLags = append(sum.LjungBoxLags, LagSummary{Lag: lag})
			}
		}
		if a.runs {
			sum.Runs = &VerdictCounts{}
		}
		for _, r := range results {
			if r.LjungBox != nil && sum.LjungBox != nil {
				sum.LjungBox.add(r.LjungBoxVerdict)
				for i := range sum.LjungBoxLags {
					if s, ok := r.LjungBox.At(sum.LjungBoxLags[i].Lag); ok {
						sum.LjungBoxLags[i].add(a.opts.Policy.PValueVerdict(s.PValue))
					}
				}
			}
			if r.Runs != nil && sum.Runs != nil {
				sum.Runs.add(r.RunsVerdict)
			}
		}
		out = append(out, sum)
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
