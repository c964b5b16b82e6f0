package model

import "sort"

// OutcomeStatus tags the result of processing one ticker.
type OutcomeStatus string

const (
	StatusTested  OutcomeStatus = "TESTED"
	StatusSkipped OutcomeStatus = "SKIPPED"
	StatusErrored OutcomeStatus = "ERRORED"
)

// TickerResult is the per-ticker record kept in a CategoryResultSet.
// LjungBox and Runs are nil when that test was not selected for the run.
type TickerResult struct {
	Ticker          string
	Observations    int
	LjungBox        *LjungBoxResult
	LjungBoxVerdict Verdict
	Runs            *RunsTestResult
	RunsVerdict     Verdict
}

// Outcome is the tagged result of processing one ticker.
type Outcome struct {
	Key    SeriesKey
	Status OutcomeStatus
	Reason string
	Result *TickerResult
}

// CategoryResultSet maps categories to their tested tickers in processing order.
type CategoryResultSet struct {
	results map[string][]TickerResult
	skipped []Outcome
}

// NewCategoryResultSet returns an empty result set.
func NewCategoryResultSet() *CategoryResultSet {
	return &CategoryResultSet{results: make(map[string][]TickerResult)}
}

// Add folds one outcome into the set.
func (s *CategoryResultSet) Add(o Outcome) {
	if o.Status == StatusTested && o.Result != nil {
		s.results[o.Key.Category] = append(s.results[o.Key.Category], *o.Result)
		return
	}
	s.skipped = append(s.skipped, o)
}

// Categories returns the categories holding at least one result, sorted.
func (s *CategoryResultSet) Categories() []string {
	cats := make([]string, 0, len(s.results))
	for c := range s.results {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// AllCategories returns every category that produced an outcome, including
// those whose tickers were all skipped, sorted.
func (s *CategoryResultSet) AllCategories() []string {
	seen := make(map[string]bool, len(s.results))
	cats := make([]string, 0, len(s.results))
	for c := range s.results {
		seen[c] = true
		cats = append(cats, c)
	}
	for _, o := range s.skipped {
		if !seen[o.Key.Category] {
			seen[o.Key.Category] = true
			cats = append(cats, o.Key.Category)
		}
	}
	sort.Strings(cats)
	return cats
}

// Results returns the tested tickers of a category.
func (s *CategoryResultSet) Results(category string) []TickerResult {
	return s.results[category]
}

// Skipped returns the skipped and errored outcomes in processing order.
func (s *CategoryResultSet) Skipped() []Outcome {
	return s.skipped
}

// Tested counts the tested tickers across all categories.
func (s *CategoryResultSet) Tested() int {
	n := 0
	for _, r := range s.results {
		n += len(r)
	}
	return n
}
