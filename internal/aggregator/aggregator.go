package aggregator

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/rs/zerolog"

	"RandomWalkLab/internal/calculator"
	"RandomWalkLab/internal/model"
	"RandomWalkLab/internal/verdict"
)

// Test names a randomness test the aggregator can run.
type Test string

const (
	TestLjungBox Test = "ljung_box"
	TestRuns     Test = "runs"
)

// DefaultMinObservations is the minimum price history a ticker needs to be tested.
const DefaultMinObservations = 20

// DefaultSummaryLags is the reduced lag subset used for per-category summaries.
var DefaultSummaryLags = []int{1, 5, 10, 30, 60}

// Statistic functions, replaced in tests.
var (
	ljungBox = calculator.LjungBox
	runsTest = calculator.RunsTest
)

// Options configures one aggregation run.
type Options struct {
	Lags            []int
	SummaryLags     []int
	Policy          verdict.Policy
	MinObservations int
	// TickerLimit is "all" or a positive integer; anything else means "all".
	TickerLimit    string
	Tests          []Test
	DuplicateDates DuplicatePolicy
}

// DefaultOptions runs both tests over the standard lag set.
func DefaultOptions() Options {
	return Options{
		Lags:            slices.Clone(calculator.DefaultLags),
		SummaryLags:     slices.Clone(DefaultSummaryLags),
		Policy:          verdict.DefaultPolicy(),
		MinObservations: DefaultMinObservations,
		TickerLimit:     "all",
		Tests:           []Test{TestLjungBox, TestRuns},
		DuplicateDates:  DuplicatesKeep,
	}
}

// Aggregator groups an input table by category and ticker, runs the selected
// tests for every ticker and collects the results per category.
type Aggregator struct {
	opts     Options
	logger   zerolog.Logger
	ljungBox bool
	runs     bool
}

// New validates opts and returns an Aggregator.
func New(opts Options, logger zerolog.Logger) (*Aggregator, error) {
	lags, err := calculator.NormalizeLags(opts.Lags)
	if err != nil {
		return nil, fmt.Errorf("lags: %w", err)
	}
	opts.Lags = lags
	if err := opts.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	if opts.MinObservations < 2 {
		return nil, fmt.Errorf("min observations must be at least 2, got %d", opts.MinObservations)
	}
	switch opts.DuplicateDates {
	case "":
		opts.DuplicateDates = DuplicatesKeep
	case DuplicatesKeep, DuplicatesLast, DuplicatesReject:
	default:
		return nil, fmt.Errorf("unknown duplicate date policy %q", opts.DuplicateDates)
	}

	a := &Aggregator{opts: opts, logger: logger}
	for _, t := range opts.Tests {
		switch t {
		case TestLjungBox:
			a.ljungBox = true
		case TestRuns:
			a.runs = true
		default:
			return nil, fmt.Errorf("unknown test %q", t)
		}
	}
	if !a.ljungBox && !a.runs {
		return nil, errors.New("no tests selected")
	}
	if a.ljungBox && !slices.Contains(opts.Lags, opts.Policy.DecisionLag) {
		return nil, fmt.Errorf("decision lag %d is not in lag set %v", opts.Policy.DecisionLag, opts.Lags)
	}
	for _, lag := range opts.SummaryLags {
		if a.ljungBox && !slices.Contains(opts.Lags, lag) {
			return nil, fmt.Errorf("summary lag %d is not in lag set %v", lag, opts.Lags)
		}
	}
	return a, nil
}

// Options returns the normalized options in use.
func (a *Aggregator) Options() Options { return a.opts }

// Selected reports whether test t runs.
func (a *Aggregator) Selected(t Test) bool {
	switch t {
	case TestLjungBox:
		return a.ljungBox
	case TestRuns:
		return a.runs
	}
	return false
}

// Run validates the columns of df, then tests every eligible ticker.
// A missing column is the only error; per-ticker problems are logged and the
// ticker is left out of the result set.
func (a *Aggregator) Run(df dataframe.DataFrame) (*model.CategoryResultSet, error) {
	if df.Err != nil {
		return nil, fmt.Errorf("input table: %w", df.Err)
	}
	if err := ValidateColumns(df); err != nil {
		a.logger.Error().Err(err).Msg("input validation failed")
		return nil, err
	}

	groups := BuildGrouping(df, a.opts.DuplicateDates)
	limit := a.tickerLimit()
	set := model.NewCategoryResultSet()

	for _, category := range groups.Categories() {
		a.logger.Info().Msgf("=== %s Analysis ===", category)
		tickers := groups.Tickers(category)
		if limit > 0 && limit < len(tickers) {
			tickers = tickers[:limit]
		}

		tested := 0
		for _, ticker := range tickers {
			key := model.SeriesKey{Category: category, Ticker: ticker}
			a.logInputHygiene(groups, key)
			outcome := a.processTicker(groups, key)
			set.Add(outcome)
			if outcome.Status == model.StatusTested {
				tested++
				continue
			}
			a.logger.Warn().
				Str("category", category).
				Str("ticker", ticker).
				Str("status", string(outcome.Status)).
				Msg(outcome.Reason)
		}
		if tested == 0 {
			a.logger.Warn().Msgf("No valid data for tickers in category %s", category)
		}
	}

	a.logger.Info().
		Int("tested", set.Tested()).
		Int("skipped", len(set.Skipped())).
		Msg("randomness tests completed")
	return set, nil
}

// ParseTickerLimit reads "all" (or empty) as 0, meaning no limit, and a
// positive integer as itself. ok is false for anything else.
func ParseTickerLimit(s string) (limit int, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func (a *Aggregator) tickerLimit() int {
	limit, ok := ParseTickerLimit(a.opts.TickerLimit)
	if !ok {
		a.logger.Warn().Msgf("Invalid ticker limit value: %q. Using all tickers.", a.opts.TickerLimit)
	}
	return limit
}

func (a *Aggregator) logInputHygiene(groups *Grouping, key model.SeriesKey) {
	if n := groups.Dropped(key); n > 0 {
		a.logger.Warn().Str("category", key.Category).Str("ticker", key.Ticker).
			Msgf("dropped %d rows with missing, unparsable or non-positive values", n)
	}
	if n := groups.Duplicates(key); n > 0 {
		a.logger.Debug().Str("category", key.Category).Str("ticker", key.Ticker).
			Str("policy", string(a.opts.DuplicateDates)).
			Msgf("%d duplicate dates", n)
	}
}

// processTicker never panics; any failure becomes a tagged outcome.
func (a *Aggregator) processTicker(groups *Grouping, key model.SeriesKey) (out model.Outcome) {
	out.Key = key
	defer func() {
		if r := recover(); r != nil {
			out = model.Outcome{Key: key, Status: model.StatusErrored, Reason: fmt.Sprintf("error processing data: %v", r)}
		}
	}()

	if reason, rejected := groups.Rejected(key); rejected {
		return skipped(key, "rejected: "+reason)
	}
	series, ok := groups.Series(key)
	if !ok {
		return skipped(key, "no data")
	}
	if series.Len() < a.opts.MinObservations {
		return skipped(key, fmt.Sprintf("insufficient data (<%d days): %d observations", a.opts.MinObservations, series.Len()))
	}

	returns, err := calculator.SeriesReturns(series)
	if err != nil {
		return errored(key, fmt.Errorf("returns: %w", err))
	}

	result := &model.TickerResult{Ticker: key.Ticker, Observations: series.Len()}
	if a.ljungBox {
		lb, err := ljungBox(returns, a.opts.Lags)
		if errors.Is(err, calculator.ErrZeroVariance) || errors.Is(err, calculator.ErrLagTooLarge) {
			return skipped(key, fmt.Sprintf("ljung-box undefined: %v", err))
		}
		if err != nil {
			return errored(key, fmt.Errorf("ljung-box: %w", err))
		}
		v, err := a.opts.Policy.LjungBox(lb)
		if err != nil {
			return skipped(key, fmt.Sprintf("ljung-box verdict: %v", err))
		}
		result.LjungBox = &lb
		result.LjungBoxVerdict = v
	}
	if a.runs {
		rt := runsTest(returns)
		result.Runs = &rt
		result.RunsVerdict = a.opts.Policy.Runs(rt)
	}
	return model.Outcome{Key: key, Status: model.StatusTested, Result: result}
}

func skipped(key model.SeriesKey, reason string) model.Outcome {
	return model.Outcome{Key: key, Status: model.StatusSkipped, Reason: reason}
}

func errored(key model.SeriesKey, err error) model.Outcome {
	return model.Outcome{Key: key, Status: model.StatusErrored, Reason: err.Error()}
}
