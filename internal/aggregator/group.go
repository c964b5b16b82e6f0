package aggregator

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"RandomWalkLab/internal/model"
)

// Required input columns.
const (
	ColCategory = "Category"
	ColTicker   = "Ticker"
	ColDate     = "Date"
	ColClose    = "Close"
)

// RequiredColumns lists the columns every input table must carry.
var RequiredColumns = []string{ColCategory, ColTicker, ColDate, ColClose}

// ErrMissingColumns aborts a run: the input table is malformed.
var ErrMissingColumns = errors.New("input table is missing required columns")

// DuplicatePolicy decides what happens to repeated dates within one series.
type DuplicatePolicy string

const (
	// DuplicatesKeep leaves repeated dates in input order after a stable date sort.
	DuplicatesKeep DuplicatePolicy = "keep"
	// DuplicatesLast keeps only the last row seen for a date.
	DuplicatesLast DuplicatePolicy = "last"
	// DuplicatesReject skips a ticker whose series repeats a date.
	DuplicatesReject DuplicatePolicy = "reject"
)

// ValidateColumns reports every required column absent from df.
func ValidateColumns(df dataframe.DataFrame) error {
	names := df.Names()
	var missing []string
	for _, col := range RequiredColumns {
		if !slices.Contains(names, col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s (have %s)", ErrMissingColumns,
			strings.Join(missing, ", "), strings.Join(names, ", "))
	}
	return nil
}

// Grouping is the ordered (category, ticker) index of an input table.
// It is built once and read by every tester.
type Grouping struct {
	categories []string
	tickers    map[string][]string
	series     map[model.SeriesKey]model.PriceSeries
	dropped    map[model.SeriesKey]int
	duplicates map[model.SeriesKey]int
	rejected   map[model.SeriesKey]string
}

// BuildGrouping groups df by (Category, Ticker), drops rows with an unusable
// date or close, sorts each series by date and applies the duplicate policy.
// df must already have passed ValidateColumns.
func BuildGrouping(df dataframe.DataFrame, policy DuplicatePolicy) *Grouping {
	g := &Grouping{
		tickers:    make(map[string][]string),
		series:     make(map[model.SeriesKey]model.PriceSeries),
		dropped:    make(map[model.SeriesKey]int),
		duplicates: make(map[model.SeriesKey]int),
		rejected:   make(map[model.SeriesKey]string),
	}

	cats := df.Col(ColCategory).Records()
	tickers := df.Col(ColTicker).Records()
	dates := df.Col(ColDate).Records()
	closes := df.Col(ColClose).Float()

	for i := range cats {
		key := model.SeriesKey{Category: strings.TrimSpace(cats[i]), Ticker: strings.TrimSpace(tickers[i])}
		if key.Category == "" || key.Ticker == "" {
			continue
		}
		s, seen := g.series[key]
		if !seen {
			s = model.PriceSeries{Key: key}
			if _, ok := g.tickers[key.Category]; !ok {
				g.categories = append(g.categories, key.Category)
			}
			g.tickers[key.Category] = append(g.tickers[key.Category], key.Ticker)
		}

		date, err := model.ParseDate(dates[i])
		price := closes[i]
		if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
			g.dropped[key]++
			g.series[key] = s
			continue
		}
		s.Observations = append(s.Observations, model.PriceObservation{
			Date: date, Ticker: key.Ticker, Category: key.Category, Close: price,
		})
		g.series[key] = s
	}

	sort.Strings(g.categories)
	for cat := range g.tickers {
		sort.Strings(g.tickers[cat])
	}
	for key, s := range g.series {
		sort.SliceStable(s.Observations, func(i, j int) bool {
			return s.Observations[i].Date.Before(s.Observations[j].Date)
		})
		s.Observations = g.applyDuplicates(key, s.Observations, policy)
		g.series[key] = s
	}
	return g
}

func (g *Grouping) applyDuplicates(key model.SeriesKey, obs []model.PriceObservation, policy DuplicatePolicy) []model.PriceObservation {
	dups := 0
	for i := 1; i < len(obs); i++ {
		if obs[i].Date.Equal(obs[i-1].Date) {
			dups++
		}
	}
	if dups == 0 {
		return obs
	}
	g.duplicates[key] = dups

	switch policy {
	case DuplicatesReject:
		g.rejected[key] = fmt.Sprintf("%d duplicate dates", dups)
	case DuplicatesLast:
		out := obs[:0]
		for i := range obs {
			if i+1 < len(obs) && obs[i+1].Date.Equal(obs[i].Date) {
				continue
			}
			out = append(out, obs[i])
		}
		return out
	}
	return obs
}

// Categories returns the categories in sorted order.
func (g *Grouping) Categories() []string { return g.categories }

// Tickers returns the tickers of a category in sorted order.
func (g *Grouping) Tickers(category string) []string { return g.tickers[category] }

// Series returns the price series for key.
func (g *Grouping) Series(key model.SeriesKey) (model.PriceSeries, bool) {
	s, ok := g.series[key]
	return s, ok
}

// Dropped returns how many rows of key were discarded for a bad date or close.
func (g *Grouping) Dropped(key model.SeriesKey) int { return g.dropped[key] }

// Duplicates returns how many repeated dates key had before the policy applied.
func (g *Grouping) Duplicates(key model.SeriesKey) int { return g.duplicates[key] }

// Rejected returns the reason key was rejected by the duplicate policy.
func (g *Grouping) Rejected(key model.SeriesKey) (string, bool) {
	r, ok := g.rejected[key]
	return r, ok
}
