// Package simulate generates synthetic daily price paths for control categories.
package simulate

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat/distuv"

	"RandomWalkLab/internal/model"
)

// DefaultCategory is the category of random-walk tickers.
const DefaultCategory = "Random Walk"

// Trend path shape.
const (
	trendDrift  = 0.002
	trendAmp    = 0.01
	trendPeriod = 50.0
)

// Params controls one generation pass.
type Params struct {
	Category      string
	TrendCategory string // empty disables trend tickers
	Tickers       int
	Days          int
	Start         time.Time
	StartPrice    float64
	Mu            float64
	Sigma         float64
	Seed          uint64
	Decimals      int32
}

// DefaultParams returns a 10-ticker, 500-day random walk.
func DefaultParams() Params {
	return Params{
		Category:   DefaultCategory,
		Tickers:    10,
		Days:       500,
		Start:      time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC),
		StartPrice: 100,
		Mu:         0,
		Sigma:      0.01,
		Seed:       42,
		Decimals:   4,
	}
}

// Validate checks the parameters are usable.
func (p Params) Validate() error {
	var errs []error
	if p.Category == "" {
		errs = append(errs, errors.New("category is required"))
	}
	if p.Tickers < 1 {
		errs = append(errs, fmt.Errorf("tickers must be positive, got %d", p.Tickers))
	}
	if p.Days < 2 {
		errs = append(errs, fmt.Errorf("days must be at least 2, got %d", p.Days))
	}
	if p.StartPrice <= 0 {
		errs = append(errs, fmt.Errorf("start price must be positive, got %g", p.StartPrice))
	}
	if p.Sigma <= 0 {
		errs = append(errs, fmt.Errorf("sigma must be positive, got %g", p.Sigma))
	}
	if p.Decimals < 0 {
		errs = append(errs, fmt.Errorf("decimals must not be negative, got %d", p.Decimals))
	}
	return errors.Join(errs...)
}

// BusinessDays returns n weekdays starting at start (or the next weekday).
func BusinessDays(start time.Time, n int) []time.Time {
	days := make([]time.Time, 0, n)
	for d := start; len(days) < n; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		days = append(days, d)
	}
	return days
}

// Generate builds the observations for every synthetic ticker. Output is
// deterministic for a given Seed.
func Generate(p Params) ([]model.PriceObservation, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	days := BusinessDays(p.Start, p.Days)
	src := rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15)

	var out []model.PriceObservation
	walk := distuv.Normal{Mu: p.Mu, Sigma: p.Sigma, Src: src}
	for i := 1; i <= p.Tickers; i++ {
		ticker := fmt.Sprintf("RW%03d", i)
		out = appendPath(out, p, days, p.Category, ticker, func(int) float64 { return walk.Rand() })
	}

	if p.TrendCategory != "" {
		noise := distuv.Normal{Mu: 0, Sigma: p.Sigma / 20, Src: src}
		for i := 1; i <= p.Tickers; i++ {
			ticker := fmt.Sprintf("TR%03d", i)
			phase := float64(i) * trendPeriod / float64(p.Tickers)
			out = appendPath(out, p, days, p.TrendCategory, ticker, func(t int) float64 {
				return trendDrift + trendAmp*math.Sin(2*math.Pi*(float64(t)+phase)/trendPeriod) + noise.Rand()
			})
		}
	}
	return out, nil
}

func appendPath(out []model.PriceObservation, p Params, days []time.Time, category, ticker string, ret func(t int) float64) []model.PriceObservation {
	price := p.StartPrice
	for t, d := range days {
		if t > 0 {
			price *= math.Exp(ret(t))
		}
		out = append(out, model.PriceObservation{
			Date:     d,
			Ticker:   ticker,
			Category: category,
			Close:    decimal.NewFromFloat(price).Round(p.Decimals).InexactFloat64(),
		})
	}
	return out
}
