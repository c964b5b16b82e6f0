package collector

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sort"
	"time"

	"github.com/cheggaaa/pb"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"RandomWalkLab/internal/model"
)

// DefaultMinBars is the fewest bars a fetched ticker must have to be kept.
const DefaultMinBars = 20

// Universe maps a category to its tickers.
type Universe map[string][]string

// Size returns the number of (category, ticker) pairs.
func (u Universe) Size() int {
	n := 0
	for _, tickers := range u {
		n += len(tickers)
	}
	return n
}

// Keys returns every pair in category then ticker order.
func (u Universe) Keys() []model.SeriesKey {
	cats := make([]string, 0, len(u))
	for c := range u {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	keys := make([]model.SeriesKey, 0, u.Size())
	for _, c := range cats {
		tickers := append([]string(nil), u[c]...)
		sort.Strings(tickers)
		for _, t := range tickers {
			keys = append(keys, model.SeriesKey{Category: c, Ticker: t})
		}
	}
	return keys
}

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	Bars  map[string][]Bar
	Errs  map[string]error
	Seed  uint64
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyCloses(_ context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	if err, ok := m.Errs[symbol]; ok {
		return nil, err
	}
	if bars, ok := m.Bars[symbol]; ok {
		return bars, nil
	}
	return generateMockBars(m.Price, start, end, m.Seed), nil
}

func generateMockBars(basePrice float64, start, end time.Time, seed uint64) []Bar {
	rng := rand.New(rand.NewPCG(seed, 1))
	var bars []Bar
	p := basePrice
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		p *= 1 + (rng.Float64()-0.5)*0.02
		bars = append(bars, Bar{Time: d, Close: p})
	}
	return bars
}

// FetchSkip records a ticker the collector could not keep.
type FetchSkip struct {
	Key    model.SeriesKey
	Reason string
}

// Result is the output of one collection pass.
type Result struct {
	Observations []model.PriceObservation
	Skipped      []FetchSkip
}

// Collector fetches closes for a universe, one rate-limited call per ticker.
type Collector struct {
	Fetcher      Fetcher
	MinBars      int
	ShowProgress bool
	limiter      *rate.Limiter
	logger       zerolog.Logger
}

// NewCollector creates a Collector that waits delay between provider calls.
func NewCollector(fetcher Fetcher, delay time.Duration, logger zerolog.Logger) *Collector {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Collector{
		Fetcher: fetcher,
		MinBars: DefaultMinBars,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With().Str("component", "collector").Str("provider", fetcher.Name()).Logger(),
	}
}

// Collect fetches every ticker of the universe between start and end.
// Tickers that fail or have too few bars are skipped, not fatal. Only a
// cancelled context stops the pass early.
func (c *Collector) Collect(ctx context.Context, universe Universe, start, end time.Time) (*Result, error) {
	keys := universe.Keys()
	c.logger.Info().Int("tickers", len(keys)).
		Str("start", start.Format(model.DateLayout)).
		Str("end", end.Format(model.DateLayout)).
		Msg("fetching daily closes")

	bar := pb.New(len(keys))
	bar.Output = os.Stderr
	if !c.ShowProgress {
		bar.Output = io.Discard
		bar.NotPrint = true
	}
	bar.Start()
	defer bar.Finish()

	res := &Result{}
	for _, key := range keys {
		if err := c.limiter.Wait(ctx); err != nil {
			return res, fmt.Errorf("rate limiter: %w", err)
		}
		bars, err := c.Fetcher.FetchDailyCloses(ctx, key.Ticker, start, end)
		bar.Increment()
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if err != nil {
			c.skip(res, key, fmt.Sprintf("error fetching data: %v", err))
			continue
		}
		if len(bars) < c.MinBars {
			c.skip(res, key, fmt.Sprintf("insufficient data (<%d days): %d bars", c.MinBars, len(bars)))
			continue
		}
		for _, b := range bars {
			res.Observations = append(res.Observations, model.PriceObservation{
				Date:     b.Time,
				Ticker:   key.Ticker,
				Category: key.Category,
				Close:    b.Close,
			})
		}
		c.logger.Debug().Str("category", key.Category).Str("ticker", key.Ticker).Int("bars", len(bars)).Msg("fetched")
	}

	c.logger.Info().Int("observations", len(res.Observations)).Int("skipped", len(res.Skipped)).Msg("fetch complete")
	return res, nil
}

func (c *Collector) skip(res *Result, key model.SeriesKey, reason string) {
	res.Skipped = append(res.Skipped, FetchSkip{Key: key, Reason: reason})
	c.logger.Warn().Str("category", key.Category).Str("ticker", key.Ticker).Msg(reason)
}
