package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"
)

// DefaultYahooBaseURL is the Yahoo Finance chart API host.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

var errNoChartData = errors.New("yahoo: no data returned")

// YahooFetcher reads daily closes from the Yahoo Finance v8 chart endpoint.
type YahooFetcher struct {
	BaseURL string
	Client  *http.Client
	// Aliases rewrites index names to Yahoo symbols.
	Aliases map[string]string
}

// NewYahooFetcher returns a fetcher for DefaultYahooBaseURL, routed through
// proxyURL when it parses.
func NewYahooFetcher(proxyURL string) *YahooFetcher {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if p, err := url.Parse(proxyURL); proxyURL != "" && err == nil {
		tr.Proxy = http.ProxyURL(p)
	}
	return &YahooFetcher{
		BaseURL: DefaultYahooBaseURL,
		Client:  &http.Client{Timeout: 30 * time.Second, Transport: tr},
		Aliases: map[string]string{"SPX": "^GSPC", "SPX500": "^GSPC", "SP500": "^GSPC"},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// chartURL covers [start, end] inclusive; period2 is exclusive upstream.
func (f *YahooFetcher) chartURL(symbol string, start, end time.Time) string {
	if alias, ok := f.Aliases[symbol]; ok {
		symbol = alias
	}
	q := url.Values{
		"interval": {"1d"},
		"events":   {"div,splits"},
		"period1":  {strconv.FormatInt(start.Unix(), 10)},
		"period2":  {strconv.FormatInt(end.AddDate(0, 0, 1).Unix(), 10)},
	}
	return f.BaseURL + "/v8/finance/chart/" + url.PathEscape(symbol) + "?" + q.Encode()
}

// FetchDailyCloses requests daily bars in [start, end]. Adjusted closes are
// preferred when the response carries one per timestamp.
func (f *YahooFetcher) FetchDailyCloses(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.chartURL(symbol, start, end), nil)
	if err != nil {
		return nil, fmt.Errorf("build chart request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read %s: %w", symbol, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo %s: status %d: %.200s", symbol, resp.StatusCode, body)
	}
	return decodeChart(body)
}

// chartResponse keeps only what closes need. Nulls decode to nil pointers.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		// GmtOffset is the exchange's UTC offset in seconds.
		GmtOffset int64 `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// closes picks the adjusted series when it lines up with the timestamps.
func (r chartResult) closes() []*float64 {
	if adj := r.Indicators.AdjClose; len(adj) > 0 && len(adj[0].AdjClose) == len(r.Timestamp) {
		return adj[0].AdjClose
	}
	if len(r.Indicators.Quote) > 0 {
		return r.Indicators.Quote[0].Close
	}
	return nil
}

func decodeChart(body []byte) ([]Bar, error) {
	var cr chartResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if e := cr.Chart.Error; e != nil {
		return nil, fmt.Errorf("yahoo api error %s: %s", e.Code, e.Description)
	}
	if len(cr.Chart.Result) == 0 || len(cr.Chart.Result[0].Timestamp) == 0 {
		return nil, errNoChartData
	}

	res := cr.Chart.Result[0]
	closes := res.closes()
	if len(closes) != len(res.Timestamp) {
		return nil, fmt.Errorf("yahoo: %d closes for %d timestamps", len(closes), len(res.Timestamp))
	}

	bars := make([]Bar, 0, len(closes))
	for i, c := range closes {
		// Holidays and halted sessions come back as null.
		if c == nil || *c <= 0 || math.IsNaN(*c) {
			continue
		}
		// Dates are the exchange-local session day.
		local := res.Timestamp[i] + res.Meta.GmtOffset
		day := time.Unix(local, 0).UTC().Truncate(24 * time.Hour)
		bars = append(bars, Bar{Time: day, Close: *c})
	}
	slices.SortFunc(bars, func(a, b Bar) int { return a.Time.Compare(b.Time) })
	return bars, nil
}
