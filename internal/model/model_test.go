package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2024-03-01", " 2024-03-01 00:00:00", "2024-03-01T00:00:00Z"} {
		got, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), s)
	}

	got, err := ParseDate("2024-03-01 00:00:00-05:00")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Hour, got.Sub(want))

	_, err = ParseDate("03/01/2024")
	assert.Error(t, err)
}

func TestCategoryResultSet(t *testing.T) {
	set := NewCategoryResultSet()
	set.Add(Outcome{Key: SeriesKey{"Tech", "B"}, Status: StatusTested, Result: &TickerResult{Ticker: "B"}})
	set.Add(Outcome{Key: SeriesKey{"Tech", "A"}, Status: StatusTested, Result: &TickerResult{Ticker: "A"}})
	set.Add(Outcome{Key: SeriesKey{"Bonds", "T"}, Status: StatusSkipped, Reason: "short"})
	set.Add(Outcome{Key: SeriesKey{"Tech", "C"}, Status: StatusErrored, Reason: "panic"})

	assert.Equal(t, []string{"Tech"}, set.Categories())
	assert.Equal(t, []string{"Bonds", "Tech"}, set.AllCategories())
	assert.Equal(t, 2, set.Tested())
	require.Len(t, set.Results("Tech"), 2)
	assert.Equal(t, "B", set.Results("Tech")[0].Ticker)
	assert.Len(t, set.Skipped(), 2)
}

func TestLjungBoxResult_At(t *testing.T) {
	res := LjungBoxResult{N: 100, Lags: []LagStat{{Lag: 1, PValue: 0.5}, {Lag: 60, PValue: 0.01}}}
	s, ok := res.At(60)
	require.True(t, ok)
	assert.Equal(t, 0.01, s.PValue)
	_, ok = res.At(5)
	assert.False(t, ok)
}
