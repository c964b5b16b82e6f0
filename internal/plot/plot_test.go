package plot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RandomWalkLab/internal/aggregator"
	"RandomWalkLab/internal/model"
)

func resultSet() *model.CategoryResultSet {
	set := model.NewCategoryResultSet()
	add := func(category, ticker string, p, z float64) {
		v := model.Random
		if p < 0.05 {
			v = model.NonRandom
		}
		set.Add(model.Outcome{
			Key:    model.SeriesKey{Category: category, Ticker: ticker},
			Status: model.StatusTested,
			Result: &model.TickerResult{
				Ticker: ticker,
				LjungBox: &model.LjungBoxResult{N: 200, Lags: []model.LagStat{
					{Lag: 1, PValue: p}, {Lag: 5, PValue: p}, {Lag: 10, PValue: p}, {Lag: 30, PValue: p}, {Lag: 60, Statistic: 70, PValue: p},
				}},
				LjungBoxVerdict: v,
				Runs:            &model.RunsTestResult{N: 200, ZScore: z},
				RunsVerdict:     v,
			},
		})
	}
	add("Random Walk", "RW001", 0.4, 0.3)
	add("Random Walk", "RW002", 0.7, -1.1)
	add("Random Walk", "RW003", 0.2, 0.9)
	add("Trend", "TR001", 0.0001, -9.5)
	add("Trend", "TR002", 0.003, -7.2)
	return set
}

func requirePNG(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(data), 8)
	assert.Equal(t, "\x89PNG", string(data[:4]))
}

func TestWriteAll(t *testing.T) {
	opts := aggregator.DefaultOptions()
	opts.Lags = []int{1, 5, 10, 30, 60}
	agg, err := aggregator.New(opts, zerolog.Nop())
	require.NoError(t, err)

	set := resultSet()
	dir := filepath.Join(t.TempDir(), "plots")
	written, err := WriteAll(dir, set, agg.Summaries(set), 60, 0.05, 1.96)
	require.NoError(t, err)
	require.Len(t, written, 3)
	for _, name := range []string{PValueFile, ZScoreFile, ProportionFile} {
		requirePNG(t, filepath.Join(dir, name))
	}
}

func TestPValueBoxPlot_NoData(t *testing.T) {
	path := filepath.Join(t.TempDir(), PValueFile)
	ok, err := PValueBoxPlot(model.NewCategoryResultSet(), 60, 0.05, path)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestZScoreBoxPlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), ZScoreFile)
	ok, err := ZScoreBoxPlot(resultSet(), 1.96, path)
	require.NoError(t, err)
	assert.True(t, ok)
	requirePNG(t, path)
}

func TestProportionBars_Empty(t *testing.T) {
	ok, err := ProportionBars(nil, filepath.Join(t.TempDir(), ProportionFile))
	require.NoError(t, err)
	assert.False(t, ok)
}
