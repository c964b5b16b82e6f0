package recorder

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RandomWalkLab/internal/model"
)

func sampleRun() *RunRecord {
	set := model.NewCategoryResultSet()
	set.Add(model.Outcome{
		Key:    model.SeriesKey{Category: "Tech", Ticker: "AAPL"},
		Status: model.StatusTested,
		Result: &model.TickerResult{
			Ticker:       "AAPL",
			Observations: 250,
			LjungBox: &model.LjungBoxResult{N: 249, Lags: []model.LagStat{
				{Lag: 1, Statistic: 0.5, PValue: 0.48},
				{Lag: 60, Statistic: 55.1, PValue: 0.66},
			}},
			LjungBoxVerdict: model.Random,
			Runs:            &model.RunsTestResult{N: 249, Positive: 130, Negative: 119, Runs: 124, ExpectedRuns: 125.2, Variance: 61.7, ZScore: -0.15},
			RunsVerdict:     model.Random,
		},
	})
	set.Add(model.Outcome{Key: model.SeriesKey{Category: "Tech", Ticker: "NEW"}, Status: model.StatusSkipped, Reason: "insufficient data (<20 days): 12 observations"})

	info := NewRunInfo()
	info.Inputs = []string{"a.csv", "b.csv"}
	info.DecisionLag = 60
	info.Alpha = 0.05
	info.ZCritical = 1.96
	info.Tests = []string{"ljung_box", "runs"}
	return &RunRecord{Info: info, Results: set}
}

func openTemp(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func count(t *testing.T, r *SQLiteRecorder, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, r.db.QueryRow(query, args...).Scan(&n))
	return n
}

func TestNewSQLiteRecorder_UsesWAL(t *testing.T) {
	r := openTemp(t)
	var mode string
	require.NoError(t, r.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestSQLiteRecorder_RecordRun(t *testing.T) {
	r := openTemp(t)
	run := sampleRun()
	require.NoError(t, r.RecordRun(run))

	assert.Equal(t, 1, count(t, r, `SELECT COUNT(*) FROM runs WHERE id = ?`, run.Info.ID))
	assert.Equal(t, 2, count(t, r, `SELECT COUNT(*) FROM ljung_box_results WHERE run_id = ?`, run.Info.ID))
	assert.Equal(t, 1, count(t, r, `SELECT COUNT(*) FROM runs_results WHERE run_id = ?`, run.Info.ID))
	assert.Equal(t, 1, count(t, r, `SELECT COUNT(*) FROM skipped_tickers WHERE run_id = ?`, run.Info.ID))

	var inputs, tests string
	var tested, skipped int
	require.NoError(t, r.db.QueryRow(`SELECT inputs, tests, tested, skipped FROM runs WHERE id = ?`, run.Info.ID).
		Scan(&inputs, &tests, &tested, &skipped))
	assert.Equal(t, "a.csv,b.csv", inputs)
	assert.Equal(t, "ljung_box,runs", tests)
	assert.Equal(t, 1, tested)
	assert.Equal(t, 1, skipped)

	var p float64
	var verdict string
	require.NoError(t, r.db.QueryRow(`SELECT p_value, verdict FROM ljung_box_results WHERE run_id = ? AND lag = 60`, run.Info.ID).
		Scan(&p, &verdict))
	assert.Equal(t, 0.66, p)
	assert.Equal(t, "Random", verdict)
}

func TestSQLiteRecorder_DuplicateRunRollsBack(t *testing.T) {
	r := openTemp(t)
	run := sampleRun()
	require.NoError(t, r.RecordRun(run))
	assert.Error(t, r.RecordRun(run))
	assert.Equal(t, 2, count(t, r, `SELECT COUNT(*) FROM ljung_box_results`))
}

func TestSQLiteRecorder_NilRun(t *testing.T) {
	r := openTemp(t)
	assert.Error(t, r.RecordRun(nil))
}

func TestNewRunInfo_UniqueIDs(t *testing.T) {
	a, b := NewRunInfo(), NewRunInfo()
	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, a.ID, 36)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordRun(sampleRun()))
	assert.NoError(t, r.Close())
}
