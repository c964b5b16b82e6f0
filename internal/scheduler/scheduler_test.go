package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RandomWalkLab/internal/aggregator"
	"RandomWalkLab/internal/model"
	"RandomWalkLab/internal/pipeline"
)

type stubAnalyzer struct {
	err   error
	calls int
}

func (a *stubAnalyzer) Analyze(context.Context) (*pipeline.Report, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return &pipeline.Report{
		Results: model.NewCategoryResultSet(),
		Summaries: []aggregator.CategorySummary{{
			Category: "Random Walk",
			Tickers:  10,
			Runs:     &aggregator.VerdictCounts{Random: 9, NonRandom: 1},
		}},
	}, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *recordingNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, text)
	return nil
}

func TestRunNow_SendsSummary(t *testing.T) {
	a := &stubAnalyzer{}
	n := &recordingNotifier{}
	s := NewScheduler(context.Background(), a, n, zerolog.Nop())

	_, ok := s.LastSummary()
	assert.False(t, ok)

	s.RunNow()
	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], "Random Walk")
	assert.Contains(t, n.sent[0], "Runs non-random: 1/10 (10%)")

	last, ok := s.LastSummary()
	require.True(t, ok)
	assert.Equal(t, n.sent[0], last)
}

func TestRunNow_ReportsFailure(t *testing.T) {
	n := &recordingNotifier{}
	s := NewScheduler(context.Background(), &stubAnalyzer{err: errors.New("no valid data")}, n, zerolog.Nop())
	s.RunNow()
	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], "failed")
	assert.Contains(t, n.sent[0], "no valid data")
	_, ok := s.LastSummary()
	assert.False(t, ok)
}

func TestRunNow_NilNotifier(t *testing.T) {
	a := &stubAnalyzer{}
	s := NewScheduler(context.Background(), a, nil, zerolog.Nop())
	s.RunNow()
	assert.Equal(t, 1, a.calls)
}

func TestHandleCommand(t *testing.T) {
	a := &stubAnalyzer{}
	n := &recordingNotifier{}
	s := NewScheduler(context.Background(), a, n, zerolog.Nop())
	ctx := context.Background()

	assert.Equal(t, "No analysis has run yet.", s.HandleCommand(ctx, "/summary"))
	assert.Equal(t, "Analysis started.", s.HandleCommand(ctx, "/run"))
	s.Stop()
	assert.Equal(t, 1, a.calls)
	assert.Contains(t, s.HandleCommand(ctx, "/summary"), "Random Walk")
	assert.Contains(t, s.HandleCommand(ctx, "hello"), "/run")
}

func TestRegister(t *testing.T) {
	s := NewScheduler(context.Background(), &stubAnalyzer{}, nil, zerolog.Nop())
	require.NoError(t, s.Register("0 0 18 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 1)
	assert.Error(t, s.Register("not a cron"))

	s.Start()
	s.Stop()
}

type blockingAnalyzer struct {
	started chan struct{}
	release chan struct{}
}

func (a *blockingAnalyzer) Analyze(context.Context) (*pipeline.Report, error) {
	close(a.started)
	<-a.release
	return &pipeline.Report{Results: model.NewCategoryResultSet()}, nil
}

func TestHandleCommand_RunDoesNotBlock(t *testing.T) {
	a := &blockingAnalyzer{started: make(chan struct{}), release: make(chan struct{})}
	n := &recordingNotifier{}
	s := NewScheduler(context.Background(), a, n, zerolog.Nop())
	ctx := context.Background()

	assert.Equal(t, "Analysis started.", s.HandleCommand(ctx, "/run"))
	<-a.started
	assert.Equal(t, "Analysis already running.", s.HandleCommand(ctx, "/run"))
	assert.Contains(t, s.HandleCommand(ctx, "/help"), "/summary")

	close(a.release)
	s.Stop()
	require.Len(t, n.sent, 1)
	_, ok := s.LastSummary()
	assert.True(t, ok)
}
