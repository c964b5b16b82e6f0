package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"RandomWalkLab/internal/notifier"
	"RandomWalkLab/internal/pipeline"
)

// Analyzer runs one analysis pass.
type Analyzer interface {
	Analyze(ctx context.Context) (*pipeline.Report, error)
}

// MaxSendRetries is the retry budget for each notification.
const MaxSendRetries = 3

// Scheduler runs the analysis on a cron schedule and reports each run.
type Scheduler struct {
	Cron     *cron.Cron
	Analyzer Analyzer
	Notifier notifier.Notifier // nil disables notifications
	Ctx      context.Context

	running sync.Mutex
	manual  sync.WaitGroup
	mu      sync.Mutex
	last    string
	logger  zerolog.Logger
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, a Analyzer, n notifier.Notifier, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Analyzer: a,
		Notifier: n,
		Ctx:      ctx,
		logger:   logger.With().Str("component", "scheduler").Logger(),
	}
}

// Register adds the analysis task under a 6-field cron spec.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.analysisTask); err != nil {
		return fmt.Errorf("register analysis task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	for _, e := range s.Cron.Entries() {
		s.logger.Info().Time("next", e.Next).Msg("scheduler started")
	}
}

// Stop stops the cron scheduler and waits for running tasks, including
// ones started by /run.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.manual.Wait()
	s.logger.Info().Msg("scheduler stopped")
}

// RunNow executes the analysis task immediately (manual trigger / run on start).
func (s *Scheduler) RunNow() {
	s.analysisTask()
}

// LastSummary returns the message of the most recent run, if any.
func (s *Scheduler) LastSummary() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.last != ""
}

func (s *Scheduler) analysisTask() {
	if !s.running.TryLock() {
		s.logger.Warn().Msg("analysis already running, skipping trigger")
		return
	}
	s.runLocked()
}

// runLocked expects s.running to be held and releases it.
func (s *Scheduler) runLocked() {
	defer s.running.Unlock()

	s.logger.Info().Msg("running scheduled analysis")
	now := time.Now()
	rep, err := s.Analyzer.Analyze(s.Ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduled analysis failed")
		s.trySend(notifier.FormatFailure(now, err))
		return
	}

	msg := notifier.FormatSummary(now, rep.Summaries, len(rep.Results.Skipped()))
	s.mu.Lock()
	s.last = msg
	s.mu.Unlock()
	s.trySend(msg)
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(_ context.Context, command string) string {
	switch command {
	case "/run":
		if !s.running.TryLock() {
			return "Analysis already running."
		}
		s.manual.Add(1)
		go func() {
			defer s.manual.Done()
			s.runLocked()
		}()
		return "Analysis started."
	case "/summary":
		if msg, ok := s.LastSummary(); ok {
			return msg
		}
		return "No analysis has run yet."
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, MaxSendRetries); err != nil {
		s.logger.Error().Err(err).Msg("send notification")
	}
}
