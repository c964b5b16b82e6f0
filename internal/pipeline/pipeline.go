// Package pipeline runs one full analysis: load, test, print, export, plot
// and record.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"RandomWalkLab/internal/aggregator"
	"RandomWalkLab/internal/dataset"
	"RandomWalkLab/internal/model"
	"RandomWalkLab/internal/plot"
	"RandomWalkLab/internal/recorder"
	"RandomWalkLab/internal/report"
)

// Settings are the inputs and outputs of an analysis run. Empty output
// paths disable that output.
type Settings struct {
	Inputs      []string
	Range       dataset.DateRange
	Options     aggregator.Options
	LjungBoxCSV string
	RunsCSV     string
	PlotDir     string
	Console     io.Writer
}

// Report is the outcome of one run.
type Report struct {
	Info      recorder.RunInfo
	Results   *model.CategoryResultSet
	Summaries []aggregator.CategorySummary
	Files     []string
	Elapsed   time.Duration
}

// Runner executes analysis runs against fixed settings.
type Runner struct {
	settings Settings
	agg      *aggregator.Aggregator
	rec      recorder.Recorder
	logger   zerolog.Logger
}

// NewRunner validates the aggregator options up front.
func NewRunner(s Settings, rec recorder.Recorder, logger zerolog.Logger) (*Runner, error) {
	agg, err := aggregator.New(s.Options, logger)
	if err != nil {
		return nil, fmt.Errorf("aggregator: %w", err)
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if s.Console == nil {
		s.Console = io.Discard
	}
	return &Runner{settings: s, agg: agg, rec: rec, logger: logger}, nil
}

// Analyze runs the whole pipeline once. Only loading and the column check are
// fatal; export, plot and record failures are logged and the report returned.
func (r *Runner) Analyze(ctx context.Context) (*Report, error) {
	start := time.Now()
	info := recorder.NewRunInfo()
	opts := r.agg.Options()
	info.Inputs = r.settings.Inputs
	info.DateRange = r.settings.Range.String()
	info.DecisionLag = opts.Policy.DecisionLag
	info.Alpha = opts.Policy.Alpha
	info.ZCritical = opts.Policy.ZCritical
	for _, t := range opts.Tests {
		info.Tests = append(info.Tests, string(t))
	}
	log := r.logger.With().Str("run_id", info.ID).Logger()

	df, err := dataset.Load(r.settings.Inputs, r.settings.Range, log)
	if err != nil {
		return nil, fmt.Errorf("load input: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	set, err := r.agg.Run(df)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rep := &Report{Info: info, Results: set, Summaries: r.agg.Summaries(set)}

	printer := report.NewPrinter(r.settings.Console, opts.Policy.DecisionLag)
	printer.Categories(set)
	printer.Summary(rep.Summaries)

	if r.settings.LjungBoxCSV != "" && r.agg.Selected(aggregator.TestLjungBox) {
		r.export(log, rep, r.settings.LjungBoxCSV, r.agg.LjungBoxHeader(), r.agg.LjungBoxRows(set))
	}
	if r.settings.RunsCSV != "" && r.agg.Selected(aggregator.TestRuns) {
		r.export(log, rep, r.settings.RunsCSV, r.agg.RunsHeader(), r.agg.RunsRows(set))
	}
	if r.settings.PlotDir != "" {
		files, err := plot.WriteAll(r.settings.PlotDir, set, rep.Summaries, opts.Policy.DecisionLag, opts.Policy.Alpha, opts.Policy.ZCritical)
		rep.Files = append(rep.Files, files...)
		if err != nil {
			log.Error().Err(err).Msg("write plots")
		}
	}

	if err := r.rec.RecordRun(&recorder.RunRecord{Info: info, Results: set}); err != nil {
		log.Error().Err(err).Msg("record run")
	}

	rep.Elapsed = time.Since(start)
	log.Info().
		Int("tested", set.Tested()).
		Int("skipped", len(set.Skipped())).
		Strs("files", rep.Files).
		Dur("elapsed", rep.Elapsed).
		Msg("analysis finished")
	return rep, nil
}

func (r *Runner) export(log zerolog.Logger, rep *Report, path string, header []string, rows [][]string) {
	if err := dataset.WriteTable(path, header, rows); err != nil {
		log.Error().Err(err).Str("file", path).Msg("write results")
		return
	}
	rep.Files = append(rep.Files, path)
	log.Info().Str("file", path).Int("rows", len(rows)).Msg("test results saved")
}
