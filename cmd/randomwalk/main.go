package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"RandomWalkLab/internal/collector"
	"RandomWalkLab/internal/config"
	"RandomWalkLab/internal/dataset"
	"RandomWalkLab/internal/notifier"
	"RandomWalkLab/internal/pipeline"
	"RandomWalkLab/internal/recorder"
	"RandomWalkLab/internal/scheduler"
	"RandomWalkLab/internal/simulate"
)

const usage = `usage: randomwalk [-config path] [-debug] <command> [flags]

commands:
  analyze    run the Ljung-Box and runs tests over the input files
  fetch      download daily closes for the configured universe
  simulate   write synthetic random-walk (and trend) tickers
  watch      run analyze on the configured cron schedule
`

func main() {
	cfgPath := flag.String("config", config.Path(), "path to the YAML config")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage); flag.PrintDefaults() }
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "analyze":
		err = runAnalyze(ctx, cfg, args)
	case "fetch":
		err = runFetch(ctx, cfg, args)
	case "simulate":
		err = runSimulate(cfg, args)
	case "watch":
		err = runWatch(ctx, cfg, args)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", cmd).Msg("command failed")
	}
}

func openRecorder(cfg *config.Config, disabled bool) recorder.Recorder {
	if disabled || cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0755); err != nil {
		log.Warn().Err(err).Msg("create database dir failed, using noop recorder")
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log.Logger)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return sr
}

func newRunner(cfg *config.Config, rec recorder.Recorder, noPlots bool) (*pipeline.Runner, error) {
	rng, err := cfg.Range()
	if err != nil {
		return nil, err
	}
	s := pipeline.Settings{
		Inputs:      cfg.InputFiles,
		Range:       rng,
		Options:     cfg.AggregatorOptions(),
		LjungBoxCSV: cfg.Output.LjungBoxCSV,
		RunsCSV:     cfg.Output.RunsCSV,
		PlotDir:     cfg.Output.PlotDir,
		Console:     os.Stdout,
	}
	if noPlots {
		s.PlotDir = ""
	}
	return pipeline.NewRunner(s, rec, log.Logger)
}

func runAnalyze(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	limit := fs.String("limit", "", `tickers per category: "all" or a positive integer`)
	tests := fs.String("tests", "", "comma separated tests to run (ljung_box,runs)")
	noPlots := fs.Bool("no-plots", false, "skip chart output")
	noDB := fs.Bool("no-db", false, "do not record the run")
	_ = fs.Parse(args)

	if *limit != "" {
		cfg.Analysis.TickerLimit = *limit
	}
	if *tests != "" {
		cfg.Analysis.Tests = strings.Split(*tests, ",")
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	rec := openRecorder(cfg, *noDB)
	defer rec.Close()
	runner, err := newRunner(cfg, rec, *noPlots)
	if err != nil {
		return err
	}
	_, err = runner.Analyze(ctx)
	return err
}

func runFetch(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	out := fs.String("out", cfg.Fetch.OutputCSV, "output CSV path")
	progress := fs.Bool("progress", true, "show a progress bar")
	_ = fs.Parse(args)

	if len(cfg.Universe) == 0 {
		return fmt.Errorf("fetch: universe is empty")
	}
	rng, err := cfg.Range()
	if err != nil {
		return err
	}
	if rng.End.IsZero() {
		rng.End = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if rng.Start.IsZero() {
		rng.Start = rng.End.AddDate(-5, 0, 0)
	}
	log.Info().Str("range", rng.String()).Msg("using date range")

	fetcher := collector.NewYahooFetcher(cfg.Fetch.Proxy)
	col := collector.NewCollector(fetcher, cfg.Fetch.Delay, log.Logger)
	col.ShowProgress = *progress
	res, err := col.Collect(ctx, collector.Universe(cfg.Universe), rng.Start, rng.End)
	if err != nil {
		return err
	}
	if len(res.Observations) == 0 {
		return fmt.Errorf("fetch: no valid stock data to combine")
	}
	if err := dataset.WriteObservations(*out, res.Observations); err != nil {
		return err
	}
	log.Info().Str("file", *out).Int("rows", len(res.Observations)).Msg("combined closing prices saved")
	return nil
}

func runSimulate(cfg *config.Config, args []string) error {
	p, err := cfg.SimulateParams()
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	out := fs.String("out", cfg.Simulate.OutputCSV, "output CSV path")
	fs.StringVar(&p.TrendCategory, "trend", p.TrendCategory, "also write trend tickers under this category")
	fs.Uint64Var(&p.Seed, "seed", p.Seed, "random seed")
	fs.IntVar(&p.Tickers, "tickers", p.Tickers, "tickers per category")
	_ = fs.Parse(args)

	obs, err := simulate.Generate(p)
	if err != nil {
		return err
	}
	if err := dataset.WriteObservations(*out, obs); err != nil {
		return err
	}
	log.Info().Str("file", *out).Int("rows", len(obs)).Str("category", p.Category).Msg("synthetic prices saved")
	return nil
}

func runWatch(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	runOnStart := fs.Bool("run-on-start", cfg.Schedule.RunOnStart, "run the analysis once immediately")
	_ = fs.Parse(args)

	rec := openRecorder(cfg, false)
	defer rec.Close()
	runner, err := newRunner(cfg, rec, false)
	if err != nil {
		return err
	}

	var tn *notifier.TelegramNotifier
	var n notifier.Notifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Fetch.Proxy, log.Logger)
		n = tn
	} else {
		log.Warn().Msg("telegram not configured, summaries are logged only")
	}

	sched := scheduler.NewScheduler(ctx, runner, n, log.Logger)
	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}
	if *runOnStart {
		log.Info().Msg("run on start enabled, executing analysis now")
		go sched.RunNow()
	}

	log.Info().Str("cron", cfg.Schedule.Cron).
		Strs("tests", cfg.Analysis.Tests).
		Int("decision_lag", cfg.Analysis.DecisionLag).
		Msg("watching, press Ctrl+C to stop")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping")
	return nil
}
