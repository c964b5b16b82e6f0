package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"RandomWalkLab/internal/aggregator"
	"RandomWalkLab/internal/calculator"
	"RandomWalkLab/internal/dataset"
	"RandomWalkLab/internal/model"
	"RandomWalkLab/internal/simulate"
	"RandomWalkLab/internal/verdict"
)

// DefaultPath is read when CONFIG_PATH is unset.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	InputFiles []string            `yaml:"input_files" validate:"dive,required"`
	DateRange  DateRangeConfig     `yaml:"date_range"`
	Analysis   AnalysisConfig      `yaml:"analysis"`
	Output     OutputConfig        `yaml:"output"`
	Universe   map[string][]string `yaml:"universe" validate:"dive,keys,required,endkeys,min=1,dive,required"`
	Fetch      FetchConfig         `yaml:"fetch"`
	Simulate   SimulateConfig      `yaml:"simulate"`
	Database   struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		Cron       string `yaml:"cron" validate:"required"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
}

type DateRangeConfig struct {
	Start string `yaml:"start" validate:"omitempty,datetime=2006-01-02"`
	End   string `yaml:"end" validate:"omitempty,datetime=2006-01-02"`
}

type AnalysisConfig struct {
	Lags            []int    `yaml:"lags" validate:"required,min=1,dive,gt=0"`
	DecisionLag     int      `yaml:"decision_lag" validate:"gt=0"`
	Alpha           float64  `yaml:"alpha" validate:"gt=0,lt=1"`
	ZCritical       float64  `yaml:"z_critical" validate:"gt=0"`
	MinObservations int      `yaml:"min_observations" validate:"min=2"`
	TickerLimit     string   `yaml:"ticker_limit"`
	SummaryLags     []int    `yaml:"summary_lags" validate:"dive,gt=0"`
	Tests           []string `yaml:"tests" validate:"required,min=1,dive,oneof=ljung_box runs"`
	DuplicateDates  string   `yaml:"duplicate_dates" validate:"oneof=keep last reject"`
}

type OutputConfig struct {
	LjungBoxCSV string `yaml:"ljung_box_csv"`
	RunsCSV     string `yaml:"runs_csv"`
	PlotDir     string `yaml:"plot_dir"`
}

type FetchConfig struct {
	OutputCSV string        `yaml:"output_csv" validate:"required"`
	Delay     time.Duration `yaml:"delay" validate:"min=0"`
	Proxy     string        `yaml:"proxy" validate:"omitempty,url"`
}

type SimulateConfig struct {
	OutputCSV     string  `yaml:"output_csv" validate:"required"`
	Category      string  `yaml:"category" validate:"required"`
	TrendCategory string  `yaml:"trend_category"`
	Tickers       int     `yaml:"tickers" validate:"min=1"`
	Days          int     `yaml:"days" validate:"min=2"`
	StartDate     string  `yaml:"start_date" validate:"omitempty,datetime=2006-01-02"`
	StartPrice    float64 `yaml:"start_price" validate:"gt=0"`
	Mu            float64 `yaml:"mu"`
	Sigma         float64 `yaml:"sigma" validate:"gt=0"`
	Seed          uint64  `yaml:"seed"`
	Decimals      int32   `yaml:"decimals" validate:"min=0,max=12"`
}

// envOverrides lists the environment variables applied over the YAML file.
// Unset variables leave the file value alone.
type envOverrides struct {
	InputFiles  []string `envconfig:"INPUT_FILES"`
	DateStart   string   `envconfig:"DATE_START"`
	DateEnd     string   `envconfig:"DATE_END"`
	TickerLimit string   `envconfig:"TICKER_LIMIT"`
	DecisionLag *int     `envconfig:"DECISION_LAG"`
	Alpha       *float64 `envconfig:"ALPHA"`
	PlotDir     string   `envconfig:"PLOT_DIR"`
	BotToken    string   `envconfig:"TELEGRAM_BOT_TOKEN"`
	ChatID      string   `envconfig:"TELEGRAM_CHAT_ID"`
	Proxy       string   `envconfig:"HTTPS_PROXY"`
	SQLitePath  string   `envconfig:"SQLITE_PATH"`
	Cron        string   `envconfig:"CRON_SCHEDULE"`
	RunOnStart  *bool    `envconfig:"RUN_ON_START"`
}

// Path returns CONFIG_PATH or the default config location.
func Path() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	cfg.applyEnv(env)
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv(env envOverrides) {
	if len(env.InputFiles) > 0 {
		c.InputFiles = env.InputFiles
	}
	setString(&c.DateRange.Start, env.DateStart)
	setString(&c.DateRange.End, env.DateEnd)
	setString(&c.Analysis.TickerLimit, env.TickerLimit)
	if env.DecisionLag != nil {
		c.Analysis.DecisionLag = *env.DecisionLag
	}
	if env.Alpha != nil {
		c.Analysis.Alpha = *env.Alpha
	}
	setString(&c.Output.PlotDir, env.PlotDir)
	setString(&c.Telegram.BotToken, env.BotToken)
	setString(&c.Telegram.ChatID, env.ChatID)
	setString(&c.Fetch.Proxy, env.Proxy)
	setString(&c.Database.SQLitePath, env.SQLitePath)
	setString(&c.Schedule.Cron, env.Cron)
	if env.RunOnStart != nil {
		c.Schedule.RunOnStart = *env.RunOnStart
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if len(c.InputFiles) == 0 {
		c.InputFiles = []string{"data_all_equities.csv", "data_random_walk.csv"}
	}
	a := &c.Analysis
	if len(a.Lags) == 0 {
		a.Lags = slices.Clone(calculator.DefaultLags)
	}
	if a.DecisionLag == 0 {
		a.DecisionLag = verdict.DefaultDecisionLag
	}
	if a.Alpha == 0 {
		a.Alpha = verdict.DefaultAlpha
	}
	if a.ZCritical == 0 {
		a.ZCritical = verdict.DefaultZCritical
	}
	if a.MinObservations == 0 {
		a.MinObservations = aggregator.DefaultMinObservations
	}
	if a.TickerLimit == "" {
		a.TickerLimit = "all"
	}
	if len(a.SummaryLags) == 0 {
		a.SummaryLags = slices.Clone(aggregator.DefaultSummaryLags)
	}
	if len(a.Tests) == 0 {
		a.Tests = []string{string(aggregator.TestLjungBox), string(aggregator.TestRuns)}
	}
	if a.DuplicateDates == "" {
		a.DuplicateDates = string(aggregator.DuplicatesKeep)
	}
	if c.Output.LjungBoxCSV == "" {
		c.Output.LjungBoxCSV = "ljung_box_results.csv"
	}
	if c.Output.RunsCSV == "" {
		c.Output.RunsCSV = "runs_test_results.csv"
	}
	if c.Fetch.OutputCSV == "" {
		c.Fetch.OutputCSV = "data_all_equities.csv"
	}
	if c.Fetch.Delay == 0 {
		c.Fetch.Delay = 500 * time.Millisecond
	}
	s := &c.Simulate
	d := simulate.DefaultParams()
	if s.OutputCSV == "" {
		s.OutputCSV = "data_random_walk.csv"
	}
	if s.Category == "" {
		s.Category = d.Category
	}
	if s.Tickers == 0 {
		s.Tickers = d.Tickers
	}
	if s.Days == 0 {
		s.Days = d.Days
	}
	if s.StartPrice == 0 {
		s.StartPrice = d.StartPrice
	}
	if s.Sigma == 0 {
		s.Sigma = d.Sigma
	}
	if s.Seed == 0 {
		s.Seed = d.Seed
	}
	if s.Decimals == 0 {
		s.Decimals = d.Decimals
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 0 18 * * 1-5"
	}
}

var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks field constraints and the rules that span fields.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	var errs []error
	a := c.Analysis
	if slices.Contains(a.Tests, string(aggregator.TestLjungBox)) {
		if !slices.Contains(a.Lags, a.DecisionLag) {
			errs = append(errs, fmt.Errorf("analysis.decision_lag %d is not in analysis.lags", a.DecisionLag))
		}
		for _, l := range a.SummaryLags {
			if !slices.Contains(a.Lags, l) {
				errs = append(errs, fmt.Errorf("analysis.summary_lags %d is not in analysis.lags", l))
			}
		}
	}
	if rng, err := c.Range(); err != nil {
		errs = append(errs, err)
	} else if !rng.Start.IsZero() && !rng.End.IsZero() && rng.End.Before(rng.Start) {
		errs = append(errs, fmt.Errorf("date_range.end %s is before date_range.start %s", c.DateRange.End, c.DateRange.Start))
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		errs = append(errs, errors.New("telegram.bot_token and telegram.chat_id must be set together"))
	}
	if _, err := cronParser.Parse(c.Schedule.Cron); err != nil {
		errs = append(errs, fmt.Errorf("schedule.cron: %w", err))
	}
	return errors.Join(errs...)
}

// TelegramEnabled reports whether run summaries should be sent.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Range parses the configured date window.
func (c *Config) Range() (dataset.DateRange, error) {
	var rng dataset.DateRange
	if c.DateRange.Start != "" {
		t, err := time.Parse(model.DateLayout, c.DateRange.Start)
		if err != nil {
			return rng, fmt.Errorf("date_range.start: %w", err)
		}
		rng.Start = t
	}
	if c.DateRange.End != "" {
		t, err := time.Parse(model.DateLayout, c.DateRange.End)
		if err != nil {
			return rng, fmt.Errorf("date_range.end: %w", err)
		}
		rng.End = t
	}
	return rng, nil
}

// AggregatorOptions maps the analysis section onto aggregator options.
func (c *Config) AggregatorOptions() aggregator.Options {
	a := c.Analysis
	tests := make([]aggregator.Test, len(a.Tests))
	for i, t := range a.Tests {
		tests[i] = aggregator.Test(t)
	}
	return aggregator.Options{
		Lags:        slices.Clone(a.Lags),
		SummaryLags: slices.Clone(a.SummaryLags),
		Policy: verdict.Policy{
			DecisionLag: a.DecisionLag,
			Alpha:       a.Alpha,
			ZCritical:   a.ZCritical,
		},
		MinObservations: a.MinObservations,
		TickerLimit:     a.TickerLimit,
		Tests:           tests,
		DuplicateDates:  aggregator.DuplicatePolicy(a.DuplicateDates),
	}
}

// SimulateParams maps the simulate section onto generator parameters.
func (c *Config) SimulateParams() (simulate.Params, error) {
	s := c.Simulate
	p := simulate.DefaultParams()
	p.Category = s.Category
	p.TrendCategory = s.TrendCategory
	p.Tickers = s.Tickers
	p.Days = s.Days
	p.StartPrice = s.StartPrice
	p.Mu = s.Mu
	p.Sigma = s.Sigma
	p.Seed = s.Seed
	p.Decimals = s.Decimals
	if s.StartDate != "" {
		t, err := time.Parse(model.DateLayout, s.StartDate)
		if err != nil {
			return p, fmt.Errorf("simulate.start_date: %w", err)
		}
		p.Start = t
	}
	return p, nil
}
