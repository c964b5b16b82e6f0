package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists runs to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Write-ahead journal.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.logger.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id           TEXT PRIMARY KEY,
			started_at   INTEGER NOT NULL,
			inputs       TEXT,
			date_range   TEXT,
			decision_lag INTEGER,
			alpha        REAL,
			z_critical   REAL,
			tests        TEXT,
			tested       INTEGER,
			skipped      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS ljung_box_results (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id       TEXT NOT NULL REFERENCES runs(id),
			category     TEXT NOT NULL,
			ticker       TEXT NOT NULL,
			observations INTEGER,
			lag          INTEGER NOT NULL,
			statistic    REAL,
			p_value      REAL,
			verdict      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lb_run ON ljung_box_results(run_id, category, ticker)`,

		`CREATE TABLE IF NOT EXISTS runs_results (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id        TEXT NOT NULL REFERENCES runs(id),
			category      TEXT NOT NULL,
			ticker        TEXT NOT NULL,
			n             INTEGER,
			positive      INTEGER,
			negative      INTEGER,
			runs          INTEGER,
			expected_runs REAL,
			variance      REAL,
			z_score       REAL,
			verdict       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_results_run ON runs_results(run_id, category, ticker)`,

		`CREATE TABLE IF NOT EXISTS skipped_tickers (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id   TEXT NOT NULL REFERENCES runs(id),
			category TEXT NOT NULL,
			ticker   TEXT NOT NULL,
			status   TEXT,
			reason   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_skipped_run ON skipped_tickers(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun writes the run and all of its rows in one transaction.
func (r *SQLiteRecorder) RecordRun(run *RunRecord) (err error) {
	if run == nil || run.Results == nil {
		return errors.New("record run: no results")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	info := run.Info
	set := run.Results
	if _, err = tx.Exec(`INSERT INTO runs
		(id, started_at, inputs, date_range, decision_lag, alpha, z_critical, tests, tested, skipped)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		info.ID, info.StartedAt.Unix(), strings.Join(info.Inputs, ","), info.DateRange,
		info.DecisionLag, info.Alpha, info.ZCritical, strings.Join(info.Tests, ","),
		set.Tested(), len(set.Skipped()),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	lbStmt, err := tx.Prepare(`INSERT INTO ljung_box_results
		(run_id, category, ticker, observations, lag, statistic, p_value, verdict)
		VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare ljung-box: %w", err)
	}
	defer lbStmt.Close()
	runsStmt, err := tx.Prepare(`INSERT INTO runs_results
		(run_id, category, ticker, n, positive, negative, runs, expected_runs, variance, z_score, verdict)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare runs: %w", err)
	}
	defer runsStmt.Close()

	for _, category := range set.Categories() {
		for _, res := range set.Results(category) {
			if lb := res.LjungBox; lb != nil {
				for _, s := range lb.Lags {
					if _, err = lbStmt.Exec(info.ID, category, res.Ticker, res.Observations,
						s.Lag, s.Statistic, s.PValue, res.LjungBoxVerdict.String()); err != nil {
						return fmt.Errorf("insert ljung-box %s/%s: %w", category, res.Ticker, err)
					}
				}
			}
			if rt := res.Runs; rt != nil {
				if _, err = runsStmt.Exec(info.ID, category, res.Ticker, rt.N, rt.Positive, rt.Negative,
					rt.Runs, rt.ExpectedRuns, rt.Variance, rt.ZScore, res.RunsVerdict.String()); err != nil {
					return fmt.Errorf("insert runs %s/%s: %w", category, res.Ticker, err)
				}
			}
		}
	}

	for _, o := range set.Skipped() {
		if _, err = tx.Exec(`INSERT INTO skipped_tickers (run_id, category, ticker, status, reason) VALUES (?,?,?,?,?)`,
			info.ID, o.Key.Category, o.Key.Ticker, string(o.Status), o.Reason); err != nil {
			return fmt.Errorf("insert skipped %s: %w", o.Key, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.logger.Info().Str("run_id", info.ID).Int("tested", set.Tested()).Msg("run recorded")
	return nil
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
