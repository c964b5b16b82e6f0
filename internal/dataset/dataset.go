// Package dataset loads and writes the CSV tables exchanged with the analysis core.
package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"RandomWalkLab/internal/model"
)

// ErrNoData is returned when none of the input files could be loaded.
var ErrNoData = errors.New("no valid data loaded from any input file")

// DateRange is an inclusive date window. A zero bound is open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// IsZero reports whether neither bound is set.
func (r DateRange) IsZero() bool { return r.Start.IsZero() && r.End.IsZero() }

func (r DateRange) String() string {
	f := func(t time.Time) string {
		if t.IsZero() {
			return "open"
		}
		return t.Format(model.DateLayout)
	}
	return f(r.Start) + " to " + f(r.End)
}

// ReadCSV loads one CSV file with every column kept as text.
func ReadCSV(path string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer f.Close()
	df := dataframe.ReadCSV(f, dataframe.DetectTypes(false), dataframe.DefaultType(series.String))
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("parse %s: %w", path, df.Err)
	}
	return df, nil
}

// FilterDates keeps the rows whose Date column parses and falls within rng.
// A table without a Date column is returned unchanged.
func FilterDates(df dataframe.DataFrame, rng DateRange) dataframe.DataFrame {
	if rng.IsZero() {
		return df
	}
	hasDate := false
	for _, n := range df.Names() {
		if n == "Date" {
			hasDate = true
		}
	}
	if !hasDate {
		return df
	}
	return df.Filter(dataframe.F{
		Colname:    "Date",
		Comparator: series.CompFunc,
		Comparando: func(el series.Element) bool {
			t, err := model.ParseDate(el.String())
			return err == nil && rng.Contains(t)
		},
	})
}

// Load reads and combines the input files, filtering each to rng.
// Files that do not exist are skipped with a diagnostic.
func Load(paths []string, rng DateRange, logger zerolog.Logger) (dataframe.DataFrame, error) {
	var combined dataframe.DataFrame
	loaded := 0
	for _, path := range paths {
		logger.Info().Str("file", path).Msg("loading data")
		df, err := ReadCSV(path)
		if errors.Is(err, os.ErrNotExist) {
			logger.Error().Str("file", path).Msg("file not found, skipping")
			continue
		}
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		df = FilterDates(df, rng)
		if df.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("filter %s: %w", path, df.Err)
		}
		if loaded == 0 {
			combined = df
		} else {
			combined = combined.RBind(df)
			if combined.Err != nil {
				return dataframe.DataFrame{}, fmt.Errorf("combine %s: %w", path, combined.Err)
			}
		}
		loaded++
	}
	if loaded == 0 || combined.Nrow() == 0 {
		return dataframe.DataFrame{}, ErrNoData
	}
	logger.Info().Int("files", loaded).Int("rows", combined.Nrow()).Str("range", rng.String()).Msg("input loaded")
	return combined, nil
}

// ObservationHeader is the column order of observation files.
var ObservationHeader = []string{"Date", "Ticker", "Category", "Close"}

// ObservationRecords renders observations as CSV records, header first.
func ObservationRecords(obs []model.PriceObservation) [][]string {
	records := make([][]string, 0, len(obs)+1)
	records = append(records, ObservationHeader)
	for _, o := range obs {
		records = append(records, []string{
			o.Date.Format(model.DateLayout),
			o.Ticker,
			o.Category,
			decimal.NewFromFloat(o.Close).String(),
		})
	}
	return records
}

// WriteObservations writes observations to path as CSV.
func WriteObservations(path string, obs []model.PriceObservation) error {
	records := ObservationRecords(obs)
	return WriteTable(path, records[0], records[1:])
}

// WriteTable writes header and rows to path as CSV, creating parent directories.
func WriteTable(path string, header []string, rows [][]string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}
	records := append([][]string{header}, rows...)
	df := dataframe.LoadRecords(records, dataframe.DetectTypes(false), dataframe.DefaultType(series.String))
	if df.Err != nil {
		return fmt.Errorf("build table: %w", df.Err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := df.WriteCSV(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
