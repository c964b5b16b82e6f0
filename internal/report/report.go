// Package report renders analysis results as console tables.
package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"RandomWalkLab/internal/aggregator"
	"RandomWalkLab/internal/model"
)

// Printer writes per-category and summary tables.
type Printer struct {
	W           io.Writer
	DecisionLag int
	Style       table.Style
}

// NewPrinter returns a Printer using the light box style with headers
// printed as written.
func NewPrinter(w io.Writer, decisionLag int) *Printer {
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	return &Printer{W: w, DecisionLag: decisionLag, Style: style}
}

func (p *Printer) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(p.W)
	t.SetStyle(p.Style)
	return t
}

// Categories prints one Ljung-Box table and one runs table per category,
// or a "No valid data" line when a category produced no result.
func (p *Printer) Categories(set *model.CategoryResultSet) {
	for _, category := range set.AllCategories() {
		fmt.Fprintf(p.W, "\n=== %s Analysis ===\n", category)
		results := set.Results(category)
		if len(results) == 0 {
			fmt.Fprintf(p.W, "No valid data for tickers in category %s\n", category)
			continue
		}
		p.ljungBox(results)
		p.runs(results)
	}
}

func (p *Printer) ljungBox(results []model.TickerResult) {
	t := p.newTable()
	t.SetTitle("Ljung-Box Test")
	t.AppendHeader(table.Row{
		"Ticker",
		fmt.Sprintf("LB Statistic (Lag %d)", p.DecisionLag),
		fmt.Sprintf("P-value (Lag %d)", p.DecisionLag),
		"Randomness",
	})
	rows := 0
	for _, r := range results {
		if r.LjungBox == nil {
			continue
		}
		s, ok := r.LjungBox.At(p.DecisionLag)
		if !ok {
			continue
		}
		t.AppendRow(table.Row{r.Ticker, fmt.Sprintf("%.4f", s.Statistic), fmt.Sprintf("%.4f", s.PValue), r.LjungBoxVerdict.String()})
		rows++
	}
	if rows > 0 {
		t.Render()
	}
}

func (p *Printer) runs(results []model.TickerResult) {
	t := p.newTable()
	t.SetTitle("Runs Test")
	t.AppendHeader(table.Row{"Ticker", "Runs", "Expected Runs", "Z-score", "Randomness"})
	rows := 0
	for _, r := range results {
		if r.Runs == nil {
			continue
		}
		t.AppendRow(table.Row{r.Ticker, r.Runs.Runs, fmt.Sprintf("%.2f", r.Runs.ExpectedRuns), fmt.Sprintf("%.4f", r.Runs.ZScore), r.RunsVerdict.String()})
		rows++
	}
	if rows > 0 {
		t.Render()
	}
}

// Summary prints the NonRandom share of each category per test and per
// summary lag.
func (p *Printer) Summary(summaries []aggregator.CategorySummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(p.W, "\nNo categories were tested.")
		return
	}
	t := p.newTable()
	t.SetTitle("Summary (share of tickers classified Non-random)")

	header := table.Row{"Category", "Tickers"}
	first := summaries[0]
	if first.LjungBox != nil {
		header = append(header, fmt.Sprintf("LB (Lag %d)", p.DecisionLag))
		for _, l := range first.LjungBoxLags {
			header = append(header, fmt.Sprintf("p<α Lag %d", l.Lag))
		}
	}
	if first.Runs != nil {
		header = append(header, "Runs")
	}
	t.AppendHeader(header)

	for _, s := range summaries {
		row := table.Row{s.Category, s.Tickers}
		if s.LjungBox != nil {
			row = append(row, share(*s.LjungBox))
			for _, l := range s.LjungBoxLags {
				row = append(row, share(l.VerdictCounts))
			}
		}
		if s.Runs != nil {
			row = append(row, share(*s.Runs))
		}
		t.AppendRow(row)
	}
	t.Render()
}

func share(c aggregator.VerdictCounts) string {
	return fmt.Sprintf("%d/%d (%.0f%%)", c.NonRandom, c.Total(), 100*c.NonRandomShare())
}
