package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"RandomWalkLab/internal/aggregator"
)

func share(c aggregator.VerdictCounts) string {
	return fmt.Sprintf("%d/%d (%.0f%%)", c.NonRandom, c.Total(), 100*c.NonRandomShare())
}

// FormatSummary formats the run summary into a Telegram message.
func FormatSummary(at time.Time, summaries []aggregator.CategorySummary, skipped int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>Randomness report</b> | %s\n\n", at.Format("2006-01-02 15:04")))
	if len(summaries) == 0 {
		b.WriteString("No categories were tested.\n")
	}
	for _, s := range summaries {
		b.WriteString(fmt.Sprintf("<b>%s</b> (%d tickers)\n", html.EscapeString(s.Category), s.Tickers))
		if s.LjungBox != nil {
			b.WriteString(fmt.Sprintf("  Ljung-Box non-random: %s\n", share(*s.LjungBox)))
		}
		if s.Runs != nil {
			b.WriteString(fmt.Sprintf("  Runs non-random: %s\n", share(*s.Runs)))
		}
	}
	if skipped > 0 {
		b.WriteString(fmt.Sprintf("\nSkipped tickers: %d\n", skipped))
	}
	return b.String()
}

// FormatFailure formats a failed scheduled run.
func FormatFailure(at time.Time, err error) string {
	return fmt.Sprintf("⚠️ <b>Randomness report failed</b> | %s\n\n%s", at.Format("2006-01-02 15:04"), html.EscapeString(err.Error()))
}

// FormatHelp lists the bot commands.
func FormatHelp() string {
	var b strings.Builder
	b.WriteString("<b>Commands</b>\n")
	b.WriteString("/run - run the analysis now\n")
	b.WriteString("/summary - last run summary\n")
	b.WriteString("/help - this message\n")
	return b.String()
}
