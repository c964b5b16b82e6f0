// Package plot draws the distribution charts of an analysis run.
package plot

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"RandomWalkLab/internal/aggregator"
	"RandomWalkLab/internal/model"
)

// Output file names inside the plot directory.
const (
	PValueFile     = "ljung_box_pvalue_boxplot.png"
	ZScoreFile     = "runs_zscore_boxplot.png"
	ProportionFile = "nonrandom_proportions.png"
)

var thresholdColor = color.RGBA{R: 220, A: 255}

type group struct {
	label  string
	values plotter.Values
}

// PValueBoxPlot draws one box of decision-lag p-values per category with the
// alpha line. It reports false when no category has a value.
func PValueBoxPlot(set *model.CategoryResultSet, lag int, alpha float64, path string) (bool, error) {
	var groups []group
	for _, category := range set.Categories() {
		var values plotter.Values
		for _, r := range set.Results(category) {
			if r.LjungBox == nil {
				continue
			}
			if s, ok := r.LjungBox.At(lag); ok {
				values = append(values, s.PValue)
			}
		}
		if len(values) > 0 {
			groups = append(groups, group{label: category, values: values})
		}
	}
	if len(groups) == 0 {
		return false, nil
	}
	p, err := boxPlot(groups, fmt.Sprintf("Ljung-Box p-values (Lag %d)", lag), "p-value")
	if err != nil {
		return false, err
	}
	p.Y.Min = 0
	p.Y.Max = 1
	if err := threshold(p, len(groups), alpha, fmt.Sprintf("α = %g", alpha)); err != nil {
		return false, err
	}
	return true, save(p, len(groups), path)
}

// ZScoreBoxPlot draws one box of runs z-scores per category with the
// ±critical lines.
func ZScoreBoxPlot(set *model.CategoryResultSet, zCritical float64, path string) (bool, error) {
	var groups []group
	for _, category := range set.Categories() {
		var values plotter.Values
		for _, r := range set.Results(category) {
			if r.Runs != nil {
				values = append(values, r.Runs.ZScore)
			}
		}
		if len(values) > 0 {
			groups = append(groups, group{label: category, values: values})
		}
	}
	if len(groups) == 0 {
		return false, nil
	}
	p, err := boxPlot(groups, "Runs test z-scores", "z-score")
	if err != nil {
		return false, err
	}
	label := fmt.Sprintf("±%g", zCritical)
	if err := threshold(p, len(groups), zCritical, label); err != nil {
		return false, err
	}
	if err := threshold(p, len(groups), -zCritical, ""); err != nil {
		return false, err
	}
	return true, save(p, len(groups), path)
}

// ProportionBars draws, per category, the NonRandom share at each summary
// lag and for the runs test as grouped bars.
func ProportionBars(summaries []aggregator.CategorySummary, path string) (bool, error) {
	if len(summaries) == 0 {
		return false, nil
	}
	type series struct {
		label  string
		values plotter.Values
	}
	var all []series
	first := summaries[0]
	for i, l := range first.LjungBoxLags {
		s := series{label: fmt.Sprintf("LB lag %d", l.Lag)}
		for _, sum := range summaries {
			s.values = append(s.values, sum.LjungBoxLags[i].NonRandomShare())
		}
		all = append(all, s)
	}
	if first.Runs != nil {
		s := series{label: "Runs"}
		for _, sum := range summaries {
			s.values = append(s.values, sum.Runs.NonRandomShare())
		}
		all = append(all, s)
	}
	if len(all) == 0 {
		return false, nil
	}

	p := plot.New()
	p.Title.Text = "Share of tickers classified non-random"
	p.Y.Label.Text = "proportion"
	p.Y.Min = 0
	p.Y.Max = 1
	p.Legend.Top = true

	width := vg.Points(12)
	for i, s := range all {
		bars, err := plotter.NewBarChart(s.values, width)
		if err != nil {
			return false, fmt.Errorf("bar chart: %w", err)
		}
		bars.LineStyle.Width = 0
		bars.Color = plotutil.Color(i)
		bars.Offset = width * vg.Length(float64(i)-float64(len(all)-1)/2)
		p.Add(bars)
		p.Legend.Add(s.label, bars)
	}
	labels := make([]string, len(summaries))
	for i, s := range summaries {
		labels[i] = s.Category
	}
	p.NominalX(labels...)
	return true, save(p, len(summaries)*(len(all)+1)/2, path)
}

// WriteAll writes every chart that has data into dir and returns the paths
// written.
func WriteAll(dir string, set *model.CategoryResultSet, summaries []aggregator.CategorySummary, lag int, alpha, zCritical float64) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create plot dir: %w", err)
	}
	var written []string
	steps := []struct {
		file string
		draw func(path string) (bool, error)
	}{
		{PValueFile, func(path string) (bool, error) { return PValueBoxPlot(set, lag, alpha, path) }},
		{ZScoreFile, func(path string) (bool, error) { return ZScoreBoxPlot(set, zCritical, path) }},
		{ProportionFile, func(path string) (bool, error) { return ProportionBars(summaries, path) }},
	}
	for _, step := range steps {
		path := filepath.Join(dir, step.file)
		ok, err := step.draw(path)
		if err != nil {
			return written, fmt.Errorf("plot %s: %w", step.file, err)
		}
		if ok {
			written = append(written, path)
		}
	}
	return written, nil
}

func boxPlot(groups []group, title, yLabel string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel
	grid := plotter.NewGrid()
	grid.Vertical.Width = 0
	p.Add(grid)

	labels := make([]string, len(groups))
	for i, g := range groups {
		box, err := plotter.NewBoxPlot(vg.Points(20), float64(i), g.values)
		if err != nil {
			return nil, fmt.Errorf("box plot %s: %w", g.label, err)
		}
		box.FillColor = plotutil.Color(i)
		p.Add(box)
		labels[i] = g.label
	}
	p.NominalX(labels...)
	return p, nil
}

func threshold(p *plot.Plot, n int, y float64, label string) error {
	line, err := plotter.NewLine(plotter.XYs{{X: -0.5, Y: y}, {X: float64(n) - 0.5, Y: y}})
	if err != nil {
		return fmt.Errorf("threshold line: %w", err)
	}
	line.LineStyle.Color = thresholdColor
	line.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(line)
	if label != "" {
		p.Legend.Add(label, line)
	}
	return nil
}

// save sizes the canvas to the number of categories on the x axis.
func save(p *plot.Plot, n int, path string) error {
	w := vg.Length(n)*1.2*vg.Inch + 3*vg.Inch
	if err := p.Save(w, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot (%s): %w", path, err)
	}
	return nil
}
