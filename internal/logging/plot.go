package logging

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Talendar/neuroevolutionary-snake/internal/ga"
)

// PlotHistory draws the best and mean fitness of every generation to a PNG.
func PlotHistory(history []ga.GenerationRecord, outPath string) error {
	if len(history) == 0 {
		return fmt.Errorf("plot history: no generations")
	}

	p := plot.New()
	p.Title.Text = "Fitness"
	p.X.Label.Text = "Generation"
	p.Y.Label.Text = "Fitness"

	best := make(plotter.XYs, len(history))
	mean := make(plotter.XYs, len(history))
	for i, rec := range history {
		best[i].X = float64(rec.Generation)
		best[i].Y = rec.Best
		mean[i].X = float64(rec.Generation)
		mean[i].Y = rec.Mean
	}

	bestLine, err := plotter.NewLine(best)
	if err != nil {
		return err
	}
	meanLine, err := plotter.NewLine(mean)
	if err != nil {
		return err
	}
	meanLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(bestLine, meanLine)
	p.Legend.Add("best", bestLine)
	p.Legend.Add("mean", meanLine)
	p.Legend.Top = true
	p.Legend.Left = true

	return p.Save(8*vg.Inch, 4*vg.Inch, outPath)
}
