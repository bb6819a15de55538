package tracker

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Plot renders the mean episode reward of each iteration as a line
// plot when saved
type Plot struct {
	title    string
	filename string
	points   plotter.XYs
}

// NewPlot returns a Plot saving to filename. The image format is taken
// from the file extension.
func NewPlot(title, filename string) *Plot {
	return &Plot{title: title, filename: filename}
}

// Track implements the Tracker interface
func (p *Plot) Track(rec Record) error {
	p.points = append(p.points, plotter.XY{
		X: float64(rec.Iteration),
		Y: rec.MeanReward,
	})
	return nil
}

// Save implements the Tracker interface
func (p *Plot) Save() error {
	if len(p.points) == 0 {
		return nil
	}

	pl := plot.New()
	pl.Title.Text = p.title
	pl.X.Label.Text = "Iteration"
	pl.Y.Label.Text = "Average sum of rewards per episode"

	line, err := plotter.NewLine(p.points)
	if err != nil {
		return fmt.Errorf("save: %v", err)
	}
	line.Color = plotutil.Color(0)
	pl.Add(line)
	pl.Legend.Add("mean reward", line)

	if err := pl.Save(8*vg.Inch, 8*vg.Inch, p.filename); err != nil {
		return fmt.Errorf("save: %v", err)
	}
	return nil
}
