package plot

import (
	"bytes"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// GonumRenderer draws 5x3 inch PNG histograms with gonum/plot.
type GonumRenderer struct{}

func (GonumRenderer) Histogram(column string, values []float64, bins int) ([]byte, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("no values to plot")
	}
	p := plot.New()
	p.Title.Text = "Distribution of " + column
	p.X.Label.Text = column
	p.Y.Label.Text = "Frequency"

	h, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return nil, fmt.Errorf("build histogram: %w", err)
	}
	p.Add(h)

	wt, err := p.WriterTo(5*vg.Inch, 3*vg.Inch, "png")
	if err != nil {
		return nil, fmt.Errorf("create png writer: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
