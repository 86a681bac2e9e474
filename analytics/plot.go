package analytics

import (
	"image/color"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// SaveSizeHistogram renders the rows-per-batch distribution to a PNG. With
// pooled, sorted batching the mass should sit on the configured batch size,
// with a thin tail of trailing partial batches.
func (p *Profile) SaveSizeHistogram(path string) error {
	if len(p.BatchSizes) == 0 {
		return errors.New("no batches collected")
	}
	pl := plot.New()
	pl.Title.Text = "Rows per batch"
	pl.X.Label.Text = "rows"
	pl.Y.Label.Text = "batches"

	bins := min(len(p.BatchSizes), 16)
	h, err := plotter.NewHist(plotter.Values(p.sizes()), bins)
	if err != nil {
		return errors.Wrap(err, "building histogram")
	}
	h.FillColor = color.RGBA{R: 20, G: 80, B: 200, A: 220}
	pl.Add(h, plotter.NewGrid())

	return save(pl, path)
}

// SaveSizeTimeline renders batch size against emission order to a PNG,
// which makes pool boundaries and the trailing partial batch easy to spot.
func (p *Profile) SaveSizeTimeline(path string) error {
	if len(p.BatchSizes) == 0 {
		return errors.New("no batches collected")
	}
	pl := plot.New()
	pl.Title.Text = "Batch size over the pass"
	pl.X.Label.Text = "batch"
	pl.Y.Label.Text = "rows"

	xys := make(plotter.XYs, len(p.BatchSizes))
	for i, n := range p.BatchSizes {
		xys[i] = plotter.XY{X: float64(i), Y: float64(n)}
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return errors.Wrap(err, "building timeline")
	}
	line.Color = color.RGBA{R: 200, G: 30, B: 30, A: 220}
	line.Width = vg.Points(1.2)
	pl.Add(line, plotter.NewGrid())
	pl.Y.Min = 0

	return save(pl, path)
}

func save(pl *plot.Plot, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "creating %s", dir)
		}
	}
	return pl.Save(8*vg.Inch, 6*vg.Inch, path)
}
