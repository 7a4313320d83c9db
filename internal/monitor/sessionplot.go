package monitor

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/nozzle.report/internal/nozzle"
)

// SessionPlots writes post-run PNG plots of a session: the final window's
// sensor series and the full PCA classification history. Useful for reports
// after a monitoring run; the live view uses the /charts pages instead.
func SessionPlots(outputDir string, window []nozzle.Sample, history []nozzle.Classification) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	if err := sensorPlot(filepath.Join(outputDir, "sensor.png"), window); err != nil {
		return fmt.Errorf("sensor plot: %w", err)
	}
	if err := clusterPlot(filepath.Join(outputDir, "clusters.png"), history); err != nil {
		return fmt.Errorf("cluster plot: %w", err)
	}
	return nil
}

func sensorPlot(path string, window []nozzle.Sample) error {
	p := plot.New()
	p.Title.Text = "Sensor Data (final window)"
	p.X.Label.Text = "Sample"
	p.Y.Label.Text = "Value"

	encoderPts := make(plotter.XYs, len(window))
	currentPts := make(plotter.XYs, len(window))
	for i, s := range window {
		encoderPts[i] = plotter.XY{X: float64(i), Y: s.EncoderCount}
		currentPts[i] = plotter.XY{X: float64(i), Y: s.Current}
	}

	encoderLine, err := plotter.NewLine(encoderPts)
	if err != nil {
		return err
	}
	encoderLine.Width = vg.Points(1)
	encoderLine.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	p.Add(encoderLine)
	p.Legend.Add("EncoderCount", encoderLine)

	currentLine, err := plotter.NewLine(currentPts)
	if err != nil {
		return err
	}
	currentLine.Width = vg.Points(1)
	currentLine.Color = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	p.Add(currentLine)
	p.Legend.Add("Current", currentLine)

	return p.Save(14*vg.Inch, 6*vg.Inch, path)
}

func clusterPlot(path string, history []nozzle.Classification) error {
	p := plot.New()
	p.Title.Text = "Clustering History"
	p.X.Label.Text = "PCA1"
	p.Y.Label.Text = "PCA2"

	byLabel := make(map[string]plotter.XYs)
	for _, rec := range history {
		byLabel[rec.Label] = append(byLabel[rec.Label], plotter.XY{X: rec.PCA1, Y: rec.PCA2})
	}

	palette := map[string]color.RGBA{
		"Clogged":   {R: 214, G: 39, B: 40, A: 255},
		"Unclogged": {R: 44, G: 160, B: 44, A: 255},
	}

	for label, pts := range byLabel {
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		if c, ok := palette[label]; ok {
			scatter.GlyphStyle.Color = c
		}
		p.Add(scatter)
		p.Legend.Add(label, scatter)
	}

	return p.Save(8*vg.Inch, 8*vg.Inch, path)
}
