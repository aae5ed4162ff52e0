// Package renderer draws chart images from render URL parameters using
// go-chart. It understands the common Chart.js shapes: bar, line, pie and
// doughnut.
package renderer

import (
	"bytes"
	"fmt"

	chart "github.com/wcharczuk/go-chart/v2"

	cspec "github.com/hpungsan/chartd/internal/chart"
)

// Size limits for a rendered image.
const (
	MinSize = 50
	MaxSize = 4000
)

// Format selects the output encoding.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// Render draws spec and returns the encoded image. Width and height fall
// back to the defaults when they do not parse and are clamped to
// [MinSize, MaxSize].
func Render(spec cspec.Specification, format Format) ([]byte, error) {
	if _, err := cspec.ValidateConfig(spec.ConfigText); err != nil {
		return nil, err
	}
	cfg, err := parseConfig(spec.ConfigText)
	if err != nil {
		return nil, err
	}
	w := clamp(spec.Width, cspec.DefaultWidth)
	h := clamp(spec.Height, cspec.DefaultHeight)

	provider := chart.PNG
	if format == FormatSVG {
		provider = chart.SVG
	}

	var buf bytes.Buffer
	switch cfg.Type {
	case "bar":
		err = barChart(cfg, w, h).Render(provider, &buf)
	case "line":
		var c *chart.Chart
		c, err = lineChart(cfg, w, h)
		if err == nil {
			err = c.Render(provider, &buf)
		}
	case "pie", "doughnut":
		err = pieChart(cfg, w, h).Render(provider, &buf)
	default:
		return nil, fmt.Errorf("unsupported chart type %q", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s chart: %w", cfg.Type, err)
	}
	return buf.Bytes(), nil
}

func clamp(text string, def int) int {
	n := def
	if p := cspec.ParseDimension(text); p != nil {
		n = *p
	}
	return min(max(n, MinSize), MaxSize)
}

func firstDataset(cfg *chartConfig) (dataset, error) {
	if len(cfg.Data.Datasets) == 0 {
		return dataset{}, fmt.Errorf("%s chart has no datasets", cfg.Type)
	}
	return cfg.Data.Datasets[0], nil
}

func barChart(cfg *chartConfig, w, h int) *chart.BarChart {
	bc := &chart.BarChart{
		Title:  cfg.title(),
		Width:  w,
		Height: h,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
	}
	if len(cfg.Data.Datasets) == 0 {
		return bc
	}
	ds := cfg.Data.Datasets[0]
	fills := colors(ds.BackgroundColor)
	strokes := colors(ds.BorderColor)
	for i, v := range values(ds) {
		bc.Bars = append(bc.Bars, chart.Value{
			Label: cfg.label(i),
			Value: v,
			Style: chart.Style{
				FillColor:   colorAt(fills, i),
				StrokeColor: colorAt(strokes, i),
				StrokeWidth: 1,
			},
		})
	}
	return bc
}

func lineChart(cfg *chartConfig, w, h int) (*chart.Chart, error) {
	if _, err := firstDataset(cfg); err != nil {
		return nil, err
	}

	c := &chart.Chart{
		Title:  cfg.title(),
		Width:  w,
		Height: h,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
	}

	points := 0
	for i, ds := range cfg.Data.Datasets {
		ys := values(ds)
		xs := make([]float64, len(ys))
		for j := range xs {
			xs[j] = float64(j)
		}
		points = max(points, len(ys))
		stroke := colorAt(colors(ds.BorderColor), i)
		c.Series = append(c.Series, chart.ContinuousSeries{
			Name:    ds.Label,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: stroke,
				StrokeWidth: 2,
			},
		})
	}

	ticks := make([]chart.Tick, points)
	for i := range ticks {
		ticks[i] = chart.Tick{Value: float64(i), Label: cfg.label(i)}
	}
	c.XAxis = chart.XAxis{Ticks: ticks}
	if len(cfg.Data.Datasets) > 1 {
		c.Elements = []chart.Renderable{chart.Legend(c)}
	}
	return c, nil
}

func pieChart(cfg *chartConfig, w, h int) *chart.PieChart {
	pc := &chart.PieChart{
		Title:  cfg.title(),
		Width:  w,
		Height: h,
	}
	if len(cfg.Data.Datasets) == 0 {
		return pc
	}
	ds := cfg.Data.Datasets[0]
	fills := colors(ds.BackgroundColor)
	for i, v := range values(ds) {
		pc.Values = append(pc.Values, chart.Value{
			Label: cfg.label(i),
			Value: v,
			Style: chart.Style{FillColor: colorAt(fills, i)},
		})
	}
	return pc
}
