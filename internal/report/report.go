// Package report renders conductance series as static PNG plots or
// interactive HTML charts.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/eim/internal/analysis"
)

// Format selects the renderer.
type Format string

const (
	PNG  Format = "png"
	HTML Format = "html"
)

var ErrNoData = errors.New("no finite points to plot")

// Series is one named line on a chart.
type Series struct {
	Name   string
	Points []analysis.Point
}

// Chart describes what to draw.
type Chart struct {
	Title  string
	YLabel string
	Series []Series
}

const (
	pngWidth  = 14 * vg.Inch
	pngHeight = 6 * vg.Inch
)

// FormatFor picks a Format from a file name extension.
func FormatFor(path string) (Format, error) {
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".png"):
		return PNG, nil
	case strings.HasSuffix(strings.ToLower(path), ".html"):
		return HTML, nil
	}
	return "", fmt.Errorf("unsupported chart file %q: want .png or .html", path)
}

// Write renders c to w in the given format.
func Write(w io.Writer, f Format, c Chart) error {
	switch f {
	case PNG:
		return WritePNG(w, c)
	case HTML:
		return WriteHTML(w, c)
	}
	return fmt.Errorf("unsupported chart format %q", f)
}

// WritePNG draws c with gonum/plot. Non-finite points are skipped.
func WritePNG(w io.Writer, c Chart) error {
	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = c.YLabel
	p.Add(plotter.NewGrid())

	drawn := 0
	for i, s := range c.Series {
		pts := analysis.Finite(s.Points)
		if len(pts) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(pts))
		for j, pt := range pts {
			xys[j] = plotter.XY{X: pt.T, Y: pt.V}
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("failed to build line %q: %w", s.Name, err)
		}
		line.Width = vg.Points(1)
		line.Color = plotutil.Color(i)
		p.Add(line)
		if s.Name != "" {
			p.Legend.Add(s.Name, line)
		}
		drawn++
	}
	if drawn == 0 {
		return ErrNoData
	}

	wt, err := p.WriterTo(pngWidth, pngHeight, string(PNG))
	if err != nil {
		return fmt.Errorf("failed to render png: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write png: %w", err)
	}
	return nil
}

// WriteHTML draws c as a go-echarts line chart. Non-finite points are skipped.
func WriteHTML(w io.Writer, c Chart) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: c.Title, Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: c.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "time (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: c.YLabel, Scale: opts.Bool(true)}),
	)

	drawn := 0
	for _, s := range c.Series {
		pts := analysis.Finite(s.Points)
		if len(pts) == 0 {
			continue
		}
		data := make([]opts.LineData, len(pts))
		for j, pt := range pts {
			data[j] = opts.LineData{Value: []interface{}{pt.T, pt.V}}
		}
		line.AddSeries(s.Name, data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
		drawn++
	}
	if drawn == 0 {
		return ErrNoData
	}

	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render html: %w", err)
	}
	return nil
}
