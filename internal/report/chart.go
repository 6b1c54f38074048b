// Package report renders the chart artifacts: curve snapshots, slope
// trackers, tenor-change heatmaps, the volatility strip, the
// cross-country spread and the composed one-pager. Line charts render
// through go-chart to PNG and SVG; heatmaps and the one-pager are
// hand-built SVG.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/curvewatch/curvewatch/internal/config"
	"github.com/curvewatch/curvewatch/internal/dataset"
	"github.com/curvewatch/curvewatch/pkg/utils"
)

var (
	colorUS     = drawing.Color{R: 0x1f, G: 0x77, B: 0xb4, A: 255} // blue
	colorCA     = drawing.Color{R: 0xd6, G: 0x27, B: 0x28, A: 255} // red
	colorSpread = drawing.Color{R: 0x44, G: 0x44, B: 0x44, A: 255}
	colorFX     = drawing.Color{R: 0x2c, G: 0xa0, B: 0x2c, A: 255} // green
)

// ErrNoData marks a figure that cannot be drawn from the frame, e.g.
// when a whole country is excluded from the fetch. RenderAll skips
// such figures instead of failing the run.
var ErrNoData = errors.New("not enough data to draw")

func countryColor(country string) drawing.Color {
	if country == "CA" {
		return colorCA
	}
	return colorUS
}

// fade returns the color at reduced opacity, for history lines.
func fade(c drawing.Color) drawing.Color {
	c.A = 90
	return c
}

// Renderer builds chart bytes from a processed frame.
type Renderer struct {
	viz    config.VizConfig
	series []config.SeriesSpec
}

// NewRenderer creates a renderer from the app config.
func NewRenderer(cfg *config.Config) *Renderer {
	return &Renderer{viz: cfg.Viz, series: cfg.Series}
}

// tenorColumns returns (tenorYears, column) pairs for one country,
// sorted by tenor, limited to columns present in the frame.
func (r *Renderer) tenorColumns(f *dataset.Frame, country string) []tenorColumn {
	var out []tenorColumn
	for _, s := range r.series {
		if s.Country != country || s.TenorYears == 0 {
			continue
		}
		if !f.HasColumn(s.Name) {
			continue
		}
		out = append(out, tenorColumn{Tenor: s.TenorYears, Column: s.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tenor < out[j].Tenor })
	return out
}

type tenorColumn struct {
	Tenor  float64
	Column string
}

// render draws the chart in the requested format ("png" or "svg").
func render(ch chart.Chart, format string) ([]byte, error) {
	var buf bytes.Buffer
	provider := chart.PNG
	if format == "svg" {
		provider = chart.SVG
	}
	if err := ch.Render(provider, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}

// CurveSnapshot draws yield versus tenor for both countries on the
// given date, with faded history lines at each configured lookback.
func (r *Renderer) CurveSnapshot(f *dataset.Frame, curveDate time.Time, format string) ([]byte, error) {
	if curveDate.IsZero() {
		curveDate = f.LastDate()
	}

	var series []chart.Series
	for _, country := range []string{"US", "CA"} {
		cols := r.tenorColumns(f, country)
		if len(cols) == 0 {
			continue
		}

		if s := r.curveLine(f, country, cols, curveDate, country+" Today", countryColor(country), 2.5); s != nil {
			series = append(series, *s)
		}
		for _, lb := range r.viz.CompareCurves {
			days := utils.LookbackDays(lb)
			if days == 0 {
				continue
			}
			target := curveDate.AddDate(0, 0, -daysCalendar(days))
			name := fmt.Sprintf("%s %s ago", country, lb)
			if s := r.curveLine(f, country, cols, target, name, fade(countryColor(country)), 1.5); s != nil {
				series = append(series, *s)
			}
		}
	}
	if len(series) == 0 {
		return nil, ErrNoData
	}

	ch := chart.Chart{
		Title:  "US vs Canada Yield Curves - Today vs Prior Dates",
		Width:  r.viz.Width,
		Height: r.viz.Height,
		XAxis:  chart.XAxis{Name: "Tenor (years)"},
		YAxis:  chart.YAxis{Name: "Yield (%)"},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return render(ch, format)
}

// curveLine builds one curve line at (or before) the target date.
// Returns nil if the frame has no usable row.
func (r *Renderer) curveLine(f *dataset.Frame, country string, cols []tenorColumn, target time.Time, name string, color drawing.Color, width float64) *chart.ContinuousSeries {
	row := f.RowOnOrBefore(target)
	if row < 0 {
		return nil
	}
	var xs, ys []float64
	for _, tc := range cols {
		v := f.Value(row, tc.Column)
		if math.IsNaN(v) {
			continue
		}
		xs = append(xs, tc.Tenor)
		ys = append(ys, v)
	}
	if len(xs) < 2 {
		return nil
	}
	return &chart.ContinuousSeries{
		Name:    name,
		XValues: xs,
		YValues: ys,
		Style:   chart.Style{StrokeColor: color, StrokeWidth: width},
	}
}

// SlopeTracker draws the four slope series (2s10s and 5s30s per
// country) in basis points over the last five years. Positive = normal,
// negative = inverted.
func (r *Renderer) SlopeTracker(f *dataset.Frame, format string) ([]byte, error) {
	end := f.LastDate()
	start := end.AddDate(-5, 0, 0)

	slopes := []struct {
		column string
		name   string
		color  drawing.Color
	}{
		{"US_2s10s", "US 2s10s", colorUS},
		{"US_5s30s", "US 5s30s", fade(colorUS)},
		{"CA_2s10s", "CA 2s10s", colorCA},
		{"CA_5s30s", "CA 5s30s", fade(colorCA)},
	}

	var series []chart.Series
	for _, sl := range slopes {
		if !f.HasColumn(sl.column) {
			continue
		}
		xs, ys := timeWindow(f, sl.column, start, 100) // percent → bp
		if len(xs) < 2 {
			continue
		}
		series = append(series, chart.TimeSeries{
			Name:    sl.name,
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeColor: sl.color, StrokeWidth: 1.5},
		})
	}
	if len(series) == 0 {
		return nil, ErrNoData
	}
	// Zero line marks the inversion boundary.
	series = append(series, chart.TimeSeries{
		Name:    "zero",
		XValues: []time.Time{start, end},
		YValues: []float64{0, 0},
		Style:   chart.Style{StrokeColor: drawing.ColorBlack, StrokeWidth: 1, StrokeDashArray: []float64{4, 4}},
	})

	ch := chart.Chart{
		Title:  "Curvature & Steepness Over Time (negative = inverted)",
		Width:  r.viz.Width,
		Height: r.viz.Height,
		YAxis:  chart.YAxis{Name: "bp"},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return render(ch, format)
}

// VolStrip draws the latest rolling volatility per tenor for both
// countries.
func (r *Renderer) VolStrip(f *dataset.Frame, format string) ([]byte, error) {
	window := r.viz.VolWindow
	if window == 0 {
		window = 20
	}

	var series []chart.Series
	for _, country := range []string{"US", "CA"} {
		cols := r.tenorColumns(f, country)
		if len(cols) == 0 {
			continue
		}
		names := make([]string, len(cols))
		for i, tc := range cols {
			names[i] = tc.Column
		}
		vol := dataset.RollingVolBP(f, names, window)

		var xs, ys []float64
		for _, tc := range cols {
			v := lastValid(vol.Column(tc.Column))
			if math.IsNaN(v) {
				continue
			}
			xs = append(xs, tc.Tenor)
			ys = append(ys, v)
		}
		if len(xs) < 2 {
			continue
		}
		series = append(series, chart.ContinuousSeries{
			Name:    country,
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeColor: countryColor(country), StrokeWidth: 1.5},
		})
	}
	if len(series) == 0 {
		return nil, ErrNoData
	}

	ch := chart.Chart{
		Title:  fmt.Sprintf("Rolling %dd Realized Vol (bp/day)", window),
		Width:  r.viz.Width,
		Height: r.viz.Height,
		XAxis:  chart.XAxis{Name: "Tenor (years)"},
		YAxis:  chart.YAxis{Name: "bp"},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return render(ch, format)
}

// SpreadChart draws the 10Y cross-country spread over the last year,
// with USD/CAD on the secondary axis when present.
func (r *Renderer) SpreadChart(f *dataset.Frame, format string) ([]byte, error) {
	end := f.LastDate()
	start := end.AddDate(-1, 0, 0)

	var series []chart.Series
	if f.HasColumn(dataset.SpreadColumn) {
		xs, ys := timeWindow(f, dataset.SpreadColumn, start, 1)
		if len(xs) >= 2 {
			series = append(series, chart.TimeSeries{
				Name:    "UST10 - GoC10",
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeColor: colorSpread, StrokeWidth: 1.5},
			})
		}
	}

	ch := chart.Chart{
		Title:  "UST10 - GoC10 Spread (bp)",
		Width:  r.viz.Width,
		Height: r.viz.Height,
		YAxis:  chart.YAxis{Name: "bp"},
		Series: series,
	}

	if len(ch.Series) == 0 {
		return nil, ErrNoData
	}

	// FX overlay on the secondary axis.
	if fxCol := r.fxColumn(f); fxCol != "" {
		xs, ys := timeWindow(f, fxCol, start, 1)
		if len(xs) >= 2 {
			ch.YAxisSecondary = chart.YAxis{Name: "USD/CAD"}
			ch.Series = append(ch.Series, chart.TimeSeries{
				Name:    "USD/CAD",
				XValues: xs,
				YValues: ys,
				YAxis:   chart.YAxisSecondary,
				Style:   chart.Style{StrokeColor: colorFX, StrokeWidth: 1.2},
			})
		}
	}

	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return render(ch, format)
}

// fxColumn returns the configured FX column present in the frame.
func (r *Renderer) fxColumn(f *dataset.Frame) string {
	for _, s := range r.series {
		if s.Country == "FX" && f.HasColumn(s.Name) {
			return s.Name
		}
	}
	return ""
}

// timeWindow extracts the (date, value*scale) points for a column from
// start onward, skipping NaN cells.
func timeWindow(f *dataset.Frame, column string, start time.Time, scale float64) ([]time.Time, []float64) {
	col := f.Column(column)
	var xs []time.Time
	var ys []float64
	for i, d := range f.Dates {
		if d.Before(start) {
			continue
		}
		v := col[i]
		if math.IsNaN(v) {
			continue
		}
		xs = append(xs, d)
		ys = append(ys, v*scale)
	}
	return xs, ys
}

func lastValid(col []float64) float64 {
	for i := len(col) - 1; i >= 0; i-- {
		if !math.IsNaN(col[i]) {
			return col[i]
		}
	}
	return math.NaN()
}

// daysCalendar widens a trading-day count to calendar days so that
// AddDate lands near the intended lookback.
func daysCalendar(tradingDays int) int {
	return tradingDays * 7 / 5
}
