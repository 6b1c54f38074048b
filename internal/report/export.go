package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/curvewatch/curvewatch/internal/dataset"
	"github.com/curvewatch/curvewatch/pkg/utils"
)

// Figure base names, matched by the one-pager and the API chart
// endpoint.
const (
	FigCurves    = "curves_snapshot"
	FigSlopes    = "slopes"
	FigHeatmapUS = "heatmap_US"
	FigHeatmapCA = "heatmap_CA"
	FigVolStrip  = "vol_strip"
	FigSpread    = "xccy_spread"
	FigOnePager  = "one_pager"
)

// FigureNames lists the individual figures in render order.
var FigureNames = []string{FigCurves, FigSlopes, FigHeatmapUS, FigHeatmapCA, FigVolStrip, FigSpread}

// wantsFormat reports whether the config enables the given format.
func (r *Renderer) wantsFormat(format string) bool {
	for _, f := range r.viz.Formats {
		if f == format {
			return true
		}
	}
	return false
}

// saveFigure writes dated and _latest copies of one figure in one
// format. Returns the dated path.
func (r *Renderer) saveFigure(dir, baseName, format string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create figure dir: %w", err)
	}
	dated := filepath.Join(dir, fmt.Sprintf("%s_%s.%s", baseName, utils.TodayString(), format))
	latest := filepath.Join(dir, fmt.Sprintf("%s_latest.%s", baseName, format))
	if err := os.WriteFile(dated, data, 0o644); err != nil {
		return "", err
	}
	if err := os.WriteFile(latest, data, 0o644); err != nil {
		return "", err
	}
	return dated, nil
}

// RenderAll renders every figure in every enabled format and writes
// them under the configured output directory. Returns the dated paths
// written.
func (r *Renderer) RenderAll(f *dataset.Frame) ([]string, error) {
	type job struct {
		name    string
		render  func(format string) ([]byte, error)
		svgOnly bool
	}
	jobs := []job{
		{name: FigCurves, render: func(format string) ([]byte, error) { return r.CurveSnapshot(f, time.Time{}, format) }},
		{name: FigSlopes, render: func(format string) ([]byte, error) { return r.SlopeTracker(f, format) }},
		{name: FigHeatmapUS, render: func(string) ([]byte, error) { return r.TenorHeatmap(f, "US") }, svgOnly: true},
		{name: FigHeatmapCA, render: func(string) ([]byte, error) { return r.TenorHeatmap(f, "CA") }, svgOnly: true},
		{name: FigVolStrip, render: func(format string) ([]byte, error) { return r.VolStrip(f, format) }},
		{name: FigSpread, render: func(format string) ([]byte, error) { return r.SpreadChart(f, format) }},
	}

	var written []string
	for _, j := range jobs {
		formats := r.viz.Formats
		if j.svgOnly {
			formats = []string{"svg"}
		}
		for _, format := range formats {
			if !j.svgOnly && !r.wantsFormat(format) {
				continue
			}
			data, err := j.render(format)
			if errors.Is(err, ErrNoData) {
				continue
			}
			if err != nil {
				return written, fmt.Errorf("render %s (%s): %w", j.name, format, err)
			}
			path, err := r.saveFigure(r.viz.OutDir, j.name, format, data)
			if err != nil {
				return written, fmt.Errorf("save %s: %w", j.name, err)
			}
			written = append(written, path)
		}
	}
	return written, nil
}

// LatestFigurePath returns the path of a figure's _latest copy,
// preferring PNG and falling back to SVG.
func (r *Renderer) LatestFigurePath(name string) (string, error) {
	dir := r.viz.OutDir
	if name == FigOnePager {
		dir = r.viz.OnePagerDir
	}
	for _, format := range []string{"png", "svg"} {
		p := filepath.Join(dir, fmt.Sprintf("%s_latest.%s", name, format))
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no rendered artifact for %q", name)
}
