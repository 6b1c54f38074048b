package report

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/curvewatch/curvewatch/internal/config"
	"github.com/curvewatch/curvewatch/internal/dataset"
	"github.com/curvewatch/curvewatch/pkg/utils"
)

// testFrame builds a processed frame with two years of daily history
// for every default series, plus slopes and the 10Y spread.
func testFrame(t *testing.T, cfg *config.Config) *dataset.Frame {
	t.Helper()

	f := dataset.NewFrame()
	end := utils.Midnight(time.Now().UTC())
	n := 520
	for i := n - 1; i >= 0; i-- {
		f.Dates = append(f.Dates, end.AddDate(0, 0, -i))
	}

	base := map[string]float64{
		"US_3M": 5.3, "US_2Y": 4.6, "US_5Y": 4.2, "US_10Y": 4.1, "US_30Y": 4.2,
		"CA_3M": 5.1, "CA_2Y": 4.2, "CA_5Y": 3.7, "CA_10Y": 3.6, "CA_30Y": 3.7,
		"USDCAD": 1.36,
	}
	for name, b := range base {
		vals := make([]float64, n)
		for i := range vals {
			// Gentle deterministic wiggle so every chart has shape.
			vals[i] = b + 0.2*math.Sin(float64(i)/40)
		}
		f.AddColumn(name, vals)
	}

	f.ComputeSlopes(cfg.TenorMapping())
	f.ComputeSpread("US_10Y", "CA_10Y")
	return f
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	dir := t.TempDir()
	cfg.Viz.OutDir = filepath.Join(dir, "figures")
	cfg.Viz.OnePagerDir = filepath.Join(dir, "one_pager")
	return cfg
}

func TestCurveSnapshot(t *testing.T) {
	cfg := testConfig(t)
	r := NewRenderer(cfg)
	f := testFrame(t, cfg)

	for _, format := range []string{"png", "svg"} {
		data, err := r.CurveSnapshot(f, time.Time{}, format)
		if err != nil {
			t.Fatalf("CurveSnapshot(%s): %v", format, err)
		}
		if len(data) == 0 {
			t.Errorf("empty %s output", format)
		}
	}

	svg, err := r.CurveSnapshot(f, time.Time{}, "svg")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(svg, []byte("US Today")) || !bytes.Contains(svg, []byte("CA Today")) {
		t.Error("legend missing country lines")
	}
}

func TestSlopeTracker(t *testing.T) {
	cfg := testConfig(t)
	r := NewRenderer(cfg)
	f := testFrame(t, cfg)

	svg, err := r.SlopeTracker(f, "svg")
	if err != nil {
		t.Fatalf("SlopeTracker: %v", err)
	}
	for _, want := range []string{"US 2s10s", "CA 2s10s", "US 5s30s"} {
		if !bytes.Contains(svg, []byte(want)) {
			t.Errorf("legend missing %q", want)
		}
	}
}

func TestTenorHeatmap(t *testing.T) {
	cfg := testConfig(t)
	r := NewRenderer(cfg)
	f := testFrame(t, cfg)

	for _, country := range []string{"US", "CA"} {
		svg, err := r.TenorHeatmap(f, country)
		if err != nil {
			t.Fatalf("TenorHeatmap(%s): %v", country, err)
		}
		s := string(svg)
		if !strings.Contains(s, country+" Tenor Changes (bp)") {
			t.Errorf("%s heatmap missing title", country)
		}
		for _, bucket := range []string{"1w", "1m", "3m"} {
			if !strings.Contains(s, ">"+bucket+"<") {
				t.Errorf("%s heatmap missing %s row", country, bucket)
			}
		}
	}
}

func TestTenorHeatmapShortHistory(t *testing.T) {
	cfg := testConfig(t)
	r := NewRenderer(cfg)

	// Ten rows is enough for the 1w bucket but not 1m or 3m.
	f := dataset.NewFrame()
	end := utils.Midnight(time.Now().UTC())
	for i := 9; i >= 0; i-- {
		f.Dates = append(f.Dates, end.AddDate(0, 0, -i))
	}
	vals := make([]float64, 10)
	for i := range vals {
		vals[i] = 4.0 + 0.01*float64(i)
	}
	f.AddColumn("US_10Y", vals)

	svg, err := r.TenorHeatmap(f, "US")
	if err != nil {
		t.Fatalf("TenorHeatmap: %v", err)
	}
	if !strings.Contains(string(svg), "limited history") {
		t.Error("expected limited-history title suffix")
	}
}

func TestVolStripAndSpread(t *testing.T) {
	cfg := testConfig(t)
	r := NewRenderer(cfg)
	f := testFrame(t, cfg)

	if data, err := r.VolStrip(f, "png"); err != nil || len(data) == 0 {
		t.Fatalf("VolStrip: %v (len %d)", err, len(data))
	}

	svg, err := r.SpreadChart(f, "svg")
	if err != nil {
		t.Fatalf("SpreadChart: %v", err)
	}
	if !bytes.Contains(svg, []byte("USD/CAD")) {
		t.Error("FX overlay missing from spread chart")
	}
}

func TestRenderAll(t *testing.T) {
	cfg := testConfig(t)
	r := NewRenderer(cfg)
	f := testFrame(t, cfg)

	written, err := r.RenderAll(f)
	if err != nil {
		t.Fatalf("RenderAll: %v", err)
	}
	if len(written) == 0 {
		t.Fatal("no artifacts written")
	}

	// Line charts in both formats, heatmaps SVG only.
	today := utils.TodayString()
	for _, want := range []string{
		FigCurves + "_" + today + ".png",
		FigCurves + "_latest.svg",
		FigSlopes + "_latest.png",
		FigHeatmapUS + "_latest.svg",
		FigHeatmapCA + "_" + today + ".svg",
		FigVolStrip + "_latest.png",
		FigSpread + "_latest.svg",
	} {
		if _, err := os.Stat(filepath.Join(cfg.Viz.OutDir, want)); err != nil {
			t.Errorf("missing artifact %s: %v", want, err)
		}
	}
	if _, err := os.Stat(filepath.Join(cfg.Viz.OutDir, FigHeatmapUS+"_latest.png")); err == nil {
		t.Error("heatmap should not render to PNG")
	}
}

func TestRenderAllSkipsEmptyFigures(t *testing.T) {
	cfg := testConfig(t)
	r := NewRenderer(cfg)

	// A frame with no recognizable columns renders nothing, but the run
	// itself does not fail.
	f := dataset.NewFrame()
	f.Dates = append(f.Dates, utils.Midnight(time.Now().UTC()))
	f.AddColumn("UNRELATED", []float64{1})

	written, err := r.RenderAll(f)
	if err != nil {
		t.Fatalf("RenderAll: %v", err)
	}
	if len(written) != 0 {
		t.Errorf("expected no artifacts, got %v", written)
	}
}

func TestOnePager(t *testing.T) {
	cfg := testConfig(t)
	r := NewRenderer(cfg)
	f := testFrame(t, cfg)

	if _, err := r.RenderAll(f); err != nil {
		t.Fatalf("RenderAll: %v", err)
	}
	path, err := r.OnePager()
	if err != nil {
		t.Fatalf("OnePager: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if !strings.Contains(s, "Treasury vs GoC Dashboard - One Pager") {
		t.Error("one-pager missing title")
	}
	if strings.Count(s, "<image ") != len(FigureNames) {
		t.Errorf("expected %d embedded panels, got %d", len(FigureNames), strings.Count(s, "<image "))
	}

	if _, err := os.Stat(filepath.Join(cfg.Viz.OnePagerDir, FigOnePager+"_latest.svg")); err != nil {
		t.Errorf("missing latest one-pager: %v", err)
	}
}

func TestOnePagerMissingPanels(t *testing.T) {
	cfg := testConfig(t)
	r := NewRenderer(cfg)

	// Nothing rendered yet: panels degrade to placeholders.
	path, err := r.OnePager()
	if err != nil {
		t.Fatalf("OnePager: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "unavailable") {
		t.Error("expected placeholder panels")
	}
}

func TestLatestFigurePath(t *testing.T) {
	cfg := testConfig(t)
	r := NewRenderer(cfg)

	if _, err := r.LatestFigurePath(FigCurves); err == nil {
		t.Error("expected error before rendering")
	}

	if err := os.MkdirAll(cfg.Viz.OutDir, 0o755); err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(cfg.Viz.OutDir, FigCurves+"_latest.svg")
	if err := os.WriteFile(p, []byte("<svg/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := r.LatestFigurePath(FigCurves)
	if err != nil {
		t.Fatalf("LatestFigurePath: %v", err)
	}
	if got != p {
		t.Errorf("path = %q, want %q", got, p)
	}
}
