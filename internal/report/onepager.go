package report

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/curvewatch/curvewatch/pkg/utils"
)

// One-pager layout: three rows of two panels, mirroring the order a
// reader scans the dashboard in.
var onePagerGrid = [][2]string{
	{FigCurves, FigSpread},
	{FigSlopes, FigHeatmapUS},
	{FigVolStrip, FigHeatmapCA},
}

const (
	panelW  = 560
	panelH  = 300
	opadX   = 16
	opadY   = 16
	headerH = 52
)

// OnePager composes the rendered figures into a single SVG dashboard
// and writes dated and _latest copies to the one-pager directory.
// Figures must have been rendered first; missing panels are left blank.
func (r *Renderer) OnePager() (string, error) {
	width := opadX*3 + panelW*2
	height := headerH + (panelH+opadY)*len(onePagerGrid) + opadY

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" width="%d" height="%d" viewBox="0 0 %d %d">`, width, height, width, height)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="#ffffff"/>`, width, height)
	fmt.Fprintf(&b, `<text x="%d" y="32" font-family="sans-serif" font-size="20" fill="#222">Treasury vs GoC Dashboard - One Pager</text>`, opadX)
	fmt.Fprintf(&b, `<text x="%d" y="32" font-family="sans-serif" font-size="13" fill="#777" text-anchor="end">%s</text>`, width-opadX, utils.TodayString())

	for row, pair := range onePagerGrid {
		y := headerH + row*(panelH+opadY)
		for col, name := range pair {
			x := opadX + col*(panelW+opadX)
			if err := r.writePanel(&b, name, x, y); err != nil {
				// Leave the slot empty with a note instead of failing
				// the whole composition.
				fmt.Fprintf(&b, `<rect x="%d" y="%d" width="%d" height="%d" fill="#fafafa" stroke="#ddd"/>`, x, y, panelW, panelH)
				fmt.Fprintf(&b, `<text x="%d" y="%d" font-family="sans-serif" font-size="12" fill="#999" text-anchor="middle">%s unavailable</text>`,
					x+panelW/2, y+panelH/2, name)
			}
		}
	}
	b.WriteString(`</svg>`)

	dir := r.viz.OnePagerDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create one-pager dir: %w", err)
	}
	dated := filepath.Join(dir, fmt.Sprintf("%s_%s.svg", FigOnePager, utils.TodayString()))
	latest := filepath.Join(dir, fmt.Sprintf("%s_latest.svg", FigOnePager))
	data := []byte(b.String())
	if err := os.WriteFile(dated, data, 0o644); err != nil {
		return "", err
	}
	if err := os.WriteFile(latest, data, 0o644); err != nil {
		return "", err
	}
	return dated, nil
}

// writePanel embeds one rendered figure into the grid slot as a data
// URI image.
func (r *Renderer) writePanel(b *strings.Builder, name string, x, y int) error {
	path, err := r.LatestFigurePath(name)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	mime := "image/png"
	if strings.HasSuffix(path, ".svg") {
		mime = "image/svg+xml"
	}
	fmt.Fprintf(b, `<image x="%d" y="%d" width="%d" height="%d" preserveAspectRatio="xMidYMid meet" xlink:href="data:%s;base64,%s"/>`,
		x, y, panelW, panelH, mime, base64.StdEncoding.EncodeToString(data))
	return nil
}
