package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/curvewatch/curvewatch/internal/dataset"
	"github.com/curvewatch/curvewatch/pkg/utils"
)

// Heatmap buckets, oldest lookback last. The 1d bucket is too noisy to
// plot and is left to the API payloads.
var heatmapBuckets = []string{"1w", "1m", "3m"}

// TenorHeatmap renders the tenor-change grid for one country as SVG.
// Cells shade from grey (yields fell) through white to the country
// color (yields rose), scaled to the largest absolute move.
func (r *Renderer) TenorHeatmap(f *dataset.Frame, country string) ([]byte, error) {
	cols := r.tenorColumns(f, country)
	if len(cols) == 0 {
		return nil, fmt.Errorf("no %s tenor columns in frame: %w", country, ErrNoData)
	}

	names := make([]string, len(cols))
	for i, tc := range cols {
		names[i] = tc.Column
	}
	latest := dataset.LatestChanges(f, names)

	// Drop buckets with no data at all (limited history).
	var buckets []string
	for _, b := range heatmapBuckets {
		if len(latest[b]) > 0 {
			buckets = append(buckets, b)
		}
	}

	// Scale to the largest absolute change.
	var vmax float64
	for _, b := range buckets {
		for _, v := range latest[b] {
			if a := math.Abs(v); a > vmax {
				vmax = a
			}
		}
	}
	if vmax == 0 {
		vmax = 1
	}

	const (
		cellW      = 110
		cellH      = 56
		marginLeft = 70
		marginTop  = 60
	)
	width := marginLeft + cellW*len(cols) + 20
	height := marginTop + cellH*len(buckets) + 40

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, width, height, width, height)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="#ffffff"/>`, width, height)

	title := fmt.Sprintf("%s Tenor Changes (bp)", country)
	if len(buckets) < len(heatmapBuckets) {
		title += " - limited history"
	}
	fmt.Fprintf(&b, `<text x="%d" y="28" font-family="sans-serif" font-size="16" fill="#333">%s</text>`, marginLeft, title)

	// Column headers: tenors.
	for i, tc := range cols {
		x := marginLeft + i*cellW + cellW/2
		fmt.Fprintf(&b, `<text x="%d" y="%d" font-family="sans-serif" font-size="12" fill="#333" text-anchor="middle">%sY</text>`,
			x, marginTop-10, trimTenor(tc.Tenor))
	}

	for bi, bucket := range buckets {
		y := marginTop + bi*cellH
		// Row label.
		fmt.Fprintf(&b, `<text x="%d" y="%d" font-family="sans-serif" font-size="12" fill="#333" text-anchor="end">%s</text>`,
			marginLeft-8, y+cellH/2+4, bucket)

		for ci, tc := range cols {
			x := marginLeft + ci*cellW
			v, ok := latest[bucket][tc.Column]
			if !ok {
				fmt.Fprintf(&b, `<rect x="%d" y="%d" width="%d" height="%d" fill="#fafafa" stroke="#ddd"/>`, x, y, cellW, cellH)
				continue
			}
			fill := divergingColor(v/vmax, country)
			fmt.Fprintf(&b, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s" stroke="#ddd"/>`, x, y, cellW, cellH, fill)
			fmt.Fprintf(&b, `<text x="%d" y="%d" font-family="sans-serif" font-size="13" fill="%s" text-anchor="middle">%s</text>`,
				x+cellW/2, y+cellH/2+5, cellText(v/vmax), utils.FormatBP(v))
		}
	}

	b.WriteString(`</svg>`)
	return []byte(b.String()), nil
}

// trimTenor formats 0.25 as "0.25" and whole tenors without decimals.
func trimTenor(t float64) string {
	if t == math.Trunc(t) {
		return fmt.Sprintf("%.0f", t)
	}
	return fmt.Sprintf("%g", t)
}

// divergingColor maps a normalized value in [-1, 1] to a hex fill.
// Negative values darken toward grey, positive toward the country
// color, zero is white.
func divergingColor(norm float64, country string) string {
	if norm > 1 {
		norm = 1
	}
	if norm < -1 {
		norm = -1
	}
	if norm < 0 {
		// white → dark grey
		return blend(0xff, 0xff, 0xff, 0x4d, 0x4d, 0x4d, -norm)
	}
	if country == "CA" {
		// white → dark red
		return blend(0xff, 0xff, 0xff, 0xd6, 0x27, 0x28, norm)
	}
	// white → dark blue
	return blend(0xff, 0xff, 0xff, 0x1f, 0x77, 0xb4, norm)
}

// cellText picks a readable text color for the fill intensity.
func cellText(norm float64) string {
	if math.Abs(norm) > 0.6 {
		return "#ffffff"
	}
	return "#333333"
}

func blend(r0, g0, b0, r1, g1, b1 int, t float64) string {
	lerp := func(a, b int) int { return a + int(t*float64(b-a)) }
	return fmt.Sprintf("#%02x%02x%02x", lerp(r0, r1), lerp(g0, g1), lerp(b0, b1))
}
