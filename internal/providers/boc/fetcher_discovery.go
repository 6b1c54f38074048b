package boc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/curvewatch/curvewatch/internal/infra"
	"github.com/curvewatch/curvewatch/internal/provider"
	"github.com/curvewatch/curvewatch/pkg/models"
)

// ---- SeriesDiscovery fetcher ----
// Lists the Valet series catalog, filtered to yield-like series and
// optionally by a free-text query. Useful for finding the current
// benchmark series names, which the Bank occasionally renames.

// yieldSeriesPattern matches GoC benchmark bond and treasury bill yield
// series names, e.g. BD.CDN.10YR.DQ.YLD, TB.CDN.90D.DQ.YLD.
var yieldSeriesPattern = regexp.MustCompile(`^(BD|TB)\.CDN\..*\.YLD$`)

// tenorPattern extracts the maturity from a series name.
var tenorPattern = regexp.MustCompile(`\.(\d+)YR\.|\.(\d+)D\.|\.LONG\.`)

type discoveryFetcher struct {
	provider.BaseFetcher
	p *Provider
}

func newDiscoveryFetcher(p *Provider) *discoveryFetcher {
	return &discoveryFetcher{
		BaseFetcher: provider.NewBaseFetcher(
			provider.ModelSeriesDiscovery,
			"List GoC yield series in the Valet catalog",
			nil,
			[]string{provider.ParamQuery},
		),
		p: p,
	}
}

func (f *discoveryFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	cacheKey := provider.CacheKey(f.ModelType(), params)
	if cached, ok := f.CacheGet(cacheKey); ok {
		return newCachedResult(cached), nil
	}
	if err := f.RateLimit(ctx); err != nil {
		return nil, err
	}

	body, _, err := infra.DoGet(ctx, f.p.valetURL+"/lists/series/json", jsonHeaders())
	if err != nil {
		return nil, fmt.Errorf("valet series list: %w", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read valet list: %w", err)
	}

	var resp valetListResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse valet list: %w", err)
	}

	query := strings.ToLower(params[provider.ParamQuery])
	var infos []models.SeriesInfo
	for name, detail := range resp.Series {
		if !yieldSeriesPattern.MatchString(name) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(name), query) &&
			!strings.Contains(strings.ToLower(detail.Label), query) {
			continue
		}
		infos = append(infos, models.SeriesInfo{
			ID:          name,
			Label:       detail.Label,
			Description: detail.Description,
			Tenor:       tenorFromName(name),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })

	f.CacheSet(cacheKey, infos)
	return newResult(infos), nil
}

// tenorFromName derives a tenor label from a Valet series name.
// ".LONG." is the long-term benchmark, treated as the 30Y point.
func tenorFromName(name string) string {
	m := tenorPattern.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	switch {
	case m[1] != "": // NYR
		return m[1] + "Y"
	case m[2] != "": // ND, e.g. 90 day bill
		if m[2] == "90" {
			return "3M"
		}
		return m[2] + "D"
	default: // LONG
		return "30Y"
	}
}
