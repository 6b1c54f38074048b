package fred

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/curvewatch/curvewatch/internal/provider"
	"github.com/curvewatch/curvewatch/pkg/models"
)

// ---- SeriesDiscovery fetcher ----
// Searches the FRED catalog for series matching a query. Without an API
// key the search endpoint is unavailable, so the fetcher falls back to
// the known Treasury constant maturity series.

type discoveryFetcher struct {
	provider.BaseFetcher
	p *Provider
}

func newDiscoveryFetcher(p *Provider) *discoveryFetcher {
	return &discoveryFetcher{
		BaseFetcher: provider.NewBaseFetcher(
			provider.ModelSeriesDiscovery,
			"Search the FRED series catalog",
			nil,
			[]string{provider.ParamQuery, provider.ParamLimit},
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

	query := params[provider.ParamQuery]
	if f.p.apiKey == "" {
		infos := knownTreasurySeries(query)
		f.CacheSet(cacheKey, infos)
		return newResult(infos), nil
	}

	endpoint := "series/search?search_text=" + url.QueryEscape(query)
	if lim := params[provider.ParamLimit]; lim != "" {
		endpoint += "&limit=" + lim
	}

	var resp fredSearchResponse
	if err := f.p.fetchJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("fred series search: %w", err)
	}

	infos := make([]models.SeriesInfo, 0, len(resp.Seriess))
	for _, s := range resp.Seriess {
		infos = append(infos, models.SeriesInfo{
			ID:          s.ID,
			Label:       s.Title,
			Description: s.Notes,
			Tenor:       tenorForSeries(s.ID),
		})
	}

	f.CacheSet(cacheKey, infos)
	return newResult(infos), nil
}

// knownTreasurySeries filters the built-in series list by a free-text
// query against ID and tenor.
func knownTreasurySeries(query string) []models.SeriesInfo {
	q := strings.ToUpper(strings.TrimSpace(query))
	var infos []models.SeriesInfo
	for _, s := range treasurySeries {
		if q != "" && !strings.Contains(s.seriesID, q) && !strings.Contains(s.tenor, q) {
			continue
		}
		infos = append(infos, models.SeriesInfo{
			ID:    s.seriesID,
			Label: fmt.Sprintf("US Treasury %s constant maturity", s.tenor),
			Tenor: s.tenor,
		})
	}
	return infos
}

func tenorForSeries(id string) string {
	for _, s := range treasurySeries {
		if s.seriesID == id {
			return s.tenor
		}
	}
	return ""
}
