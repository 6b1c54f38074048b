package boc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/curvewatch/curvewatch/internal/infra"
	"github.com/curvewatch/curvewatch/internal/provider"
	"github.com/curvewatch/curvewatch/pkg/models"
)

// fetchObservations pulls one Valet series. The JSON shape comes from
// the Accept header, not a /json path suffix, which 404s for some
// series. A start_date narrows the range; if that request is rejected
// (some series don't accept it) the fetch retries with recent=5000,
// which covers roughly twenty years of daily data.
func (p *Provider) fetchObservations(ctx context.Context, seriesID string, params provider.QueryParams) ([]valetObservation, error) {
	base := p.valetURL + "/observations/" + url.PathEscape(seriesID)

	reqURL := base
	if sd := params[provider.ParamStartDate]; sd != "" {
		reqURL += "?start_date=" + sd
		if ed := params[provider.ParamEndDate]; ed != "" {
			reqURL += "&end_date=" + ed
		}
	} else if n := params[provider.ParamLimit]; n != "" {
		reqURL += "?recent=" + n
	}

	obs, err := p.getObservations(ctx, reqURL)
	if err == nil {
		return obs, nil
	}

	// Retry the whole recent history.
	obs, retryErr := p.getObservations(ctx, base+"?recent=5000")
	if retryErr != nil {
		return nil, fmt.Errorf("valet %s: %w", seriesID, err)
	}
	return obs, nil
}

func (p *Provider) getObservations(ctx context.Context, reqURL string) ([]valetObservation, error) {
	body, _, err := infra.DoGet(ctx, reqURL, jsonHeaders())
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read valet response: %w", err)
	}

	var resp valetObservationsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse valet JSON: %w", err)
	}
	return resp.Observations, nil
}

// seriesObservations flattens raw Valet rows into dated values for one
// series, dropping empty cells.
func seriesObservations(obs []valetObservation, seriesID string) []models.Observation {
	out := make([]models.Observation, 0, len(obs))
	for _, o := range obs {
		v, ok := o.Value(seriesID)
		if !ok {
			continue
		}
		out = append(out, models.Observation{
			Date:  parseValetDate(o.Date),
			Value: v,
		})
	}
	return out
}

// ---- YieldSeries fetcher ----

type yieldSeriesFetcher struct {
	provider.BaseFetcher
	p *Provider
}

func newYieldSeriesFetcher(p *Provider) *yieldSeriesFetcher {
	return &yieldSeriesFetcher{
		BaseFetcher: provider.NewBaseFetcher(
			provider.ModelYieldSeries,
			"GoC benchmark yield series from the Valet API",
			[]string{provider.ParamSeriesID},
			[]string{provider.ParamStartDate, provider.ParamEndDate, provider.ParamLimit},
		),
		p: p,
	}
}

func (f *yieldSeriesFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	cacheKey := provider.CacheKey(f.ModelType(), params)
	if cached, ok := f.CacheGet(cacheKey); ok {
		return newCachedResult(cached), nil
	}
	if err := f.RateLimit(ctx); err != nil {
		return nil, err
	}

	seriesID := params[provider.ParamSeriesID]
	obs, err := f.p.fetchObservations(ctx, seriesID, params)
	if err != nil {
		return nil, err
	}

	data := seriesObservations(obs, seriesID)
	f.CacheSet(cacheKey, data)
	return newResult(data), nil
}

// ---- YieldCurve fetcher ----
// Returns curve points across all GoC benchmark tenors.

type yieldCurveFetcher struct {
	provider.BaseFetcher
	p *Provider
}

func newYieldCurveFetcher(p *Provider) *yieldCurveFetcher {
	return &yieldCurveFetcher{
		BaseFetcher: provider.NewBaseFetcher(
			provider.ModelYieldCurve,
			"GoC benchmark yield curve (3M to 30Y) from the Valet API",
			nil,
			[]string{provider.ParamStartDate, provider.ParamEndDate},
		),
		p: p,
	}
}

func (f *yieldCurveFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	cacheKey := provider.CacheKey(f.ModelType(), params)
	if cached, ok := f.CacheGet(cacheKey); ok {
		return newCachedResult(cached), nil
	}
	if err := f.RateLimit(ctx); err != nil {
		return nil, err
	}

	var points []models.CurvePoint
	var lastErr error
	for _, s := range benchmarkSeries {
		obs, err := f.p.fetchObservations(ctx, s.seriesID, params)
		if err != nil {
			lastErr = err
			continue // Skip unavailable tenors.
		}
		for _, o := range obs {
			v, ok := o.Value(s.seriesID)
			if !ok {
				continue
			}
			points = append(points, models.CurvePoint{
				Date:    parseValetDate(o.Date),
				Country: "CA",
				Tenor:   s.tenor,
				Yield:   v,
			})
		}
	}
	if len(points) == 0 && lastErr != nil {
		return nil, fmt.Errorf("boc yield curve: %w", lastErr)
	}

	f.CacheSet(cacheKey, points)
	return newResult(points), nil
}

func newResult(data any) *provider.FetchResult {
	return &provider.FetchResult{Data: data}
}

func newCachedResult(data any) *provider.FetchResult {
	return &provider.FetchResult{Data: data, Cached: true}
}
