package fred

import (
	"context"
	"fmt"
	"strconv"

	"github.com/curvewatch/curvewatch/internal/provider"
	"github.com/curvewatch/curvewatch/pkg/models"
)

// ---- YieldSeries fetcher ----
// Returns one Treasury constant maturity series as dated observations.

type yieldSeriesFetcher struct {
	provider.BaseFetcher
	p *Provider
}

func newYieldSeriesFetcher(p *Provider) *yieldSeriesFetcher {
	return &yieldSeriesFetcher{
		BaseFetcher: provider.NewBaseFetcher(
			provider.ModelYieldSeries,
			"US Treasury constant maturity yield series from FRED",
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
	obs, err := f.p.fetchSeries(ctx, seriesID, params)
	if err != nil {
		return nil, fmt.Errorf("fred yield series %s: %w", seriesID, err)
	}

	data := make([]models.Observation, 0, len(obs))
	for _, o := range obs {
		v, err := strconv.ParseFloat(o.Value, 64)
		if err != nil {
			continue
		}
		data = append(data, models.Observation{
			Date:  parseFredDate(o.Date),
			Value: v,
		})
	}

	f.CacheSet(cacheKey, data)
	return newResult(data), nil
}

// ---- YieldCurve fetcher ----
// Returns full-history curve points across all US tenors.

type yieldCurveFetcher struct {
	provider.BaseFetcher
	p *Provider
}

func newYieldCurveFetcher(p *Provider) *yieldCurveFetcher {
	return &yieldCurveFetcher{
		BaseFetcher: provider.NewBaseFetcher(
			provider.ModelYieldCurve,
			"US Treasury yield curve (3M to 30Y) from FRED",
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
	for _, s := range treasurySeries {
		obs, err := f.p.fetchSeries(ctx, s.seriesID, params)
		if err != nil {
			lastErr = err
			continue // Skip unavailable tenors.
		}
		for _, o := range obs {
			v, err := strconv.ParseFloat(o.Value, 64)
			if err != nil {
				continue
			}
			points = append(points, models.CurvePoint{
				Date:    parseFredDate(o.Date),
				Country: "US",
				Tenor:   s.tenor,
				Yield:   v,
			})
		}
	}
	if len(points) == 0 && lastErr != nil {
		return nil, fmt.Errorf("fred yield curve: %w", lastErr)
	}

	f.CacheSet(cacheKey, points)
	return newResult(points), nil
}

// ---- LatestYields fetcher ----
// Returns the most recent observation per US tenor.

type latestYieldsFetcher struct {
	provider.BaseFetcher
	p *Provider
}

func newLatestYieldsFetcher(p *Provider) *latestYieldsFetcher {
	return &latestYieldsFetcher{
		BaseFetcher: provider.NewBaseFetcher(
			provider.ModelLatestYields,
			"Most recent US Treasury yield per tenor from FRED",
			nil,
			nil,
		),
		p: p,
	}
}

func (f *latestYieldsFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	cacheKey := provider.CacheKey(f.ModelType(), params)
	if cached, ok := f.CacheGet(cacheKey); ok {
		return newCachedResult(cached), nil
	}
	if err := f.RateLimit(ctx); err != nil {
		return nil, err
	}

	limitParams := make(provider.QueryParams, len(params)+1)
	for k, v := range params {
		limitParams[k] = v
	}
	limitParams[provider.ParamLimit] = "1"

	var points []models.CurvePoint
	for _, s := range treasurySeries {
		obs, err := f.p.fetchSeries(ctx, s.seriesID, limitParams)
		if err != nil || len(obs) == 0 {
			continue
		}
		// With limit=1 the API returns the newest row; the CSV path
		// returns full history, so take the final row.
		o := obs[len(obs)-1]
		v, err := strconv.ParseFloat(o.Value, 64)
		if err != nil {
			continue
		}
		points = append(points, models.CurvePoint{
			Date:    parseFredDate(o.Date),
			Country: "US",
			Tenor:   s.tenor,
			Yield:   v,
		})
	}

	f.CacheSet(cacheKey, points)
	return newResult(points), nil
}
