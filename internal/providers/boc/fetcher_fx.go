package boc

import (
	"context"

	"github.com/curvewatch/curvewatch/internal/provider"
	"github.com/curvewatch/curvewatch/pkg/models"
)

// ---- FXRate fetcher ----
// Valet publishes daily noon FX rates; USD/CAD is series FXUSDCAD.

const defaultFXSeries = "FXUSDCAD"

type fxFetcher struct {
	provider.BaseFetcher
	p *Provider
}

func newFXFetcher(p *Provider) *fxFetcher {
	return &fxFetcher{
		BaseFetcher: provider.NewBaseFetcher(
			provider.ModelFXRate,
			"Daily FX rates from the Valet API (default USD/CAD)",
			nil,
			[]string{provider.ParamSeriesID, provider.ParamStartDate, provider.ParamEndDate, provider.ParamLimit},
		),
		p: p,
	}
}

func (f *fxFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	cacheKey := provider.CacheKey(f.ModelType(), params)
	if cached, ok := f.CacheGet(cacheKey); ok {
		return newCachedResult(cached), nil
	}
	if err := f.RateLimit(ctx); err != nil {
		return nil, err
	}

	seriesID := params[provider.ParamSeriesID]
	if seriesID == "" {
		seriesID = defaultFXSeries
	}

	obs, err := f.p.fetchObservations(ctx, seriesID, params)
	if err != nil {
		return nil, err
	}

	// Valet FX series are named FX<BASE><QUOTE>, e.g. FXUSDCAD.
	pair := seriesID
	if len(pair) == 8 && pair[:2] == "FX" {
		pair = pair[2:5] + "/" + pair[5:]
	}

	data := make([]models.FXObservation, 0, len(obs))
	for _, o := range obs {
		v, ok := o.Value(seriesID)
		if !ok {
			continue
		}
		data = append(data, models.FXObservation{
			Date: parseValetDate(o.Date),
			Pair: pair,
			Rate: v,
		})
	}

	f.CacheSet(cacheKey, data)
	return newResult(data), nil
}
