package boc

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/curvewatch/curvewatch/internal/infra"
	"github.com/curvewatch/curvewatch/internal/provider"
	"github.com/curvewatch/curvewatch/pkg/models"
)

// ---- LatestYields fetcher ----
// Scrapes the Bank's Canadian bonds rates page for the most recent
// benchmark yields. The page updates before Valet on some afternoons.
// If the scrape finds nothing usable, falls back to Valet recent=1.

type latestYieldsFetcher struct {
	provider.BaseFetcher
	p *Provider
}

func newLatestYieldsFetcher(p *Provider) *latestYieldsFetcher {
	return &latestYieldsFetcher{
		BaseFetcher: provider.NewBaseFetcher(
			provider.ModelLatestYields,
			"Most recent GoC benchmark yields from the Bank's rates page",
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

	points, err := f.scrapePage(ctx)
	if err != nil || len(points) == 0 {
		points, err = f.fromValet(ctx)
		if err != nil {
			return nil, err
		}
	}

	f.CacheSet(cacheKey, points)
	return newResult(points), nil
}

// rowTenors maps row labels on the rates page to tenor labels.
var rowTenors = []struct {
	match string
	tenor string
}{
	{"2 year", "2Y"},
	{"5 year", "5Y"},
	{"10 year", "10Y"},
	{"long-term", "30Y"},
	{"3 month", "3M"},
}

func (f *latestYieldsFetcher) scrapePage(ctx context.Context) ([]models.CurvePoint, error) {
	body, _, err := infra.DoGet(ctx, f.p.pageURL, map[string]string{"Accept": "text/html"})
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, err
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	var points []models.CurvePoint
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		label := strings.ToLower(strings.TrimSpace(row.Find("th, td").First().Text()))
		if label == "" {
			return
		}
		for _, rt := range rowTenors {
			if !strings.Contains(label, rt.match) {
				continue
			}
			// Latest value sits in the last cell of the row.
			raw := strings.TrimSpace(row.Find("td").Last().Text())
			raw = strings.TrimSuffix(raw, "%")
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return
			}
			points = append(points, models.CurvePoint{
				Date:    today,
				Country: "CA",
				Tenor:   rt.tenor,
				Yield:   v,
			})
			return
		}
	})
	return points, nil
}

func (f *latestYieldsFetcher) fromValet(ctx context.Context) ([]models.CurvePoint, error) {
	var points []models.CurvePoint
	for _, s := range benchmarkSeries {
		obs, err := f.p.fetchObservations(ctx, s.seriesID, provider.QueryParams{provider.ParamLimit: "1"})
		if err != nil || len(obs) == 0 {
			continue
		}
		o := obs[len(obs)-1]
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
	return points, nil
}
