// Package releases fetches data-release announcements from the
// upstream sources' RSS feeds.
package releases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/curvewatch/curvewatch/internal/infra"
	"github.com/curvewatch/curvewatch/pkg/models"
)

// Source is one announcement feed.
type Source struct {
	Name   string
	RSSURL string
}

// DefaultSources lists the feeds covering both data publishers.
var DefaultSources = []Source{
	{
		Name:   "FRED Announcements",
		RSSURL: "https://news.research.stlouisfed.org/category/fred-announcements/feed/",
	},
	{
		Name:   "Bank of Canada Press",
		RSSURL: "https://www.bankofcanada.ca/content_type/press-releases/feed/",
	},
}

// Feed aggregates release announcements across sources.
type Feed struct {
	sources []Source
	cache   *infra.Cache
	limiter *infra.RateLimiter
	parser  *gofeed.Parser
}

// New creates a feed over the default sources.
func New() *Feed {
	return NewWithSources(DefaultSources)
}

// NewWithSources creates a feed over custom sources.
func NewWithSources(sources []Source) *Feed {
	return &Feed{
		sources: sources,
		cache:   infra.NewCache(10 * time.Minute),
		limiter: infra.NewRateLimiter(2, time.Second),
		parser:  gofeed.NewParser(),
	}
}

// Latest returns recent announcements from all sources, newest first.
// Failed sources are skipped; an error is returned only when every
// source fails.
func (f *Feed) Latest(ctx context.Context, limit int) ([]models.ReleaseItem, error) {
	cacheKey := fmt.Sprintf("releases:%d", limit)
	if cached, ok := f.cache.Get(cacheKey); ok {
		return cached.([]models.ReleaseItem), nil
	}

	var items []models.ReleaseItem
	var lastErr error
	for _, src := range f.sources {
		got, err := f.fetchRSS(ctx, src)
		if err != nil {
			lastErr = err
			continue
		}
		items = append(items, got...)
	}
	if len(items) == 0 && lastErr != nil {
		return nil, fmt.Errorf("all release feeds failed: %w", lastErr)
	}

	sortByPublished(items)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	f.cache.Set(cacheKey, items)
	return items, nil
}

// Search returns announcements whose title or summary mentions the
// query, case-insensitive.
func (f *Feed) Search(ctx context.Context, query string, limit int) ([]models.ReleaseItem, error) {
	all, err := f.Latest(ctx, 0)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	var filtered []models.ReleaseItem
	for _, it := range all {
		if strings.Contains(strings.ToLower(it.Title+" "+it.Summary), q) {
			filtered = append(filtered, it)
		}
	}
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

// fetchRSS parses one feed into release items.
func (f *Feed) fetchRSS(ctx context.Context, src Source) ([]models.ReleaseItem, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	feed, err := f.parser.ParseURLWithContext(src.RSSURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse RSS %s: %w", src.Name, err)
	}

	items := make([]models.ReleaseItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		it := models.ReleaseItem{
			Source:  src.Name,
			Title:   item.Title,
			Link:    item.Link,
			Summary: cleanHTML(item.Description),
		}
		if item.PublishedParsed != nil {
			it.Published = *item.PublishedParsed
		}
		items = append(items, it)
	}
	return items, nil
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

// sortByPublished sorts items newest first. Insertion sort is fine for
// feed-sized slices.
func sortByPublished(items []models.ReleaseItem) {
	for i := 1; i < len(items); i++ {
		key := items[i]
		j := i - 1
		for j >= 0 && items[j].Published.Before(key.Published) {
			items[j+1] = items[j]
			j--
		}
		items[j+1] = key
	}
}
