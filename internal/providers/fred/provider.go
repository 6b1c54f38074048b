// Package fred implements the FRED (Federal Reserve Economic Data)
// provider for US Treasury constant maturity yields.
//
// With an API key (free from fred.stlouisfed.org) observations come
// from the JSON API. Without one, the provider falls back to the public
// fredgraph.csv download endpoint, which needs no key.
// Rate limit: 120 requests/minute.
// Docs: https://fred.stlouisfed.org/docs/api/fred/
package fred

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/curvewatch/curvewatch/internal/infra"
	"github.com/curvewatch/curvewatch/internal/provider"
)

const (
	providerName    = "fred"
	defaultBaseURL  = "https://api.stlouisfed.org/fred"
	defaultGraphURL = "https://fred.stlouisfed.org/graph/fredgraph.csv"
	credAPIKey      = "api_key"
)

// Provider implements provider.Provider for FRED.
type Provider struct {
	provider.BaseProvider
	apiKey string

	// Overridable for tests.
	baseURL  string
	graphURL string
}

// New creates a FRED provider and registers all fetchers.
func New() *Provider {
	p := &Provider{
		BaseProvider: provider.NewBaseProvider(
			providerName,
			"Federal Reserve Economic Data - US Treasury yields",
			"https://fred.stlouisfed.org",
			[]provider.Credential{
				{
					Name:        credAPIKey,
					Description: "FRED API key from fred.stlouisfed.org (optional, enables the JSON API)",
					Required:    false,
					EnvVar:      "FRED_API_KEY",
				},
			},
		),
		baseURL:  defaultBaseURL,
		graphURL: defaultGraphURL,
	}

	p.RegisterFetcher(newYieldSeriesFetcher(p))
	p.RegisterFetcher(newYieldCurveFetcher(p))
	p.RegisterFetcher(newLatestYieldsFetcher(p))
	p.RegisterFetcher(newDiscoveryFetcher(p))

	return p
}

// Init stores the API key if provided.
func (p *Provider) Init(credentials map[string]string) error {
	if err := p.BaseProvider.Init(credentials); err != nil {
		return err
	}
	p.apiKey = credentials[credAPIKey]
	return nil
}

// Ping checks connectivity. With a key it hits the series endpoint,
// otherwise the public CSV download.
func (p *Provider) Ping(ctx context.Context) error {
	var pingURL string
	if p.apiKey != "" {
		pingURL = fmt.Sprintf("%s/series?series_id=DGS10&api_key=%s&file_type=json", p.baseURL, p.apiKey)
	} else {
		pingURL = p.graphURL + "?id=DGS10"
	}
	body, _, err := infra.DoGet(ctx, pingURL, nil)
	if err != nil {
		return fmt.Errorf("fred ping: %w", err)
	}
	body.Close()
	return nil
}

// APIKey returns the stored API key ("" when running keyless).
func (p *Provider) APIKey() string {
	return p.apiKey
}

// SetBaseURLs overrides the API endpoints. Tests point these at an
// httptest server.
func (p *Provider) SetBaseURLs(api, graph string) {
	p.baseURL = api
	p.graphURL = graph
}

// --- Shared helpers ---

func jsonHeaders() map[string]string {
	return map[string]string{"Accept": "application/json"}
}

// apiURL builds a full FRED API URL with api_key and file_type=json
// appended.
func (p *Provider) apiURL(endpoint string) string {
	sep := "?"
	for _, c := range endpoint {
		if c == '?' {
			sep = "&"
			break
		}
	}
	return p.baseURL + "/" + endpoint + sep + "api_key=" + p.apiKey + "&file_type=json"
}

// fetchJSON performs a GET request to the FRED API and decodes JSON.
func (p *Provider) fetchJSON(ctx context.Context, endpoint string, dest any) error {
	body, _, err := infra.DoGet(ctx, p.apiURL(endpoint), jsonHeaders())
	if err != nil {
		return err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read FRED response: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("parse FRED JSON: %w", err)
	}
	return nil
}

// fetchSeries fetches one series, via the JSON API when a key is
// configured or the fredgraph CSV download otherwise. Missing
// observations (value ".") are dropped.
func (p *Provider) fetchSeries(ctx context.Context, seriesID string, params provider.QueryParams) ([]fredObservation, error) {
	if p.apiKey == "" {
		return p.fetchSeriesCSV(ctx, seriesID, params)
	}

	endpoint := fmt.Sprintf("series/observations?series_id=%s", url.QueryEscape(seriesID))
	if sd := params[provider.ParamStartDate]; sd != "" {
		endpoint += "&observation_start=" + sd
	}
	if ed := params[provider.ParamEndDate]; ed != "" {
		endpoint += "&observation_end=" + ed
	}
	if lim := params[provider.ParamLimit]; lim != "" {
		endpoint += "&limit=" + lim + "&sort_order=desc"
	}

	var resp fredObservationsResponse
	if err := p.fetchJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	obs := make([]fredObservation, 0, len(resp.Observations))
	for _, o := range resp.Observations {
		if o.Value == "." {
			continue
		}
		obs = append(obs, o)
	}
	return obs, nil
}

func newResult(data any) *provider.FetchResult {
	return &provider.FetchResult{
		Data:      data,
		FetchedAt: time.Now(),
	}
}

func newCachedResult(data any) *provider.FetchResult {
	return &provider.FetchResult{
		Data:      data,
		FetchedAt: time.Now(),
		Cached:    true,
	}
}
