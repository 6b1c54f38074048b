// Package boc implements the Bank of Canada provider. Government of
// Canada benchmark bond yields and FX rates come from the Valet API,
// which is free and needs no key.
//
// Docs: https://www.bankofcanada.ca/valet/docs
package boc

import (
	"context"
	"fmt"

	"github.com/curvewatch/curvewatch/internal/infra"
	"github.com/curvewatch/curvewatch/internal/provider"
)

const (
	providerName    = "boc"
	defaultValetURL = "https://www.bankofcanada.ca/valet"
	defaultPageURL  = "https://www.bankofcanada.ca/rates/interest-rates/canadian-bonds/"
)

// Provider implements provider.Provider for the Bank of Canada.
type Provider struct {
	provider.BaseProvider

	// Overridable for tests.
	valetURL string
	pageURL  string
}

// New creates a Bank of Canada provider and registers all fetchers.
func New() *Provider {
	p := &Provider{
		BaseProvider: provider.NewBaseProvider(
			providerName,
			"Bank of Canada Valet API - GoC benchmark yields and FX",
			"https://www.bankofcanada.ca",
			nil, // No credentials.
		),
		valetURL: defaultValetURL,
		pageURL:  defaultPageURL,
	}

	p.RegisterFetcher(newYieldSeriesFetcher(p))
	p.RegisterFetcher(newYieldCurveFetcher(p))
	p.RegisterFetcher(newFXFetcher(p))
	p.RegisterFetcher(newDiscoveryFetcher(p))
	p.RegisterFetcher(newLatestYieldsFetcher(p))

	return p
}

// Ping checks Valet connectivity with a one row FX query.
func (p *Provider) Ping(ctx context.Context) error {
	url := p.valetURL + "/observations/FXUSDCAD/json?recent=1"
	body, _, err := infra.DoGet(ctx, url, jsonHeaders())
	if err != nil {
		return fmt.Errorf("boc ping: %w", err)
	}
	body.Close()
	return nil
}

// SetBaseURLs overrides the Valet and rates page endpoints. Tests point
// these at an httptest server.
func (p *Provider) SetBaseURLs(valet, page string) {
	p.valetURL = valet
	p.pageURL = page
}

func jsonHeaders() map[string]string {
	return map[string]string{"Accept": "application/json"}
}
