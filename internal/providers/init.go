// Package providers initializes and registers the concrete data
// providers with the global provider registry.
package providers

import (
	"os"

	"github.com/curvewatch/curvewatch/internal/provider"
	"github.com/curvewatch/curvewatch/internal/providers/boc"
	"github.com/curvewatch/curvewatch/internal/providers/fred"
)

// RegisterAll creates and registers all providers with the global
// registry. FRED picks up FRED_API_KEY from the environment when set
// and runs keyless otherwise.
func RegisterAll() error {
	return RegisterAllTo(provider.Global())
}

// RegisterAllTo registers all providers to the given registry, taking
// the FRED key from the environment.
func RegisterAllTo(reg *provider.Registry) error {
	return RegisterAllWithKey(reg, os.Getenv("FRED_API_KEY"))
}

// RegisterAllWithKey registers all providers with an explicit FRED key,
// letting a config-file credential take effect.
func RegisterAllWithKey(reg *provider.Registry, fredAPIKey string) error {
	// --- FRED (US Treasury yields, key optional) ---
	fp := fred.New()
	creds := map[string]string{}
	if fredAPIKey != "" {
		creds["api_key"] = fredAPIKey
	}
	if err := fp.Init(creds); err != nil {
		return err
	}
	if err := reg.Register(fp); err != nil {
		return err
	}

	// --- Bank of Canada Valet (free, no key) ---
	bp := boc.New()
	if err := bp.Init(nil); err != nil {
		return err
	}
	if err := reg.Register(bp); err != nil {
		return err
	}

	return nil
}
