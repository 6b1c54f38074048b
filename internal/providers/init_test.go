package providers

import (
	"testing"

	"github.com/curvewatch/curvewatch/internal/provider"
)

func TestRegisterAllTo(t *testing.T) {
	reg := provider.NewRegistry()
	if err := RegisterAllTo(reg); err != nil {
		t.Fatalf("RegisterAllTo: %v", err)
	}

	for _, name := range []string{"fred", "boc"} {
		if _, err := reg.Get(name); err != nil {
			t.Errorf("provider %s not registered: %v", name, err)
		}
	}

	// Both sources serve yield series; FRED registered first is the default.
	provs := reg.ProvidersFor(provider.ModelYieldSeries)
	if len(provs) != 2 {
		t.Fatalf("expected 2 yield series providers, got %d", len(provs))
	}
	def, ok := reg.DefaultProvider(provider.ModelYieldSeries)
	if !ok || def != "fred" {
		t.Errorf("default = %q, want fred", def)
	}

	// FX comes only from the Bank of Canada.
	if provs := reg.ProvidersFor(provider.ModelFXRate); len(provs) != 1 || provs[0] != "boc" {
		t.Errorf("unexpected FX providers: %v", provs)
	}
}
