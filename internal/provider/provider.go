// Package provider defines the data-source abstraction used by the
// fetch pipeline. A Provider wraps one upstream source (FRED, Bank of
// Canada Valet) and exposes Fetchers for the standard model types it
// can serve. A central registry routes requests by model type and
// handles cross-provider fallback.
package provider

import (
	"context"
	"fmt"
	"time"
)

// Credential describes a credential a provider can use.
type Credential struct {
	Name        string `json:"name"`        // e.g., "api_key"
	Description string `json:"description"` // e.g., "FRED API key from fred.stlouisfed.org"
	Required    bool   `json:"required"`
	EnvVar      string `json:"env_var"` // environment variable name, e.g., "FRED_API_KEY"
}

// Info holds metadata about a registered provider.
type Info struct {
	Name        string       `json:"name"`        // e.g., "fred", "boc"
	Description string       `json:"description"` // human-readable description
	Website     string       `json:"website"`     // e.g., "https://fred.stlouisfed.org"
	Credentials []Credential `json:"credentials"`
	Models      []ModelType  `json:"models"` // supported standard models
}

// Provider is the interface all data sources implement. Each provider
// registers one or more Fetcher implementations for specific model
// types (e.g., YieldSeries, FXRate).
type Provider interface {
	// Info returns metadata about this provider.
	Info() Info

	// Init initializes the provider with credentials and configuration.
	// Called once during registration. Returns an error if required
	// credentials are missing.
	Init(credentials map[string]string) error

	// Fetcher returns the fetcher for the given model type, or nil if
	// unsupported.
	Fetcher(model ModelType) Fetcher

	// SupportedModels returns all model types this provider can fetch.
	SupportedModels() []ModelType

	// Ping verifies the provider's connectivity.
	Ping(ctx context.Context) error
}

// QueryParams is the generic query parameter map passed to fetchers.
// Common keys:
//   - "series_id"  : upstream series identifier (e.g., "DGS10",
//     "BD.CDN.10YR.DQ.YLD")
//   - "start_date" : first observation date (YYYY-MM-DD)
//   - "end_date"   : last observation date
//   - "limit"      : max results
//   - "query"      : free-text filter for discovery
//   - "provider"   : override provider name
//
// Each fetcher declares which keys it requires and supports.
type QueryParams map[string]string

// Keys for commonly used query parameters.
const (
	ParamSeriesID  = "series_id"
	ParamStartDate = "start_date"
	ParamEndDate   = "end_date"
	ParamDate      = "date"
	ParamLimit     = "limit"
	ParamQuery     = "query"
	ParamProvider  = "provider"
)

// FetchResult wraps a fetcher result with metadata.
type FetchResult struct {
	Provider  string    `json:"provider"`   // which provider returned this data
	Model     ModelType `json:"model"`      // the standard model type
	Data      any       `json:"data"`       // the fetched data (typed per model)
	FetchedAt time.Time `json:"fetched_at"` // when the data was fetched
	Cached    bool      `json:"cached"`     // whether this came from cache
}

// Fetcher retrieves one standard model type from one upstream source.
type Fetcher interface {
	// ModelType returns the standard model type this fetcher handles.
	ModelType() ModelType

	// Description returns a human-readable description of what this
	// fetcher does.
	Description() string

	// RequiredParams returns the parameter keys this fetcher requires.
	RequiredParams() []string

	// OptionalParams returns the parameter keys this fetcher accepts.
	OptionalParams() []string

	// Fetch retrieves data for the given query parameters. The returned
	// data type depends on the model:
	//   - YieldSeries     → []models.Observation
	//   - FXRate          → []models.FXObservation
	//   - SeriesDiscovery → []models.SeriesInfo
	//   etc.
	Fetch(ctx context.Context, params QueryParams) (*FetchResult, error)
}

// ErrProviderNotFound is returned when a requested provider is not registered.
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return fmt.Sprintf("provider %q not found", e.Name)
}

// ErrModelNotSupported is returned when a provider doesn't support a model type.
type ErrModelNotSupported struct {
	Provider string
	Model    ModelType
}

func (e *ErrModelNotSupported) Error() string {
	return fmt.Sprintf("provider %q does not support model %q", e.Provider, e.Model)
}

// ErrMissingParam is returned when a required query parameter is missing.
type ErrMissingParam struct {
	Param string
}

func (e *ErrMissingParam) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Param)
}

// ErrInvalidCredentials is returned when provider credentials are invalid.
type ErrInvalidCredentials struct {
	Provider string
	Detail   string
}

func (e *ErrInvalidCredentials) Error() string {
	return fmt.Sprintf("invalid credentials for provider %q: %s", e.Provider, e.Detail)
}

// ValidateParams checks that all required parameters are present in params.
func ValidateParams(params QueryParams, required []string) error {
	for _, key := range required {
		if v, ok := params[key]; !ok || v == "" {
			return &ErrMissingParam{Param: key}
		}
	}
	return nil
}
