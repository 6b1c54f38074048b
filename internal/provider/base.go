package provider

import (
	"context"
	"sort"
	"time"

	"github.com/curvewatch/curvewatch/internal/infra"
)

// BaseFetcher provides common functionality for fetcher implementations.
// Embed this in concrete fetchers to get caching and rate limiting.
type BaseFetcher struct {
	model       ModelType
	description string
	required    []string
	optional    []string
	cache       *infra.Cache
	limiter     *infra.RateLimiter
}

// NewBaseFetcher creates a base fetcher with defaults suited to daily
// market data: a 15 minute cache and 5 requests per second.
func NewBaseFetcher(model ModelType, desc string, required, optional []string) BaseFetcher {
	return BaseFetcher{
		model:       model,
		description: desc,
		required:    required,
		optional:    optional,
		cache:       infra.NewCache(15 * time.Minute),
		limiter:     infra.NewRateLimiter(5, time.Second),
	}
}

func (b *BaseFetcher) ModelType() ModelType     { return b.model }
func (b *BaseFetcher) Description() string      { return b.description }
func (b *BaseFetcher) RequiredParams() []string { return b.required }
func (b *BaseFetcher) OptionalParams() []string { return b.optional }

// CacheGet retrieves a value from the fetcher's cache.
func (b *BaseFetcher) CacheGet(key string) (any, bool) {
	return b.cache.Get(key)
}

// CacheSet stores a value in the fetcher's cache.
func (b *BaseFetcher) CacheSet(key string, value any) {
	b.cache.Set(key, value)
}

// RateLimit waits until a request slot is available.
func (b *BaseFetcher) RateLimit(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}

// CacheKey builds a deterministic cache key from model type and params.
// The provider override is excluded so the same query hits the same
// entry regardless of routing.
func CacheKey(model ModelType, params QueryParams) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == ParamProvider {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	key := string(model)
	for _, k := range keys {
		key += ":" + k + "=" + params[k]
	}
	return key
}

// BaseProvider provides common functionality for provider implementations.
type BaseProvider struct {
	info        Info
	fetchers    map[ModelType]Fetcher
	credentials map[string]string
}

// NewBaseProvider creates a base provider.
func NewBaseProvider(name, description, website string, creds []Credential) BaseProvider {
	return BaseProvider{
		info: Info{
			Name:        name,
			Description: description,
			Website:     website,
			Credentials: creds,
		},
		fetchers:    make(map[ModelType]Fetcher),
		credentials: make(map[string]string),
	}
}

func (bp *BaseProvider) Info() Info { return bp.info }

func (bp *BaseProvider) Init(credentials map[string]string) error {
	for _, cred := range bp.info.Credentials {
		if cred.Required {
			val, ok := credentials[cred.Name]
			if !ok || val == "" {
				return &ErrInvalidCredentials{
					Provider: bp.info.Name,
					Detail:   "missing required credential: " + cred.Name,
				}
			}
		}
	}
	bp.credentials = credentials
	return nil
}

func (bp *BaseProvider) Fetcher(model ModelType) Fetcher {
	return bp.fetchers[model]
}

func (bp *BaseProvider) SupportedModels() []ModelType {
	models := make([]ModelType, 0, len(bp.fetchers))
	for m := range bp.fetchers {
		models = append(models, m)
	}
	return models
}

func (bp *BaseProvider) Ping(ctx context.Context) error {
	return nil // Override in concrete providers.
}

// RegisterFetcher adds a fetcher to this provider.
func (bp *BaseProvider) RegisterFetcher(f Fetcher) {
	bp.fetchers[f.ModelType()] = f
	bp.info.Models = bp.SupportedModels()
}

// Credential returns a stored credential value.
func (bp *BaseProvider) Credential(name string) string {
	return bp.credentials[name]
}
